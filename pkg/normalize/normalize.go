// Package normalize provides pure field normalization for incoming license
// records. Nothing here performs I/O and nothing here panics; every per-field
// failure degrades to a safe default.
package normalize

import (
	"math"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/SGK112/remodely-importer/pkg/models"
)

// UnknownBusinessName is stored when a row carries no usable business name.
const UnknownBusinessName = "Unknown Business"

const (
	// DefaultCity and DefaultState are the platform's home market, applied
	// when the feed leaves a record's location blank.
	DefaultCity  = "Phoenix"
	DefaultState = "AZ"

	maxYearsInBusiness = 50
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	poBoxRe      = regexp.MustCompile(`(?i)^p\.?\s*o\.?\s*box\s+`)
	zipRe        = regexp.MustCompile(`\d{5}`)
)

// dateLayouts are tried in order when parsing feed dates.
var dateLayouts = []string{
	"1/2/2006",
	"01/02/2006",
	"2006-01-02",
	"Jan 2, 2006",
	"January 2, 2006",
	time.RFC3339,
}

// Record converts a raw feed row into its canonical form. Classification is
// not attached here; the taxonomy package fills Specialties and Categories.
func Record(raw *models.IncomingRecord, now time.Time) *models.NormalizedRecord {
	issued := ParseDate(raw.IssuedDate)
	expires := ParseDate(raw.ExpirationDate)

	rec := &models.NormalizedRecord{
		LicenseNumber:   strings.TrimSpace(raw.LicenseNumber),
		BusinessName:    BusinessName(raw.BusinessName),
		DBAName:         dbaName(raw.DoingBusinessAs),
		Address:         Address(raw.Address),
		City:            defaultIfBlank(raw.City, DefaultCity),
		State:           defaultIfBlank(raw.State, DefaultState),
		Zip:             Zip(raw.Zip),
		LicenseClass:    strings.TrimSpace(raw.Class),
		ClassDetail:     strings.TrimSpace(raw.ClassDetail),
		LicenseType:     strings.TrimSpace(raw.ClassType),
		QualifyingParty: collapseWhitespace(raw.QualifyingParty),
		Status:          Status(raw.Status),
		IssuedDate:      issued,
		ExpirationDate:  expires,
		YearsInBusiness: YearsInBusiness(issued, now),
		ImportedAt:      now,
	}

	return rec
}

// BusinessName trims, collapses internal whitespace runs and strips characters
// outside [A-Za-z0-9 &.-]. An empty result becomes UnknownBusinessName.
func BusinessName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) && r <= unicode.MaxASCII,
			unicode.IsDigit(r) && r <= unicode.MaxASCII:
			b.WriteRune(r)
		case r == '&' || r == '.' || r == '-' || r == ' ':
			b.WriteRune(r)
		}
	}
	name := collapseWhitespace(b.String())
	if name == "" {
		return UnknownBusinessName
	}
	return name
}

// Address trims, collapses whitespace and canonicalizes any leading PO Box
// variant ("P.O. Box", "PO BOX", "p o box") to the "PO Box " prefix.
func Address(s string) string {
	addr := collapseWhitespace(s)
	if loc := poBoxRe.FindStringIndex(addr); loc != nil {
		addr = "PO Box " + addr[loc[1]:]
	}
	return addr
}

// Zip extracts the first run of 5 consecutive digits; empty when none found.
func Zip(s string) string {
	return zipRe.FindString(s)
}

// Status trims and title-cases a license status ("ACTIVE " -> "Active").
func Status(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// ParseDate attempts the known feed date layouts and returns nil on failure.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// YearsInBusiness estimates tenure from the license issue date:
// max(1, floor(elapsed/365d)) clamped to 50. A nil issue date yields 1.
func YearsInBusiness(issued *time.Time, now time.Time) int {
	if issued == nil {
		return 1
	}
	days := now.Sub(*issued).Hours() / 24
	years := int(math.Floor(days / 365))
	if years < 1 {
		return 1
	}
	if years > maxYearsInBusiness {
		return maxYearsInBusiness
	}
	return years
}

func dbaName(s string) *string {
	dba := collapseWhitespace(s)
	if dba == "" {
		return nil
	}
	return &dba
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

func defaultIfBlank(s, def string) string {
	s = collapseWhitespace(s)
	if s == "" {
		return def
	}
	return s
}
