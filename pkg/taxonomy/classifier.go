// Package taxonomy maps ROC license classes onto the platform's specialty and
// category vocabulary. Classification is total: every class code, known or
// not, resolves to at least one specialty/category pair.
package taxonomy

import (
	"sort"
	"strings"
)

// Fallback pair for license classes the table does not know.
const (
	FallbackSpecialty = "General Services"
	FallbackCategory  = "Other"
)

// Pair is one specialty tag and the coarser category it belongs to.
type Pair struct {
	Specialty string
	Category  string
}

// Classification is the deduplicated specialty and category sets for one
// record. Both slices are sorted so set equality is plain slice equality.
type Classification struct {
	Specialties []string
	Categories  []string
}

// classTable maps ROC license-class codes to platform pairs. Residential (R-)
// and commercial (C-) variants of a trade map to the same pairs; dual-license
// CR- codes are listed separately where the platform distinguishes them.
var classTable = map[string][]Pair{
	"B":   {{"General Contracting", "General"}},
	"B-1": {{"General Contracting", "General"}},
	"B-2": {{"General Contracting", "General"}, {"Residential Remodeling", "General"}},
	"B-3": {{"General Contracting", "General"}, {"Home Additions", "General"}},

	"KB-1": {{"Kitchen Renovation", "Kitchen & Bath"}, {"Bathroom Remodeling", "Kitchen & Bath"}},
	"KB-2": {{"Kitchen Renovation", "Kitchen & Bath"}, {"Bathroom Remodeling", "Kitchen & Bath"}},

	"R-11": {{"Electrical", "Electrical"}},
	"C-11": {{"Electrical", "Electrical"}},
	"R-37": {{"Plumbing", "Plumbing"}},
	"C-37": {{"Plumbing", "Plumbing"}},
	"R-39": {{"HVAC", "Heating & Cooling"}},
	"C-39": {{"HVAC", "Heating & Cooling"}},

	"CR-6":  {{"Pool Installation", "Outdoor & Landscaping"}},
	"CR-21": {{"Landscaping", "Outdoor & Landscaping"}},
	"CR-34": {{"Painting", "Painting"}},
	"CR-40": {{"Solar Installation", "Electrical"}},
	"CR-42": {{"Roofing", "Roofing"}},
	"CR-48": {{"Tile & Stone", "Flooring"}},
	"CR-60": {{"Concrete", "Masonry & Concrete"}},
	"CR-61": {{"Carpentry", "General"}},
}

// keywordTriggers appends pairs when the free-text class detail mentions a
// trade the class code alone does not capture.
var keywordTriggers = []struct {
	keyword string
	pairs   []Pair
}{
	{"kitchen", []Pair{{"Kitchen Renovation", "Kitchen & Bath"}}},
	{"bathroom", []Pair{{"Bathroom Remodeling", "Kitchen & Bath"}}},
	{"bath", []Pair{{"Bathroom Remodeling", "Kitchen & Bath"}}},
	{"cabinet", []Pair{{"Cabinetry", "Kitchen & Bath"}}},
	{"counter", []Pair{{"Countertops", "Kitchen & Bath"}}},
	{"flooring", []Pair{{"Flooring", "Flooring"}}},
	{"floor", []Pair{{"Flooring", "Flooring"}}},
	{"tile", []Pair{{"Tile & Stone", "Flooring"}}},
	{"concrete", []Pair{{"Concrete", "Masonry & Concrete"}}},
	{"masonry", []Pair{{"Masonry", "Masonry & Concrete"}}},
	{"painting", []Pair{{"Painting", "Painting"}}},
	{"paint", []Pair{{"Painting", "Painting"}}},
	{"drywall", []Pair{{"Drywall", "General"}}},
	{"roof", []Pair{{"Roofing", "Roofing"}}},
	{"landscap", []Pair{{"Landscaping", "Outdoor & Landscaping"}}},
	{"pool", []Pair{{"Pool Installation", "Outdoor & Landscaping"}}},
	{"solar", []Pair{{"Solar Installation", "Electrical"}}},
	{"electric", []Pair{{"Electrical", "Electrical"}}},
	{"plumb", []Pair{{"Plumbing", "Plumbing"}}},
}

// Classify resolves a license class code plus its free-text detail into the
// platform vocabulary. Deterministic for identical inputs.
func Classify(classCode, classDetail string) Classification {
	specialties := make(map[string]struct{})
	categories := make(map[string]struct{})

	add := func(pairs []Pair) {
		for _, p := range pairs {
			specialties[p.Specialty] = struct{}{}
			categories[p.Category] = struct{}{}
		}
	}

	code := strings.ToUpper(strings.TrimSpace(classCode))
	if pairs, ok := classTable[code]; ok {
		add(pairs)
	}

	detail := strings.ToLower(classDetail)
	if detail != "" {
		for _, trigger := range keywordTriggers {
			if strings.Contains(detail, trigger.keyword) {
				add(trigger.pairs)
			}
		}
	}

	if len(specialties) == 0 {
		specialties[FallbackSpecialty] = struct{}{}
		categories[FallbackCategory] = struct{}{}
	}

	return Classification{
		Specialties: sortedKeys(specialties),
		Categories:  sortedKeys(categories),
	}
}

// Union merges two specialty or category lists into a sorted, deduplicated set.
func Union(existing, incoming []string) []string {
	merged := make(map[string]struct{}, len(existing)+len(incoming))
	for _, s := range existing {
		if s = strings.TrimSpace(s); s != "" {
			merged[s] = struct{}{}
		}
	}
	for _, s := range incoming {
		if s = strings.TrimSpace(s); s != "" {
			merged[s] = struct{}{}
		}
	}
	return sortedKeys(merged)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
