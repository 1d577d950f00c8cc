// Package models contains the persistent and pipeline record types for the
// contractor import service.
package models

import (
	"time"

	"github.com/SGK112/remodely-importer/pkg/database"
)

// UserTypeContractor is the account type tag stamped on users created by the importer.
const UserTypeContractor = "CONTRACTOR"

// User owns a contractor profile. The importer only ever creates users on the
// create path; update-path merges never touch the users table.
type User struct {
	ID            string     `json:"id" db:"id"`
	Name          string     `json:"name" db:"name"`
	Email         string     `json:"email" db:"email"`
	UserType      string     `json:"user_type" db:"user_type"`
	EmailVerified bool       `json:"email_verified" db:"email_verified"`
	ImportedAt    *time.Time `json:"imported_at,omitempty" db:"imported_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// Contractor is the long-lived platform entity the pipeline reconciles into.
// Field order matches schema: id, user_id, business_name, dba_name, ...
type Contractor struct {
	ID           string  `json:"id" db:"id"`
	UserID       string  `json:"user_id" db:"user_id"`
	BusinessName string  `json:"business_name" db:"business_name"`
	DBAName      *string `json:"dba_name,omitempty" db:"dba_name"`
	Description  string  `json:"description" db:"description"`

	Address string `json:"address" db:"address"`
	City    string `json:"city" db:"city"`
	State   string `json:"state" db:"state"`
	Zip     string `json:"zip" db:"zip"`

	Specialties database.JSONB[[]string] `json:"specialties" db:"specialties"`
	Categories  database.JSONB[[]string] `json:"categories" db:"categories"`

	LicenseNumber   *string    `json:"license_number,omitempty" db:"license_number"`
	LicenseClass    string     `json:"license_class" db:"license_class"`
	LicenseType     string     `json:"license_type" db:"license_type"`
	LicenseStatus   string     `json:"license_status" db:"license_status"`
	LicenseIssued   *time.Time `json:"license_issued,omitempty" db:"license_issued"`
	LicenseExpires  *time.Time `json:"license_expires,omitempty" db:"license_expires"`
	QualifyingParty string     `json:"qualifying_party" db:"qualifying_party"`

	IsVerified    bool       `json:"is_verified" db:"is_verified"`
	Verified      bool       `json:"verified" db:"verified"`
	IsROCVerified bool       `json:"is_roc_verified" db:"is_roc_verified"`
	VerifiedAt    *time.Time `json:"verified_at,omitempty" db:"verified_at"`

	ProfileComplete bool    `json:"profile_complete" db:"profile_complete"`
	YearsInBusiness int     `json:"years_in_business" db:"years_in_business"`
	Rating          float64 `json:"rating" db:"rating"`
	ReviewCount     int     `json:"review_count" db:"review_count"`

	ScrapedFrom   string     `json:"scraped_from" db:"scraped_from"`
	LastScrapedAt *time.Time `json:"last_scraped_at,omitempty" db:"last_scraped_at"`
	ImportedAt    *time.Time `json:"imported_at,omitempty" db:"imported_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// GetSpecialties returns the stored specialty list.
func (c *Contractor) GetSpecialties() []string {
	return c.Specialties.GetValue()
}

// GetCategories returns the stored category list.
func (c *Contractor) GetCategories() []string {
	return c.Categories.GetValue()
}

// ContractorUpdate carries the update-path merge for an existing contractor.
// License and verification fields always overwrite; Specialties and Categories
// must already be the unioned sets; YearsInBusiness must already be the max of
// the stored and newly estimated values.
type ContractorUpdate struct {
	LicenseNumber   string
	LicenseClass    string
	LicenseType     string
	LicenseStatus   string
	LicenseIssued   *time.Time
	LicenseExpires  *time.Time
	QualifyingParty string

	Specialties     []string
	Categories      []string
	YearsInBusiness int

	VerifiedAt    time.Time
	LastScrapedAt time.Time
	ImportedAt    time.Time
}
