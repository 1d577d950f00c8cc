package models

import "time"

// IncomingRecord is one raw row from the ROC license extract. It is validated
// at the parse boundary and discarded after normalization; only LicenseNumber
// is required for a row to enter the pipeline.
type IncomingRecord struct {
	Sequence        string `json:"sequence"`
	LicenseNumber   string `json:"license_number" validate:"required"`
	BusinessName    string `json:"business_name"`
	DoingBusinessAs string `json:"doing_business_as"`
	Address         string `json:"address"`
	City            string `json:"city"`
	State           string `json:"state"`
	Zip             string `json:"zip"`
	Class           string `json:"class"`
	ClassDetail     string `json:"class_detail"`
	ClassType       string `json:"class_type"`
	QualifyingParty string `json:"qualifying_party"`
	IssuedDate      string `json:"issued_date"`
	ExpirationDate  string `json:"expiration_date"`
	Status          string `json:"status"`
}

// NormalizedRecord is the canonical form of an incoming row, owned by the
// pipeline for the duration of one import run. Specialties and Categories are
// attached by the classifier before the record reaches the merge engine and
// are always non-empty.
type NormalizedRecord struct {
	LicenseNumber   string
	BusinessName    string
	DBAName         *string
	Address         string
	City            string
	State           string
	Zip             string
	LicenseClass    string
	ClassDetail     string
	LicenseType     string
	QualifyingParty string
	Status          string
	IssuedDate      *time.Time
	ExpirationDate  *time.Time
	YearsInBusiness int
	Specialties     []string
	Categories      []string
	ImportedAt      time.Time
}

// DisplayName returns the DBA name when present, falling back to the legal
// business name.
func (r *NormalizedRecord) DisplayName() string {
	if r.DBAName != nil && *r.DBAName != "" {
		return *r.DBAName
	}
	return r.BusinessName
}
