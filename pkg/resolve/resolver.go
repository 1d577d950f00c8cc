// Package resolve determines whether an incoming record corresponds to a
// contractor the store already carries.
package resolve

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/SGK112/remodely-importer/pkg/models"
	"github.com/SGK112/remodely-importer/pkg/store"
	"github.com/SGK112/remodely-importer/pkg/tracing"
)

// Resolver matches incoming records against stored contractors using a strict
// strategy order: license number first, then the case-insensitive
// (business name, city, state) triple over contractors with no license on
// file. The first strategy that matches wins.
type Resolver struct {
	store  store.Store
	logger ectologger.Logger
}

// NewResolver creates an identity resolver backed by st.
func NewResolver(st store.Store, logger ectologger.Logger) *Resolver {
	return &Resolver{
		store:  st,
		logger: logger,
	}
}

// Resolve returns the existing contractor for rec, or nil when the record is
// new. A lookup failure is logged and returned so the run summary can record
// the anomaly; it is never silently treated as "not found".
func (r *Resolver) Resolve(ctx context.Context, rec *models.NormalizedRecord) (*models.Contractor, error) {
	ctx, span := tracing.StartSpan(ctx, "resolve.Resolver.Resolve")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"license_number": rec.LicenseNumber,
		"business_name":  rec.BusinessName,
	})

	// License number is authoritative and globally unique when present.
	match, err := r.store.FindContractorByLicenseNumber(ctx, rec.LicenseNumber)
	if err != nil {
		log.WithError(err).Error("License number lookup failed")
		return nil, fmt.Errorf("license lookup for %s: %w", rec.LicenseNumber, err)
	}
	if match != nil {
		log.WithFields(map[string]any{"contractor_id": match.ID}).Debug("Resolved by license number")
		return match, nil
	}

	// Heuristic fallback for contractors the platform already carries without
	// a license on file (e.g. entered manually before this feed existed). The
	// store only matches unlicensed rows here, so a record can claim a legacy
	// profile but never a contractor holding a different license.
	match, err = r.store.FindContractorByNameCityState(ctx, rec.BusinessName, rec.City, rec.State)
	if err != nil {
		log.WithError(err).Error("Name/city/state lookup failed")
		return nil, fmt.Errorf("name lookup for %s: %w", rec.BusinessName, err)
	}
	if match != nil {
		log.WithFields(map[string]any{"contractor_id": match.ID}).Debug("Resolved by name, city and state")
		return match, nil
	}

	return nil, nil
}
