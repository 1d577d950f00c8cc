// Package store defines the persistence interface the import pipeline
// consumes. The pipeline is written against this interface so the resolver
// and merge engine can run against Postgres in production and the in-memory
// implementation in tests.
package store

import (
	"context"
	"errors"

	"github.com/SGK112/remodely-importer/pkg/models"
)

// ErrConflict reports a unique-constraint violation, most importantly a
// duplicate license number raced in by a concurrent insert. The merge engine
// converts it into an update rather than a terminal error.
var ErrConflict = errors.New("store: unique constraint conflict")

// Snapshot is the optional post-run view of the contractor table.
type Snapshot struct {
	TotalContractors int `json:"total_contractors" db:"total_contractors"`
	ROCVerifiedCount int `json:"roc_verified_count" db:"roc_verified_count"`
}

// Store is the persistent contractor store. Find methods return (nil, nil)
// when no row matches; errors are reserved for lookup failures.
type Store interface {
	FindContractorByLicenseNumber(ctx context.Context, licenseNumber string) (*models.Contractor, error)
	FindContractorByNameCityState(ctx context.Context, name, city, state string) (*models.Contractor, error)
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateContractor(ctx context.Context, contractor *models.Contractor) (*models.Contractor, error)
	UpdateContractor(ctx context.Context, id string, update *models.ContractorUpdate) (*models.Contractor, error)
	GetContractorSpecialties(ctx context.Context, id string) ([]string, error)
	Snapshot(ctx context.Context) (*Snapshot, error)
}
