// Package repositories assembles the Postgres repositories into the store
// interface the import pipeline consumes.
package repositories

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/SGK112/remodely-importer/internal/repositories/contractor"
	"github.com/SGK112/remodely-importer/internal/repositories/user"
	"github.com/SGK112/remodely-importer/pkg/database"
	"github.com/SGK112/remodely-importer/pkg/models"
	"github.com/SGK112/remodely-importer/pkg/store"
)

// PostgresStore implements store.Store on top of the contractor and user
// repositories.
type PostgresStore struct {
	contractors *contractor.Repository
	users       *user.Repository
}

// NewPostgresStore creates a Postgres-backed store.
func NewPostgresStore(db database.DB, logger ectologger.Logger) *PostgresStore {
	return &PostgresStore{
		contractors: contractor.NewRepository(db, logger),
		users:       user.NewRepository(db, logger),
	}
}

func (p *PostgresStore) FindContractorByLicenseNumber(ctx context.Context, licenseNumber string) (*models.Contractor, error) {
	return p.contractors.FindByLicenseNumber(ctx, licenseNumber)
}

func (p *PostgresStore) FindContractorByNameCityState(ctx context.Context, name, city, state string) (*models.Contractor, error) {
	return p.contractors.FindByNameCityState(ctx, name, city, state)
}

func (p *PostgresStore) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	return p.users.Create(ctx, u)
}

func (p *PostgresStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return p.users.FindByEmail(ctx, email)
}

func (p *PostgresStore) CreateContractor(ctx context.Context, c *models.Contractor) (*models.Contractor, error) {
	return p.contractors.Create(ctx, c)
}

func (p *PostgresStore) UpdateContractor(ctx context.Context, id string, update *models.ContractorUpdate) (*models.Contractor, error) {
	return p.contractors.Update(ctx, id, update)
}

func (p *PostgresStore) GetContractorSpecialties(ctx context.Context, id string) ([]string, error) {
	return p.contractors.GetSpecialties(ctx, id)
}

func (p *PostgresStore) Snapshot(ctx context.Context) (*store.Snapshot, error) {
	return p.contractors.Snapshot(ctx)
}

var _ store.Store = (*PostgresStore)(nil)
