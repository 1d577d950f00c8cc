// Package contractor persists contractor rows for the import pipeline.
package contractor

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"github.com/SGK112/remodely-importer/pkg/database"
	"github.com/SGK112/remodely-importer/pkg/models"
	"github.com/SGK112/remodely-importer/pkg/store"
	"github.com/SGK112/remodely-importer/pkg/tracing"
)

var contractorColumns = []string{
	"id", "user_id", "business_name", "dba_name", "description",
	"address", "city", "state", "zip",
	"specialties", "categories",
	"license_number", "license_class", "license_type", "license_status",
	"license_issued", "license_expires", "qualifying_party",
	"is_verified", "verified", "is_roc_verified", "verified_at",
	"profile_complete", "years_in_business", "rating", "review_count",
	"scraped_from", "last_scraped_at", "imported_at",
	"created_at", "updated_at",
}

// Repository handles contractor persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new contractor repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// FindByLicenseNumber retrieves the contractor holding the given license.
// Returns (nil, nil) when no contractor holds it.
func (r *Repository) FindByLicenseNumber(ctx context.Context, licenseNumber string) (*models.Contractor, error) {
	ctx, span := tracing.StartSpan(ctx, "contractor.Repository.FindByLicenseNumber")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(contractorColumns...)
	sb.From("contractors")
	sb.Where(sb.Equal("license_number", licenseNumber))
	sb.Limit(1)

	query, args := sb.Build()
	var contractor models.Contractor
	if err := r.db.GetContext(ctx, &contractor, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to find contractor by license number")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find contractor by license number")
	}

	return &contractor, nil
}

// FindByNameCityState retrieves an unlicensed contractor by case-insensitive
// business name, city and state. Rows already holding a license number are
// excluded so distinct licensees sharing a name never collapse into one row.
// When several match, the lowest id wins so repeat runs resolve to the same
// row. Returns (nil, nil) when none match.
func (r *Repository) FindByNameCityState(ctx context.Context, name, city, state string) (*models.Contractor, error) {
	ctx, span := tracing.StartSpan(ctx, "contractor.Repository.FindByNameCityState")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(contractorColumns...)
	sb.From("contractors")
	sb.Where(
		"LOWER(business_name) = LOWER("+sb.Var(name)+")",
		"LOWER(city) = LOWER("+sb.Var(city)+")",
		"LOWER(state) = LOWER("+sb.Var(state)+")",
		sb.IsNull("license_number"),
	)
	sb.OrderBy("id").Asc()
	sb.Limit(1)

	query, args := sb.Build()
	var contractor models.Contractor
	if err := r.db.GetContext(ctx, &contractor, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to find contractor by name, city and state")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find contractor by name")
	}

	return &contractor, nil
}

// Create inserts a new contractor. A unique-constraint violation, such as a
// concurrently inserted duplicate license, is reported as store.ErrConflict.
func (r *Repository) Create(ctx context.Context, contractor *models.Contractor) (*models.Contractor, error) {
	ctx, span := tracing.StartSpan(ctx, "contractor.Repository.Create")
	defer span.End()

	if contractor.ID == "" {
		contractor.ID = uuid.New().String()
	}
	contractor.CreatedAt = time.Now().UTC()
	contractor.UpdatedAt = contractor.CreatedAt

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("contractors")
	sb.Cols(contractorColumns...)
	sb.Values(
		contractor.ID, contractor.UserID, contractor.BusinessName, contractor.DBAName, contractor.Description,
		contractor.Address, contractor.City, contractor.State, contractor.Zip,
		contractor.Specialties, contractor.Categories,
		contractor.LicenseNumber, contractor.LicenseClass, contractor.LicenseType, contractor.LicenseStatus,
		contractor.LicenseIssued, contractor.LicenseExpires, contractor.QualifyingParty,
		contractor.IsVerified, contractor.Verified, contractor.IsROCVerified, contractor.VerifiedAt,
		contractor.ProfileComplete, contractor.YearsInBusiness, contractor.Rating, contractor.ReviewCount,
		contractor.ScrapedFrom, contractor.LastScrapedAt, contractor.ImportedAt,
		contractor.CreatedAt, contractor.UpdatedAt,
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create contractor")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create contractor")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": contractor.ID}).Info("Created contractor")
	return contractor, nil
}

// Update applies a license-feed merge to an existing contractor and stamps it
// verified. The update payload carries the already-unioned specialty and
// category sets and the already-maxed years in business.
func (r *Repository) Update(ctx context.Context, id string, update *models.ContractorUpdate) (*models.Contractor, error) {
	ctx, span := tracing.StartSpan(ctx, "contractor.Repository.Update")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("contractors")
	sb.Set(
		sb.Assign("license_number", update.LicenseNumber),
		sb.Assign("license_class", update.LicenseClass),
		sb.Assign("license_type", update.LicenseType),
		sb.Assign("license_status", update.LicenseStatus),
		sb.Assign("license_issued", update.LicenseIssued),
		sb.Assign("license_expires", update.LicenseExpires),
		sb.Assign("qualifying_party", update.QualifyingParty),
		sb.Assign("specialties", database.NewJSONB(update.Specialties)),
		sb.Assign("categories", database.NewJSONB(update.Categories)),
		sb.Assign("years_in_business", update.YearsInBusiness),
		sb.Assign("is_verified", true),
		sb.Assign("verified", true),
		sb.Assign("is_roc_verified", true),
		sb.Assign("verified_at", update.VerifiedAt),
		sb.Assign("last_scraped_at", update.LastScrapedAt),
		sb.Assign("imported_at", update.ImportedAt),
		sb.Assign("updated_at", now),
	)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	// The write and the re-read share a transaction so the returned row is
	// exactly what this update produced.
	txCtx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	result, err := tx.ExecContext(txCtx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update contractor")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update contractor")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "contractor not found")
	}

	selectQuery, selectArgs := buildSelectByID(id)
	var contractor models.Contractor
	if err := tx.GetContext(txCtx, &contractor, selectQuery, selectArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to reload updated contractor")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to reload contractor")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit contractor update")
	}

	return &contractor, nil
}

// GetSpecialties returns the stored specialty list for a contractor.
func (r *Repository) GetSpecialties(ctx context.Context, id string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "contractor.Repository.GetSpecialties")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("specialties")
	sb.From("contractors")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var specialties database.JSONB[[]string]
	if err := r.db.GetContext(ctx, &specialties, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, "contractor not found")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get contractor specialties")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get contractor specialties")
	}

	return specialties.GetValue(), nil
}

// Snapshot reports table-level counts after an import run.
func (r *Repository) Snapshot(ctx context.Context) (*store.Snapshot, error) {
	ctx, span := tracing.StartSpan(ctx, "contractor.Repository.Snapshot")
	defer span.End()

	query := `SELECT COUNT(*) AS total_contractors, COUNT(*) FILTER (WHERE is_roc_verified) AS roc_verified_count FROM contractors`

	var snapshot store.Snapshot
	if err := r.db.GetContext(ctx, &snapshot, query); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to read contractor snapshot")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to read contractor snapshot")
	}

	return &snapshot, nil
}

func buildSelectByID(id string) (string, []any) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(contractorColumns...)
	sb.From("contractors")
	sb.Where(sb.Equal("id", id))
	return sb.Build()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
