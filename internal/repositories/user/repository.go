// Package user persists the backing user accounts created for imported
// contractors.
package user

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

// Repository handles user persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new user repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new user. A duplicate placeholder email is reported as
// store.ErrConflict.
func (r *Repository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "user.Repository.Create")
	defer span.End()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("users")
	sb.Cols("id", "name", "email", "user_type", "email_verified", "imported_at", "created_at", "updated_at")
	sb.Values(user.ID, user.Name, user.Email, user.UserType, user.EmailVerified, user.ImportedAt, user.CreatedAt, user.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, store.ErrConflict
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create user")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create user")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": user.ID}).Info("Created user")
	return user, nil
}

// FindByEmail retrieves the user holding the given email address. Returns
// (nil, nil) when no user holds it.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "user.Repository.FindByEmail")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name", "email", "user_type", "email_verified", "imported_at", "created_at", "updated_at")
	sb.From("users")
	sb.Where("LOWER(email) = LOWER(" + sb.Var(email) + ")")
	sb.Limit(1)

	query, args := sb.Build()
	var u models.User
	if err := r.db.GetContext(ctx, &u, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to find user by email")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find user by email")
	}

	return &u, nil
}
