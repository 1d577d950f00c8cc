// Package merge implements the create/update engine that reconciles
// normalized license records into the contractor store.
package merge

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/SGK112/remodely-importer/pkg/database"
	"github.com/SGK112/remodely-importer/pkg/models"
	"github.com/SGK112/remodely-importer/pkg/resolve"
	"github.com/SGK112/remodely-importer/pkg/store"
	"github.com/SGK112/remodely-importer/pkg/taxonomy"
	"github.com/SGK112/remodely-importer/pkg/tracing"
)

// ScrapedFromROC is the provenance label stamped on imported contractors.
const ScrapedFromROC = "AZ_ROC"

const (
	placeholderEmailDomain = "imported.remodely.ai"
	defaultRating          = 4.0
	slugMaxLen             = 20
)

// Outcome says which path a record took through the engine.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
)

// Result is the settled outcome for one record.
type Result struct {
	Outcome    Outcome
	Contractor *models.Contractor

	// LookupAnomaly holds a resolver failure that was logged and bypassed.
	// The record still took the create path, but the run summary must count
	// the anomaly.
	LookupAnomaly error
}

// Emitter publishes contractor change events. The engine treats emission as
// best effort; failures never fail the record.
type Emitter interface {
	EmitContractorCreated(ctx context.Context, contractor *models.Contractor) error
	EmitContractorUpdated(ctx context.Context, contractor *models.Contractor) error
}

// Engine performs the per-record resolve-then-merge step.
type Engine struct {
	store    store.Store
	resolver *resolve.Resolver
	emitter  Emitter
	logger   ectologger.Logger
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithEmitter attaches a change-event emitter.
func WithEmitter(emitter Emitter) Option {
	return func(e *Engine) {
		e.emitter = emitter
	}
}

// WithClock overrides the engine clock. Tests use it to pin timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a merge engine over st.
func NewEngine(st store.Store, resolver *resolve.Resolver, logger ectologger.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:    st,
		resolver: resolver,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Upsert resolves rec against the store and either creates a new contractor
// (plus its backing user) or merges into the existing one. Contractors are
// never deleted and verification is never downgraded.
func (e *Engine) Upsert(ctx context.Context, rec *models.NormalizedRecord) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "merge.Engine.Upsert")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"license_number": rec.LicenseNumber,
		"business_name":  rec.BusinessName,
	})

	var lookupAnomaly error
	match, err := e.resolver.Resolve(ctx, rec)
	if err != nil {
		// Logged by the resolver; carry it forward so the run summary counts
		// the anomaly, then fall through to the create path. The store's
		// uniqueness constraint backstops a duplicate insert.
		lookupAnomaly = err
		match = nil
	}

	if match != nil {
		updated, err := e.update(ctx, match, rec, log)
		if err != nil {
			return nil, err
		}
		return &Result{Outcome: OutcomeUpdated, Contractor: updated, LookupAnomaly: lookupAnomaly}, nil
	}

	created, err := e.create(ctx, rec, log)
	if errors.Is(err, store.ErrConflict) {
		// Lost a race with a concurrent insert for the same license number.
		// The row exists now, so merge into it instead of failing.
		log.Warn("Create conflicted on license number, retrying as update")
		existing, findErr := e.store.FindContractorByLicenseNumber(ctx, rec.LicenseNumber)
		if findErr != nil || existing == nil {
			return nil, fmt.Errorf("conflict recovery for license %s: %w", rec.LicenseNumber, err)
		}
		updated, updateErr := e.update(ctx, existing, rec, log)
		if updateErr != nil {
			return nil, updateErr
		}
		return &Result{Outcome: OutcomeUpdated, Contractor: updated, LookupAnomaly: lookupAnomaly}, nil
	}
	if err != nil {
		return nil, err
	}

	return &Result{Outcome: OutcomeCreated, Contractor: created, LookupAnomaly: lookupAnomaly}, nil
}

// create builds the backing user account and a fully verified contractor
// profile from the normalized record.
func (e *Engine) create(ctx context.Context, rec *models.NormalizedRecord, log ectologger.Logger) (*models.Contractor, error) {
	ctx, span := tracing.StartSpan(ctx, "merge.Engine.create")
	defer span.End()

	now := e.now()

	user := &models.User{
		ID:            uuid.New().String(),
		Name:          rec.DisplayName(),
		Email:         PlaceholderEmail(rec.BusinessName, rec.LicenseNumber),
		UserType:      models.UserTypeContractor,
		EmailVerified: false,
		ImportedAt:    &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	user, err := e.createOrReuseUser(ctx, user, log)
	if err != nil {
		return nil, err
	}

	license := rec.LicenseNumber
	contractor := &models.Contractor{
		ID:           uuid.New().String(),
		UserID:       user.ID,
		BusinessName: rec.BusinessName,
		DBAName:      rec.DBAName,
		Description:  synthesizeDescription(rec),

		Address: rec.Address,
		City:    rec.City,
		State:   rec.State,
		Zip:     rec.Zip,

		Specialties: database.NewJSONB(rec.Specialties),
		Categories:  database.NewJSONB(rec.Categories),

		LicenseNumber:   &license,
		LicenseClass:    rec.LicenseClass,
		LicenseType:     rec.LicenseType,
		LicenseStatus:   rec.Status,
		LicenseIssued:   rec.IssuedDate,
		LicenseExpires:  rec.ExpirationDate,
		QualifyingParty: rec.QualifyingParty,

		IsVerified:    true,
		Verified:      true,
		IsROCVerified: true,
		VerifiedAt:    &now,

		ProfileComplete: false,
		YearsInBusiness: rec.YearsInBusiness,
		Rating:          defaultRating,
		ReviewCount:     0,

		ScrapedFrom:   ScrapedFromROC,
		LastScrapedAt: &now,
		ImportedAt:    &now,

		CreatedAt: now,
		UpdatedAt: now,
	}

	contractor, err = e.store.CreateContractor(ctx, contractor)
	if err != nil {
		if !errors.Is(err, store.ErrConflict) {
			log.WithError(err).Error("Failed to create contractor")
		}
		return nil, err
	}

	log.WithFields(map[string]any{"contractor_id": contractor.ID}).Info("Created contractor")

	if e.emitter != nil {
		if emitErr := e.emitter.EmitContractorCreated(ctx, contractor); emitErr != nil {
			log.WithError(emitErr).Warn("Failed to emit contractor.created event")
		}
	}

	return contractor, nil
}

// createOrReuseUser inserts the backing user, or reclaims the existing
// account when the placeholder email is already taken. That happens when an
// earlier run created the user but failed before the contractor row landed;
// reusing the account lets the next run finish the create instead of erroring
// on the email conflict forever.
func (e *Engine) createOrReuseUser(ctx context.Context, user *models.User, log ectologger.Logger) (*models.User, error) {
	created, err := e.store.CreateUser(ctx, user)
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, store.ErrConflict) {
		log.WithError(err).Error("Failed to create backing user")
		return nil, fmt.Errorf("failed to create user for %s: %w", user.Name, err)
	}

	log.Warn("Backing user already exists, reusing account")
	existing, findErr := e.store.FindUserByEmail(ctx, user.Email)
	if findErr != nil {
		log.WithError(findErr).Error("Failed to load existing backing user")
		return nil, fmt.Errorf("failed to load user %s: %w", user.Email, findErr)
	}
	if existing == nil {
		return nil, fmt.Errorf("user conflict for %s but no row found: %w", user.Email, err)
	}
	return existing, nil
}

// update merges the record into an existing contractor: license fields
// overwrite, verification flags are stamped true, the specialty and category
// sets are unioned with what is already stored, and years in business never
// regresses.
func (e *Engine) update(ctx context.Context, existing *models.Contractor, rec *models.NormalizedRecord, log ectologger.Logger) (*models.Contractor, error) {
	ctx, span := tracing.StartSpan(ctx, "merge.Engine.update")
	defer span.End()

	now := e.now()
	log = log.WithFields(map[string]any{"contractor_id": existing.ID})

	storedSpecialties, err := e.store.GetContractorSpecialties(ctx, existing.ID)
	if err != nil {
		log.WithError(err).Warn("Failed to read stored specialties, unioning against loaded row")
		storedSpecialties = existing.GetSpecialties()
	}

	years := existing.YearsInBusiness
	if rec.YearsInBusiness > years {
		years = rec.YearsInBusiness
	}

	update := &models.ContractorUpdate{
		LicenseNumber:   rec.LicenseNumber,
		LicenseClass:    rec.LicenseClass,
		LicenseType:     rec.LicenseType,
		LicenseStatus:   rec.Status,
		LicenseIssued:   rec.IssuedDate,
		LicenseExpires:  rec.ExpirationDate,
		QualifyingParty: rec.QualifyingParty,

		Specialties:     taxonomy.Union(storedSpecialties, rec.Specialties),
		Categories:      taxonomy.Union(existing.GetCategories(), rec.Categories),
		YearsInBusiness: years,

		VerifiedAt:    now,
		LastScrapedAt: now,
		ImportedAt:    now,
	}

	updated, err := e.store.UpdateContractor(ctx, existing.ID, update)
	if err != nil {
		log.WithError(err).Error("Failed to update contractor")
		return nil, fmt.Errorf("failed to update contractor %s: %w", rec.BusinessName, err)
	}

	log.Info("Updated contractor from license feed")

	if e.emitter != nil {
		if emitErr := e.emitter.EmitContractorUpdated(ctx, updated); emitErr != nil {
			log.WithError(emitErr).Warn("Failed to emit contractor.updated event")
		}
	}

	return updated, nil
}

var slugStripRe = regexp.MustCompile(`[^a-z0-9]+`)

// PlaceholderEmail derives a deterministic address from the slugified
// business name and the license number. The slug is truncated to 20
// characters; the license number keeps addresses unique.
func PlaceholderEmail(businessName, licenseNumber string) string {
	slug := slugStripRe.ReplaceAllString(strings.ToLower(businessName), "")
	if len(slug) > slugMaxLen {
		slug = slug[:slugMaxLen]
	}
	if slug == "" {
		slug = "contractor"
	}
	license := slugStripRe.ReplaceAllString(strings.ToLower(licenseNumber), "")
	return fmt.Sprintf("%s-%s@%s", slug, license, placeholderEmailDomain)
}

func synthesizeDescription(rec *models.NormalizedRecord) string {
	class := rec.LicenseClass
	if class == "" {
		class = "licensed"
	}
	return fmt.Sprintf("%s contractor serving %s, %s. Arizona ROC license %s.",
		class, rec.City, rec.State, rec.LicenseNumber)
}
