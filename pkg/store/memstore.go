package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/SGK112/remodely-importer/pkg/database"
	"github.com/SGK112/remodely-importer/pkg/models"
)

// Memory is an in-memory Store used by tests and dry runs. It enforces the
// same license-number uniqueness constraint as the Postgres schema and is
// safe for the orchestrator's concurrent batch fan-out.
type Memory struct {
	mu          sync.Mutex
	users       map[string]*models.User
	contractors map[string]*models.Contractor
	byLicense   map[string]string // license number -> contractor id

	// Optional failure injection for exercising error paths.
	FailFindByLicense    error
	FailCreateContractor error
	FailUpdateContractor error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:       make(map[string]*models.User),
		contractors: make(map[string]*models.Contractor),
		byLicense:   make(map[string]string),
	}
}

func (m *Memory) FindContractorByLicenseNumber(ctx context.Context, licenseNumber string) (*models.Contractor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailFindByLicense != nil {
		return nil, m.FailFindByLicense
	}

	id, ok := m.byLicense[licenseNumber]
	if !ok {
		return nil, nil
	}
	return cloneContractor(m.contractors[id]), nil
}

// FindContractorByNameCityState matches case-insensitively on the business
// name, city and state. Only contractors without a license on file are
// candidates: a licensed contractor is reachable solely through its license
// number, so two businesses sharing a name stay distinct rows. If several
// unlicensed contractors share the triple, the lowest id wins so repeated
// runs resolve to the same row.
func (m *Memory) FindContractorByNameCityState(ctx context.Context, name, city, state string) (*models.Contractor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var match *models.Contractor
	for _, c := range m.contractors {
		if c.LicenseNumber != nil {
			continue
		}
		if !strings.EqualFold(c.BusinessName, name) ||
			!strings.EqualFold(c.City, city) ||
			!strings.EqualFold(c.State, state) {
			continue
		}
		if match == nil || c.ID < match.ID {
			match = c
		}
	}
	return cloneContractor(match), nil
}

func (m *Memory) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return nil, fmt.Errorf("%w: email %s", ErrConflict, user.Email)
		}
	}

	stored := *user
	m.users[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (m *Memory) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			out := *u
			return &out, nil
		}
	}
	return nil, nil
}

func (m *Memory) CreateContractor(ctx context.Context, contractor *models.Contractor) (*models.Contractor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailCreateContractor != nil {
		return nil, m.FailCreateContractor
	}

	if contractor.LicenseNumber != nil {
		if _, exists := m.byLicense[*contractor.LicenseNumber]; exists {
			return nil, fmt.Errorf("%w: license %s", ErrConflict, *contractor.LicenseNumber)
		}
	}

	stored := *contractor
	m.contractors[stored.ID] = &stored
	if stored.LicenseNumber != nil {
		m.byLicense[*stored.LicenseNumber] = stored.ID
	}
	return cloneContractor(&stored), nil
}

func (m *Memory) UpdateContractor(ctx context.Context, id string, update *models.ContractorUpdate) (*models.Contractor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailUpdateContractor != nil {
		return nil, m.FailUpdateContractor
	}

	c, ok := m.contractors[id]
	if !ok {
		return nil, fmt.Errorf("contractor %s not found", id)
	}

	license := update.LicenseNumber
	if c.LicenseNumber != nil && *c.LicenseNumber != license {
		delete(m.byLicense, *c.LicenseNumber)
	}
	c.LicenseNumber = &license
	c.LicenseClass = update.LicenseClass
	c.LicenseType = update.LicenseType
	c.LicenseStatus = update.LicenseStatus
	c.LicenseIssued = update.LicenseIssued
	c.LicenseExpires = update.LicenseExpires
	c.QualifyingParty = update.QualifyingParty

	c.Specialties = database.NewJSONB(update.Specialties)
	c.Categories = database.NewJSONB(update.Categories)
	c.YearsInBusiness = update.YearsInBusiness

	c.IsVerified = true
	c.Verified = true
	c.IsROCVerified = true
	verifiedAt := update.VerifiedAt
	c.VerifiedAt = &verifiedAt
	lastScraped := update.LastScrapedAt
	c.LastScrapedAt = &lastScraped
	importedAt := update.ImportedAt
	c.ImportedAt = &importedAt
	c.UpdatedAt = time.Now().UTC()

	m.byLicense[license] = c.ID

	return cloneContractor(c), nil
}

func (m *Memory) GetContractorSpecialties(ctx context.Context, id string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.contractors[id]
	if !ok {
		return nil, fmt.Errorf("contractor %s not found", id)
	}
	return append([]string(nil), c.GetSpecialties()...), nil
}

func (m *Memory) Snapshot(ctx context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := &Snapshot{TotalContractors: len(m.contractors)}
	for _, c := range m.contractors {
		if c.IsROCVerified {
			snap.ROCVerifiedCount++
		}
	}
	return snap, nil
}

// ContractorCount returns the number of stored contractors.
func (m *Memory) ContractorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.contractors)
}

// UserCount returns the number of stored users.
func (m *Memory) UserCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

// Contractor returns the stored contractor with the given license number.
func (m *Memory) Contractor(licenseNumber string) *models.Contractor {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byLicense[licenseNumber]
	if !ok {
		return nil
	}
	return cloneContractor(m.contractors[id])
}

// Seed inserts a contractor directly, bypassing the merge engine. Tests use
// it to model rows that predate an import run.
func (m *Memory) Seed(c *models.Contractor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *c
	m.contractors[stored.ID] = &stored
	if stored.LicenseNumber != nil {
		m.byLicense[*stored.LicenseNumber] = stored.ID
	}
}

func cloneContractor(c *models.Contractor) *models.Contractor {
	if c == nil {
		return nil
	}
	out := *c
	out.Specialties = database.NewJSONB(append([]string(nil), c.GetSpecialties()...))
	out.Categories = database.NewJSONB(append([]string(nil), c.GetCategories()...))
	return &out
}
