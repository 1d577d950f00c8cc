package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SGK112/remodely-importer/pkg/database"
	"github.com/SGK112/remodely-importer/pkg/models"
)

func TestMemoryCreateContractorEnforcesLicenseUniqueness(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	license := "ROC123456"

	_, err := m.CreateContractor(ctx, &models.Contractor{ID: "c1", LicenseNumber: &license})
	require.NoError(t, err)

	_, err = m.CreateContractor(ctx, &models.Contractor{ID: "c2", LicenseNumber: &license})
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 1, m.ContractorCount())
}

func TestMemoryCreateUserEnforcesEmailUniqueness(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.CreateUser(ctx, &models.User{ID: "u1", Email: "a@imported.remodely.ai"})
	require.NoError(t, err)

	_, err = m.CreateUser(ctx, &models.User{ID: "u2", Email: "A@imported.remodely.ai"})
	require.ErrorIs(t, err, ErrConflict)
}

func TestMemoryUpdateContractorStampsVerification(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.Seed(&models.Contractor{ID: "c1", BusinessName: "Legacy Co"})

	now := time.Now().UTC()
	updated, err := m.UpdateContractor(ctx, "c1", &models.ContractorUpdate{
		LicenseNumber:   "ROC999999",
		Specialties:     []string{"Plumbing"},
		Categories:      []string{"Plumbing"},
		YearsInBusiness: 4,
		VerifiedAt:      now,
		LastScrapedAt:   now,
		ImportedAt:      now,
	})
	require.NoError(t, err)

	assert.True(t, updated.IsVerified)
	assert.True(t, updated.IsROCVerified)
	require.NotNil(t, updated.LicenseNumber)
	assert.Equal(t, "ROC999999", *updated.LicenseNumber)

	// The license index follows the update.
	found, err := m.FindContractorByLicenseNumber(ctx, "ROC999999")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "c1", found.ID)
}

func TestMemoryUpdateContractorReindexesLicense(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	old := "ROC111111"
	m.Seed(&models.Contractor{ID: "c1", LicenseNumber: &old})

	now := time.Now().UTC()
	_, err := m.UpdateContractor(ctx, "c1", &models.ContractorUpdate{
		LicenseNumber: "ROC222222",
		VerifiedAt:    now,
		LastScrapedAt: now,
		ImportedAt:    now,
	})
	require.NoError(t, err)

	// The old license no longer resolves to the contractor.
	stale, err := m.FindContractorByLicenseNumber(ctx, "ROC111111")
	require.NoError(t, err)
	assert.Nil(t, stale)

	found, err := m.FindContractorByLicenseNumber(ctx, "ROC222222")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "c1", found.ID)
}

func TestMemoryNameLookupSkipsLicensedContractors(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	license := "ROC111111"
	m.Seed(&models.Contractor{ID: "c1", LicenseNumber: &license, BusinessName: "Twin Co", City: "Phoenix", State: "AZ"})
	m.Seed(&models.Contractor{ID: "c2", BusinessName: "Twin Co", City: "Phoenix", State: "AZ"})

	found, err := m.FindContractorByNameCityState(ctx, "Twin Co", "Phoenix", "AZ")
	require.NoError(t, err)
	require.NotNil(t, found)
	// Only the unlicensed row is a candidate, even though c1 sorts first.
	assert.Equal(t, "c2", found.ID)
}

func TestMemoryFindReturnsCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	license := "ROC111111"
	m.Seed(&models.Contractor{
		ID:            "c1",
		LicenseNumber: &license,
		Specialties:   database.NewJSONB([]string{"Roofing"}),
	})

	found, err := m.FindContractorByLicenseNumber(ctx, license)
	require.NoError(t, err)
	specs := found.GetSpecialties()
	specs[0] = "mutated"

	again, err := m.FindContractorByLicenseNumber(ctx, license)
	require.NoError(t, err)
	assert.Equal(t, []string{"Roofing"}, again.GetSpecialties())
}

func TestMemorySnapshotCountsROCVerified(t *testing.T) {
	m := NewMemory()
	m.Seed(&models.Contractor{ID: "c1", IsROCVerified: true})
	m.Seed(&models.Contractor{ID: "c2"})

	snap, err := m.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, snap.TotalContractors)
	assert.Equal(t, 1, snap.ROCVerifiedCount)
}
