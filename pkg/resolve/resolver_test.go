package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SGK112/remodely-importer/pkg/models"
	"github.com/SGK112/remodely-importer/pkg/store"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func seedContractor(st *store.Memory, id, license, name, city, state string) {
	var lic *string
	if license != "" {
		lic = &license
	}
	st.Seed(&models.Contractor{
		ID:           id,
		BusinessName: name,
		City:         city,
		State:        state,
		LicenseNumber: lic,
	})
}

func TestResolvePrefersLicenseNumber(t *testing.T) {
	st := store.NewMemory()
	seedContractor(st, "id-license", "ROC111111", "Name Match Co", "Phoenix", "AZ")
	seedContractor(st, "id-name", "", "Name Match Co", "Phoenix", "AZ")

	resolver := NewResolver(st, testLogger())
	match, err := resolver.Resolve(context.Background(), &models.NormalizedRecord{
		LicenseNumber: "ROC111111",
		BusinessName:  "Name Match Co",
		City:          "Phoenix",
		State:         "AZ",
	})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "id-license", match.ID)
}

func TestResolveFallsBackToNameCityState(t *testing.T) {
	st := store.NewMemory()
	seedContractor(st, "id-1", "", "Legacy Builders", "Mesa", "AZ")

	resolver := NewResolver(st, testLogger())
	match, err := resolver.Resolve(context.Background(), &models.NormalizedRecord{
		LicenseNumber: "ROC222222",
		BusinessName:  "legacy builders",
		City:          "MESA",
		State:         "az",
	})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "id-1", match.ID)
}

func TestResolveNameMatchRequiresAllThreeFields(t *testing.T) {
	st := store.NewMemory()
	seedContractor(st, "id-1", "", "Legacy Builders", "Mesa", "AZ")

	resolver := NewResolver(st, testLogger())
	match, err := resolver.Resolve(context.Background(), &models.NormalizedRecord{
		LicenseNumber: "ROC222222",
		BusinessName:  "Legacy Builders",
		City:          "Tucson",
		State:         "AZ",
	})
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestResolveNameFallbackSkipsLicensedContractors(t *testing.T) {
	st := store.NewMemory()
	seedContractor(st, "id-1", "ROC111111", "Twin Co", "Phoenix", "AZ")

	resolver := NewResolver(st, testLogger())
	match, err := resolver.Resolve(context.Background(), &models.NormalizedRecord{
		LicenseNumber: "ROC999999",
		BusinessName:  "Twin Co",
		City:          "Phoenix",
		State:         "AZ",
	})
	require.NoError(t, err)
	// A different licensee under the same name is a new contractor, not a
	// match against the existing license holder.
	assert.Nil(t, match)
}

func TestResolveTieBreaksOnLowestID(t *testing.T) {
	st := store.NewMemory()
	seedContractor(st, "id-b", "", "Twin Co", "Phoenix", "AZ")
	seedContractor(st, "id-a", "", "Twin Co", "Phoenix", "AZ")

	resolver := NewResolver(st, testLogger())
	match, err := resolver.Resolve(context.Background(), &models.NormalizedRecord{
		LicenseNumber: "ROC333333",
		BusinessName:  "Twin Co",
		City:          "Phoenix",
		State:         "AZ",
	})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "id-a", match.ID)
}

func TestResolveNewRecordReturnsNilNil(t *testing.T) {
	resolver := NewResolver(store.NewMemory(), testLogger())
	match, err := resolver.Resolve(context.Background(), &models.NormalizedRecord{
		LicenseNumber: "ROC444444",
		BusinessName:  "Brand New Co",
		City:          "Phoenix",
		State:         "AZ",
	})
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestResolveSurfacesLookupErrors(t *testing.T) {
	st := store.NewMemory()
	st.FailFindByLicense = errors.New("connection reset")

	resolver := NewResolver(st, testLogger())
	match, err := resolver.Resolve(context.Background(), &models.NormalizedRecord{
		LicenseNumber: "ROC555555",
		BusinessName:  "Any Co",
	})
	require.Error(t, err)
	assert.Nil(t, match)
}
