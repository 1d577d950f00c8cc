package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SGK112/remodely-importer/pkg/feed"
	"github.com/SGK112/remodely-importer/pkg/merge"
	"github.com/SGK112/remodely-importer/pkg/models"
	"github.com/SGK112/remodely-importer/pkg/resolve"
	"github.com/SGK112/remodely-importer/pkg/store"
)

const feedHeader = "#|License No|Business Name|Doing Business As|Address|City|State|Zip|Class|Class Detail|Class Type|Qualifying Party|Issued Date|Expiration Date|Status"

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func writeFeed(t *testing.T, rows ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed.txt")
	content := feedHeader + "\n"
	for _, row := range rows {
		content += row + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func feedRow(seq int, license, name string) string {
	return fmt.Sprintf("%d|%s|%s||123 Main St|Phoenix|AZ|85001|B-2|General Residential|DUAL|Jane Doe|6/1/2016|6/1/2028|ACTIVE", seq, license, name)
}

func newRun(st store.Store, cfg Config) *Orchestrator {
	logger := testLogger()
	parser := feed.NewParser(logger, 0)
	engine := merge.NewEngine(st, resolve.NewResolver(st, logger), logger)
	return New(parser, engine, st, logger, cfg)
}

func TestRunCreatesAllNewContractors(t *testing.T) {
	st := store.NewMemory()
	path := writeFeed(t,
		feedRow(1, "ROC100001", "First Co"),
		feedRow(2, "ROC100002", "Second Co"),
		feedRow(3, "ROC100003", "Third Co"),
	)

	run := newRun(st, Config{BatchSize: 2, BatchDelay: time.Millisecond})
	summary, err := run.Run(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 3, summary.Successful)
	assert.Equal(t, 0, summary.Duplicates)
	assert.Equal(t, 0, summary.Errors)
	assert.Equal(t, "100.00%", summary.SuccessRate)

	assert.Equal(t, 3, st.ContractorCount())
	require.NotNil(t, summary.Snapshot)
	assert.Equal(t, 3, summary.Snapshot.TotalContractors)
	assert.Equal(t, 3, summary.Snapshot.ROCVerifiedCount)
}

func TestRunIsIdempotent(t *testing.T) {
	st := store.NewMemory()
	path := writeFeed(t,
		feedRow(1, "ROC100001", "First Co"),
		feedRow(2, "ROC100002", "Second Co"),
	)

	run := newRun(st, Config{BatchSize: 10, BatchDelay: 0})
	first, err := run.Run(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 2, first.Successful)

	second, err := newRun(st, Config{BatchSize: 10, BatchDelay: 0}).Run(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 2, second.Processed)
	assert.Equal(t, 0, second.Successful)
	assert.Equal(t, 2, second.Duplicates)
	assert.Equal(t, 0, second.Errors)
	assert.Equal(t, "0.00%", second.SuccessRate)

	// No duplicate rows appeared.
	assert.Equal(t, 2, st.ContractorCount())
}

func TestRunKeepsSameNamedLicenseesDistinct(t *testing.T) {
	st := store.NewMemory()
	path := writeFeed(t,
		feedRow(1, "ROC300001", "Twin Co"),
		feedRow(2, "ROC300002", "Twin Co"),
	)

	summary, err := newRun(st, Config{BatchSize: 10, BatchDelay: 0}).Run(context.Background(), path)
	require.NoError(t, err)

	// Two licenses sharing a business name are two contractors; the second
	// row must not claim the first row's profile.
	assert.Equal(t, 2, summary.Successful)
	assert.Equal(t, 0, summary.Duplicates)
	assert.Equal(t, 2, st.ContractorCount())

	first := st.Contractor("ROC300001")
	second := st.Contractor("ROC300002")
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "ROC300001", *first.LicenseNumber)
	assert.Equal(t, "ROC300002", *second.LicenseNumber)
}

// failingStore rejects contractor creation for one specific license so a
// single bad record can be isolated inside an otherwise healthy batch.
type failingStore struct {
	*store.Memory
	failLicense string
}

func (f *failingStore) CreateContractor(ctx context.Context, c *models.Contractor) (*models.Contractor, error) {
	if c.LicenseNumber != nil && *c.LicenseNumber == f.failLicense {
		return nil, errors.New("insert rejected")
	}
	return f.Memory.CreateContractor(ctx, c)
}

func TestRunIsolatesRecordFailures(t *testing.T) {
	mem := store.NewMemory()
	st := &failingStore{Memory: mem, failLicense: "ROC100002"}
	path := writeFeed(t,
		feedRow(1, "ROC100001", "First Co"),
		feedRow(2, "ROC100002", "Second Co"),
		feedRow(3, "ROC100003", "Third Co"),
	)

	summary, err := newRun(st, Config{BatchSize: 10, BatchDelay: 0}).Run(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 2, summary.Successful)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, "66.67%", summary.SuccessRate)
	assert.Equal(t, 2, mem.ContractorCount())
}

func TestRunSkipsRowsWithoutLicense(t *testing.T) {
	st := store.NewMemory()
	path := writeFeed(t,
		feedRow(1, "ROC100001", "First Co"),
		"2||No License Co||Addr|Phoenix|AZ||B||RES|QP|||ACTIVE",
		feedHeader, // repeated banner
	)

	summary, err := newRun(st, Config{}).Run(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Successful)
	assert.Equal(t, 1, st.ContractorCount())
}

func TestRunEmptyFeedReportsZeroRate(t *testing.T) {
	st := store.NewMemory()
	path := writeFeed(t)

	summary, err := newRun(st, Config{}).Run(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, "0.00%", summary.SuccessRate)
}

func TestRunMissingFeedIsStructural(t *testing.T) {
	st := store.NewMemory()
	_, err := newRun(st, Config{}).Run(context.Background(), filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
}

func TestRunDryRunTouchesNothing(t *testing.T) {
	st := store.NewMemory()
	path := writeFeed(t,
		feedRow(1, "ROC100001", "First Co"),
		feedRow(2, "ROC100002", "Second Co"),
	)

	summary, err := newRun(st, Config{DryRun: true}).Run(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 0, summary.Successful)
	assert.Equal(t, 0, summary.Errors)
	assert.Equal(t, 0, st.ContractorCount())
	assert.Nil(t, summary.Snapshot)
}

func TestRunCountsLookupAnomalies(t *testing.T) {
	st := store.NewMemory()
	st.FailFindByLicense = errors.New("connection reset")
	path := writeFeed(t, feedRow(1, "ROC100001", "First Co"))

	summary, err := newRun(st, Config{}).Run(context.Background(), path)
	require.NoError(t, err)

	// The record is still created, but the failed lookup is tallied.
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Successful)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 1, st.ContractorCount())
}

func TestSuccessRate(t *testing.T) {
	assert.Equal(t, "0.00%", successRate(0, 0))
	assert.Equal(t, "100.00%", successRate(7, 7))
	assert.Equal(t, "50.00%", successRate(1, 2))
	assert.Equal(t, "33.33%", successRate(1, 3))
}
