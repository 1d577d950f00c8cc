// Package importer drives the full import run: parse, normalize, classify,
// then batch the resolve-and-merge work against the store.
package importer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/SGK112/remodely-importer/pkg/feed"
	"github.com/SGK112/remodely-importer/pkg/merge"
	"github.com/SGK112/remodely-importer/pkg/models"
	"github.com/SGK112/remodely-importer/pkg/normalize"
	"github.com/SGK112/remodely-importer/pkg/store"
	"github.com/SGK112/remodely-importer/pkg/taxonomy"
	"github.com/SGK112/remodely-importer/pkg/tracing"
)

const (
	// DefaultBatchSize bounds how many records are merged concurrently.
	DefaultBatchSize = 100

	// DefaultBatchDelay is the pause between batches. Purely a courtesy to
	// the store, not a correctness mechanism.
	DefaultBatchDelay = 100 * time.Millisecond
)

// Config holds the orchestrator's tuning knobs.
type Config struct {
	BatchSize  int
	BatchDelay time.Duration

	// DryRun parses, normalizes and classifies without touching the store.
	DryRun bool
}

// Summary is the run-scoped accumulator reported at the end of an import.
// Successful counts newly created contractors; Duplicates counts records that
// merged into an already-known contractor.
type Summary struct {
	Processed   int    `json:"processed"`
	Successful  int    `json:"successful"`
	Duplicates  int    `json:"duplicates"`
	Errors      int    `json:"errors"`
	SuccessRate string `json:"success_rate"`

	Snapshot *store.Snapshot `json:"snapshot,omitempty"`
}

// Orchestrator wires the feed parser to the merge engine and owns the
// counters for one run. Construct a new one per run; no state is shared
// between runs.
type Orchestrator struct {
	parser *feed.Parser
	engine *merge.Engine
	store  store.Store
	logger ectologger.Logger
	config Config
}

// New creates a run orchestrator. Zero config fields fall back to defaults.
func New(parser *feed.Parser, engine *merge.Engine, st store.Store, logger ectologger.Logger, config Config) *Orchestrator {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.BatchDelay < 0 {
		config.BatchDelay = DefaultBatchDelay
	}
	return &Orchestrator{
		parser: parser,
		engine: engine,
		store:  st,
		logger: logger,
		config: config,
	}
}

type recordResult struct {
	record *models.NormalizedRecord
	result *merge.Result
	err    error
}

// Run executes one full import over the feed at path. Per-record failures are
// counted and skipped; only a structural feed error aborts the run.
func (o *Orchestrator) Run(ctx context.Context, path string) (*Summary, error) {
	ctx, span := tracing.StartSpan(ctx, "importer.Orchestrator.Run")
	defer span.End()

	log := o.logger.WithContext(ctx).WithFields(map[string]any{"feed": path})
	log.Info("Starting contractor import run")

	summary := &Summary{}
	now := time.Now().UTC()

	batch := make([]*models.NormalizedRecord, 0, o.config.BatchSize)
	firstBatch := true

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if !firstBatch && o.config.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(o.config.BatchDelay):
			}
		}
		firstBatch = false
		o.processBatch(ctx, batch, summary)
		batch = batch[:0]
		return nil
	}

	_, err := o.parser.ParseFile(ctx, path, func(raw *models.IncomingRecord) error {
		rec := normalize.Record(raw, now)
		classification := taxonomy.Classify(rec.LicenseClass, rec.ClassDetail)
		rec.Specialties = classification.Specialties
		rec.Categories = classification.Categories

		batch = append(batch, rec)
		if len(batch) >= o.config.BatchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("import run aborted: %w", err)
	}

	if err := flush(); err != nil {
		return nil, fmt.Errorf("import run aborted: %w", err)
	}

	summary.SuccessRate = successRate(summary.Successful, summary.Processed)

	if !o.config.DryRun {
		snapshot, err := o.store.Snapshot(ctx)
		if err != nil {
			log.WithError(err).Warn("Failed to read post-run snapshot")
		} else {
			summary.Snapshot = snapshot
		}
	}

	log.WithFields(map[string]any{
		"processed":    summary.Processed,
		"created":      summary.Successful,
		"duplicates":   summary.Duplicates,
		"errors":       summary.Errors,
		"success_rate": summary.SuccessRate,
	}).Info("Import run complete")

	return summary, nil
}

// processBatch fans the batch out concurrently and waits for every record to
// settle. Records are independent; one failure never cancels its siblings.
func (o *Orchestrator) processBatch(ctx context.Context, batch []*models.NormalizedRecord, summary *Summary) {
	ctx, span := tracing.StartSpan(ctx, "importer.Orchestrator.processBatch")
	defer span.End()

	log := o.logger.WithContext(ctx)

	results := make([]recordResult, len(batch))

	if o.config.DryRun {
		for i, rec := range batch {
			results[i] = recordResult{record: rec}
		}
	} else {
		var wg sync.WaitGroup
		for i, rec := range batch {
			wg.Add(1)
			go func(i int, rec *models.NormalizedRecord) {
				defer wg.Done()
				result, err := o.engine.Upsert(ctx, rec)
				results[i] = recordResult{record: rec, result: result, err: err}
			}(i, rec)
		}
		wg.Wait()
	}

	for _, r := range results {
		summary.Processed++

		if r.err != nil {
			summary.Errors++
			log.WithError(r.err).WithFields(map[string]any{
				"business_name":  r.record.BusinessName,
				"license_number": r.record.LicenseNumber,
			}).Error("Record failed")
			continue
		}

		if r.result == nil {
			continue // dry run
		}

		if r.result.LookupAnomaly != nil {
			summary.Errors++
		}

		switch r.result.Outcome {
		case merge.OutcomeCreated:
			summary.Successful++
		case merge.OutcomeUpdated:
			summary.Duplicates++
		}
	}

	log.WithFields(map[string]any{
		"batch_size": len(batch),
		"processed":  summary.Processed,
	}).Debug("Batch settled")
}

func successRate(successful, processed int) string {
	if processed == 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", float64(successful)/float64(processed)*100)
}
