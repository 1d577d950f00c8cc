package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/SGK112/remodely-importer/config"
	"github.com/SGK112/remodely-importer/internal/repositories"
	"github.com/SGK112/remodely-importer/pkg/database"
	"github.com/SGK112/remodely-importer/pkg/events"
	"github.com/SGK112/remodely-importer/pkg/feed"
	"github.com/SGK112/remodely-importer/pkg/importer"
	"github.com/SGK112/remodely-importer/pkg/kafka"
	"github.com/SGK112/remodely-importer/pkg/merge"
	"github.com/SGK112/remodely-importer/pkg/resolve"
	"github.com/SGK112/remodely-importer/pkg/store"
	"github.com/SGK112/remodely-importer/pkg/tracing"
)

func main() {
	var (
		feedPath    = flag.String("feed", "", "Path to the pipe-delimited license feed (overrides FEED_PATH)")
		dryRun      = flag.Bool("dry-run", false, "Parse, normalize and classify without writing to the store")
		skipMigrate = flag.Bool("skip-migrate", false, "Skip running database migrations at startup")
	)
	flag.Parse()

	cfg := config.Load()
	logger := newLogger(cfg)

	path := *feedPath
	if path == "" {
		path = cfg.FeedPath
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "no feed file: pass -feed or set FEED_PATH")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing := tracing.Setup(cfg.AppName)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Failed to shut down tracing")
		}
	}()

	// A dry run only parses, normalizes and classifies, so it never needs
	// Postgres. The in-memory store satisfies the wiring and stays untouched.
	var st store.Store = store.NewMemory()
	if !*dryRun {
		sqlxDB, err := database.Connect(ctx, cfg.DatabaseConfig(), logger)
		if err != nil {
			logger.WithError(err).Error("Failed to connect to database")
			os.Exit(1)
		}
		defer sqlxDB.Close()

		if !*skipMigrate {
			driver, err := migratepg.WithInstance(sqlxDB.DB, &migratepg.Config{})
			if err != nil {
				logger.WithError(err).Error("Failed to prepare migration driver")
				os.Exit(1)
			}
			migrations := database.NewMigrationService(logger, &database.MigrationConfig{
				MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
				Version:             uint(cfg.DatabaseMigrationVersion),
				Force:               cfg.DatabaseMigrationForce,
				AutoRollback:        cfg.DatabaseMigrationAutoRollback,
			})
			if err := migrations.Migrate(cfg.DatabaseName, driver); err != nil {
				logger.WithError(err).Error("Failed to run database migrations")
				os.Exit(1)
			}
		}

		db := database.NewDatabaseInstance(sqlxDB, logger)
		st = repositories.NewPostgresStore(db, logger)
	}

	var engineOpts []merge.Option
	if cfg.KafkaEnabled {
		producer := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaOutputTopic,
			BatchSize:    cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Compression:  cfg.KafkaCompression,
		}, logger)
		defer producer.Close()
		engineOpts = append(engineOpts, merge.WithEmitter(events.NewEmitter(producer, logger)))
	}

	parser := feed.NewParser(logger, cfg.ProgressInterval)
	resolver := resolve.NewResolver(st, logger)
	engine := merge.NewEngine(st, resolver, logger, engineOpts...)

	run := importer.New(parser, engine, st, logger, importer.Config{
		BatchSize:  cfg.ImportBatchSize,
		BatchDelay: time.Duration(cfg.ImportBatchDelayMs) * time.Millisecond,
		DryRun:     *dryRun,
	})

	summary, err := run.Run(ctx, path)
	if err != nil {
		logger.WithError(err).Error("Import run failed")
		os.Exit(1)
	}

	// Per-record failures are reported in the summary, not the exit code.
	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(out))
}

func newLogger(cfg *config.Config) ectologger.Logger {
	enc := json.NewEncoder(os.Stdout)
	if cfg.PrettyLogs {
		enc.SetIndent("", "  ")
	}
	return ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		_ = enc.Encode(msg)
	})
}
