package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"measure-tracker/internal/config"
	"measure-tracker/internal/db"
	"measure-tracker/internal/logger"
	"measure-tracker/internal/models"
	"measure-tracker/internal/recordstore"
	"measure-tracker/internal/recordstore/airtable"
)

var errTablesFailed = errors.New("one or more tables failed to sync")

type options struct {
	dbPath     string
	retries    int
	backoff    time.Duration
	failedOnly bool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var opts options
	flag.StringVar(&opts.dbPath, "db", cfg.DBPath, "Path to SQLite database")
	flag.IntVar(&opts.retries, "retries", 3, "Retries per throttled page")
	flag.DurationVar(&opts.backoff, "backoff", time.Second, "Initial delay between retries")
	flag.BoolVar(&opts.failedOnly, "failed-only", false, "Only sync tables whose last sync failed or never ran")
	flag.Parse()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Setup context with cancellation on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, opts, log)
	stop()
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("sync failed", "error", err)
		log.Sync()
		os.Exit(1)
	}
	log.Sync()
}

func run(ctx context.Context, cfg config.Config, opts options, log *logger.Logger) error {
	if cfg.AirtableBaseID == "" || cfg.AirtableAPIKey == "" {
		return errors.New("AIRTABLE_BASE_ID and AIRTABLE_API_KEY are required")
	}

	log.Info("using database", "path", opts.dbPath)
	database, err := db.New(opts.dbPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer database.Close()

	client := airtable.NewClient(cfg.AirtableBaseID, cfg.AirtableAPIKey,
		airtable.WithAPIURL(cfg.AirtableAPIURL),
		airtable.WithRetry(opts.retries, opts.backoff))

	return syncTables(ctx, database, client, models.Tables, opts.failedOnly, log)
}

func syncTables(ctx context.Context, database *db.DB, source recordstore.Source, tables []string, failedOnly bool, log *logger.Logger) error {
	log.Info("starting sync", "tables", len(tables), "failed_only", failedOnly)
	startTime := time.Now()

	failed := 0
	for _, table := range tables {
		if ctx.Err() != nil {
			break
		}
		last, err := database.LastSync(ctx, table)
		if err != nil {
			return err
		}
		if failedOnly && last.Succeeded() {
			log.Debug("skipping table", "table", table, "last_synced", last.FinishedAt)
			continue
		}

		if err := syncTable(ctx, database, source, table); err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			failed++
			log.Error("table sync failed", "table", table, "error", err)
			continue
		}
		count, _ := database.RecordCount(ctx, table)
		if last != nil {
			log.Info("table synced", "table", table, "records", count, "previous_records", last.Records)
		} else {
			log.Info("table synced", "table", table, "records", count)
		}
	}

	if ctx.Err() != nil {
		log.Warn("sync cancelled by user")
		return ctx.Err()
	}
	log.Info("sync completed", "elapsed", time.Since(startTime).String(), "failed_tables", failed)
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errTablesFailed, failed, len(tables))
	}
	return nil
}

func syncTable(ctx context.Context, database *db.DB, source recordstore.Source, table string) error {
	started := time.Now()
	records, err := source.Fetch(ctx, table)
	if err == nil {
		err = database.ReplaceRecords(ctx, table, records)
	}
	if recErr := database.RecordSync(context.WithoutCancel(ctx), table, len(records), started, err); recErr != nil {
		return errors.Join(err, recErr)
	}
	return err
}
