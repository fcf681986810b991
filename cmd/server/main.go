package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"measure-tracker/internal/api"
	"measure-tracker/internal/cards"
	"measure-tracker/internal/config"
	"measure-tracker/internal/dataset"
	"measure-tracker/internal/db"
	"measure-tracker/internal/filter"
	"measure-tracker/internal/geo"
	"measure-tracker/internal/logger"
	"measure-tracker/internal/pipeline"
	"measure-tracker/internal/recordstore"
	"measure-tracker/internal/recordstore/airtable"
	"measure-tracker/internal/search"
	"measure-tracker/internal/search/algolia"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Flags override the environment
	port := flag.Int("port", cfg.Port, "Port to listen on")
	dbPath := flag.String("db", cfg.DBPath, "Path to SQLite database")
	flag.Parse()
	cfg.Port = *port
	cfg.DBPath = *dbPath

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, log)
	stop()
	if err != nil {
		log.Error("server failed", "error", err)
		log.Sync()
		os.Exit(1)
	}
	log.Sync()
}

// run serves until ctx is cancelled. Every resource it opens is released
// before it returns.
func run(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	var database *db.DB
	if cfg.RecordSource == config.SourceSQLite || cfg.SearchBackend == config.SearchSQLite {
		log.Info("opening database", "path", cfg.DBPath)
		var err error
		database, err = db.New(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}
		defer database.Close()
	}

	var source recordstore.Source
	switch cfg.RecordSource {
	case config.SourceAirtable:
		source = airtable.NewClient(cfg.AirtableBaseID, cfg.AirtableAPIKey, airtable.WithAPIURL(cfg.AirtableAPIURL))
	default:
		source = database
	}

	var searcher search.Searcher
	switch cfg.SearchBackend {
	case config.SearchAlgolia:
		client, err := algolia.NewClient(cfg.AlgoliaAppID, cfg.AlgoliaSearchAPIKey, cfg.AlgoliaIndex)
		if err != nil {
			return err
		}
		searcher = client
	default:
		searcher = database
	}

	deck, err := cards.Load(cfg.CategoryCards)
	if err != nil {
		return fmt.Errorf("loading category cards: %w", err)
	}
	log.Info("loaded category cards", "count", deck.Len())

	pipe := pipeline.New(geo.NewGeometryClient(cfg.GeometryTimeout), log, pipeline.Config{
		GeometryWorkers: cfg.GeometryWorkers,
		Policy:          pipeline.LargestAllocation,
	})
	store := dataset.NewStore(recordstore.New(source), pipe, log)

	ctx, cancel := context.WithCancel(ctx)
	regenDone := make(chan struct{})
	go func() {
		defer close(regenDone)
		store.Run(ctx, cfg.RegenerateInterval)
	}()
	defer func() {
		cancel()
		<-regenDone
	}()

	router := api.NewRouter(api.Deps{
		Store:       store,
		Engine:      filter.NewEngine(searcher),
		Cards:       deck,
		Log:         log,
		MapboxToken: cfg.MapboxToken,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	}()

	log.Info("starting server",
		"addr", "http://localhost"+cfg.Addr(),
		"record_source", cfg.RecordSource,
		"search_backend", cfg.SearchBackend,
		"regenerate_interval", cfg.RegenerateInterval.String())

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listening on %s: %w", cfg.Addr(), err)
	}
	return nil
}
