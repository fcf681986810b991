package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"measure-tracker/internal/config"
	"measure-tracker/internal/logger"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Port:            0,
		DBPath:          filepath.Join(t.TempDir(), "measures.db"),
		RecordSource:    config.SourceSQLite,
		SearchBackend:   config.SearchSQLite,
		GeometryWorkers: 1,
		GeometryTimeout: time.Second,
	}
}

func TestRun_ReturnsSetupErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.CategoryCards = filepath.Join(t.TempDir(), "missing.yaml")

	err := run(context.Background(), cfg, logger.Nop())
	assert.ErrorContains(t, err, "loading category cards")
}

func TestRun_RejectsIncompleteAlgoliaCredentials(t *testing.T) {
	cfg := testConfig(t)
	cfg.SearchBackend = config.SearchAlgolia

	err := run(context.Background(), cfg, logger.Nop())
	assert.ErrorContains(t, err, "creating algolia client")
}
