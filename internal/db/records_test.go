package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"measure-tracker/internal/models"
	"measure-tracker/internal/search"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := New(filepath.Join(t.TempDir(), "nested", "records.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestUpsertAndFetch(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)

	err := database.UpsertRecords(ctx, models.TableProjects, []models.Record{
		{ID: "p2", Fields: map[string]any{"Name": "Main Street", "Fiscal Year": 2021.0}},
		{ID: "p1", Fields: map[string]any{"Name": "Bus Shelters", "Grantee": []any{"g1"}}},
		{ID: "p3"},
	})
	require.NoError(t, err)

	records, err := database.Fetch(ctx, models.TableProjects)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "p2", records[0].ID)
	assert.Equal(t, "p1", records[1].ID)
	assert.Equal(t, []string{"g1"}, records[1].IDs("Grantee"))
	assert.Empty(t, records[2].Fields)

	// upsert keeps the original position and replaces fields
	err = database.UpsertRecords(ctx, models.TableProjects, []models.Record{
		{ID: "p2", Fields: map[string]any{"Name": "Main Street Phase 2"}},
	})
	require.NoError(t, err)

	records, err = database.Fetch(ctx, models.TableProjects)
	require.NoError(t, err)
	assert.Equal(t, "Main Street Phase 2", records[0].String("Name"))

	count, err := database.RecordCount(ctx, models.TableProjects)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	other, err := database.Fetch(ctx, models.TableAwards)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestUpsertRejectsMissingID(t *testing.T) {
	database := newTestDB(t)
	err := database.UpsertRecords(context.Background(), models.TableAwards, []models.Record{{ID: "a1"}, {}})
	require.Error(t, err)

	count, err := database.RecordCount(context.Background(), models.TableAwards)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestReplaceRecords(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)

	require.NoError(t, database.UpsertRecords(ctx, models.TableGrantees, []models.Record{{ID: "g1"}, {ID: "g2"}}))
	require.NoError(t, database.UpsertRecords(ctx, models.TableAwards, []models.Record{{ID: "a1"}}))
	require.NoError(t, database.ReplaceRecords(ctx, models.TableGrantees, []models.Record{{ID: "g3"}}))

	grantees, err := database.Fetch(ctx, models.TableGrantees)
	require.NoError(t, err)
	require.Len(t, grantees, 1)
	assert.Equal(t, "g3", grantees[0].ID)

	awards, err := database.RecordCount(ctx, models.TableAwards)
	require.NoError(t, err)
	assert.Equal(t, 1, awards)
}

func TestSyncRuns(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	started := time.Now().Add(-time.Second)

	require.NoError(t, database.RecordSync(ctx, models.TablePayments, 12, started, nil))
	require.NoError(t, database.RecordSync(ctx, models.TablePayments, 0, started, errors.New("airtable returned 503")))

	run, err := database.LastSync(ctx, models.TablePayments)
	require.NoError(t, err)
	assert.Equal(t, models.TablePayments, run.Table)
	require.NotNil(t, run.Error)
	assert.Equal(t, "airtable returned 503", *run.Error)
	assert.False(t, run.Succeeded())

	never, err := database.LastSync(ctx, models.TableRevenue)
	require.NoError(t, err)
	assert.Nil(t, never)
	assert.False(t, never.Succeeded())
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)

	require.NoError(t, database.UpsertRecords(ctx, models.TableProjects, []models.Record{
		{ID: "p1", Fields: map[string]any{"Name": "Repaving Main Street"}},
		{ID: "p2", Fields: map[string]any{"Name": "Main Street Sidewalks"}},
		{ID: "p3", Fields: map[string]any{"Name": "Bus Shelters"}},
		{ID: "p4", Fields: map[string]any{"Name": "Main St"}},
	}))
	require.NoError(t, database.UpsertRecords(ctx, models.TableGrantees, []models.Record{
		{ID: "g1", Fields: map[string]any{"Name": "Main Street Partners"}},
	}))

	resp, err := database.Search(ctx, "main street", search.Options{AttributesToRetrieve: []string{"id"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"p2", "p1"}, resp.IDs())

	resp, err = database.Search(ctx, "MAIN", search.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"p4", "p2", "p1"}, resp.IDs())

	resp, err = database.Search(ctx, "   ", search.Options{})
	require.NoError(t, err)
	assert.Empty(t, resp.Hits)
}
