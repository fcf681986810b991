package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"measure-tracker/internal/models"
	"measure-tracker/internal/search"
)

type recordRow struct {
	ID          string `db:"id"`
	Fields      string `db:"fields"`
	CreatedTime string `db:"created_time"`
}

// Fetch returns the mirrored records of table in the order they were stored
func (db *DB) Fetch(ctx context.Context, table string) ([]models.Record, error) {
	var rows []recordRow
	err := db.SelectContext(ctx, &rows,
		`SELECT id, fields, created_time FROM records WHERE tbl = ? ORDER BY rowid`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}

	records := make([]models.Record, 0, len(rows))
	for _, row := range rows {
		r := models.Record{ID: row.ID, CreatedTime: row.CreatedTime}
		if err := json.Unmarshal([]byte(row.Fields), &r.Fields); err != nil {
			return nil, fmt.Errorf("failed to decode %s record %s: %w", table, row.ID, err)
		}
		records = append(records, r)
	}
	return records, nil
}

// UpsertRecords inserts or updates records of table by id
func (db *DB) UpsertRecords(ctx context.Context, table string, records []models.Record) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := upsert(ctx, tx.ExecContext, table, records); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceRecords makes records the full contents of table
func (db *DB) ReplaceRecords(ctx context.Context, table string, records []models.Record) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE tbl = ?`, table); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}
	if err := upsert(ctx, tx.ExecContext, table, records); err != nil {
		return err
	}
	return tx.Commit()
}

type execFunc func(ctx context.Context, query string, args ...any) (sql.Result, error)

func upsert(ctx context.Context, exec execFunc, table string, records []models.Record) error {
	query := `
		INSERT INTO records (tbl, id, fields, created_time, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(tbl, id) DO UPDATE SET
			fields = excluded.fields,
			created_time = excluded.created_time,
			updated_at = excluded.updated_at
	`
	now := time.Now().UTC()
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("%s record without id", table)
		}
		fields := r.Fields
		if fields == nil {
			fields = map[string]any{}
		}
		data, err := json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("failed to encode %s record %s: %w", table, r.ID, err)
		}
		if _, err := exec(ctx, query, table, r.ID, string(data), r.CreatedTime, now); err != nil {
			return fmt.Errorf("failed to upsert %s record %s: %w", table, r.ID, err)
		}
	}
	return nil
}

// RecordCount returns how many records of table are mirrored
func (db *DB) RecordCount(ctx context.Context, table string) (int, error) {
	var count int
	err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM records WHERE tbl = ?", table)
	return count, err
}

// SyncRun is one table's outcome in a sync
type SyncRun struct {
	ID         int64     `db:"id" json:"id"`
	Table      string    `db:"tbl" json:"table"`
	Records    int       `db:"records" json:"records"`
	Error      *string   `db:"error" json:"error,omitempty"`
	StartedAt  time.Time `db:"started_at" json:"started_at"`
	FinishedAt time.Time `db:"finished_at" json:"finished_at"`
}

// RecordSync stores the outcome of syncing one table
func (db *DB) RecordSync(ctx context.Context, table string, records int, started time.Time, syncErr error) error {
	var msg *string
	if syncErr != nil {
		s := syncErr.Error()
		msg = &s
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO sync_runs (tbl, records, error, started_at, finished_at) VALUES (?, ?, ?, ?, ?)`,
		table, records, msg, started.UTC(), time.Now().UTC())
	return err
}

// LastSync returns the most recent sync run of table, or nil when table was
// never synced
func (db *DB) LastSync(ctx context.Context, table string) (*SyncRun, error) {
	var run SyncRun
	err := db.GetContext(ctx, &run,
		`SELECT id, tbl, records, error, started_at, finished_at FROM sync_runs
		 WHERE tbl = ? ORDER BY id DESC LIMIT 1`, table)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last %s sync: %w", table, err)
	}
	return &run, nil
}

// Succeeded reports whether the run finished without error
func (r *SyncRun) Succeeded() bool {
	return r != nil && r.Error == nil
}

// Search ranks mirrored projects whose name contains every term of query.
// Earlier matches rank first, then shorter names.
func (db *DB) Search(ctx context.Context, query string, opts search.Options) (search.Response, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return search.Response{Hits: []search.Hit{}}, nil
	}

	sqlQuery := `SELECT id FROM records WHERE tbl = ?`
	args := []any{models.TableProjects}
	for _, term := range terms {
		sqlQuery += ` AND instr(lower(json_extract(fields, '$.Name')), ?) > 0`
		args = append(args, term)
	}
	sqlQuery += ` ORDER BY instr(lower(json_extract(fields, '$.Name')), ?), length(json_extract(fields, '$.Name')), id`
	args = append(args, terms[0])

	var ids []string
	if err := db.SelectContext(ctx, &ids, sqlQuery, args...); err != nil {
		return search.Response{}, fmt.Errorf("%w: %v", search.ErrUnavailable, err)
	}

	resp := search.Response{Hits: make([]search.Hit, 0, len(ids))}
	for _, id := range ids {
		resp.Hits = append(resp.Hits, search.Hit{ID: id})
	}
	return resp, nil
}
