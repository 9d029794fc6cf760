package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"srt-tts/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// ErrLocked indicates another process holds the ledger lock.
var ErrLocked = errors.New("ledger is locked by another run")

// Store persists per-run and per-entry outcomes backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Open initializes or connects to the ledger database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LedgerDir, "ledger.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:   db,
		path: dbPath,
		lock: flock.New(dbPath + ".lock"),
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection and releases the run lock.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if s.lock != nil {
		_ = s.lock.Unlock()
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// BeginRun acquires the run lock and records a new running pipeline run.
func (s *Store) BeginRun(ctx context.Context, source string, entryCount int) (*Run, error) {
	ok, err := s.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}

	run := &Run{
		ID:         uuid.NewString(),
		Source:     source,
		Status:     RunStatusRunning,
		StartedAt:  time.Now().UTC(),
		EntryCount: entryCount,
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, status, started_at, entry_count)
         VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.Status,
		run.StartedAt.Format(time.RFC3339Nano), run.EntryCount,
	)
	if err != nil {
		_ = s.lock.Unlock()
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun records a run's terminal status and releases the run lock.
func (s *Store) FinishRun(ctx context.Context, runID, status, outputPath string, failedCount int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, output_path = ?, finished_at = ?, failed_count = ?
         WHERE id = ?`,
		status, nullableString(outputPath),
		time.Now().UTC().Format(time.RFC3339Nano), failedCount, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if s.lock != nil {
		_ = s.lock.Unlock()
	}
	return nil
}

// RecordEntry upserts one entry's outcome for a run.
func (s *Store) RecordEntry(ctx context.Context, runID string, record EntryRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_entries (
            run_id, entry_index, start_ms, end_ms, status, strategy,
            pre_attempts, post_attempts, estimated_ms, rendered_ms, final_ms,
            speed_factor, error, text, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(run_id, entry_index) DO UPDATE SET
            status = excluded.status,
            strategy = excluded.strategy,
            pre_attempts = excluded.pre_attempts,
            post_attempts = excluded.post_attempts,
            estimated_ms = excluded.estimated_ms,
            rendered_ms = excluded.rendered_ms,
            final_ms = excluded.final_ms,
            speed_factor = excluded.speed_factor,
            error = excluded.error,
            text = excluded.text,
            updated_at = excluded.updated_at`,
		runID, record.Index, record.StartMS, record.EndMS, record.Status, record.Strategy,
		record.PreAttempts, record.PostAttempts,
		nullableInt64(record.EstimatedMS), nullableInt64(record.RenderedMS), nullableInt64(record.FinalMS),
		record.SpeedFactor, nullableString(record.Error), record.Text,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record entry %d: %w", record.Index, err)
	}
	return nil
}

// GetRun fetches one run by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, output_path, status, started_at, finished_at, entry_count, failed_count
         FROM runs WHERE id = ?`, runID)
	return scanRun(row)
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, output_path, status, started_at, finished_at, entry_count, failed_count
         FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Entries returns all entry records for a run in index order.
func (s *Store) Entries(ctx context.Context, runID string) ([]EntryRecord, error) {
	return s.queryEntries(ctx,
		`SELECT entry_index, start_ms, end_ms, status, strategy,
                pre_attempts, post_attempts, estimated_ms, rendered_ms, final_ms,
                speed_factor, error, text
         FROM run_entries WHERE run_id = ? ORDER BY entry_index`, runID)
}

// FailedEntries returns the failed and skipped entries for a run.
func (s *Store) FailedEntries(ctx context.Context, runID string) ([]EntryRecord, error) {
	return s.queryEntries(ctx,
		`SELECT entry_index, start_ms, end_ms, status, strategy,
                pre_attempts, post_attempts, estimated_ms, rendered_ms, final_ms,
                speed_factor, error, text
         FROM run_entries WHERE run_id = ? AND status IN (?, ?) ORDER BY entry_index`,
		runID, EntryStatusFailed, EntryStatusSkipped)
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]EntryRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var records []EntryRecord
	for rows.Next() {
		var record EntryRecord
		var estimated, rendered, final sql.NullInt64
		var errText sql.NullString
		if err := rows.Scan(
			&record.Index, &record.StartMS, &record.EndMS, &record.Status, &record.Strategy,
			&record.PreAttempts, &record.PostAttempts, &estimated, &rendered, &final,
			&record.SpeedFactor, &errText, &record.Text,
		); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		record.EstimatedMS = estimated.Int64
		record.RenderedMS = rendered.Int64
		record.FinalMS = final.Int64
		record.Error = errText.String
		records = append(records, record)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var outputPath, finishedAt sql.NullString
	var startedAt string
	if err := row.Scan(&run.ID, &run.Source, &outputPath, &run.Status,
		&startedAt, &finishedAt, &run.EntryCount, &run.FailedCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run not found")
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	run.OutputPath = outputPath.String
	if parsed, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
		run.StartedAt = parsed
	}
	if finishedAt.Valid {
		if parsed, err := time.Parse(time.RFC3339Nano, finishedAt.String); err == nil {
			run.FinishedAt = parsed
		}
	}
	return &run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt64(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}
