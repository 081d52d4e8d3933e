// Package store persists pipeline runs, their diagnostics and their
// continent aggregates in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"covid-impact-pipeline/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// Run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	started_at DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS run_diagnostics (
	run_id TEXT NOT NULL,
	dataset TEXT NOT NULL,
	report TEXT NOT NULL,
	PRIMARY KEY (run_id, dataset)
);

CREATE TABLE IF NOT EXISTS aggregates (
	run_id TEXT NOT NULL,
	dataset TEXT NOT NULL,
	metric TEXT NOT NULL,
	continent TEXT NOT NULL,
	year INTEGER NOT NULL,
	value REAL NOT NULL,
	count INTEGER NOT NULL,
	PRIMARY KEY (run_id, dataset, metric, continent, year)
);
`

// Run is one stored pipeline build.
type Run struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Store wraps a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New applies the schema to an open database.
func New(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun records the start of a run.
func (s *Store) SaveRun(ctx context.Context, runID string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, started_at) VALUES (?, ?, ?)`,
		runID, RunRunning, startedAt.UTC())
	if err != nil {
		return fmt.Errorf("save run %s: %w", runID, err)
	}
	return nil
}

// FinishRun sets the final status of a run. A non-nil runErr marks it
// failed.
func (s *Store) FinishRun(ctx context.Context, runID string, runErr error) error {
	status, msg := RunCompleted, ""
	if runErr != nil {
		status, msg = RunFailed, runErr.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		status, msg, time.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// SaveDiagnostics stores one JSON report per dataset.
func (s *Store) SaveDiagnostics(ctx context.Context, runID string, reports []model.DatasetDiagnostics) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO run_diagnostics (run_id, dataset, report) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range reports {
		report, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode diagnostics for %s: %w", r.Dataset, err)
		}
		if _, err := stmt.ExecContext(ctx, runID, r.Dataset, string(report)); err != nil {
			return fmt.Errorf("save diagnostics for %s: %w", r.Dataset, err)
		}
	}
	return tx.Commit()
}

// SaveAggregates stores the aggregates of one dataset, all metrics in one
// transaction, and returns how many rows were written. On error nothing is
// written.
func (s *Store) SaveAggregates(ctx context.Context, runID, dataset string, recs []model.AggregateRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO aggregates
		(run_id, dataset, metric, continent, year, value, count) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, r := range recs {
		if _, err := stmt.ExecContext(ctx, runID, dataset, r.Metric, r.Continent, r.Year, r.Value, r.Count); err != nil {
			return 0, fmt.Errorf("save aggregate %s/%s/%d: %w", r.Metric, r.Continent, r.Year, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(recs), nil
}

// ListRuns returns every run, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, error_message, started_at, finished_at FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun fetches one run.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, error_message, started_at, finished_at FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var run Run
	var finished sql.NullTime
	if err := sc.Scan(&run.ID, &run.Status, &run.Error, &run.StartedAt, &finished); err != nil {
		return Run{}, err
	}
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return run, nil
}

// GetDiagnostics returns the stored reports of a run, ordered by dataset.
func (s *Store) GetDiagnostics(ctx context.Context, runID string) ([]model.DatasetDiagnostics, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT report FROM run_diagnostics WHERE run_id = ? ORDER BY dataset`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DatasetDiagnostics
	for rows.Next() {
		var report string
		if err := rows.Scan(&report); err != nil {
			return nil, err
		}
		var d model.DatasetDiagnostics
		if err := json.Unmarshal([]byte(report), &d); err != nil {
			return nil, fmt.Errorf("decode diagnostics: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetAggregates returns the stored aggregates of one dataset in a run,
// ordered by metric, continent, then year.
func (s *Store) GetAggregates(ctx context.Context, runID, dataset string) ([]model.AggregateRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT metric, continent, year, value, count FROM aggregates
		WHERE run_id = ? AND dataset = ? ORDER BY metric, continent, year`, runID, dataset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AggregateRecord
	for rows.Next() {
		var r model.AggregateRecord
		if err := rows.Scan(&r.Metric, &r.Continent, &r.Year, &r.Value, &r.Count); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
