// Package store keeps a local ledger of extraction runs: when each
// catalog was pulled, how far it got, and where the workbook landed.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/severn-soft/pricegrab/internal/model"
)

// RunStatus is the lifecycle state of one extraction run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusDone      RunStatus = "done"
	RunStatusCancelled RunStatus = "cancelled"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one ledger row.
type Run struct {
	ID           string
	Catalog      model.Catalog
	Status       RunStatus
	RegionsDone  int
	RegionsTotal int
	OutputPath   string
	StartedAt    time.Time
	UpdatedAt    time.Time
}

// SQLiteStore is the ledger backed by modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	catalog       TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'running',
	regions_done  INTEGER NOT NULL DEFAULT 0,
	regions_total INTEGER NOT NULL DEFAULT 0,
	output_path   TEXT NOT NULL DEFAULT '',
	started_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_catalog ON runs(catalog);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateRun inserts a new running ledger row and returns it.
func (s *SQLiteStore) CreateRun(ctx context.Context, catalog model.Catalog, regionsTotal int) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, catalog, status, regions_done, regions_total, started_at, updated_at)
		 VALUES (?, ?, ?, 0, ?, ?, ?)`,
		id, string(catalog), string(RunStatusRunning), regionsTotal, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &Run{
		ID:           id,
		Catalog:      catalog,
		Status:       RunStatusRunning,
		RegionsTotal: regionsTotal,
		StartedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// UpdateProgress records how many regions a run has finished and the
// checkpoint path written so far.
func (s *SQLiteStore) UpdateProgress(ctx context.Context, runID string, regionsDone int, outputPath string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET regions_done = ?, output_path = ?, updated_at = ? WHERE id = ?`,
		regionsDone, outputPath, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update progress %s", runID)
	}
	return checkRowsAffected(res, runID)
}

// FinishRun sets the terminal status of a run.
func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, status RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, catalog, status, regions_done, regions_total, output_path, started_at, updated_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var catalog, status string
		if err := rows.Scan(&r.ID, &catalog, &status, &r.RegionsDone, &r.RegionsTotal,
			&r.OutputPath, &r.StartedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.Catalog = model.Catalog(catalog)
		r.Status = RunStatus(status)
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

func checkRowsAffected(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: run %s not found", runID)
	}
	return nil
}
