// Package results persists finished sweep runs to a SQLite archive so
// they survive service restarts and can be exported later.
package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// RunRecord is a finished run as stored in the archive.
type RunRecord struct {
	ID         string
	Name       string
	Status     string
	CreatedAt  time.Time
	FinishedAt time.Time
	Error      string
	TotalSteps int
	DirtySteps int
	Rebuilds   int
	Steps      []StepRecord
}

// StepRecord is one sweep step's outcome.
type StepRecord struct {
	Index     int
	Dirty     bool
	Rebuilt   bool
	Forced    bool
	Phase     string
	Error     string
	ElapsedMS float64
	Values    map[string]any
	MinValue  float64
	MaxValue  float64
}

// Archive is a SQLite-backed store of finished runs.
type Archive struct {
	db *sql.DB
}

// Open opens (creating if needed) the archive at path.
func Open(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", path, err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			status      TEXT NOT NULL,
			created_at  TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			error       TEXT NOT NULL DEFAULT '',
			total_steps INTEGER NOT NULL,
			dirty_steps INTEGER NOT NULL,
			rebuilds    INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS step_results (
			id          TEXT PRIMARY KEY,
			run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			step_index  INTEGER NOT NULL,
			dirty       INTEGER NOT NULL,
			rebuilt     INTEGER NOT NULL,
			forced      INTEGER NOT NULL,
			phase       TEXT NOT NULL DEFAULT '',
			error       TEXT NOT NULL DEFAULT '',
			elapsed_ms  REAL NOT NULL,
			values_json TEXT NOT NULL,
			min_value   REAL NOT NULL,
			max_value   REAL NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_step_results_run
			ON step_results (run_id, step_index);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize archive schema: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close releases the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// SaveRun writes a run and all of its steps in one transaction.
func (a *Archive) SaveRun(ctx context.Context, run RunRecord) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, name, status, created_at, finished_at, error, total_steps, dirty_steps, rebuilds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Name, run.Status,
		run.CreatedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Error, run.TotalSteps, run.DirtySteps, run.Rebuilds,
	); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO step_results (id, run_id, step_index, dirty, rebuilt, forced, phase, error, elapsed_ms, values_json, min_value, max_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare step insert: %w", err)
	}
	defer stmt.Close()

	for _, step := range run.Steps {
		valuesJSON, err := json.Marshal(step.Values)
		if err != nil {
			return fmt.Errorf("failed to encode step %d values: %w", step.Index, err)
		}
		if _, err := stmt.ExecContext(ctx,
			uuid.NewString(), run.ID, step.Index,
			step.Dirty, step.Rebuilt, step.Forced,
			step.Phase, step.Error, step.ElapsedMS,
			string(valuesJSON), step.MinValue, step.MaxValue,
		); err != nil {
			return fmt.Errorf("failed to insert step %d: %w", step.Index, err)
		}
	}

	return tx.Commit()
}

// GetRun loads a run and its steps by id.
func (a *Archive) GetRun(ctx context.Context, id string) (RunRecord, error) {
	var run RunRecord
	var created, finished string
	err := a.db.QueryRowContext(ctx, `
		SELECT id, name, status, created_at, finished_at, error, total_steps, dirty_steps, rebuilds
		FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.Name, &run.Status, &created, &finished,
		&run.Error, &run.TotalSteps, &run.DirtySteps, &run.Rebuilds)
	if err == sql.ErrNoRows {
		return RunRecord{}, fmt.Errorf("run %s not found in archive", id)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return RunRecord{}, fmt.Errorf("run %s has a bad created_at: %w", id, err)
	}
	if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return RunRecord{}, fmt.Errorf("run %s has a bad finished_at: %w", id, err)
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT step_index, dirty, rebuilt, forced, phase, error, elapsed_ms, values_json, min_value, max_value
		FROM step_results WHERE run_id = ? ORDER BY step_index`, id)
	if err != nil {
		return RunRecord{}, fmt.Errorf("failed to load steps of run %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var step StepRecord
		var valuesJSON string
		if err := rows.Scan(&step.Index, &step.Dirty, &step.Rebuilt, &step.Forced,
			&step.Phase, &step.Error, &step.ElapsedMS, &valuesJSON,
			&step.MinValue, &step.MaxValue); err != nil {
			return RunRecord{}, fmt.Errorf("failed to scan step of run %s: %w", id, err)
		}
		if err := json.Unmarshal([]byte(valuesJSON), &step.Values); err != nil {
			return RunRecord{}, fmt.Errorf("run %s step %d has bad values: %w", id, step.Index, err)
		}
		run.Steps = append(run.Steps, step)
	}
	if err := rows.Err(); err != nil {
		return RunRecord{}, fmt.Errorf("failed to iterate steps of run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns all archived runs, newest first, without their steps.
func (a *Archive) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, name, status, created_at, finished_at, error, total_steps, dirty_steps, rebuilds
		FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var run RunRecord
		var created, finished string
		if err := rows.Scan(&run.ID, &run.Name, &run.Status, &created, &finished,
			&run.Error, &run.TotalSteps, &run.DirtySteps, &run.Rebuilds); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if run.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("run %s has a bad created_at: %w", run.ID, err)
		}
		if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("run %s has a bad finished_at: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
