package vqe

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// RunRepository handles optimization run database operations
type RunRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sql.DB, log zerolog.Logger) *RunRepository {
	return &RunRepository{
		db:  db,
		log: log.With().Str("repo", "run").Logger(),
	}
}

// InitSchema creates the runs table if it does not exist.
func (r *RunRepository) InitSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			estimator TEXT NOT NULL,
			qubits INTEGER NOT NULL,
			parameters INTEGER NOT NULL,
			energy REAL NOT NULL DEFAULT 0,
			vals TEXT,
			iterations INTEGER NOT NULL DEFAULT 0,
			evaluations INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			created_at TEXT NOT NULL,
			completed_at TEXT
		)
	`
	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}
	return nil
}

// Create inserts a new run record
func (r *RunRepository) Create(run *Run) error {
	query := `
		INSERT INTO runs
		(id, status, estimator, qubits, parameters, energy, vals,
		 iterations, evaluations, error, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	vals, err := marshalValues(run.Values)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(query,
		run.ID,
		string(run.Status),
		run.Estimator,
		run.Qubits,
		run.Parameters,
		run.Energy,
		vals,
		run.Iterations,
		run.Evaluations,
		nullString(run.Error),
		run.CreatedAt.Format(time.RFC3339),
		nullTime(run.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	r.log.Info().
		Str("run_id", run.ID).
		Str("estimator", run.Estimator).
		Int("parameters", run.Parameters).
		Msg("Run created")

	return nil
}

// UpdateProgress records the latest iteration of a running run.
func (r *RunRepository) UpdateProgress(id string, iterations, evaluations int, energy float64) error {
	query := `
		UPDATE runs
		SET iterations = ?, evaluations = ?, energy = ?
		WHERE id = ?
	`
	if _, err := r.db.Exec(query, iterations, evaluations, energy, id); err != nil {
		return fmt.Errorf("failed to update run progress: %w", err)
	}
	return nil
}

// Complete marks a run converged or failed and stores the final state.
func (r *RunRepository) Complete(run *Run) error {
	query := `
		UPDATE runs
		SET status = ?, energy = ?, vals = ?, iterations = ?,
		    evaluations = ?, error = ?, completed_at = ?
		WHERE id = ?
	`

	vals, err := marshalValues(run.Values)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(query,
		string(run.Status),
		run.Energy,
		vals,
		run.Iterations,
		run.Evaluations,
		nullString(run.Error),
		nullTime(run.CompletedAt),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	r.log.Info().
		Str("run_id", run.ID).
		Str("status", string(run.Status)).
		Float64("energy", run.Energy).
		Msg("Run completed")

	return nil
}

// Get retrieves a run by ID, or nil when no such run exists.
func (r *RunRepository) Get(id string) (*Run, error) {
	query := `
		SELECT id, status, estimator, qubits, parameters, energy, vals,
		       iterations, evaluations, error, created_at, completed_at
		FROM runs WHERE id = ?
	`

	run, err := r.scanRun(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// List retrieves runs, most recent first.
func (r *RunRepository) List(limit int) ([]*Run, error) {
	query := `
		SELECT id, status, estimator, qubits, parameters, energy, vals,
		       iterations, evaluations, error, created_at, completed_at
		FROM runs
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := r.scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteOlderThan removes completed runs created before the cutoff and
// returns how many were deleted.
func (r *RunRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM runs
		WHERE status != ? AND created_at < ?
	`
	res, err := r.db.Exec(query, string(StatusRunning), cutoff.Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *RunRepository) scanRun(row rowScanner) (*Run, error) {
	var (
		run         Run
		status      string
		vals        sql.NullString
		errMsg      sql.NullString
		createdAt   string
		completedAt sql.NullString
	)
	err := row.Scan(&run.ID, &status, &run.Estimator, &run.Qubits, &run.Parameters,
		&run.Energy, &vals, &run.Iterations, &run.Evaluations, &errMsg,
		&createdAt, &completedAt)
	if err != nil {
		return nil, err
	}

	run.Status = Status(status)
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	if vals.Valid && vals.String != "" {
		if err := json.Unmarshal([]byte(vals.String), &run.Values); err != nil {
			return nil, fmt.Errorf("corrupt values for run %s: %w", run.ID, err)
		}
	}
	if run.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("corrupt created_at for run %s: %w", run.ID, err)
	}
	if completedAt.Valid {
		t, err := time.Parse(time.RFC3339, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt completed_at for run %s: %w", run.ID, err)
		}
		run.CompletedAt = &t
	}
	return &run, nil
}

func marshalValues(values []float64) (sql.NullString, error) {
	if values == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(values)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal values: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}
