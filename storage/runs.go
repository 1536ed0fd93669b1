package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// ImportRun is one row of the import_runs table.
type ImportRun struct {
	ID         string        `json:"run_id"`
	LogFile    string        `json:"log_file"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Records    int           `json:"records"`
	Skipped    int           `json:"skipped"`
	Duration   time.Duration `json:"duration"`
	Status     string        `json:"status"`
}

// StartRun records the start of an import of logFile and returns its id.
// Call it before the import transaction is opened.
func (s *SQLite) StartRun(ctx context.Context, logFile string) (string, error) {
	id := uuid.NewString()
	_, err := s.DB.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (run_id, log_file, started_at, status) VALUES (?, ?, ?, ?)", quote(RunsTable)),
		id, logFile, time.Now().UTC(), RunStatusRunning)
	if err != nil {
		return "", fmt.Errorf("failed to record import run: %w", err)
	}
	return id, nil
}

// FinishRun stores the outcome of a run. Call it after the import
// transaction has been committed or rolled back.
func (s *SQLite) FinishRun(ctx context.Context, id string, records, skipped int, elapsed time.Duration, runErr error) error {
	status := RunStatusSucceeded
	if runErr != nil {
		status = RunStatusFailed
	}
	res, err := s.DB.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET finished_at = ?, records = ?, skipped = ?, duration_ms = ?, status = ? WHERE run_id = ?", quote(RunsTable)),
		time.Now().UTC(), records, skipped, elapsed.Milliseconds(), status, id)
	if err != nil {
		return fmt.Errorf("failed to update import run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("import run %s not found", id)
	}
	return nil
}

// GetRun loads one import run.
func (s *SQLite) GetRun(ctx context.Context, id string) (*ImportRun, error) {
	row := s.DB.QueryRowContext(ctx,
		fmt.Sprintf("SELECT run_id, log_file, started_at, finished_at, records, skipped, duration_ms, status FROM %s WHERE run_id = ?", quote(RunsTable)),
		id)

	var (
		run        ImportRun
		finishedAt sql.NullTime
		durationMS int64
	)
	err := row.Scan(&run.ID, &run.LogFile, &run.StartedAt, &finishedAt, &run.Records, &run.Skipped, &durationMS, &run.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("import run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load import run: %w", err)
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	run.Duration = time.Duration(durationMS) * time.Millisecond
	return &run, nil
}
