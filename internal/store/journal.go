package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Run is the journal record of one support-tier reconciliation.
type Run struct {
	ID         string
	PetitionID int
	UserID     int
	StartedAt  time.Time
	FinishedAt time.Time
	Steps      []Step
	// Err is the failure that ended the run, empty when it completed.
	Err string
}

// Succeeded reports whether the run completed without error.
func (r Run) Succeeded() bool {
	return r.Err == ""
}

// Step is one API call made during a run.
type Step struct {
	Kind    string
	TierID  int
	Title   string
	Outcome string
	Error   string
}

// ErrInvalidRun is returned by RecordRun for runs missing an ID or petition.
var ErrInvalidRun = errors.New("run needs an id and a petition id")

// RecordRun stores a run and its steps in one transaction.
func (s *Store) RecordRun(ctx context.Context, run Run) (err error) {
	if run.ID == "" || run.PetitionID == 0 {
		return fmt.Errorf("record run: %w", ErrInvalidRun)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record run: begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reconcile_runs (id, petition_id, user_id, started_at, finished_at, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.PetitionID, run.UserID, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(), run.Err)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}

	for i, step := range run.Steps {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO reconcile_steps (run_id, seq, kind, tier_id, title, outcome, error)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, run.ID, i, step.Kind, step.TierID, step.Title, step.Outcome, step.Error)
		if err != nil {
			return fmt.Errorf("record run %s step %d: %w", run.ID, i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("record run %s: commit: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns up to limit runs for a petition, newest first.
// A non-positive limit returns every run.
func (s *Store) ListRuns(ctx context.Context, petitionID, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, petition_id, user_id, started_at, finished_at, error
		FROM reconcile_runs
		WHERE petition_id = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, petitionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished int64
		)
		if err := rows.Scan(&r.ID, &r.PetitionID, &r.UserID, &started, &finished, &r.Err); err != nil {
			return nil, fmt.Errorf("list runs: scan: %w", err)
		}
		r.StartedAt = time.UnixMilli(started).UTC()
		r.FinishedAt = time.UnixMilli(finished).UTC()
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	rows.Close()

	for i := range runs {
		steps, err := s.runSteps(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Steps = steps
	}
	return runs, nil
}

func (s *Store) runSteps(ctx context.Context, runID string) ([]Step, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, tier_id, title, outcome, error
		FROM reconcile_steps
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("run %s steps: %w", runID, err)
	}
	defer rows.Close()

	var steps []Step
	for rows.Next() {
		var st Step
		if err := rows.Scan(&st.Kind, &st.TierID, &st.Title, &st.Outcome, &st.Error); err != nil {
			return nil, fmt.Errorf("run %s steps: scan: %w", runID, err)
		}
		steps = append(steps, st)
	}
	return steps, rows.Err()
}
