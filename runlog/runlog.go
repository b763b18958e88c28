// CLAUDE:SUMMARY Run-history store on SQLite — run records, per-file audit, metrics, kept separate from the working data.
// Package runlog records ingestion run history in an SQLite database.
//
// The database is separate from anything the pipeline reads or writes so a
// slow or failing history store never blocks a run. Per-file audit entries
// and metrics are persisted asynchronously; run records are written
// synchronously at start and finish.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hazyhaar/docnorm/dbopen"
	"github.com/hazyhaar/docnorm/idgen"
)

// Run is a single ingestion run record.
type Run struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	SourceRoot string
	DestRoot   string
	Total      int
	Accepted   int
	Rejected   int
	Missing    int
	Skipped    int
	Parallel   bool
	Workers    int
	Status     string // "running", "completed", "failed"
	ErrMessage string
}

// Summary carries the final counters of a run.
type Summary struct {
	Total    int
	Accepted int
	Rejected int
	Missing  int
	Skipped  int
	Parallel bool
	Workers  int
}

// Store persists run records.
type Store struct {
	db    *sql.DB
	newID idgen.Generator
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithIDGenerator sets a custom ID generator for run IDs.
func WithIDGenerator(gen idgen.Generator) StoreOption {
	return func(s *Store) { s.newID = gen }
}

// NewStore creates a run store backed by the given database. The schema must
// already be applied (see Init).
func NewStore(db *sql.DB, opts ...StoreOption) *Store {
	s := &Store{
		db:    db,
		newID: idgen.Prefixed("run_", idgen.Default),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// BeginRun records the start of a run and returns its ID.
func (s *Store) BeginRun(ctx context.Context, sourceRoot, destRoot string) (string, error) {
	runID := s.newID()
	_, err := dbopen.Exec(ctx, s.db, `
		INSERT INTO ingestion_runs (run_id, started_at, source_root, dest_root, status)
		VALUES (?,?,?,?,'running')`,
		runID, time.Now().Unix(), sourceRoot, destRoot)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return runID, nil
}

// FinishRun records the final counters and status of a run.
func (s *Store) FinishRun(ctx context.Context, runID string, sum Summary, runErr error) error {
	status := "completed"
	errMsg := ""
	if runErr != nil {
		status = "failed"
		errMsg = runErr.Error()
	}
	_, err := dbopen.Exec(ctx, s.db, `
		UPDATE ingestion_runs
		SET finished_at = ?, total_files = ?, accepted = ?, rejected = ?,
		    missing = ?, skipped = ?, parallel = ?, workers = ?,
		    status = ?, error_message = ?
		WHERE run_id = ?`,
		time.Now().Unix(), sum.Total, sum.Accepted, sum.Rejected,
		sum.Missing, sum.Skipped, sum.Parallel, sum.Workers,
		status, errMsg, runID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	return nil
}

// Recent returns the most recent runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, started_at, finished_at, source_root, dest_root,
		       total_files, accepted, rejected, missing, skipped,
		       parallel, workers, status, error_message
		FROM ingestion_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		var r Run
		var started int64
		var finished sql.NullInt64
		var errMsg sql.NullString
		if err := rows.Scan(
			&r.RunID, &started, &finished, &r.SourceRoot, &r.DestRoot,
			&r.Total, &r.Accepted, &r.Rejected, &r.Missing, &r.Skipped,
			&r.Parallel, &r.Workers, &r.Status, &errMsg,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.Unix(started, 0)
		if finished.Valid {
			r.FinishedAt = time.Unix(finished.Int64, 0)
		}
		if errMsg.Valid {
			r.ErrMessage = errMsg.String
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
