package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/docnorm/dbopen"
	"github.com/hazyhaar/docnorm/idgen"
)

// FileAudit is a single per-file record in a run's audit trail.
type FileAudit struct {
	EntryID    string
	RunID      string
	Timestamp  time.Time
	SourcePath string
	DestPath   string
	Outcome    string // "accepted", "no_date", "conversion_failed", "source_missing", "error", "skipped"
	ErrMessage string
	DurationMs int64
}

// AuditWriter persists per-file audit entries asynchronously. A full buffer
// falls back to a synchronous insert so entries are never dropped.
type AuditWriter struct {
	db    *sql.DB
	newID idgen.Generator
	ch    chan *FileAudit
	stop  chan struct{}
	done  chan struct{}
}

// AuditOption configures an AuditWriter.
type AuditOption func(*AuditWriter)

// WithAuditIDGenerator sets a custom ID generator for audit entry IDs.
func WithAuditIDGenerator(gen idgen.Generator) AuditOption {
	return func(a *AuditWriter) { a.newID = gen }
}

// NewAuditWriter creates an async audit writer. Recommended bufferSize: 1000.
func NewAuditWriter(db *sql.DB, bufferSize int, opts ...AuditOption) *AuditWriter {
	a := &AuditWriter{
		db:    db,
		newID: idgen.Prefixed("aud_", idgen.Default),
		ch:    make(chan *FileAudit, bufferSize),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	for _, o := range opts {
		o(a)
	}
	go a.flushLoop()
	return a
}

// Record queues an entry for async persistence.
// Falls back to synchronous insert if the buffer is full.
func (a *AuditWriter) Record(entry *FileAudit) {
	a.fillDefaults(entry)
	select {
	case a.ch <- entry:
	default:
		slog.Warn("run audit buffer full, sync fallback", "source", entry.SourcePath)
		if err := a.insert(context.Background(), entry); err != nil {
			slog.Error("run audit: sync fallback failed", "error", err)
		}
	}
}

// ByRun returns the audit entries of a run, oldest first.
func (a *AuditWriter) ByRun(ctx context.Context, runID string) ([]*FileAudit, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT entry_id, run_id, timestamp, source_path, dest_path,
		       outcome, error_message, duration_ms
		FROM run_audit
		WHERE run_id = ?
		ORDER BY timestamp ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run audit: %w", err)
	}
	defer rows.Close()

	var entries []*FileAudit
	for rows.Next() {
		var e FileAudit
		var ts int64
		var destPath, errMsg sql.NullString
		var durationMs sql.NullInt64
		if err := rows.Scan(
			&e.EntryID, &e.RunID, &ts, &e.SourcePath, &destPath,
			&e.Outcome, &errMsg, &durationMs,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Timestamp = time.Unix(ts, 0)
		if destPath.Valid {
			e.DestPath = destPath.String
		}
		if errMsg.Valid {
			e.ErrMessage = errMsg.String
		}
		if durationMs.Valid {
			e.DurationMs = durationMs.Int64
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Cleanup deletes audit entries older than retentionDays.
func (a *AuditWriter) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	threshold := time.Now().AddDate(0, 0, -retentionDays).Unix()
	result, err := dbopen.Exec(ctx, a.db, "DELETE FROM run_audit WHERE timestamp < ?", threshold)
	if err != nil {
		return 0, fmt.Errorf("cleanup run audit: %w", err)
	}
	return result.RowsAffected()
}

// Close drains the buffer and stops the flush goroutine.
func (a *AuditWriter) Close() error {
	close(a.stop)
	<-a.done
	return nil
}

func (a *AuditWriter) fillDefaults(e *FileAudit) {
	if e.EntryID == "" {
		e.EntryID = a.newID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
}

func (a *AuditWriter) flushLoop() {
	defer close(a.done)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	batch := make([]*FileAudit, 0, 100)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// Shared DB with the run store and metrics manager: SQLITE_BUSY is
		// expected under contention and must retry, not drop entries.
		err := dbopen.RunTx(ctx, a.db, func(tx *sql.Tx) error {
			stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_audit
				(entry_id, run_id, timestamp, source_path, dest_path,
				 outcome, error_message, duration_ms)
				VALUES (?,?,?,?,?,?,?,?)`)
			if err != nil {
				return fmt.Errorf("prepare: %w", err)
			}
			defer stmt.Close()
			for _, e := range batch {
				if _, err := stmt.ExecContext(ctx,
					e.EntryID, e.RunID, e.Timestamp.Unix(), e.SourcePath, e.DestPath,
					e.Outcome, e.ErrMessage, e.DurationMs,
				); err != nil {
					return fmt.Errorf("insert %s: %w", e.EntryID, err)
				}
			}
			return nil
		})
		if err != nil {
			slog.Error("run audit: flush", "error", err, "dropped", len(batch))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-a.stop:
			// drain channel
			for {
				select {
				case e := <-a.ch:
					batch = append(batch, e)
				default:
					flush()
					return
				}
			}
		case e := <-a.ch:
			batch = append(batch, e)
			if len(batch) >= 100 {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (a *AuditWriter) insert(ctx context.Context, e *FileAudit) error {
	_, err := dbopen.Exec(ctx, a.db, `INSERT INTO run_audit
		(entry_id, run_id, timestamp, source_path, dest_path,
		 outcome, error_message, duration_ms)
		VALUES (?,?,?,?,?,?,?,?)`,
		e.EntryID, e.RunID, e.Timestamp.Unix(), e.SourcePath, e.DestPath,
		e.Outcome, e.ErrMessage, e.DurationMs)
	return err
}
