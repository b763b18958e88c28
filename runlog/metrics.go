package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/docnorm/dbopen"
)

// Metric is a single timeseries datapoint tied to a run.
type Metric struct {
	RunID     string
	Name      string
	Timestamp time.Time
	Value     float64
	Unit      string // "count", "milliseconds", "bytes"
}

// Metrics buffers datapoints and flushes them to SQLite in batches.
// Persistence is async and non-blocking.
type Metrics struct {
	db            *sql.DB
	bufferSize    int
	flushInterval time.Duration
	buffer        []*Metric
	mu            sync.Mutex
	stop          chan struct{}
	done          chan struct{}
}

// NewMetrics creates a manager that flushes metrics in batches.
// Recommended defaults: bufferSize=100, flushInterval=5s.
func NewMetrics(db *sql.DB, bufferSize int, flushInterval time.Duration) *Metrics {
	m := &Metrics{
		db:            db,
		bufferSize:    bufferSize,
		flushInterval: flushInterval,
		buffer:        make([]*Metric, 0, bufferSize),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	go m.flushLoop()
	return m
}

// Record queues a metric for async persistence. Non-blocking.
func (m *Metrics) Record(metric *Metric) {
	if metric.Timestamp.IsZero() {
		metric.Timestamp = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buffer = append(m.buffer, metric)
	if len(m.buffer) >= m.bufferSize {
		m.flushLocked()
	}
}

// RecordValue is a convenience helper.
func (m *Metrics) RecordValue(runID, name string, value float64, unit string) {
	m.Record(&Metric{RunID: runID, Name: name, Value: value, Unit: unit})
}

// Query retrieves metrics filtered by run and name. Pass empty strings for
// no filtering; limit <= 0 means no limit.
func (m *Metrics) Query(runID, name string, limit int) ([]*Metric, error) {
	q := "SELECT run_id, metric_name, timestamp, value, unit FROM run_metrics WHERE 1=1"
	args := make([]any, 0, 3)
	if runID != "" {
		q += " AND run_id = ?"
		args = append(args, runID)
	}
	if name != "" {
		q += " AND metric_name = ?"
		args = append(args, name)
	}
	q += " ORDER BY timestamp DESC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := m.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	defer rows.Close()

	var out []*Metric
	for rows.Next() {
		var rec Metric
		var runID sql.NullString
		var ts int64
		var unit sql.NullString
		if err := rows.Scan(&runID, &rec.Name, &ts, &rec.Value, &unit); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		rec.RunID = runID.String
		rec.Timestamp = time.Unix(ts, 0)
		rec.Unit = unit.String
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// Cleanup deletes metrics older than retentionDays and returns the count removed.
func (m *Metrics) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	threshold := time.Now().AddDate(0, 0, -retentionDays).Unix()
	result, err := dbopen.Exec(ctx, m.db, "DELETE FROM run_metrics WHERE timestamp < ?", threshold)
	if err != nil {
		return 0, fmt.Errorf("cleanup metrics: %w", err)
	}
	return result.RowsAffected()
}

// Close flushes remaining metrics and stops the background goroutine.
func (m *Metrics) Close() error {
	close(m.stop)
	<-m.done
	return nil
}

func (m *Metrics) flushLoop() {
	defer close(m.done)
	ticker := time.NewTicker(m.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			m.mu.Lock()
			m.flushLocked()
			m.mu.Unlock()
			return
		case <-ticker.C:
			m.mu.Lock()
			m.flushLocked()
			m.mu.Unlock()
		}
	}
}

func (m *Metrics) flushLocked() {
	if len(m.buffer) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// The run-history DB is shared with the audit writer, so a flush can hit
	// SQLITE_BUSY; RunTx retries instead of dropping the batch.
	err := dbopen.RunTx(ctx, m.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO run_metrics (run_id, metric_name, timestamp, value, unit) VALUES (?,?,?,?,?)`)
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		defer stmt.Close()
		for _, rec := range m.buffer {
			if _, err := stmt.ExecContext(ctx, rec.RunID, rec.Name, rec.Timestamp.Unix(), rec.Value, rec.Unit); err != nil {
				return fmt.Errorf("insert %s: %w", rec.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		slog.Error("run metrics: flush", "error", err, "dropped", len(m.buffer))
	}
	m.buffer = m.buffer[:0]
}

// Standard metric name constants.
const (
	MetricFilesScanned    = "files_scanned_count"
	MetricFilesAccepted   = "files_accepted_count"
	MetricFilesRejected   = "files_rejected_count"
	MetricFilesMissing    = "files_missing_count"
	MetricRunDurationMs   = "run_duration_ms"
	MetricWorkerCount     = "worker_count"
	MetricConvertDuration = "convert_duration_ms"
)
