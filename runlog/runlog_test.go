package runlog

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	db.Exec("PRAGMA foreign_keys=ON")
	if err := Init(db); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInit_CreatesAllTables(t *testing.T) {
	db := setupDB(t)
	tables := []string{"ingestion_runs", "run_audit", "run_metrics"}
	for _, table := range tables {
		var count int
		db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if count != 1 {
			t.Fatalf("table %s not found", table)
		}
	}
}

// --- Store ---

func TestStore_RunLifecycle(t *testing.T) {
	db := setupDB(t)
	store := NewStore(db)
	ctx := context.Background()

	runID, err := store.BeginRun(ctx, "/src", "/dst")
	if err != nil {
		t.Fatal(err)
	}
	if runID == "" {
		t.Fatal("empty run ID")
	}

	runs, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Status != "running" {
		t.Fatalf("after begin: %+v", runs)
	}

	sum := Summary{Total: 100, Accepted: 90, Rejected: 8, Missing: 2, Parallel: true, Workers: 4}
	if err := store.FinishRun(ctx, runID, sum, nil); err != nil {
		t.Fatal(err)
	}

	runs, err = store.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	r := runs[0]
	if r.Status != "completed" {
		t.Fatalf("status: got %q", r.Status)
	}
	if r.Total != 100 || r.Accepted != 90 || r.Rejected != 8 || r.Missing != 2 {
		t.Fatalf("counters: %+v", r)
	}
	if !r.Parallel || r.Workers != 4 {
		t.Fatalf("parallel/workers: %+v", r)
	}
	if r.FinishedAt.IsZero() {
		t.Fatal("finished_at not set")
	}
}

func TestStore_FinishWithError(t *testing.T) {
	db := setupDB(t)
	store := NewStore(db)
	ctx := context.Background()

	runID, err := store.BeginRun(ctx, "/src", "/dst")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.FinishRun(ctx, runID, Summary{}, errors.New("disk full")); err != nil {
		t.Fatal(err)
	}

	runs, err := store.Recent(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if runs[0].Status != "failed" || runs[0].ErrMessage != "disk full" {
		t.Fatalf("failed run: %+v", runs[0])
	}
}

func TestStore_RecentOrder(t *testing.T) {
	db := setupDB(t)
	store := NewStore(db)
	ctx := context.Background()

	// started_at has second resolution; force distinct timestamps.
	first, _ := store.BeginRun(ctx, "/src1", "/dst1")
	db.Exec("UPDATE ingestion_runs SET started_at = started_at - 10 WHERE run_id = ?", first)
	second, _ := store.BeginRun(ctx, "/src2", "/dst2")

	runs, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("count: got %d", len(runs))
	}
	if runs[0].RunID != second || runs[1].RunID != first {
		t.Fatalf("order: got %s, %s", runs[0].RunID, runs[1].RunID)
	}
}

// --- AuditWriter ---

func TestAuditWriter_RecordAndQuery(t *testing.T) {
	db := setupDB(t)
	aw := NewAuditWriter(db, 100)

	aw.Record(&FileAudit{
		RunID:      "run_1",
		SourcePath: "/src/a.pdf",
		DestPath:   "/dst/2021-04-15_a.txt",
		Outcome:    "accepted",
		DurationMs: 12,
	})
	aw.Record(&FileAudit{
		RunID:      "run_1",
		SourcePath: "/src/b.pdf",
		Outcome:    "conversion_failed",
		ErrMessage: "pdfcpu read: bad xref",
	})
	aw.Close() // drains and flushes

	aw2 := NewAuditWriter(db, 100)
	defer aw2.Close()

	entries, err := aw2.ByRun(context.Background(), "run_1")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries: got %d", len(entries))
	}
	outcomes := map[string]bool{}
	for _, e := range entries {
		outcomes[e.Outcome] = true
		if e.EntryID == "" {
			t.Fatal("entry ID not filled")
		}
	}
	if !outcomes["accepted"] || !outcomes["conversion_failed"] {
		t.Fatalf("outcomes: %v", outcomes)
	}
}

func TestAuditWriter_BufferOverflowFallsBackSync(t *testing.T) {
	db := setupDB(t)
	// Buffer of 1 forces the sync fallback path on the second record.
	aw := NewAuditWriter(db, 1)

	for i := 0; i < 5; i++ {
		aw.Record(&FileAudit{RunID: "run_x", SourcePath: "/src/f.txt", Outcome: "accepted"})
	}
	aw.Close()

	aw2 := NewAuditWriter(db, 100)
	defer aw2.Close()
	entries, err := aw2.ByRun(context.Background(), "run_x")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 5 {
		t.Fatalf("entries: got %d, want 5 (none dropped)", len(entries))
	}
}

func TestAuditWriter_Cleanup(t *testing.T) {
	db := setupDB(t)
	aw := NewAuditWriter(db, 100)

	aw.Record(&FileAudit{
		RunID:      "run_old",
		Timestamp:  time.Now().AddDate(0, 0, -40),
		SourcePath: "/src/old.txt",
		Outcome:    "accepted",
	})
	aw.Record(&FileAudit{RunID: "run_new", SourcePath: "/src/new.txt", Outcome: "accepted"})
	aw.Close()

	aw2 := NewAuditWriter(db, 100)
	defer aw2.Close()
	removed, err := aw2.Cleanup(context.Background(), 30)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("removed: got %d, want 1", removed)
	}
}

// --- Metrics ---

func TestMetrics_RecordAndQuery(t *testing.T) {
	db := setupDB(t)
	m := NewMetrics(db, 100, time.Hour)

	m.RecordValue("run_1", MetricFilesAccepted, 90, "count")
	m.RecordValue("run_1", MetricRunDurationMs, 1250, "milliseconds")
	m.RecordValue("run_2", MetricFilesAccepted, 10, "count")
	m.Close() // flushes

	m2 := NewMetrics(db, 100, time.Hour)
	defer m2.Close()

	got, err := m2.Query("run_1", MetricFilesAccepted, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Value != 90 {
		t.Fatalf("run_1 accepted: %+v", got)
	}

	all, err := m2.Query("", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("all metrics: got %d", len(all))
	}
}

func TestMetrics_BufferFlushOnSize(t *testing.T) {
	db := setupDB(t)
	m := NewMetrics(db, 2, time.Hour)
	defer m.Close()

	m.RecordValue("run_1", "m1", 1, "count")
	m.RecordValue("run_1", "m1", 2, "count")

	// Buffer size reached; flush happened synchronously inside Record.
	got, err := m.Query("run_1", "m1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("flushed metrics: got %d", len(got))
	}
}

// --- busy retry ---

// A writer holding the database lock must delay, not break, run-history
// writes: the store's statements go through the retry helpers.
func TestStore_BeginRunRetriesWhenLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)
	if err := Init(db); err != nil {
		t.Fatal(err)
	}

	locker, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { locker.Close() })
	locker.SetMaxOpenConns(1)

	tx, err := locker.Begin()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tx.Exec(`INSERT INTO run_metrics (run_id, metric_name, timestamp, value) VALUES ('run_x','lock',0,1)`); err != nil {
		t.Fatal(err)
	}
	release := time.AfterFunc(150*time.Millisecond, func() { tx.Commit() })
	defer release.Stop()

	store := NewStore(db)
	runID, err := store.BeginRun(context.Background(), "/src", "/dest")
	if err != nil {
		t.Fatalf("BeginRun under write lock: %v", err)
	}

	var status string
	if err := db.QueryRow("SELECT status FROM ingestion_runs WHERE run_id = ?", runID).Scan(&status); err != nil {
		t.Fatal(err)
	}
	if status != "running" {
		t.Errorf("status = %q, want running", status)
	}
}
