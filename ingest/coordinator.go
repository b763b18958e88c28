// CLAUDE:SUMMARY Batch ingestion coordinator: worker pool over scanned files, per-file outcomes, reconciliation, rejection ledger.
// Package ingest runs document normalization over a source tree. A run scans
// the tree, resolves a date for each candidate file, converts it to text at a
// mirrored destination path, then reconciles the destination tree against the
// source universe and writes a ledger of everything that did not make it.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/docnorm/datesolve"
	"github.com/hazyhaar/docnorm/destname"
	"github.com/hazyhaar/docnorm/docpipe"
	"github.com/hazyhaar/docnorm/idgen"
	"github.com/hazyhaar/docnorm/kit"
	"github.com/hazyhaar/docnorm/runlog"
)

// Per-file outcome tags. A task that panics or fails on I/O reports
// "error:<message>" instead.
const (
	OutcomeAccepted         = "accepted"
	OutcomeNoDate           = "no_date"
	OutcomeConversionFailed = "conversion_failed"
	OutcomeSourceMissing    = "source_missing"
)

type outcome struct {
	rel      string
	dest     string
	tag      string
	skipped  bool
	duration time.Duration
}

// Result summarizes one ingestion run.
type Result struct {
	RunID      string
	Total      int
	Accepted   int
	Skipped    int
	Rejected   map[string]string // relative path -> outcome tag
	Missing    []string          // in the universe, but unaccounted for after reconciliation
	Parallel   bool
	Workers    int
	LedgerPath string
}

// Coordinator drives ingestion runs. Zero-value options give a coordinator
// with a default pipeline and logger and no run history.
type Coordinator struct {
	cfg     *Config
	pipe    *docpipe.Pipeline
	logger  *slog.Logger
	store   *runlog.Store
	audit   *runlog.AuditWriter
	metrics *runlog.Metrics
	newID   idgen.Generator
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithPipeline sets the document conversion pipeline.
func WithPipeline(pipe *docpipe.Pipeline) Option {
	return func(c *Coordinator) { c.pipe = pipe }
}

// WithRunStore enables run history.
func WithRunStore(store *runlog.Store) Option {
	return func(c *Coordinator) { c.store = store }
}

// WithAudit enables per-file audit entries.
func WithAudit(audit *runlog.AuditWriter) Option {
	return func(c *Coordinator) { c.audit = audit }
}

// WithMetrics enables run metrics.
func WithMetrics(metrics *runlog.Metrics) Option {
	return func(c *Coordinator) { c.metrics = metrics }
}

// New creates a Coordinator for the given config.
func New(cfg *Config, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:    cfg,
		logger: slog.Default(),
		newID:  idgen.Prefixed("run_", idgen.Default),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pipe == nil {
		c.pipe = docpipe.New(docpipe.Config{
			MaxFileMB: cfg.MaxFileMB,
			Logger:    c.logger,
		})
	}
	return c
}

// workerCount sizes the pool: a fraction of available parallelism, at least
// one, never more workers than files.
func (c *Coordinator) workerCount(numFiles int) int {
	n := int(float64(runtime.GOMAXPROCS(0)) * c.cfg.WorkerFraction)
	if n < 1 {
		n = 1
	}
	if n > numFiles {
		n = numFiles
	}
	return n
}

// Run executes one full ingestion pass from sourceRoot into destRoot. Only
// setup failures (destination root not creatable, source not scannable) are
// returned as errors; per-file failures are recorded in the Result and the
// ledger.
func (c *Coordinator) Run(ctx context.Context, sourceRoot, destRoot string) (*Result, error) {
	start := time.Now()
	if err := os.MkdirAll(destRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create destination root %s: %w", destRoot, err)
	}

	runID := c.newID()
	if c.store != nil {
		id, err := c.store.BeginRun(ctx, sourceRoot, destRoot)
		if err != nil {
			c.logger.Warn("run history unavailable", "error", err)
		} else {
			runID = id
		}
	}
	// Per-file tasks tag their log lines with the run ID from the context.
	ctx = kit.WithRunID(ctx, runID)

	files, err := Scan(sourceRoot, c.cfg)
	if err != nil {
		c.finish(ctx, runID, nil, err)
		return nil, err
	}
	c.recordMetric(runID, runlog.MetricFilesScanned, float64(len(files)), "count")

	workers := c.workerCount(len(files))
	parallel := len(files) > c.cfg.ParallelThreshold && workers > 1
	c.logger.Info("ingestion run started",
		"run_id", runID,
		"transport", kit.GetTransport(ctx),
		"source_root", sourceRoot,
		"dest_root", destRoot,
		"files", len(files),
		"parallel", parallel,
		"workers", workers)

	outcomes := c.process(ctx, runID, sourceRoot, destRoot, files, parallel, workers)
	if len(outcomes) != len(files) {
		c.logger.Warn("outcome count does not match candidate count",
			"run_id", runID,
			"candidates", len(files),
			"outcomes", len(outcomes))
	}

	res := &Result{
		RunID:    runID,
		Total:    len(files),
		Rejected: make(map[string]string),
		Parallel: parallel,
		Workers:  workers,
	}
	accepted := make(map[string]bool)
	noDate := make(map[string]bool)
	for _, out := range outcomes {
		switch out.tag {
		case OutcomeAccepted:
			accepted[out.rel] = true
			res.Accepted++
			if out.skipped {
				res.Skipped++
			}
		case OutcomeNoDate:
			noDate[out.rel] = true
			res.Rejected[out.rel] = out.tag
		default:
			res.Rejected[out.rel] = out.tag
		}
	}

	// Converted files from earlier runs count as accepted even when this run
	// never touched them.
	universe, err := Scan(sourceRoot, c.cfg)
	if err == nil {
		c.claimConverted(destRoot, sourceRoot, accepted)
		res.Missing = reconcile(universe, accepted, noDate)
	} else {
		c.logger.Warn("reconciliation scan failed", "run_id", runID, "error", err)
	}

	res.LedgerPath = LedgerPath(destRoot)
	entries := make([]string, 0, len(noDate)+len(res.Missing))
	for rel := range noDate {
		entries = append(entries, rel)
	}
	entries = append(entries, res.Missing...)
	if err := WriteLedger(res.LedgerPath, c.cfg, entries); err != nil {
		c.logger.Warn("ledger write failed", "run_id", runID, "path", res.LedgerPath, "error", err)
	}

	c.recordMetric(runID, runlog.MetricFilesAccepted, float64(res.Accepted), "count")
	c.recordMetric(runID, runlog.MetricFilesRejected, float64(len(res.Rejected)), "count")
	c.recordMetric(runID, runlog.MetricFilesMissing, float64(len(res.Missing)), "count")
	c.recordMetric(runID, runlog.MetricWorkerCount, float64(workers), "count")
	c.recordMetric(runID, runlog.MetricRunDurationMs, float64(time.Since(start).Milliseconds()), "ms")
	c.finish(ctx, runID, res, nil)

	c.logger.Info("ingestion run finished",
		"run_id", runID,
		"total", res.Total,
		"accepted", res.Accepted,
		"skipped", res.Skipped,
		"rejected", len(res.Rejected),
		"missing", len(res.Missing),
		"duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

// process runs every file through processFile, sequentially or through a
// fixed worker pool. The pool never cancels mid-run: a started batch runs to
// completion so the destination tree is never left half-reconciled.
func (c *Coordinator) process(ctx context.Context, runID, sourceRoot, destRoot string, files []string, parallel bool, workers int) []outcome {
	outcomes := make([]outcome, 0, len(files))
	if !parallel {
		for _, rel := range files {
			out := c.processFile(ctx, sourceRoot, destRoot, rel)
			c.recordAudit(runID, out)
			outcomes = append(outcomes, out)
		}
		return outcomes
	}

	tasks := make(chan string)
	results := make(chan outcome)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rel := range tasks {
				results <- c.processFile(ctx, sourceRoot, destRoot, rel)
			}
		}()
	}
	go func() {
		for _, rel := range files {
			tasks <- rel
		}
		close(tasks)
		wg.Wait()
		close(results)
	}()
	for out := range results {
		c.recordAudit(runID, out)
		outcomes = append(outcomes, out)
	}
	return outcomes
}

// processFile handles one source file end to end. It never panics past this
// boundary: a panic in conversion becomes an error outcome for that file.
func (c *Coordinator) processFile(ctx context.Context, sourceRoot, destRoot, rel string) (out outcome) {
	start := time.Now()
	defer func() {
		out.duration = time.Since(start)
		if r := recover(); r != nil {
			c.logger.Error("file task panicked", "run_id", kit.GetRunID(ctx), "path", rel, "panic", r)
			out = outcome{rel: rel, tag: fmt.Sprintf("error:%v", r), duration: time.Since(start)}
		}
	}()

	src := filepath.Join(sourceRoot, filepath.FromSlash(rel))
	if _, err := os.Stat(src); err != nil {
		return outcome{rel: rel, tag: OutcomeSourceMissing}
	}

	res, ok := datesolve.FromFilename(filepath.Base(rel))
	if !ok {
		return outcome{rel: rel, tag: OutcomeNoDate}
	}
	date := res.Date

	dest := destname.Build(rel, date, destRoot)
	if _, err := os.Stat(dest); err == nil {
		// Already converted by an earlier run.
		return outcome{rel: rel, dest: dest, tag: OutcomeAccepted, skipped: true}
	}

	doc, err := c.pipe.Convert(ctx, src)
	if err != nil {
		c.logger.Warn("conversion failed", "run_id", kit.GetRunID(ctx), "path", rel, "error", err)
		return outcome{rel: rel, tag: OutcomeConversionFailed}
	}
	if content, ok := datesolve.FromContent(doc.Text, &date); ok && !content.Partial && content.Date != date {
		c.logger.Warn("content date disagrees with filename date",
			"run_id", kit.GetRunID(ctx),
			"path", rel,
			"filename_date", date.String(),
			"content_date", content.Date.String())
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return outcome{rel: rel, tag: "error:" + err.Error()}
	}
	text := doc.Text
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if err := os.WriteFile(dest, []byte(text), 0o644); err != nil {
		return outcome{rel: rel, tag: "error:" + err.Error()}
	}
	return outcome{rel: rel, dest: dest, tag: OutcomeAccepted}
}

func (c *Coordinator) recordAudit(runID string, out outcome) {
	if c.audit == nil {
		return
	}
	entry := &runlog.FileAudit{
		RunID:      runID,
		SourcePath: out.rel,
		DestPath:   out.dest,
		Outcome:    out.tag,
		DurationMs: out.duration.Milliseconds(),
	}
	if msg, found := strings.CutPrefix(out.tag, "error:"); found {
		entry.Outcome = "error"
		entry.ErrMessage = msg
	}
	if out.skipped {
		entry.Outcome = "skipped"
	}
	c.audit.Record(entry)
}

func (c *Coordinator) recordMetric(runID, name string, value float64, unit string) {
	if c.metrics != nil {
		c.metrics.RecordValue(runID, name, value, unit)
	}
}

func (c *Coordinator) finish(ctx context.Context, runID string, res *Result, runErr error) {
	if c.store == nil {
		return
	}
	sum := runlog.Summary{}
	if res != nil {
		sum = runlog.Summary{
			Total:    res.Total,
			Accepted: res.Accepted,
			Rejected: len(res.Rejected),
			Missing:  len(res.Missing),
			Skipped:  res.Skipped,
			Parallel: res.Parallel,
			Workers:  res.Workers,
		}
	}
	if err := c.store.FinishRun(ctx, runID, sum, runErr); err != nil {
		c.logger.Warn("run history update failed", "run_id", runID, "error", err)
	}
}
