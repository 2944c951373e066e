package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/boxflow/internal/flow"
	"github.com/dgallion1/boxflow/internal/flowtree"
	"github.com/dgallion1/boxflow/internal/measure"
	"github.com/dgallion1/boxflow/internal/metrics"
	"github.com/dgallion1/boxflow/internal/parser"
	"github.com/dgallion1/boxflow/internal/resultstore"
)

// Settings are the service-wide defaults a job's Request refines.
type Settings struct {
	Flow         flow.Options
	Parse        parser.Options
	PageSelector string
	LineHeight   float64
	FlowTimeout  time.Duration
}

// Worker processes a single pagination job.
type Worker struct {
	store    resultstore.Store
	metrics  *metrics.Metrics
	stats    *RunStats
	log      *slog.Logger
	settings Settings
	oracle   measure.Oracle

	backoff func(attempt int) time.Duration
}

func NewWorker(store resultstore.Store, m *metrics.Metrics, stats *RunStats, log *slog.Logger, settings Settings) *Worker {
	var opts []measure.Option
	if settings.LineHeight > 0 {
		opts = append(opts, measure.WithLineHeight(settings.LineHeight))
	}
	return &Worker{
		store:    store,
		metrics:  m,
		stats:    stats,
		log:      log,
		settings: settings,
		oracle:   measure.New(opts...),
		backoff:  Backoff,
	}
}

// Process runs the full pagination pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID)
	tplUpload, files := job.Inputs()
	defer job.releaseInputs()

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	start := time.Now()
	td, err := parser.LoadTemplates(bytes.NewReader(tplUpload.Data), w.pageSelector(job.Request))
	if err != nil {
		w.fail(log, job, "parsing", fmt.Errorf("templates %s: %w", tplUpload.Filename, err))
		return
	}

	parseOpts := w.settings.Parse
	if job.Request.ContentSelector != "" {
		parseOpts.ContentSelector = job.Request.ContentSelector
	}
	if job.Request.SectionLevel > 0 {
		parseOpts.SectionLevel = job.Request.SectionLevel
	}
	var contents []*flowtree.Node
	for _, f := range files {
		p, err := parser.ForFile(f.Filename, parseOpts)
		if err != nil {
			w.fail(log, job, "parsing", err)
			return
		}
		items, err := p.Parse(bytes.NewReader(f.Data), f.Filename)
		if err != nil {
			w.fail(log, job, "parsing", fmt.Errorf("parse %s: %w", f.Filename, err))
			return
		}
		contents = append(contents, items...)
		job.IncrFilesParsed(len(items))
	}
	w.observePhase("parsing", start)
	if len(contents) == 0 {
		w.fail(log, job, "parsing", fmt.Errorf("no content to flow"))
		return
	}
	log.Info("parsed content", "files", len(files), "items", len(contents), "templates", len(td.Templates()))

	// Phase 2: Flow
	job.SetStatus(StatusFlowing, "flowing")
	opts, err := w.flowOptions(job.Request)
	if err != nil {
		w.fail(log, job, "flowing", err)
		return
	}
	engine, err := flow.New(td.Templates(), w.oracle, opts, log)
	if err != nil {
		w.fail(log, job, "flowing", err)
		return
	}
	flowCtx, cancel := w.flowContext(ctx)
	start = time.Now()
	run, err := engine.Flow(flowCtx, contents)
	cancel()
	elapsed := time.Since(start)
	w.observePhase("flowing", start)
	if err != nil {
		w.fail(log, job, "flowing", err)
		return
	}
	w.stats.Record(elapsed.Milliseconds(), len(run.Pages))
	job.SetRunResult(len(run.Pages), run.Splits, run.Diagnostics)
	log.Info("flow complete", "pages", len(run.Pages), "splits", run.Splits, "diagnostics", len(run.Diagnostics))

	// Phase 3: Render
	job.SetStatus(StatusRendering, "rendering")
	start = time.Now()
	var buf bytes.Buffer
	if err := td.Render(&buf, run); err != nil {
		w.fail(log, job, "rendering", err)
		return
	}
	w.observePhase("rendering", start)

	// Phase 4: Store
	job.SetStatus(StatusStoring, "storing")
	start = time.Now()
	result := &resultstore.Result{
		JobID:       job.ID,
		HTML:        buf.String(),
		Pages:       len(run.Pages),
		Items:       len(contents),
		Splits:      run.Splits,
		Diagnostics: run.Diagnostics,
		CreatedAt:   time.Now().UTC(),
	}
	if err := w.storeResult(ctx, log, result); err != nil {
		w.fail(log, job, "storing", err)
		return
	}
	w.observePhase("storing", start)

	if w.metrics != nil {
		w.metrics.ObserveRun(len(contents), len(run.Pages), run.Splits, len(run.Diagnostics))
		w.metrics.ObserveJob(string(StatusCompleted))
	}
	job.SetStatus(StatusCompleted, "done")
}

// storeResult writes the result, retrying while the store is unavailable.
func (w *Worker) storeResult(ctx context.Context, log *slog.Logger, r *resultstore.Result) error {
	var lastErr error
	for attempt := range MaxRetries {
		lastErr = w.store.Put(ctx, r.JobID, r)
		if lastErr == nil || !IsRetryable(lastErr) {
			return lastErr
		}
		log.Warn("retryable store error", "attempt", attempt, "error", lastErr)
		if w.metrics != nil {
			w.metrics.IncRetry()
		}
		select {
		case <-time.After(w.backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func (w *Worker) flowOptions(req Request) (flow.Options, error) {
	opts := w.settings.Flow
	if req.Pagination != "" {
		p, err := flow.ParsePagination(req.Pagination)
		if err != nil {
			return opts, err
		}
		opts.Pagination = p
	}
	if req.Box != "" {
		opts.Box = req.Box
	}
	return opts, nil
}

func (w *Worker) flowContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if w.settings.FlowTimeout > 0 {
		return context.WithTimeout(ctx, w.settings.FlowTimeout)
	}
	return context.WithCancel(ctx)
}

func (w *Worker) pageSelector(req Request) string {
	if req.PageSelector != "" {
		return req.PageSelector
	}
	return w.settings.PageSelector
}

func (w *Worker) fail(log *slog.Logger, job *Job, phase string, err error) {
	log.Error("job failed", "phase", phase, "error", err)
	job.AddError(fmt.Sprintf("%s: %s", phase, err))
	job.SetStatus(StatusFailed, phase)
	if w.metrics != nil {
		w.metrics.ObserveJob(string(StatusFailed))
	}
}

func (w *Worker) observePhase(phase string, start time.Time) {
	if w.metrics != nil {
		w.metrics.ObservePhase(phase, time.Since(start))
	}
}
