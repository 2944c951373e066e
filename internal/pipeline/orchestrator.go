package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/boxflow/internal/config"
	"github.com/dgallion1/boxflow/internal/metrics"
	"github.com/dgallion1/boxflow/internal/parser"
	"github.com/dgallion1/boxflow/internal/resultstore"
)

// Orchestrator manages the pagination pipeline.
type Orchestrator struct {
	jobs     *JobStore
	queue    chan *Job
	store    resultstore.Store
	metrics  *metrics.Metrics
	stats    *RunStats
	log      *slog.Logger
	cfg      config.Config
	settings Settings

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline; Start launches its workers.
func NewOrchestrator(cfg config.Config, store resultstore.Store, m *metrics.Metrics, log *slog.Logger) (*Orchestrator, error) {
	opts, err := cfg.FlowOptions()
	if err != nil {
		return nil, fmt.Errorf("flow options: %w", err)
	}
	o := &Orchestrator{
		jobs:    NewJobStore(cfg.JobTTL),
		queue:   make(chan *Job, cfg.MaxQueueSize),
		store:   store,
		metrics: m,
		stats:   NewRunStats(time.Hour),
		log:     log,
		cfg:     cfg,
		settings: Settings{
			Flow: opts,
			Parse: parser.Options{
				SectionLevel: cfg.SectionLevel,
				PDFFallback:  cfg.PDFFallbackPdftotext,
			},
			PageSelector: cfg.PageSelector,
			LineHeight:   float64(cfg.LineHeight),
			FlowTimeout:  cfg.FlowTimeout,
		},
	}
	return o, nil
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.store, o.metrics, o.stats, o.log, o.settings)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					o.reportQueue()
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				if removed := o.jobs.Cleanup(); len(removed) > 0 {
					o.log.Debug("expired jobs removed", "count", len(removed))
				}
				// Redis expires keys itself; the memory store needs sweeping.
				if c, ok := o.store.(interface{ Cleanup() int }); ok {
					if n := c.Cleanup(); n > 0 {
						o.log.Debug("expired results removed", "count", n)
					}
				}
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		o.reportQueue()
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// Result returns the stored result of a completed job.
func (o *Orchestrator) Result(ctx context.Context, id string) (*resultstore.Result, error) {
	return o.store.Get(ctx, id)
}

// DeleteJob forgets a job and drops its stored result.
func (o *Orchestrator) DeleteJob(ctx context.Context, id string) error {
	o.jobs.Delete(id)
	return o.store.Delete(ctx, id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Stats returns the rolling flow run statistics.
func (o *Orchestrator) Stats() StatsSnapshot {
	return o.stats.Snapshot()
}

func (o *Orchestrator) reportQueue() {
	if o.metrics != nil {
		o.metrics.SetQueueDepth(len(o.queue))
	}
}
