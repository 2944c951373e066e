package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/dgallion1/boxflow/internal/config"
	"github.com/dgallion1/boxflow/internal/metrics"
	"github.com/dgallion1/boxflow/internal/resultstore"
)

func testConfig() config.Config {
	return config.Config{
		WorkerCount:  1,
		MaxQueueSize: 1,
		JobTTL:       time.Hour,
		FlowTimeout:  time.Minute,
		LineHeight:   10,
	}
}

func TestOrchestrator_SubmitAndResult(t *testing.T) {
	store := resultstore.NewMemory(0)
	o, err := NewOrchestrator(testConfig(), store, metrics.New(), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	o.Start(ctx)
	defer o.Stop()

	job := testJob(Upload{Filename: "a.md", Data: []byte("# Title\n\nbody text")})
	if err := o.Submit(job); err != nil {
		t.Fatal(err)
	}
	if o.GetJob(job.ID) != job {
		t.Fatal("expected submitted job to be registered")
	}

	deadline := time.Now().Add(5 * time.Second)
	for !job.Snapshot().Status.Done() {
		if time.Now().After(deadline) {
			t.Fatal("job did not finish")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if snap := job.Snapshot(); snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q (errors %v)", snap.Status, snap.Progress.Errors)
	}

	res, err := o.Result(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.JobID != job.ID || res.Pages != 1 {
		t.Errorf("unexpected result %+v", res)
	}
	if got := o.Stats().Count; got != 1 {
		t.Errorf("expected one run in stats, got %d", got)
	}

	if err := o.DeleteJob(ctx, job.ID); err != nil {
		t.Fatal(err)
	}
	if o.GetJob(job.ID) != nil {
		t.Error("expected job to be forgotten")
	}
	if _, err := o.Result(ctx, job.ID); !errors.Is(err, resultstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	o, err := NewOrchestrator(testConfig(), resultstore.NewMemory(0), nil, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatal(err)
	}
	// No workers: the first job occupies the only queue slot.
	first := testJob(Upload{Filename: "a.txt", Data: []byte("a")})
	if err := o.Submit(first); err != nil {
		t.Fatal(err)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}

	second := testJob(Upload{Filename: "b.txt", Data: []byte("b")})
	if err := o.Submit(second); err == nil {
		t.Fatal("expected queue full error")
	}
	snap := second.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "queue_full" {
		t.Errorf("expected queue_full failure, got %q/%q", snap.Status, snap.Phase)
	}
	o.Stop()
}

func TestNewOrchestrator_BadOptionsFile(t *testing.T) {
	cfg := testConfig()
	cfg.OptionsFile = "/nonexistent/options.yaml"
	if _, err := NewOrchestrator(cfg, resultstore.NewMemory(0), nil, slog.New(slog.DiscardHandler)); err == nil {
		t.Fatal("expected error for missing options file")
	}
}
