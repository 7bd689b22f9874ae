package renderer

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestWorkerPool_ResultsInTaskOrder(t *testing.T) {
	pool := NewWorkerPool(3, nil)

	var tasks []TraceTask
	for i := 9; i >= 0; i-- {
		tasks = append(tasks, TraceTask{
			TaskID: i,
			Name:   "mirror",
			Scene:  mirrorScene(t),
			Config: DefaultTraceConfig(),
		})
	}

	results, err := pool.Run(context.Background(), tasks)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 10 {
		t.Fatalf("Expected 10 results, got %d", len(results))
	}
	for i, result := range results {
		if result.TaskID != i {
			t.Errorf("Result %d has task ID %d", i, result.TaskID)
		}
		if result.Error != nil || result.Result == nil {
			t.Fatalf("Task %d failed: %v", result.TaskID, result.Error)
		}
	}

	// Parallel runs match a direct single-threaded trace
	direct := trace(t, mirrorScene(t), DefaultTraceConfig())
	for _, result := range results {
		if !reflect.DeepEqual(result.Result.Rays, direct.Rays) {
			t.Errorf("Task %d differs from a direct trace", result.TaskID)
		}
	}
}

func TestWorkerPool_ReportsTaskError(t *testing.T) {
	pool := NewWorkerPool(1, nil)
	tasks := []TraceTask{
		{TaskID: 0, Name: "ok", Scene: mirrorScene(t), Config: DefaultTraceConfig()},
		{TaskID: 1, Name: "bad", Scene: mirrorScene(t), Config: TraceConfig{SeedRays: 0, MaxRays: 10}},
	}

	results, err := pool.Run(context.Background(), tasks)
	if !errors.Is(err, ErrInvalidTraceConfig) {
		t.Fatalf("Expected ErrInvalidTraceConfig, got %v", err)
	}
	if results[0].Result == nil {
		t.Error("The task ahead of the failure should still complete")
	}
	if !errors.Is(results[1].Error, ErrInvalidTraceConfig) {
		t.Errorf("Failing task should carry its error, got %v", results[1].Error)
	}
}

func TestWorkerPool_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := NewWorkerPool(2, nil).Run(ctx, []TraceTask{
		{TaskID: 0, Scene: mirrorScene(t), Config: DefaultTraceConfig()},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if results[0].Result != nil {
		t.Error("No trace should run after cancellation")
	}
}

func TestWorkerPool_DefaultsToCPUCount(t *testing.T) {
	if NewWorkerPool(0, nil).GetNumWorkers() < 1 {
		t.Error("Expected at least one worker")
	}
}
