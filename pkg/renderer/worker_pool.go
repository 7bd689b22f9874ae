package renderer

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/df07/go-wavefront-tracer/pkg/core"
)

// TraceTask is one independent propagation run for the worker pool
type TraceTask struct {
	TaskID int // For deterministic ordering
	Name   string
	Scene  Scene
	Config TraceConfig
}

// TaskResult contains the result from running a task
type TaskResult struct {
	TaskID int
	Name   string
	Result *TraceResult
	Error  error
}

// WorkerPool runs independent traces in parallel.
//
// Each trace is still single-threaded and deterministic; the pool only
// overlaps whole runs, so parallelism never changes a trace.
type WorkerPool struct {
	numWorkers int
	logger     core.Logger
}

// NewWorkerPool creates a worker pool with the specified number of workers
func NewWorkerPool(numWorkers int, logger core.Logger) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &WorkerPool{numWorkers: numWorkers, logger: logger}
}

// GetNumWorkers returns the number of workers in the pool
func (wp *WorkerPool) GetNumWorkers() int {
	return wp.numWorkers
}

// Run traces every task and returns the results in TaskID order.
// The first failing task cancels the tasks that have not started yet and
// its error is returned alongside the partial results.
func (wp *WorkerPool) Run(ctx context.Context, tasks []TraceTask) ([]TaskResult, error) {
	results := make([]TaskResult, len(tasks))
	for i, task := range tasks {
		results[i] = TaskResult{TaskID: task.TaskID, Name: task.Name}
	}

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(wp.numWorkers)

	for i := range tasks {
		task := tasks[i]
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Error = err
				return err
			}

			tracer := NewTracer(task.Scene, task.Config)
			tracer.SetLogger(wp.logger)
			result, err := tracer.Trace()
			if err != nil {
				err = fmt.Errorf("task %d (%s): %w", task.TaskID, task.Name, err)
				results[i].Error = err
				return err
			}
			results[i].Result = result
			return nil
		})
	}

	err := group.Wait()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TaskID < results[j].TaskID
	})
	return results, err
}
