package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// HandlerFunc runs one task. The returned string is stored as the job result.
type HandlerFunc func(ctx context.Context, args json.RawMessage) (string, error)

// Worker consumes a Broker and dispatches jobs to registered handlers.
type Worker struct {
	broker      Broker
	handlers    map[string]HandlerFunc
	concurrency int
	retryDelay  time.Duration
}

func NewWorker(b Broker, concurrency int) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{
		broker:      b,
		handlers:    make(map[string]HandlerFunc),
		concurrency: concurrency,
		retryDelay:  time.Second,
	}
}

// Register binds task to h. Registering the same task twice replaces the handler.
func (w *Worker) Register(task string, h HandlerFunc) {
	w.handlers[task] = h
}

// Tasks lists the registered task names.
func (w *Worker) Tasks() []string {
	names := make([]string, 0, len(w.handlers))
	for name := range w.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run consumes jobs until ctx is cancelled. Jobs already started finish
// before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	slog.Info("Worker started", "tasks", w.Tasks(), "concurrency", w.concurrency)

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx)
		}()
	}
	wg.Wait()

	slog.Info("Worker stopped")
	return nil
}

func (w *Worker) loop(ctx context.Context) {
	for {
		job, err := w.broker.Dequeue(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			slog.Error("Dequeue failed", "error", err)
			select {
			case <-time.After(w.retryDelay):
				continue
			case <-ctx.Done():
				return
			}
		}
		w.Process(ctx, job)
	}
}

// Process runs a single job and records its outcome.
func (w *Worker) Process(ctx context.Context, job Job) {
	start := time.Now()
	result, err := w.run(ctx, job)

	// record the outcome even when shutdown cancelled ctx mid-run
	if cerr := w.broker.Complete(context.WithoutCancel(ctx), job.ID, result, err); cerr != nil {
		slog.Error("Recording job result failed", "job_id", job.ID, "task", job.Task, "error", cerr)
	}
	if err != nil {
		slog.Warn("Job failed", "job_id", job.ID, "task", job.Task, "duration", time.Since(start), "error", err)
		return
	}
	slog.Info("Job succeeded", "job_id", job.ID, "task", job.Task, "duration", time.Since(start))
}

func (w *Worker) run(ctx context.Context, job Job) (result string, err error) {
	h, ok := w.handlers[job.Task]
	if !ok {
		return "", fmt.Errorf("unknown task %q", job.Task)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return h(ctx, job.Args)
}
