// Package jobs runs named background tasks outside the request path. A
// handler enqueues a task and returns its id at once; clients poll Status
// until the task succeeded or failed.
package jobs

//go:generate mockgen -source=queue.go -destination=../mocks/jobs/mock_queue.go -package=mock_jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrJobNotFound is returned by Status for an unknown or expired job id.
var ErrJobNotFound = errors.New("job not found")

type State string

const (
	StatePending   State = "pending"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

type Job struct {
	ID         string          `json:"id"`
	Task       string          `json:"task"`
	Args       json.RawMessage `json:"args,omitempty"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// Status is the polled view of a job.
type Status struct {
	Job
	State      State      `json:"state"`
	Result     string     `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Ready reports whether the job has finished, successfully or not.
func (s Status) Ready() bool {
	return s.State == StateSucceeded || s.State == StateFailed
}

// Queue is the producer side used by request handlers.
type Queue interface {
	Enqueue(ctx context.Context, task string, args json.RawMessage) (string, error)
	Status(ctx context.Context, id string) (Status, error)
}

// Broker is the consumer side used by Worker.
type Broker interface {
	Queue
	// Dequeue blocks until a job is available or ctx is done.
	Dequeue(ctx context.Context) (Job, error)
	// Complete records the outcome of a job. A nil runErr marks success.
	Complete(ctx context.Context, id, result string, runErr error) error
}

// MarshalArgs encodes task arguments.
func MarshalArgs(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding job args: %w", err)
	}
	return b, nil
}

// Finish records the outcome of a run. A nil runErr marks success.
func (st *Status) Finish(result string, runErr error, at time.Time) {
	st.FinishedAt = &at
	if runErr != nil {
		st.State = StateFailed
		st.Error = runErr.Error()
		return
	}
	st.State = StateSucceeded
	st.Result = result
}
