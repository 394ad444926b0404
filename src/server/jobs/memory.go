package jobs

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryQueue is an in-process Broker. Statuses of finished jobs are dropped
// after the result TTL.
type MemoryQueue struct {
	mu        sync.RWMutex
	statuses  map[string]*Status
	pending   chan Job
	resultTTL time.Duration
	now       func() time.Time
}

func NewMemoryQueue(buffer int, resultTTL time.Duration) *MemoryQueue {
	return &MemoryQueue{
		statuses:  make(map[string]*Status),
		pending:   make(chan Job, buffer),
		resultTTL: resultTTL,
		now:       time.Now,
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, task string, args json.RawMessage) (string, error) {
	job := Job{ID: uuid.NewString(), Task: task, Args: args, EnqueuedAt: q.now().UTC()}

	q.mu.Lock()
	q.prune()
	q.statuses[job.ID] = &Status{Job: job, State: StatePending}
	q.mu.Unlock()

	select {
	case q.pending <- job:
		return job.ID, nil
	case <-ctx.Done():
		q.mu.Lock()
		delete(q.statuses, job.ID)
		q.mu.Unlock()
		return "", ctx.Err()
	}
}

func (q *MemoryQueue) Status(_ context.Context, id string) (Status, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	st, ok := q.statuses[id]
	if !ok || q.expired(st) {
		return Status{}, ErrJobNotFound
	}
	return *st, nil
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (Job, error) {
	select {
	case job := <-q.pending:
		return job, nil
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

func (q *MemoryQueue) Complete(_ context.Context, id, result string, runErr error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	st, ok := q.statuses[id]
	if !ok {
		return ErrJobNotFound
	}
	st.Finish(result, runErr, q.now().UTC())
	return nil
}

func (q *MemoryQueue) expired(st *Status) bool {
	return q.resultTTL > 0 && st.FinishedAt != nil && q.now().Sub(*st.FinishedAt) > q.resultTTL
}

// prune drops expired statuses. Callers hold mu.
func (q *MemoryQueue) prune() {
	for id, st := range q.statuses {
		if q.expired(st) {
			delete(q.statuses, id)
		}
	}
}
