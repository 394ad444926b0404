package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueue_Lifecycle(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(4, time.Hour)

	id, err := q.Enqueue(ctx, "export_all_users_stats", nil)
	require.NoError(t, err)

	st, err := q.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatePending, st.State)
	assert.Equal(t, "export_all_users_stats", st.Task)

	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, job.ID)

	require.NoError(t, q.Complete(ctx, id, "exports/all.csv", nil))
	st, err = q.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, st.State)
	assert.Equal(t, "exports/all.csv", st.Result)

	// polling is idempotent
	again, err := q.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, st, again)

	_, err = q.Status(ctx, "unknown")
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.ErrorIs(t, q.Complete(ctx, "unknown", "", nil), ErrJobNotFound)
}

func TestMemoryQueue_ResultsExpire(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(1, time.Minute)
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return now }

	id, err := q.Enqueue(ctx, "test_email", nil)
	require.NoError(t, err)
	_, err = q.Dequeue(ctx)
	require.NoError(t, err)
	require.NoError(t, q.Complete(ctx, id, "", errors.New("boom")))

	now = now.Add(2 * time.Minute)
	_, err = q.Status(ctx, id)
	assert.ErrorIs(t, err, ErrJobNotFound)

	_, err = q.Enqueue(ctx, "test_email", nil)
	require.NoError(t, err)
	q.mu.RLock()
	defer q.mu.RUnlock()
	assert.Len(t, q.statuses, 1)
}

func TestMemoryQueue_EnqueueBlocksUntilCancelled(t *testing.T) {
	q := NewMemoryQueue(0, time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Enqueue(ctx, "test_email", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	q.mu.RLock()
	defer q.mu.RUnlock()
	assert.Empty(t, q.statuses)
}
