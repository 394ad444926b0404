package redisqueue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiz-master/server/src/server/jobs"
)

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	q := NewFromClient(client, "test", time.Hour)
	return q, mr
}

func TestQueue_EnqueueDequeueComplete(t *testing.T) {
	ctx := context.Background()
	q, mr := newTestQueue(t)

	id, err := q.Enqueue(ctx, "export_quiz_history", json.RawMessage(`{"user_id":7}`))
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:job:"+id))
	assert.Equal(t, time.Hour, mr.TTL("test:job:"+id))

	st, err := q.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatePending, st.State)
	assert.False(t, st.Ready())
	assert.JSONEq(t, `{"user_id":7}`, string(st.Args))

	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, "export_quiz_history", job.Task)

	require.NoError(t, q.Complete(ctx, id, "exports/quiz_history_7.csv", nil))
	st, err = q.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, jobs.StateSucceeded, st.State)
	assert.Equal(t, "exports/quiz_history_7.csv", st.Result)
	assert.True(t, st.Ready())
	require.NotNil(t, st.FinishedAt)
	assert.Equal(t, "export_quiz_history", st.Task)
}

func TestQueue_FIFO(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)

	first, err := q.Enqueue(ctx, "daily_reminder", nil)
	require.NoError(t, err)
	second, err := q.Enqueue(ctx, "monthly_report", nil)
	require.NoError(t, err)

	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, job.ID)
	job, err = q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, job.ID)
}

func TestQueue_Failure(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)

	id, err := q.Enqueue(ctx, "test_email", nil)
	require.NoError(t, err)
	require.NoError(t, q.Complete(ctx, id, "", errors.New("smtp down")))

	st, err := q.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, jobs.StateFailed, st.State)
	assert.Equal(t, "smtp down", st.Error)
	assert.Empty(t, st.Result)
}

func TestQueue_StatusExpires(t *testing.T) {
	ctx := context.Background()
	q, mr := newTestQueue(t)

	_, err := q.Status(ctx, "nope")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)

	id, err := q.Enqueue(ctx, "test_email", nil)
	require.NoError(t, err)
	mr.FastForward(2 * time.Hour)
	_, err = q.Status(ctx, id)
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
}

func TestQueue_DequeueHonoursCancellation(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
