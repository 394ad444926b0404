package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemory() (*Memory, *time.Time) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }
	return m, &now
}

func TestMemory_GetSetExpiry(t *testing.T) {
	ctx := context.Background()
	m, now := newTestMemory()

	require.NoError(t, m.Set(ctx, "subjects", []byte(`[1]`), time.Minute))

	v, ok, err := m.Get(ctx, "subjects")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte(`[1]`), v)

	*now = now.Add(time.Minute)
	_, ok, err = m.Get(ctx, "subjects")
	require.NoError(t, err)
	assert.False(t, ok, "entry must expire once its ttl elapsed")
	assert.Equal(t, 0, m.Len())
}

func TestMemory_SetReplaces(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory()

	require.NoError(t, m.Set(ctx, "k", []byte("a"), time.Minute))
	require.NoError(t, m.Set(ctx, "k", []byte("b"), time.Minute))

	v, _, _ := m.Get(ctx, "k")
	assert.Equal(t, []byte("b"), v)
}

func TestMemory_DeletePattern(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory()

	for _, k := range []string{"subjects", "subject_3", "user_7:quiz_history_7", "user_7:user_analytics_7", "user_71:quiz_history_71", "search_ab"} {
		require.NoError(t, m.Set(ctx, k, []byte("x"), time.Minute))
	}

	n, err := m.DeletePattern(ctx, "user_7:*")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok, _ := m.Get(ctx, "user_71:quiz_history_71")
	assert.True(t, ok)

	n, err = m.DeletePattern(ctx, "subjects*")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, ok, _ = m.Get(ctx, "subject_3")
	assert.True(t, ok)

	_, err = m.DeletePattern(ctx, "[")
	assert.Error(t, err)

	require.NoError(t, m.Delete(ctx, "subject_3", "missing"))
	require.NoError(t, m.Clear(ctx))
	assert.Equal(t, 0, m.Len())
}

func TestMemory_StatsAndHitRate(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory()

	st, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, HitRate(st))

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))
	_, _, _ = m.Get(ctx, "k")
	_, _, _ = m.Get(ctx, "k")
	_, _, _ = m.Get(ctx, "missing")

	st, err = m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.KeyspaceHits)
	assert.Equal(t, int64(1), st.KeyspaceMisses)
	assert.Equal(t, 66.67, HitRate(st))
	assert.Equal(t, "2 B", st.UsedMemory)
	assert.NoError(t, m.Optimize(ctx))
}

func TestHitRate(t *testing.T) {
	tests := []struct {
		name         string
		hits, misses int64
		want         float64
	}{
		{"no traffic", 0, 0, 0},
		{"all hits", 10, 0, 100},
		{"all misses", 0, 4, 0},
		{"one third", 1, 2, 33.33},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HitRate(Stats{KeyspaceHits: tt.hits, KeyspaceMisses: tt.misses}))
		})
	}
}
