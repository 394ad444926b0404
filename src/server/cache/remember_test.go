package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/quiz-master/server/src/server/cache"
	mock_cache "github.com/quiz-master/server/src/server/mocks/cache"
)

type subject struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func TestRemember_SecondReadServedFromCache(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory()
	var calls int

	compute := func(context.Context) ([]subject, error) {
		calls++
		return []subject{{ID: 1, Name: "Math"}}, nil
	}

	first, err := cache.Remember(ctx, store, "subjects", time.Minute, compute)
	require.NoError(t, err)
	second, err := cache.Remember(ctx, store, "subjects", time.Minute, compute)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestRemember_ComputeErrorNotCached(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory()
	boom := errors.New("db down")

	_, err := cache.Remember(ctx, store, "subjects", time.Minute, func(context.Context) ([]subject, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.Len())
}

func TestRemember_FailOpen(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mock_cache.NewMockStore(ctrl)
	m.EXPECT().Get(gomock.Any(), "subject_1").Return(nil, false, errors.New("connection refused"))
	m.EXPECT().Set(gomock.Any(), "subject_1", gomock.Any(), time.Minute).Return(errors.New("connection refused"))

	got, err := cache.Remember(context.Background(), m, "subject_1", time.Minute, func(context.Context) (subject, error) {
		return subject{ID: 1, Name: "Math"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Math", got.Name)
}

func TestRemember_UndecodableEntryRecomputed(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory()
	require.NoError(t, store.Set(ctx, "subject_1", []byte("not json"), time.Minute))

	got, err := cache.Remember(ctx, store, "subject_1", time.Minute, func(context.Context) (subject, error) {
		return subject{ID: 1, Name: "Math"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Math", got.Name)
}

func TestRemember_NilStore(t *testing.T) {
	got, err := cache.Remember(context.Background(), nil, "k", time.Minute, func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestRemember_ConcurrentColdReads(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory()
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	results := make([][]subject, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := cache.Remember(ctx, store, "subjects", time.Minute, func(context.Context) ([]subject, error) {
				calls.Add(1)
				<-release
				return []subject{{ID: 1, Name: "Math"}}, nil
			})
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, results[0], results[1])
	raw, ok, err := store.Get(ctx, "subjects")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `[{"id":1,"name":"Math"}]`, string(raw))
}
