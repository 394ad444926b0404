package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewFromClient(client, "test"), mr
}

func TestStore_GetSet(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	_, ok, err := s.Get(ctx, "subjects")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "subjects", []byte(`[{"id":1}]`), time.Minute))
	assert.True(t, mr.Exists("test:subjects"))
	members, err := mr.SMembers("test:idx:subjects")
	require.NoError(t, err)
	assert.Equal(t, []string{"subjects"}, members)

	v, ok, err := s.Get(ctx, "subjects")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":1}]`, string(v))

	mr.FastForward(time.Minute)
	_, ok, err = s.Get(ctx, "subjects")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_DeletePatternUsesIndex(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	keys := []string{"user_7:quiz_history_7", "user_7:user_analytics_7", "user_71:quiz_history_71", "user_7", "users_list_admin", "search_a", "search_b", "subjects"}
	for _, k := range keys {
		require.NoError(t, s.Set(ctx, k, []byte("x"), time.Minute))
	}

	n, err := s.DeletePattern(ctx, "user_7:*")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, mr.Exists("test:user_7:quiz_history_7"))
	assert.True(t, mr.Exists("test:user_71:quiz_history_71"))
	assert.True(t, mr.Exists("test:user_7"))

	members, err := mr.SMembers("test:idx:user")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"user_71:quiz_history_71", "user_7"}, members)

	n, err = s.DeletePattern(ctx, "search_*")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.DeletePattern(ctx, "users*")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, mr.Exists("test:user_7"), "users* must not reach the user family")

	n, err = s.DeletePattern(ctx, "nothing*")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStore_DeletePatternSkipsExpiredIndexEntries(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	require.NoError(t, s.Set(ctx, "charts", []byte("x"), time.Second))
	mr.FastForward(2 * time.Second)

	n, err := s.DeletePattern(ctx, "charts*")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	members, _ := mr.SMembers("test:idx:charts")
	assert.Empty(t, members)
}

func TestStore_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	require.NoError(t, s.Set(ctx, "subject_1", []byte("x"), time.Minute))
	require.NoError(t, s.Set(ctx, "subject_2", []byte("x"), time.Minute))
	require.NoError(t, s.Set(ctx, "quizzes", []byte("x"), time.Minute))
	require.NoError(t, mr.Set("unrelated", "keep"))

	require.NoError(t, s.Delete(ctx, "subject_1", "missing"))
	assert.False(t, mr.Exists("test:subject_1"))

	require.NoError(t, s.Clear(ctx))
	assert.False(t, mr.Exists("test:subject_2"))
	assert.False(t, mr.Exists("test:quizzes"))
	assert.False(t, mr.Exists("test:idx:families"))
	assert.True(t, mr.Exists("unrelated"))
}

func TestParseInfo(t *testing.T) {
	info := "# Clients\r\nconnected_clients:3\r\n# Memory\r\nused_memory:1024\r\nused_memory_human:1.00K\r\n" +
		"# Stats\r\ntotal_commands_processed:120\r\nkeyspace_hits:30\r\nkeyspace_misses:10\r\n"

	st := ParseInfo(info)
	assert.Equal(t, int64(3), st.ConnectedClients)
	assert.Equal(t, "1.00K", st.UsedMemory)
	assert.Equal(t, int64(30), st.KeyspaceHits)
	assert.Equal(t, int64(10), st.KeyspaceMisses)
	assert.Equal(t, int64(120), st.CommandsProcessed)

	assert.Equal(t, "0B", ParseInfo("").UsedMemory)
}

func TestStore_Ping(t *testing.T) {
	s, _ := newTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
