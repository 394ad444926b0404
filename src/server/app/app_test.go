package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiz-master/server/src/server/cache"
	"github.com/quiz-master/server/src/server/config"
	"github.com/quiz-master/server/src/server/reports"
)

const seedYAML = `
users:
  - email: learner@example.com
    full_name: Learner One
    password: secret
subjects:
  - name: Math
    chapters:
      - name: Algebra
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Server:  config.ServerConfig{Port: "0", CORSOrigins: []string{"*"}},
		Store:   config.StoreConfig{Backend: "memory"},
		Cache:   config.CacheConfig{Backend: "memory", KeyPrefix: "quiz_master", TTL: cache.DefaultTTLs()},
		Queue:   config.QueueConfig{Backend: "memory", KeyPrefix: "quiz_master", ResultTTL: time.Hour, Workers: 1},
		Storage: config.StorageConfig{Backend: "local", LocalDir: filepath.Join(dir, "exports")},
		Auth:    config.AuthConfig{JWTSecret: "app-test-secret-value", Issuer: "quiz-master", TokenTTL: time.Hour},
		Admin:   config.AdminConfig{Email: "admin@123.com", Password: "admin123", FullName: "Quiz Master"},
		Reminders: config.RemindersConfig{
			UseEmail:     true,
			InactiveDays: 1,
		},
	}
}

func TestNew_MemoryBackends(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.SeedFile = filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(cfg.SeedFile, []byte(seedYAML), 0o644))

	a, err := New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	require.NoError(t, a.Bootstrap(ctx))
	require.NoError(t, a.Bootstrap(ctx), "bootstrap must be repeatable for the admin account")

	admin, err := a.Store.GetUserByEmail(ctx, "admin@123.com")
	require.NoError(t, err)
	assert.Equal(t, "admin", admin.Role)
	_, err = a.Store.GetUserByEmail(ctx, "learner@example.com")
	require.NoError(t, err)

	assert.True(t, a.InProcessWorker())
	assert.Equal(t, []string{
		reports.TaskDailyReminder,
		reports.TaskExportAllUsersStats,
		reports.TaskExportQuizHistory,
		reports.TaskMonthlyReport,
		reports.TaskTestEmail,
	}, a.Worker().Tasks())

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNew_SQLiteStore(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Store = config.StoreConfig{Backend: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "quiz.db")}

	a, err := New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	require.NoError(t, a.Bootstrap(ctx))
	users, err := a.Store.ListUsers(ctx, "admin")
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
