// Package app assembles the server's components from configuration. Both the
// HTTP server and the standalone worker start from New.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/quiz-master/server/src/server/cache"
	"github.com/quiz-master/server/src/server/cache/redis"
	"github.com/quiz-master/server/src/server/config"
	"github.com/quiz-master/server/src/server/handlers"
	"github.com/quiz-master/server/src/server/jobs"
	"github.com/quiz-master/server/src/server/jobs/redisqueue"
	"github.com/quiz-master/server/src/server/mail"
	"github.com/quiz-master/server/src/server/middleware"
	"github.com/quiz-master/server/src/server/notify"
	"github.com/quiz-master/server/src/server/quiz"
	"github.com/quiz-master/server/src/server/reports"
	"github.com/quiz-master/server/src/server/storage"
	"github.com/quiz-master/server/src/server/store"
	"github.com/quiz-master/server/src/server/store/mysql"
	"github.com/quiz-master/server/src/server/store/postgres"
	"github.com/quiz-master/server/src/server/store/sqlite"
)

type App struct {
	Config  *config.Config
	Store   store.Store
	Cache   cache.Store
	Queue   jobs.Broker
	Objects storage.ObjectStorage
	Service *quiz.Service
	Reports *reports.Reports

	closers []func() error
}

// New opens the store and every collaborator named by cfg. Close releases them.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	st, err := openStore(cfg.Store)
	if err != nil {
		return nil, err
	}
	a.Store = st
	a.closers = append(a.closers, st.Close)

	a.Cache = a.openCache(ctx)
	a.Queue = a.openQueue()

	if a.Objects, err = openStorage(cfg.Storage); err != nil {
		a.Close()
		return nil, err
	}

	a.Service = quiz.NewService(st, cache.NewInvalidator(a.Cache))

	var chat reports.Notifier
	if gc := notify.NewGoogleChat(cfg.Reminders.GoogleChatWebhook); gc.Enabled() {
		chat = gc
	}
	mailer := mail.NewSender(mail.Config{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		TLS:      cfg.Mail.TLS,
		From:     cfg.Mail.Sender,
	})
	a.Reports = reports.New(st, a.Objects, mailer, chat, reports.Config{
		AdminEmail:    cfg.Admin.Email,
		UseEmail:      cfg.Reminders.UseEmail,
		UseGoogleChat: cfg.Reminders.UseGoogleChat,
		InactiveDays:  cfg.Reminders.InactiveDays,
	})
	return a, nil
}

// Bootstrap creates the admin account and applies the optional seed file.
func (a *App) Bootstrap(ctx context.Context) error {
	if err := a.Service.EnsureAdmin(ctx, a.Config.Admin.Email, a.Config.Admin.Password, a.Config.Admin.FullName); err != nil {
		return err
	}
	if a.Config.SeedFile == "" {
		return nil
	}
	counts, err := store.LoadSeed(ctx, a.Store, a.Config.SeedFile, quiz.HashPassword)
	if err != nil {
		return fmt.Errorf("loading seed file: %w", err)
	}
	slog.Info("Seed data loaded", "file", a.Config.SeedFile, "counts", counts)
	return nil
}

// InProcessWorker reports whether jobs must be consumed inside the server
// process, which is the case for the memory queue.
func (a *App) InProcessWorker() bool {
	return a.Config.Queue.Backend != "redis"
}

func (a *App) Worker() *jobs.Worker {
	w := jobs.NewWorker(a.Queue, a.Config.Queue.Workers)
	a.Reports.Register(w)
	return w
}

func (a *App) Router() http.Handler {
	return handlers.NewRouter(handlers.Deps{
		Service: a.Service,
		Cache:   a.Cache,
		TTL:     a.Config.Cache.TTL,
		Queue:   a.Queue,
		Objects: a.Objects,
		Reports: a.Reports,
		Auth: middleware.AuthConfig{
			Secret:   []byte(a.Config.Auth.JWTSecret),
			Issuer:   a.Config.Auth.Issuer,
			TokenTTL: a.Config.Auth.TokenTTL,
		},
		Health: &handlers.HealthHandler{
			Store:   a.Store,
			Queue:   a.Queue,
			Storage: a.Objects,
			Cache:   a.Cache,
		},
		CORSOrigins: a.Config.Server.CORSOrigins,
	})
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func openStore(cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		if err := s.Migrate(); err != nil {
			s.Close()
			return nil, err
		}
		slog.Info("Using SQLite store", "path", cfg.SQLitePath)
		return s, nil
	case "postgres":
		s, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		if err := s.Migrate(); err != nil {
			s.Close()
			return nil, err
		}
		slog.Info("Using PostgreSQL store")
		return s, nil
	case "mysql":
		m := cfg.MySQL
		s, err := mysql.New(mysql.Config{
			Host:            m.Host,
			Port:            m.Port,
			Database:        m.Database,
			Username:        m.Username,
			Password:        m.Password,
			TLS:             m.TLS,
			Params:          m.Params,
			MaxOpenConns:    m.MaxOpenConns,
			MaxIdleConns:    m.MaxIdleConns,
			ConnMaxLifetime: m.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("opening mysql store: %w", err)
		}
		if err := s.Migrate(); err != nil {
			s.Close()
			return nil, err
		}
		slog.Info("Using MySQL store", "host", m.Host, "database", m.Database)
		return s, nil
	default:
		slog.Info("Using in-memory store")
		return store.NewMemoryStore(), nil
	}
}

// openCache never fails: an unreachable Redis is logged and the cache keeps
// failing open until it comes back.
func (a *App) openCache(ctx context.Context) cache.Store {
	cfg := a.Config.Cache
	if cfg.Backend != "redis" {
		slog.Info("Using in-memory cache")
		return cache.NewMemory()
	}
	rs := redis.New(redis.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Prefix:   cfg.KeyPrefix,
	})
	a.closers = append(a.closers, rs.Close)
	if err := rs.Ping(ctx); err != nil {
		slog.Warn("Redis cache unreachable, serving from the store", "addr", cfg.RedisAddr, "error", err)
	} else {
		slog.Info("Using Redis cache", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	}
	return rs
}

func (a *App) openQueue() jobs.Broker {
	cfg := a.Config.Queue
	if cfg.Backend != "redis" {
		slog.Info("Using in-memory job queue")
		return jobs.NewMemoryQueue(256, cfg.ResultTTL)
	}
	q := redisqueue.New(redisqueue.Config{
		Addr:      cfg.RedisAddr,
		Password:  cfg.RedisPassword,
		DB:        cfg.RedisDB,
		Prefix:    cfg.KeyPrefix,
		ResultTTL: cfg.ResultTTL,
	})
	a.closers = append(a.closers, q.Close)
	slog.Info("Using Redis job queue", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	return q
}

func openStorage(cfg config.StorageConfig) (storage.ObjectStorage, error) {
	if cfg.Backend == "s3" {
		s3, err := storage.NewS3(storage.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			UseSSL:    cfg.S3.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("creating S3 storage: %w", err)
		}
		slog.Info("Using S3 storage", "endpoint", cfg.S3.Endpoint, "bucket", cfg.S3.Bucket)
		return s3, nil
	}
	local, err := storage.NewLocal(cfg.LocalDir, "")
	if err != nil {
		return nil, err
	}
	slog.Info("Using local storage", "dir", cfg.LocalDir)
	return local, nil
}
