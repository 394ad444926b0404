// Package reports implements the background tasks: CSV exports, the daily
// reminder, the monthly activity report and the test email.
package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quiz-master/server/src/server/jobs"
	"github.com/quiz-master/server/src/server/mail"
	"github.com/quiz-master/server/src/server/storage"
	"github.com/quiz-master/server/src/server/store"
)

const (
	TaskExportQuizHistory   = "export_quiz_history"
	TaskExportAllUsersStats = "export_all_users_stats"
	TaskDailyReminder       = "daily_reminder"
	TaskMonthlyReport       = "monthly_report"
	TaskTestEmail           = "test_email"
)

// Object key prefixes of export artifacts.
const (
	QuizHistoryPrefix   = "exports/quiz_history_"
	AllUsersStatsPrefix = "exports/all_users_stats_"
)

const fileStamp = "20060102150405"

// UserArgs are the arguments of per-user tasks.
type UserArgs struct {
	UserID int64 `json:"user_id"`
}

// Notifier posts a plain-text message to a chat channel.
type Notifier interface {
	Post(ctx context.Context, text string) bool
}

type Config struct {
	// AdminEmail receives the test email.
	AdminEmail    string
	UseEmail      bool
	UseGoogleChat bool
	InactiveDays  int
}

type Reports struct {
	store   store.Store
	objects storage.ObjectStorage
	mailer  mail.Sender
	chat    Notifier
	cfg     Config
	now     func() time.Time
}

// New wires the tasks to their collaborators. chat may be nil.
func New(s store.Store, objects storage.ObjectStorage, mailer mail.Sender, chat Notifier, cfg Config) *Reports {
	if cfg.InactiveDays <= 0 {
		cfg.InactiveDays = 1
	}
	return &Reports{store: s, objects: objects, mailer: mailer, chat: chat, cfg: cfg, now: time.Now}
}

// Register binds every task to w.
func (r *Reports) Register(w *jobs.Worker) {
	w.Register(TaskExportQuizHistory, func(ctx context.Context, raw json.RawMessage) (string, error) {
		var args UserArgs
		if err := json.Unmarshal(raw, &args); err != nil {
			return "", fmt.Errorf("decoding %s args: %w", TaskExportQuizHistory, err)
		}
		return r.ExportQuizHistory(ctx, args.UserID)
	})
	w.Register(TaskExportAllUsersStats, func(ctx context.Context, _ json.RawMessage) (string, error) {
		return r.ExportAllUsersStats(ctx)
	})
	w.Register(TaskDailyReminder, func(ctx context.Context, _ json.RawMessage) (string, error) {
		return r.DailyReminder(ctx)
	})
	w.Register(TaskMonthlyReport, func(ctx context.Context, _ json.RawMessage) (string, error) {
		return r.MonthlyReport(ctx)
	})
	w.Register(TaskTestEmail, func(ctx context.Context, _ json.RawMessage) (string, error) {
		return r.TestEmail(ctx)
	})
}

// TestEmail sends a fixed message to the administrator address.
func (r *Reports) TestEmail(ctx context.Context) (string, error) {
	ok := r.mailer.Send(ctx, mail.Message{
		To:      []string{r.cfg.AdminEmail},
		Subject: "Quiz Master: Email Test",
		Text:    "This is a test email from Quiz Master backend jobs system.",
	})
	if !ok {
		return "", fmt.Errorf("test email to %s failed", r.cfg.AdminEmail)
	}
	return "Email sent successfully", nil
}
