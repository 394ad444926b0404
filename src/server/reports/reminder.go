package reports

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quiz-master/server/src/server/data"
	"github.com/quiz-master/server/src/server/mail"
)

type reminder struct {
	user    data.User
	subject string
	text    string
}

// DailyReminder nudges regular users who have been inactive for the
// configured number of days, then users who have not attempted a quiz dated
// yesterday or later. Each user is notified at most once per run.
func (r *Reports) DailyReminder(ctx context.Context) (string, error) {
	users, err := r.store.ListUsers(ctx, data.RoleUser)
	if err != nil {
		return "", fmt.Errorf("listing users: %w", err)
	}
	scores, err := r.store.ListScores(ctx)
	if err != nil {
		return "", fmt.Errorf("listing scores: %w", err)
	}
	now := r.now().UTC()
	yesterday := now.AddDate(0, 0, -1).Format(data.DateLayout)
	recent, err := r.store.ListQuizzesSince(ctx, yesterday)
	if err != nil {
		return "", fmt.Errorf("listing recent quizzes: %w", err)
	}

	lastSeen := map[int64]time.Time{}
	attempted := map[[2]int64]bool{}
	for _, sc := range scores {
		if sc.Timestamp.After(lastSeen[sc.UserID]) {
			lastSeen[sc.UserID] = sc.Timestamp
		}
		attempted[[2]int64{sc.UserID, sc.QuizID}] = true
	}

	var queue []reminder
	cutoff := now.AddDate(0, 0, -r.cfg.InactiveDays)
	for _, u := range users {
		last, ok := lastSeen[u.ID]
		if ok && !last.Before(cutoff) {
			continue
		}
		queue = append(queue, reminder{
			user:    u,
			subject: "Quiz Master: Daily Reminder",
			text: fmt.Sprintf("Hi %s,\n\nYou haven't visited Quiz Master in the last day. "+
				"Don't forget to attempt the latest quizzes!\n\nBest,\nQuiz Master Team", u.FullName),
		})
	}
	for _, u := range users {
		for _, q := range recent {
			if attempted[[2]int64{u.ID, q.ID}] {
				continue
			}
			queue = append(queue, reminder{
				user:    u,
				subject: "Quiz Master: New Quiz Available",
				text: fmt.Sprintf("Hi %s,\n\nA new quiz has been created: Quiz %d (Date: %s). "+
					"Don't miss out - attempt it now!\n\nBest,\nQuiz Master Team", u.FullName, q.ID, q.DateOfQuiz),
			})
		}
	}

	notified := map[int64]bool{}
	sent := 0
	for _, rem := range queue {
		if notified[rem.user.ID] {
			continue
		}
		notified[rem.user.ID] = true
		if r.cfg.UseEmail && r.mailer.Send(ctx, mail.Message{To: []string{rem.user.Email}, Subject: rem.subject, Text: rem.text}) {
			sent++
		}
		if r.cfg.UseGoogleChat && r.chat != nil && r.chat.Post(ctx, rem.text) {
			sent++
		}
	}

	slog.Info("Daily reminders sent", "users", len(notified), "notifications", sent)
	return fmt.Sprintf("Reminders sent: %d users, %d notifications", len(notified), sent), nil
}
