package reports

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quiz-master/server/src/server/data"
	"github.com/quiz-master/server/src/server/mail"
)

//go:embed templates/*.html
var templateFS embed.FS

var monthlyTemplate = template.Must(template.ParseFS(templateFS, "templates/monthly_report.html"))

// UserReport is the per-user data rendered into the monthly email.
type UserReport struct {
	UserName     string
	Period       string
	QuizzesTaken int
	AverageScore float64
	TotalPoints  int
	OverallRank  int
	TotalUsers   int
	Quizzes      []QuizRanking
	GeneratedAt  string
}

// QuizRanking places one of the user's attempts among every attempt of the
// same quiz this month. Rank is 1-based.
type QuizRanking struct {
	QuizID       int64
	Label        string
	Subject      string
	Chapter      string
	Score        int
	Rank         int
	Participants int
	Date         string
}

// BuildMonthlyReports computes the report of every regular user for the
// calendar month (UTC) containing now.
func (r *Reports) BuildMonthlyReports(ctx context.Context) ([]data.User, []UserReport, error) {
	users, err := r.store.ListUsers(ctx, data.RoleUser)
	if err != nil {
		return nil, nil, fmt.Errorf("listing users: %w", err)
	}
	now := r.now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthly, err := r.store.ListScoresSince(ctx, start)
	if err != nil {
		return nil, nil, fmt.Errorf("listing scores since %s: %w", start.Format(data.DateLayout), err)
	}
	l, err := r.loadLookup(ctx)
	if err != nil {
		return nil, nil, err
	}

	// every attempt of a quiz, best first
	byQuiz := map[int64][]data.Score{}
	byUser := map[int64][]data.Score{}
	totals := map[int64]int{}
	for _, sc := range monthly {
		byQuiz[sc.QuizID] = append(byQuiz[sc.QuizID], sc)
		byUser[sc.UserID] = append(byUser[sc.UserID], sc)
		totals[sc.UserID] += sc.TotalScore
	}
	for _, list := range byQuiz {
		sort.SliceStable(list, func(i, j int) bool { return list[i].TotalScore > list[j].TotalScore })
	}

	ranked := make([]data.User, len(users))
	copy(ranked, users)
	sort.SliceStable(ranked, func(i, j int) bool { return totals[ranked[i].ID] > totals[ranked[j].ID] })
	overall := make(map[int64]int, len(ranked))
	for i, u := range ranked {
		overall[u.ID] = i + 1
	}

	reports := make([]UserReport, 0, len(users))
	for _, u := range users {
		scores := byUser[u.ID]
		rep := UserReport{
			UserName:     u.FullName,
			Period:       start.Format("January 2006"),
			QuizzesTaken: len(scores),
			TotalPoints:  totals[u.ID],
			OverallRank:  overall[u.ID],
			TotalUsers:   len(users),
			Quizzes:      make([]QuizRanking, 0, len(scores)),
			GeneratedAt:  now.Format("2006-01-02 15:04:05"),
		}
		if len(scores) > 0 {
			rep.AverageScore = decimal.NewFromInt(int64(rep.TotalPoints)).
				Div(decimal.NewFromInt(int64(len(scores)))).
				Round(2).
				InexactFloat64()
		}
		for _, sc := range scores {
			rep.Quizzes = append(rep.Quizzes, l.ranking(sc, byQuiz[sc.QuizID]))
		}
		reports = append(reports, rep)
	}
	return users, reports, nil
}

func (l *lookup) ranking(sc data.Score, field []data.Score) QuizRanking {
	qr := QuizRanking{
		QuizID:       sc.QuizID,
		Label:        fmt.Sprintf("Quiz %d", sc.QuizID),
		Subject:      "Unknown",
		Chapter:      "Unknown",
		Score:        sc.TotalScore,
		Participants: len(field),
		Date:         sc.Timestamp.UTC().Format("2006-01-02 15:04"),
	}
	for i, other := range field {
		if other.UserID == sc.UserID {
			qr.Rank = i + 1
			break
		}
	}
	q, ok := l.quizzes[sc.QuizID]
	if !ok {
		return qr
	}
	if q.Remarks != "" {
		qr.Label = q.Remarks
	}
	ch, ok := l.chapters[q.ChapterID]
	if !ok {
		return qr
	}
	qr.Chapter = ch.Name
	if sub, ok := l.subjects[ch.SubjectID]; ok {
		qr.Subject = sub.Name
	}
	return qr
}

// RenderMonthlyReport renders rep as an HTML document.
func RenderMonthlyReport(rep UserReport) (string, error) {
	var buf bytes.Buffer
	if err := monthlyTemplate.Execute(&buf, rep); err != nil {
		return "", fmt.Errorf("rendering monthly report: %w", err)
	}
	return buf.String(), nil
}

// MonthlyReport emails every regular user their activity report.
func (r *Reports) MonthlyReport(ctx context.Context) (string, error) {
	users, reports, err := r.BuildMonthlyReports(ctx)
	if err != nil {
		return "", err
	}
	sent := 0
	for i, rep := range reports {
		html, err := RenderMonthlyReport(rep)
		if err != nil {
			return "", err
		}
		if r.mailer.Send(ctx, mail.Message{
			To:      []string{users[i].Email},
			Subject: "Quiz Master: Monthly Activity Report - " + rep.Period,
			Text: fmt.Sprintf("Hi %s,\n\nYour monthly activity report for %s is attached.\n\nBest regards,\nQuiz Master Team",
				rep.UserName, rep.Period),
			HTML: html,
		}) {
			sent++
		}
	}
	slog.Info("Monthly reports sent", "users", len(users), "delivered", sent)
	return fmt.Sprintf("Monthly reports sent to %d users", len(users)), nil
}
