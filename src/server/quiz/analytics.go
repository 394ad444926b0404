package quiz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quiz-master/server/src/server/cache"
	"github.com/quiz-master/server/src/server/data"
)

const (
	recentAttempts = 5
	trendAttempts  = 10
	topUsers       = 5
	activityDays   = 7

	unknownName     = "Unknown"
	timestampLayout = "2006-01-02 15:04:05"
)

// mean returns sum/n rounded to two decimals, or 0 when n is 0.
func mean(sum, n int) float64 {
	if n == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(sum)).
		Div(decimal.NewFromInt(int64(n))).
		Round(2).
		InexactFloat64()
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// catalog resolves a quiz to its chapter and subject.
type catalog struct {
	quizzes  map[int64]data.Quiz
	chapters map[int64]data.Chapter
	subjects map[int64]data.Subject
}

func (s *Service) loadCatalog(ctx context.Context) (*catalog, error) {
	quizzes, err := s.store.ListQuizzes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing quizzes: %w", err)
	}
	chapters, err := s.store.ListChapters(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing chapters: %w", err)
	}
	subjects, err := s.store.ListSubjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing subjects: %w", err)
	}

	c := &catalog{
		quizzes:  make(map[int64]data.Quiz, len(quizzes)),
		chapters: make(map[int64]data.Chapter, len(chapters)),
		subjects: make(map[int64]data.Subject, len(subjects)),
	}
	for _, q := range quizzes {
		c.quizzes[q.ID] = q
	}
	for _, ch := range chapters {
		c.chapters[ch.ID] = ch
	}
	for _, sub := range subjects {
		c.subjects[sub.ID] = sub
	}
	return c, nil
}

// resolve returns the chapter and subject of quizID; ok flags are false for
// dangling references.
func (c *catalog) resolve(quizID int64) (ch data.Chapter, chOK bool, sub data.Subject, subOK bool) {
	q, ok := c.quizzes[quizID]
	if !ok {
		return
	}
	if ch, chOK = c.chapters[q.ChapterID]; !chOK {
		return
	}
	sub, subOK = c.subjects[ch.SubjectID]
	return
}

func (c *catalog) names(quizID int64) (chapter, subject string) {
	chapter, subject = unknownName, unknownName
	ch, chOK, sub, subOK := c.resolve(quizID)
	if chOK {
		chapter = ch.Name
	}
	if subOK {
		subject = sub.Name
	}
	return chapter, subject
}

// ── User analytics ──

// UserAnalytics summarises one user's attempts. An empty history yields
// zeros and empty collections.
func (s *Service) UserAnalytics(ctx context.Context, userID int64) (data.UserAnalytics, error) {
	out := data.UserAnalytics{
		RecentAttempts:  []data.RecentAttempt{},
		SubjectAverages: map[string]float64{},
		ChapterAverages: map[string]float64{},
		Trend:           []data.TrendPoint{},
	}

	scores, err := s.store.ListScoresByUser(ctx, userID)
	if err != nil {
		return out, fmt.Errorf("listing scores of user %d: %w", userID, err)
	}
	if len(scores) == 0 {
		return out, nil
	}
	cat, err := s.loadCatalog(ctx)
	if err != nil {
		return out, err
	}

	type tally struct{ sum, n int }
	bySubject := map[string]*tally{}
	byChapter := map[string]*tally{}
	add := func(m map[string]*tally, name string, v int) {
		t, ok := m[name]
		if !ok {
			t = &tally{}
			m[name] = t
		}
		t.sum += v
		t.n++
	}

	out.TotalAttempts = len(scores)
	out.BestScore = scores[0].TotalScore
	for _, sc := range scores {
		out.TotalScore += sc.TotalScore
		out.BestScore = max(out.BestScore, sc.TotalScore)

		ch, chOK, sub, subOK := cat.resolve(sc.QuizID)
		if chOK {
			add(byChapter, ch.Name, sc.TotalScore)
		}
		if subOK {
			add(bySubject, sub.Name, sc.TotalScore)
		}
	}
	out.AverageScore = mean(out.TotalScore, out.TotalAttempts)
	for name, t := range bySubject {
		out.SubjectAverages[name] = mean(t.sum, t.n)
	}
	for name, t := range byChapter {
		out.ChapterAverages[name] = mean(t.sum, t.n)
	}

	// scores are in attempt order; walk backwards for the newest.
	for i := len(scores) - 1; i >= 0 && len(out.RecentAttempts) < recentAttempts; i-- {
		sc := scores[i]
		chapter, subject := cat.names(sc.QuizID)
		out.RecentAttempts = append(out.RecentAttempts, data.RecentAttempt{
			QuizID:      sc.QuizID,
			ChapterName: chapter,
			SubjectName: subject,
			Score:       sc.TotalScore,
			Date:        sc.Timestamp.UTC().Format(data.DateLayout),
		})
	}

	trend := scores[max(0, len(scores)-trendAttempts):]
	for i, sc := range trend {
		out.Trend = append(out.Trend, data.TrendPoint{
			Attempt: i + 1,
			Score:   sc.TotalScore,
			Date:    sc.Timestamp.UTC().Format(data.DateLayout),
		})
	}
	return out, nil
}

// QuizHistory lists a user's attempts, newest first.
func (s *Service) QuizHistory(ctx context.Context, userID int64) ([]data.HistoryEntry, error) {
	scores, err := s.store.ListScoresByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing scores of user %d: %w", userID, err)
	}
	history := make([]data.HistoryEntry, 0, len(scores))
	if len(scores) == 0 {
		return history, nil
	}
	cat, err := s.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	for i := len(scores) - 1; i >= 0; i-- {
		sc := scores[i]
		chapter, subject := cat.names(sc.QuizID)
		history = append(history, data.HistoryEntry{
			ScoreID:    sc.ID,
			QuizID:     sc.QuizID,
			QuizDate:   cat.quizzes[sc.QuizID].DateOfQuiz,
			Chapter:    chapter,
			Subject:    subject,
			TotalScore: sc.TotalScore,
			Timestamp:  sc.Timestamp.UTC().Format(timestampLayout),
		})
	}
	return history, nil
}

// ── Admin analytics ──

// AdminCharts returns the mean score of every quiz that has been attempted,
// in quiz id order.
func (s *Service) AdminCharts(ctx context.Context) (data.AdminCharts, error) {
	quizzes, err := s.store.ListQuizzes(ctx)
	if err != nil {
		return data.AdminCharts{}, fmt.Errorf("listing quizzes: %w", err)
	}
	scores, err := s.store.ListScores(ctx)
	if err != nil {
		return data.AdminCharts{}, fmt.Errorf("listing scores: %w", err)
	}

	sums := map[int64][2]int{}
	for _, sc := range scores {
		t := sums[sc.QuizID]
		sums[sc.QuizID] = [2]int{t[0] + sc.TotalScore, t[1] + 1}
	}

	out := data.AdminCharts{QuizStats: []data.ChartPoint{}}
	for _, q := range quizzes {
		t, ok := sums[q.ID]
		if !ok {
			continue
		}
		out.QuizStats = append(out.QuizStats, data.ChartPoint{
			Label:        fmt.Sprintf("Quiz %d", q.ID),
			QuizID:       q.ID,
			AverageScore: mean(t[0], t[1]),
		})
	}
	return out, nil
}

// AdminAnalytics returns platform totals, daily attempts over the last week
// (oldest first, UTC days) and the top users by accumulated points.
func (s *Service) AdminAnalytics(ctx context.Context) (data.AdminAnalytics, error) {
	totals, err := s.store.Totals(ctx)
	if err != nil {
		return data.AdminAnalytics{}, fmt.Errorf("loading totals: %w", err)
	}

	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := today.AddDate(0, 0, -(activityDays - 1))
	recent, err := s.store.ListScoresSince(ctx, start)
	if err != nil {
		return data.AdminAnalytics{}, fmt.Errorf("listing recent scores: %w", err)
	}
	perDay := make(map[string]int, activityDays)
	for _, sc := range recent {
		perDay[sc.Timestamp.UTC().Format(data.DateLayout)]++
	}
	days := make([]data.DailyAttempts, 0, activityDays)
	for d := start; !d.After(today); d = d.AddDate(0, 0, 1) {
		key := d.Format(data.DateLayout)
		days = append(days, data.DailyAttempts{Date: key, Count: perDay[key]})
	}

	top, err := s.store.UserTotals(ctx, topUsers)
	if err != nil {
		return data.AdminAnalytics{}, fmt.Errorf("ranking users: %w", err)
	}

	return data.AdminAnalytics{
		TotalUsers:       totals.Users,
		TotalQuizzes:     totals.Quizzes,
		TotalAttempts:    totals.Scores,
		TotalSubjects:    totals.Subjects,
		TotalChapters:    totals.Chapters,
		AverageScore:     round2(totals.AverageScore),
		AttemptsOverTime: days,
		TopUsers:         nonNil(top),
	}, nil
}

// ── Search ──

// Search matches term case-insensitively against user names and emails,
// subject and chapter names, quiz remarks and question statements. Running a
// search drops previously cached search results.
func (s *Service) Search(ctx context.Context, term string) (data.SearchResults, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return data.SearchResults{}, &ValidationError{Missing: []string{"query"}}
	}

	var (
		out data.SearchResults
		err error
	)
	if out.Users, err = s.store.SearchUsers(ctx, term); err != nil {
		return data.SearchResults{}, fmt.Errorf("searching users: %w", err)
	}
	if out.Subjects, err = s.store.SearchSubjects(ctx, term); err != nil {
		return data.SearchResults{}, fmt.Errorf("searching subjects: %w", err)
	}
	if out.Chapters, err = s.store.SearchChapters(ctx, term); err != nil {
		return data.SearchResults{}, fmt.Errorf("searching chapters: %w", err)
	}
	if out.Quizzes, err = s.store.SearchQuizzes(ctx, term); err != nil {
		return data.SearchResults{}, fmt.Errorf("searching quizzes: %w", err)
	}
	if out.Questions, err = s.store.SearchQuestions(ctx, term); err != nil {
		return data.SearchResults{}, fmt.Errorf("searching questions: %w", err)
	}

	s.invalidate(ctx, cache.Mutation{Entity: cache.EntitySearch})
	out.Users = nonNil(out.Users)
	out.Subjects = nonNil(out.Subjects)
	out.Chapters = nonNil(out.Chapters)
	out.Quizzes = nonNil(out.Quizzes)
	out.Questions = nonNil(out.Questions)
	return out, nil
}

func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
