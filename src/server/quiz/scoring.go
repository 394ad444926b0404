package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/quiz-master/server/src/server/cache"
	"github.com/quiz-master/server/src/server/data"
)

// Answers maps a question id (as a string) to the submitted option. Values
// are kept raw: JSON numbers and strings both decode, anything else becomes
// its literal text and scores as incorrect.
type Answers map[string]string

func (a *Answers) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Answers, len(raw))
	for k, v := range raw {
		var s string
		if len(v) > 0 && v[0] == '"' && json.Unmarshal(v, &s) == nil {
			out[k] = s
			continue
		}
		out[k] = string(v)
	}
	*a = out
	return nil
}

// parseOption reads a submitted option index. Integral floats ("2.0") are accepted.
func parseOption(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// ScoreAnswers counts the questions whose submitted option equals the correct
// one. Unanswered, malformed and extra answers never fail; they simply do not score.
func ScoreAnswers(questions []data.Question, answers Answers) int {
	score := 0
	for _, q := range questions {
		raw, ok := answers[strconv.FormatInt(q.ID, 10)]
		if !ok {
			continue
		}
		if n, ok := parseOption(raw); ok && n == q.CorrectOption {
			score++
		}
	}
	return score
}

// AttemptQuiz scores a submission, records it as a new Score (retakes are
// kept as separate rows) and invalidates the views derived from scores.
func (s *Service) AttemptQuiz(ctx context.Context, quizID, userID int64, answers Answers) (data.AttemptResult, error) {
	if _, err := s.store.GetQuiz(ctx, quizID); err != nil {
		return data.AttemptResult{}, err
	}
	questions, err := s.store.ListQuestionsByQuiz(ctx, quizID)
	if err != nil {
		return data.AttemptResult{}, fmt.Errorf("loading questions of quiz %d: %w", quizID, err)
	}

	total := ScoreAnswers(questions, answers)
	if _, err := s.store.CreateScore(ctx, data.Score{
		UserID:     userID,
		QuizID:     quizID,
		TotalScore: total,
		Timestamp:  s.now().UTC().Truncate(time.Second),
	}); err != nil {
		return data.AttemptResult{}, fmt.Errorf("recording attempt: %w", err)
	}

	s.invalidate(ctx, cache.Mutation{Entity: cache.EntityScore, UserID: userID})
	return data.AttemptResult{TotalScore: total, TotalQuestions: len(questions)}, nil
}
