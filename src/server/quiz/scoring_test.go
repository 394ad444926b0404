package quiz

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiz-master/server/src/server/cache"
	"github.com/quiz-master/server/src/server/data"
)

// seedQuiz creates a subject, chapter and quiz with one question per entry
// of correct, each answered by the given option.
func seedQuiz(t *testing.T, f *fixture, correct ...int) data.Quiz {
	t.Helper()
	ctx := context.Background()
	sub, err := f.svc.CreateSubject(ctx, SubjectInput{Name: "Maths"})
	require.NoError(t, err)
	ch, err := f.svc.CreateChapter(ctx, ChapterInput{SubjectID: sub.ID, Name: "Algebra"})
	require.NoError(t, err)
	q, err := f.svc.CreateQuiz(ctx, QuizInput{ChapterID: ch.ID, DateOfQuiz: "2024-03-15", Duration: "00:30"})
	require.NoError(t, err)
	for i, opt := range correct {
		_, err := f.svc.CreateQuestion(ctx, QuestionInput{
			QuizID:        q.ID,
			Statement:     "Question " + strconv.Itoa(i+1),
			Option1:       "Option A",
			Option2:       "Option B",
			Option3:       "Option C",
			Option4:       "Option D",
			CorrectOption: opt,
		})
		require.NoError(t, err)
	}
	return q
}

func TestScoreAnswers(t *testing.T) {
	questions := []data.Question{
		{ID: 1, CorrectOption: 2},
		{ID: 2, CorrectOption: 1},
		{ID: 3, CorrectOption: 4},
	}

	tests := []struct {
		name    string
		answers Answers
		want    int
	}{
		{"all correct", Answers{"1": "2", "2": "1", "3": "4"}, 3},
		{"one wrong", Answers{"1": "2", "2": "3", "3": "4"}, 2},
		{"none answered", Answers{}, 0},
		{"nil answers", nil, 0},
		{"integral float", Answers{"1": "2.0", "2": " 1 "}, 2},
		{"fractional float", Answers{"1": "2.5"}, 0},
		{"malformed", Answers{"1": "two", "2": "null", "3": "true"}, 0},
		{"extra keys ignored", Answers{"1": "2", "99": "1", "abc": "1"}, 1},
		{"infinity", Answers{"1": "Inf"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScoreAnswers(questions, tt.answers))
		})
	}

	assert.Zero(t, ScoreAnswers(nil, Answers{"1": "2"}))
}

func TestAnswers_UnmarshalJSON(t *testing.T) {
	var a Answers
	require.NoError(t, json.Unmarshal([]byte(`{"1": 2, "2": "3", "3": 4.0, "4": null, "5": [1]}`), &a))

	assert.Equal(t, Answers{"1": "2", "2": "3", "3": "4.0", "4": "null", "5": "[1]"}, a)
	assert.Error(t, json.Unmarshal([]byte(`[1, 2]`), &a))
}

func TestAttemptQuiz(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quiz := seedQuiz(t, f, 2, 1, 4)
	questions, err := f.store.ListQuestionsByQuiz(ctx, quiz.ID)
	require.NoError(t, err)

	answers := Answers{
		strconv.FormatInt(questions[0].ID, 10): "2",
		strconv.FormatInt(questions[1].ID, 10): "3",
		strconv.FormatInt(questions[2].ID, 10): "4",
	}

	const userID = 7
	f.put(t,
		cache.UserKey("quiz_history", userID),
		cache.UserKey("user_analytics", userID),
		cache.UserKey("quiz_history", userID+1),
		"charts", "analytics", "scores_list_admin", "subjects",
	)

	res, err := f.svc.AttemptQuiz(ctx, quiz.ID, userID, answers)
	require.NoError(t, err)
	assert.Equal(t, data.AttemptResult{TotalScore: 2, TotalQuestions: 3}, res)

	scores, err := f.store.ListScoresByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, 2, scores[0].TotalScore)
	assert.Equal(t, quiz.ID, scores[0].QuizID)
	assert.Zero(t, scores[0].Timestamp.Nanosecond())

	assert.False(t, f.cached(cache.UserKey("quiz_history", userID)))
	assert.False(t, f.cached(cache.UserKey("user_analytics", userID)))
	assert.False(t, f.cached("charts"))
	assert.False(t, f.cached("analytics"))
	assert.False(t, f.cached("scores_list_admin"))
	assert.True(t, f.cached(cache.UserKey("quiz_history", userID+1)))
	assert.True(t, f.cached("subjects"))

	// retakes are recorded as separate attempts
	_, err = f.svc.AttemptQuiz(ctx, quiz.ID, userID, answers)
	require.NoError(t, err)
	scores, err = f.store.ListScoresByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, scores, 2)
}

func TestAttemptQuiz_NoQuestions(t *testing.T) {
	f := newFixture(t)
	quiz := seedQuiz(t, f)

	res, err := f.svc.AttemptQuiz(context.Background(), quiz.ID, 1, Answers{"1": "1"})
	require.NoError(t, err)
	assert.Equal(t, data.AttemptResult{}, res)

	scores, err := f.store.ListScores(context.Background())
	require.NoError(t, err)
	assert.Len(t, scores, 1)
}

func TestAttemptQuiz_UnknownQuiz(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AttemptQuiz(context.Background(), 404, 1, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	scores, err := f.store.ListScores(context.Background())
	require.NoError(t, err)
	assert.Empty(t, scores)
}
