package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiz-master/server/src/server/data"
)

func TestMemoryStore_UserLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	alice, err := s.CreateUser(ctx, data.User{Email: "alice@example.com", FullName: "Alice", Role: data.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, int64(1), alice.ID)

	_, err = s.CreateUser(ctx, data.User{Email: "ALICE@example.com", Role: data.RoleUser})
	assert.ErrorIs(t, err, ErrConflict)

	admin, err := s.CreateUser(ctx, data.User{Email: "admin@example.com", Role: data.RoleAdmin})
	require.NoError(t, err)

	got, err := s.GetUserByEmail(ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, alice, got)

	users, err := s.ListUsers(ctx, data.RoleUser)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	all, err := s.ListUsers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	admin.Email = "alice@example.com"
	assert.ErrorIs(t, s.UpdateUser(ctx, admin), ErrConflict)

	require.NoError(t, s.DeleteUser(ctx, alice.ID))
	_, err = s.GetUser(ctx, alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteUser(ctx, alice.ID), ErrNotFound)
}

func TestMemoryStore_Search(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, _ = s.CreateSubject(ctx, data.Subject{Name: "Mathematics"})
	_, _ = s.CreateSubject(ctx, data.Subject{Name: "Physics"})
	_, _ = s.CreateQuiz(ctx, data.Quiz{ChapterID: 1, DateOfQuiz: "2024-01-01", Remarks: "Final MATH revision"})

	subjects, err := s.SearchSubjects(ctx, "math")
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, "Mathematics", subjects[0].Name)

	quizzes, err := s.SearchQuizzes(ctx, "Math")
	require.NoError(t, err)
	assert.Len(t, quizzes, 1)
}

func TestMemoryStore_ScoresOrderedByAttemptTime(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	_, _ = s.CreateScore(ctx, data.Score{UserID: 1, QuizID: 1, TotalScore: 3, Timestamp: base.Add(2 * time.Hour)})
	_, _ = s.CreateScore(ctx, data.Score{UserID: 1, QuizID: 2, TotalScore: 1, Timestamp: base})
	_, _ = s.CreateScore(ctx, data.Score{UserID: 2, QuizID: 1, TotalScore: 5, Timestamp: base.Add(time.Hour)})

	scores, err := s.ListScoresByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, int64(2), scores[0].QuizID)
	assert.Equal(t, int64(1), scores[1].QuizID)

	since, err := s.ListScoresSince(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, since, 2)
}

func TestMemoryStore_TotalsAndLeaderboard(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	u1, _ := s.CreateUser(ctx, data.User{Email: "a@x.io", FullName: "A", Role: data.RoleUser})
	u2, _ := s.CreateUser(ctx, data.User{Email: "b@x.io", FullName: "B", Role: data.RoleUser})
	_, _ = s.CreateUser(ctx, data.User{Email: "admin@x.io", FullName: "Admin", Role: data.RoleAdmin})

	_, _ = s.CreateScore(ctx, data.Score{UserID: u1.ID, QuizID: 1, TotalScore: 2})
	_, _ = s.CreateScore(ctx, data.Score{UserID: u2.ID, QuizID: 1, TotalScore: 3})
	_, _ = s.CreateScore(ctx, data.Score{UserID: u1.ID, QuizID: 1, TotalScore: 4})
	// dangling user: excluded from the leaderboard
	_, _ = s.CreateScore(ctx, data.Score{UserID: 99, QuizID: 1, TotalScore: 10})

	totals, err := s.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, totals.Users)
	assert.Equal(t, 4, totals.Scores)
	assert.InDelta(t, 4.75, totals.AverageScore, 1e-9)

	top, err := s.UserTotals(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []data.UserTotal{
		{UserID: u1.ID, FullName: "A", TotalScore: 6},
		{UserID: u2.ID, FullName: "B", TotalScore: 3},
	}, top)
}
