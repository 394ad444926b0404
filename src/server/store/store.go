package store

import (
	"context"
	"errors"
	"time"

	"github.com/quiz-master/server/src/server/data"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique attribute (user email) is already taken.
	ErrConflict = errors.New("already exists")
)

// Store defines the persistent storage interface for the quiz server.
// Every backend (memory, sqlite, postgres, mysql) implements it.
type Store interface {
	UserStore
	SubjectStore
	ChapterStore
	QuizStore
	QuestionStore
	ScoreStore

	Totals(ctx context.Context) (Totals, error)
	Ping(ctx context.Context) error
	Close() error
}

// Totals aggregates row counts for the admin dashboard.
type Totals struct {
	Users        int     `db:"users"`
	Quizzes      int     `db:"quizzes"`
	Scores       int     `db:"scores"`
	Subjects     int     `db:"subjects"`
	Chapters     int     `db:"chapters"`
	AverageScore float64 `db:"average_score"`
}

type UserStore interface {
	CreateUser(ctx context.Context, u data.User) (data.User, error)
	GetUser(ctx context.Context, id int64) (data.User, error)
	GetUserByEmail(ctx context.Context, email string) (data.User, error)
	// ListUsers returns users of the given role, or every user when role is empty.
	ListUsers(ctx context.Context, role string) ([]data.User, error)
	UpdateUser(ctx context.Context, u data.User) error
	DeleteUser(ctx context.Context, id int64) error
	SearchUsers(ctx context.Context, term string) ([]data.User, error)
}

type SubjectStore interface {
	CreateSubject(ctx context.Context, s data.Subject) (data.Subject, error)
	GetSubject(ctx context.Context, id int64) (data.Subject, error)
	ListSubjects(ctx context.Context) ([]data.Subject, error)
	UpdateSubject(ctx context.Context, s data.Subject) error
	DeleteSubject(ctx context.Context, id int64) error
	SearchSubjects(ctx context.Context, term string) ([]data.Subject, error)
}

type ChapterStore interface {
	CreateChapter(ctx context.Context, c data.Chapter) (data.Chapter, error)
	GetChapter(ctx context.Context, id int64) (data.Chapter, error)
	ListChapters(ctx context.Context) ([]data.Chapter, error)
	UpdateChapter(ctx context.Context, c data.Chapter) error
	DeleteChapter(ctx context.Context, id int64) error
	SearchChapters(ctx context.Context, term string) ([]data.Chapter, error)
}

type QuizStore interface {
	CreateQuiz(ctx context.Context, q data.Quiz) (data.Quiz, error)
	GetQuiz(ctx context.Context, id int64) (data.Quiz, error)
	ListQuizzes(ctx context.Context) ([]data.Quiz, error)
	// ListQuizzesSince returns quizzes whose date is on or after the given YYYY-MM-DD date.
	ListQuizzesSince(ctx context.Context, date string) ([]data.Quiz, error)
	UpdateQuiz(ctx context.Context, q data.Quiz) error
	DeleteQuiz(ctx context.Context, id int64) error
	SearchQuizzes(ctx context.Context, term string) ([]data.Quiz, error)
}

type QuestionStore interface {
	CreateQuestion(ctx context.Context, q data.Question) (data.Question, error)
	GetQuestion(ctx context.Context, id int64) (data.Question, error)
	ListQuestions(ctx context.Context) ([]data.Question, error)
	ListQuestionsByQuiz(ctx context.Context, quizID int64) ([]data.Question, error)
	UpdateQuestion(ctx context.Context, q data.Question) error
	DeleteQuestion(ctx context.Context, id int64) error
	SearchQuestions(ctx context.Context, term string) ([]data.Question, error)
}

// ScoreStore lists scores in attempt order (timestamp, then id).
type ScoreStore interface {
	CreateScore(ctx context.Context, s data.Score) (data.Score, error)
	GetScore(ctx context.Context, id int64) (data.Score, error)
	ListScores(ctx context.Context) ([]data.Score, error)
	ListScoresByUser(ctx context.Context, userID int64) ([]data.Score, error)
	ListScoresSince(ctx context.Context, since time.Time) ([]data.Score, error)
	// UserTotals ranks users by accumulated points, highest first.
	UserTotals(ctx context.Context, limit int) ([]data.UserTotal, error)
}
