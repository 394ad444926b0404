// Package sqlstore implements store.Store on top of sqlx. Queries are written
// with '?' placeholders and rebound for the driver in use, so the same code
// serves the postgres, sqlite and mysql backends.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/quiz-master/server/src/server/data"
	"github.com/quiz-master/server/src/server/store"
)

type Store struct {
	db *sqlx.DB
}

var _ store.Store = (*Store)(nil)

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for migrations.
func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) insert(ctx context.Context, query string, args ...any) (int64, error) {
	if s.db.DriverName() == "postgres" {
		var id int64
		if err := s.db.QueryRowxContext(ctx, s.db.Rebind(query+" RETURNING id"), args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) get(ctx context.Context, dest any, query string, args ...any) error {
	err := s.db.GetContext(ctx, dest, s.db.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func (s *Store) selectRows(ctx context.Context, dest any, query string, args ...any) error {
	return s.db.SelectContext(ctx, dest, s.db.Rebind(query), args...)
}

// exec runs a single-row UPDATE or DELETE, returning ErrNotFound when the row
// does not exist. Existence is checked with a SELECT: mysql reports zero
// affected rows for an update that changes nothing.
func (s *Store) exec(ctx context.Context, table string, id int64, query string, args ...any) error {
	var exists int
	if err := s.get(ctx, &exists, "SELECT 1 FROM "+table+" WHERE id = ?", id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	return err
}

func likeArg(term string) string {
	return "%" + strings.ToLower(term) + "%"
}

// ── Users ──

const userColumns = `id, email, password_hash, full_name, role, qualification, dob`

func (s *Store) CreateUser(ctx context.Context, u data.User) (data.User, error) {
	if _, err := s.GetUserByEmail(ctx, u.Email); err == nil {
		return data.User{}, store.ErrConflict
	} else if !errors.Is(err, store.ErrNotFound) {
		return data.User{}, err
	}

	id, err := s.insert(ctx,
		`INSERT INTO users (email, password_hash, full_name, role, qualification, dob) VALUES (?, ?, ?, ?, ?, ?)`,
		u.Email, u.PasswordHash, u.FullName, u.Role, u.Qualification, u.DOB)
	if err != nil {
		return data.User{}, fmt.Errorf("inserting user: %w", err)
	}
	u.ID = id
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (data.User, error) {
	var u data.User
	err := s.get(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return u, err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (data.User, error) {
	var u data.User
	err := s.get(ctx, &u, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = ?`, strings.ToLower(email))
	return u, err
}

func (s *Store) ListUsers(ctx context.Context, role string) ([]data.User, error) {
	users := []data.User{}
	if role == "" {
		return users, s.selectRows(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY id`)
	}
	return users, s.selectRows(ctx, &users, `SELECT `+userColumns+` FROM users WHERE role = ? ORDER BY id`, role)
}

func (s *Store) UpdateUser(ctx context.Context, u data.User) error {
	if other, err := s.GetUserByEmail(ctx, u.Email); err == nil && other.ID != u.ID {
		return store.ErrConflict
	}
	return s.exec(ctx, "users", u.ID,
		`UPDATE users SET email = ?, password_hash = ?, full_name = ?, role = ?, qualification = ?, dob = ? WHERE id = ?`,
		u.Email, u.PasswordHash, u.FullName, u.Role, u.Qualification, u.DOB, u.ID)
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return s.exec(ctx, "users", id, `DELETE FROM users WHERE id = ?`, id)
}

func (s *Store) SearchUsers(ctx context.Context, term string) ([]data.User, error) {
	users := []data.User{}
	arg := likeArg(term)
	return users, s.selectRows(ctx, &users,
		`SELECT `+userColumns+` FROM users WHERE LOWER(full_name) LIKE ? OR LOWER(email) LIKE ? ORDER BY id`, arg, arg)
}

// ── Subjects ──

func (s *Store) CreateSubject(ctx context.Context, sub data.Subject) (data.Subject, error) {
	id, err := s.insert(ctx, `INSERT INTO subjects (name, description) VALUES (?, ?)`, sub.Name, sub.Description)
	if err != nil {
		return data.Subject{}, fmt.Errorf("inserting subject: %w", err)
	}
	sub.ID = id
	return sub, nil
}

func (s *Store) GetSubject(ctx context.Context, id int64) (data.Subject, error) {
	var sub data.Subject
	err := s.get(ctx, &sub, `SELECT id, name, description FROM subjects WHERE id = ?`, id)
	return sub, err
}

func (s *Store) ListSubjects(ctx context.Context) ([]data.Subject, error) {
	subjects := []data.Subject{}
	return subjects, s.selectRows(ctx, &subjects, `SELECT id, name, description FROM subjects ORDER BY id`)
}

func (s *Store) UpdateSubject(ctx context.Context, sub data.Subject) error {
	return s.exec(ctx, "subjects", sub.ID,
		`UPDATE subjects SET name = ?, description = ? WHERE id = ?`, sub.Name, sub.Description, sub.ID)
}

func (s *Store) DeleteSubject(ctx context.Context, id int64) error {
	return s.exec(ctx, "subjects", id, `DELETE FROM subjects WHERE id = ?`, id)
}

func (s *Store) SearchSubjects(ctx context.Context, term string) ([]data.Subject, error) {
	subjects := []data.Subject{}
	return subjects, s.selectRows(ctx, &subjects,
		`SELECT id, name, description FROM subjects WHERE LOWER(name) LIKE ? ORDER BY id`, likeArg(term))
}

// ── Chapters ──

const chapterColumns = `id, subject_id, name, description`

func (s *Store) CreateChapter(ctx context.Context, c data.Chapter) (data.Chapter, error) {
	id, err := s.insert(ctx, `INSERT INTO chapters (subject_id, name, description) VALUES (?, ?, ?)`,
		c.SubjectID, c.Name, c.Description)
	if err != nil {
		return data.Chapter{}, fmt.Errorf("inserting chapter: %w", err)
	}
	c.ID = id
	return c, nil
}

func (s *Store) GetChapter(ctx context.Context, id int64) (data.Chapter, error) {
	var c data.Chapter
	err := s.get(ctx, &c, `SELECT `+chapterColumns+` FROM chapters WHERE id = ?`, id)
	return c, err
}

func (s *Store) ListChapters(ctx context.Context) ([]data.Chapter, error) {
	chapters := []data.Chapter{}
	return chapters, s.selectRows(ctx, &chapters, `SELECT `+chapterColumns+` FROM chapters ORDER BY id`)
}

func (s *Store) UpdateChapter(ctx context.Context, c data.Chapter) error {
	return s.exec(ctx, "chapters", c.ID,
		`UPDATE chapters SET subject_id = ?, name = ?, description = ? WHERE id = ?`,
		c.SubjectID, c.Name, c.Description, c.ID)
}

func (s *Store) DeleteChapter(ctx context.Context, id int64) error {
	return s.exec(ctx, "chapters", id, `DELETE FROM chapters WHERE id = ?`, id)
}

func (s *Store) SearchChapters(ctx context.Context, term string) ([]data.Chapter, error) {
	chapters := []data.Chapter{}
	return chapters, s.selectRows(ctx, &chapters,
		`SELECT `+chapterColumns+` FROM chapters WHERE LOWER(name) LIKE ? ORDER BY id`, likeArg(term))
}

// ── Quizzes ──

const quizColumns = `id, chapter_id, date_of_quiz, time_duration, remarks`

func (s *Store) CreateQuiz(ctx context.Context, q data.Quiz) (data.Quiz, error) {
	id, err := s.insert(ctx,
		`INSERT INTO quizzes (chapter_id, date_of_quiz, time_duration, remarks) VALUES (?, ?, ?, ?)`,
		q.ChapterID, q.DateOfQuiz, q.Duration, q.Remarks)
	if err != nil {
		return data.Quiz{}, fmt.Errorf("inserting quiz: %w", err)
	}
	q.ID = id
	return q, nil
}

func (s *Store) GetQuiz(ctx context.Context, id int64) (data.Quiz, error) {
	var q data.Quiz
	err := s.get(ctx, &q, `SELECT `+quizColumns+` FROM quizzes WHERE id = ?`, id)
	return q, err
}

func (s *Store) ListQuizzes(ctx context.Context) ([]data.Quiz, error) {
	quizzes := []data.Quiz{}
	return quizzes, s.selectRows(ctx, &quizzes, `SELECT `+quizColumns+` FROM quizzes ORDER BY id`)
}

func (s *Store) ListQuizzesSince(ctx context.Context, date string) ([]data.Quiz, error) {
	quizzes := []data.Quiz{}
	return quizzes, s.selectRows(ctx, &quizzes,
		`SELECT `+quizColumns+` FROM quizzes WHERE date_of_quiz >= ? ORDER BY id`, date)
}

func (s *Store) UpdateQuiz(ctx context.Context, q data.Quiz) error {
	return s.exec(ctx, "quizzes", q.ID,
		`UPDATE quizzes SET chapter_id = ?, date_of_quiz = ?, time_duration = ?, remarks = ? WHERE id = ?`,
		q.ChapterID, q.DateOfQuiz, q.Duration, q.Remarks, q.ID)
}

func (s *Store) DeleteQuiz(ctx context.Context, id int64) error {
	return s.exec(ctx, "quizzes", id, `DELETE FROM quizzes WHERE id = ?`, id)
}

func (s *Store) SearchQuizzes(ctx context.Context, term string) ([]data.Quiz, error) {
	quizzes := []data.Quiz{}
	return quizzes, s.selectRows(ctx, &quizzes,
		`SELECT `+quizColumns+` FROM quizzes WHERE LOWER(remarks) LIKE ? ORDER BY id`, likeArg(term))
}

// ── Questions ──

const questionColumns = `id, quiz_id, question_statement, option1, option2, option3, option4, correct_option`

func (s *Store) CreateQuestion(ctx context.Context, q data.Question) (data.Question, error) {
	id, err := s.insert(ctx,
		`INSERT INTO questions (quiz_id, question_statement, option1, option2, option3, option4, correct_option)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		q.QuizID, q.Statement, q.Option1, q.Option2, q.Option3, q.Option4, q.CorrectOption)
	if err != nil {
		return data.Question{}, fmt.Errorf("inserting question: %w", err)
	}
	q.ID = id
	return q, nil
}

func (s *Store) GetQuestion(ctx context.Context, id int64) (data.Question, error) {
	var q data.Question
	err := s.get(ctx, &q, `SELECT `+questionColumns+` FROM questions WHERE id = ?`, id)
	return q, err
}

func (s *Store) ListQuestions(ctx context.Context) ([]data.Question, error) {
	questions := []data.Question{}
	return questions, s.selectRows(ctx, &questions, `SELECT `+questionColumns+` FROM questions ORDER BY id`)
}

func (s *Store) ListQuestionsByQuiz(ctx context.Context, quizID int64) ([]data.Question, error) {
	questions := []data.Question{}
	return questions, s.selectRows(ctx, &questions,
		`SELECT `+questionColumns+` FROM questions WHERE quiz_id = ? ORDER BY id`, quizID)
}

func (s *Store) UpdateQuestion(ctx context.Context, q data.Question) error {
	return s.exec(ctx, "questions", q.ID,
		`UPDATE questions SET quiz_id = ?, question_statement = ?, option1 = ?, option2 = ?, option3 = ?, option4 = ?, correct_option = ?
		 WHERE id = ?`,
		q.QuizID, q.Statement, q.Option1, q.Option2, q.Option3, q.Option4, q.CorrectOption, q.ID)
}

func (s *Store) DeleteQuestion(ctx context.Context, id int64) error {
	return s.exec(ctx, "questions", id, `DELETE FROM questions WHERE id = ?`, id)
}

func (s *Store) SearchQuestions(ctx context.Context, term string) ([]data.Question, error) {
	questions := []data.Question{}
	return questions, s.selectRows(ctx, &questions,
		`SELECT `+questionColumns+` FROM questions WHERE LOWER(question_statement) LIKE ? ORDER BY id`, likeArg(term))
}

// ── Scores ──

const scoreColumns = `id, user_id, quiz_id, total_score, attempted_at`

// normalizeTime stores attempt times in UTC at second precision so that
// text-backed timestamp columns compare correctly.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func (s *Store) CreateScore(ctx context.Context, sc data.Score) (data.Score, error) {
	sc.Timestamp = normalizeTime(sc.Timestamp)
	id, err := s.insert(ctx,
		`INSERT INTO scores (user_id, quiz_id, total_score, attempted_at) VALUES (?, ?, ?, ?)`,
		sc.UserID, sc.QuizID, sc.TotalScore, sc.Timestamp)
	if err != nil {
		return data.Score{}, fmt.Errorf("inserting score: %w", err)
	}
	sc.ID = id
	return sc, nil
}

func (s *Store) GetScore(ctx context.Context, id int64) (data.Score, error) {
	var sc data.Score
	err := s.get(ctx, &sc, `SELECT `+scoreColumns+` FROM scores WHERE id = ?`, id)
	return sc, err
}

func (s *Store) ListScores(ctx context.Context) ([]data.Score, error) {
	scores := []data.Score{}
	return scores, s.selectRows(ctx, &scores, `SELECT `+scoreColumns+` FROM scores ORDER BY attempted_at, id`)
}

func (s *Store) ListScoresByUser(ctx context.Context, userID int64) ([]data.Score, error) {
	scores := []data.Score{}
	return scores, s.selectRows(ctx, &scores,
		`SELECT `+scoreColumns+` FROM scores WHERE user_id = ? ORDER BY attempted_at, id`, userID)
}

func (s *Store) ListScoresSince(ctx context.Context, since time.Time) ([]data.Score, error) {
	scores := []data.Score{}
	return scores, s.selectRows(ctx, &scores,
		`SELECT `+scoreColumns+` FROM scores WHERE attempted_at >= ? ORDER BY attempted_at, id`, normalizeTime(since))
}

func (s *Store) UserTotals(ctx context.Context, limit int) ([]data.UserTotal, error) {
	totals := []data.UserTotal{}
	return totals, s.selectRows(ctx, &totals,
		`SELECT s.user_id AS user_id, u.full_name AS full_name, SUM(s.total_score) AS total_score
		 FROM scores s JOIN users u ON u.id = s.user_id
		 GROUP BY s.user_id, u.full_name
		 ORDER BY total_score DESC, s.user_id
		 LIMIT ?`, limit)
}

func (s *Store) Totals(ctx context.Context) (store.Totals, error) {
	var t store.Totals
	err := s.get(ctx, &t,
		`SELECT
		   (SELECT COUNT(*) FROM users WHERE role = ?) AS users,
		   (SELECT COUNT(*) FROM quizzes) AS quizzes,
		   (SELECT COUNT(*) FROM scores) AS scores,
		   (SELECT COUNT(*) FROM subjects) AS subjects,
		   (SELECT COUNT(*) FROM chapters) AS chapters,
		   (SELECT COALESCE(AVG(total_score), 0) FROM scores) AS average_score`, data.RoleUser)
	if err != nil {
		return store.Totals{}, fmt.Errorf("counting totals: %w", err)
	}
	return t, nil
}
