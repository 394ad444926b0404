package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/quiz-master/server/src/server/data"
)

// table is an auto-incrementing id → row map.
type table[T any] struct {
	rows   map[int64]T
	nextID int64
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[int64]T)}
}

func (t *table[T]) insert(row T, withID func(T, int64) T) T {
	t.nextID++
	row = withID(row, t.nextID)
	t.rows[t.nextID] = row
	return row
}

func (t *table[T]) get(id int64) (T, error) {
	row, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return row, nil
}

func (t *table[T]) update(id int64, row T) error {
	if _, ok := t.rows[id]; !ok {
		return ErrNotFound
	}
	t.rows[id] = row
	return nil
}

func (t *table[T]) remove(id int64) error {
	if _, ok := t.rows[id]; !ok {
		return ErrNotFound
	}
	delete(t.rows, id)
	return nil
}

// list returns matching rows ordered by id.
func (t *table[T]) list(keep func(T) bool) []T {
	ids := make([]int64, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		row := t.rows[id]
		if keep == nil || keep(row) {
			out = append(out, row)
		}
	}
	return out
}

func contains(s, term string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(term))
}

// MemoryStore keeps every table in process memory. It is the default backend
// for local development and the backend used by handler tests.
type MemoryStore struct {
	mu        sync.RWMutex
	users     *table[data.User]
	subjects  *table[data.Subject]
	chapters  *table[data.Chapter]
	quizzes   *table[data.Quiz]
	questions *table[data.Question]
	scores    *table[data.Score]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     newTable[data.User](),
		subjects:  newTable[data.Subject](),
		chapters:  newTable[data.Chapter](),
		quizzes:   newTable[data.Quiz](),
		questions: newTable[data.Question](),
		scores:    newTable[data.Score](),
	}
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// ── Users ──

func (s *MemoryStore) CreateUser(_ context.Context, u data.User) (data.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users.rows {
		if strings.EqualFold(existing.Email, u.Email) {
			return data.User{}, ErrConflict
		}
	}
	return s.users.insert(u, func(u data.User, id int64) data.User { u.ID = id; return u }), nil
}

func (s *MemoryStore) GetUser(_ context.Context, id int64) (data.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users.get(id)
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (data.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users.rows {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return data.User{}, ErrNotFound
}

func (s *MemoryStore) ListUsers(_ context.Context, role string) ([]data.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users.list(func(u data.User) bool { return role == "" || u.Role == role }), nil
}

func (s *MemoryStore) UpdateUser(_ context.Context, u data.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.users.rows {
		if id != u.ID && strings.EqualFold(existing.Email, u.Email) {
			return ErrConflict
		}
	}
	return s.users.update(u.ID, u)
}

func (s *MemoryStore) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users.remove(id)
}

func (s *MemoryStore) SearchUsers(_ context.Context, term string) ([]data.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users.list(func(u data.User) bool {
		return contains(u.FullName, term) || contains(u.Email, term)
	}), nil
}

// ── Subjects ──

func (s *MemoryStore) CreateSubject(_ context.Context, sub data.Subject) (data.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subjects.insert(sub, func(r data.Subject, id int64) data.Subject { r.ID = id; return r }), nil
}

func (s *MemoryStore) GetSubject(_ context.Context, id int64) (data.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subjects.get(id)
}

func (s *MemoryStore) ListSubjects(_ context.Context) ([]data.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subjects.list(nil), nil
}

func (s *MemoryStore) UpdateSubject(_ context.Context, sub data.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subjects.update(sub.ID, sub)
}

func (s *MemoryStore) DeleteSubject(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subjects.remove(id)
}

func (s *MemoryStore) SearchSubjects(_ context.Context, term string) ([]data.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subjects.list(func(r data.Subject) bool { return contains(r.Name, term) }), nil
}

// ── Chapters ──

func (s *MemoryStore) CreateChapter(_ context.Context, c data.Chapter) (data.Chapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chapters.insert(c, func(r data.Chapter, id int64) data.Chapter { r.ID = id; return r }), nil
}

func (s *MemoryStore) GetChapter(_ context.Context, id int64) (data.Chapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chapters.get(id)
}

func (s *MemoryStore) ListChapters(_ context.Context) ([]data.Chapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chapters.list(nil), nil
}

func (s *MemoryStore) UpdateChapter(_ context.Context, c data.Chapter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chapters.update(c.ID, c)
}

func (s *MemoryStore) DeleteChapter(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chapters.remove(id)
}

func (s *MemoryStore) SearchChapters(_ context.Context, term string) ([]data.Chapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chapters.list(func(r data.Chapter) bool { return contains(r.Name, term) }), nil
}

// ── Quizzes ──

func (s *MemoryStore) CreateQuiz(_ context.Context, q data.Quiz) (data.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quizzes.insert(q, func(r data.Quiz, id int64) data.Quiz { r.ID = id; return r }), nil
}

func (s *MemoryStore) GetQuiz(_ context.Context, id int64) (data.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quizzes.get(id)
}

func (s *MemoryStore) ListQuizzes(_ context.Context) ([]data.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quizzes.list(nil), nil
}

func (s *MemoryStore) ListQuizzesSince(_ context.Context, date string) ([]data.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quizzes.list(func(r data.Quiz) bool { return r.DateOfQuiz >= date }), nil
}

func (s *MemoryStore) UpdateQuiz(_ context.Context, q data.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quizzes.update(q.ID, q)
}

func (s *MemoryStore) DeleteQuiz(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quizzes.remove(id)
}

func (s *MemoryStore) SearchQuizzes(_ context.Context, term string) ([]data.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quizzes.list(func(r data.Quiz) bool { return contains(r.Remarks, term) }), nil
}

// ── Questions ──

func (s *MemoryStore) CreateQuestion(_ context.Context, q data.Question) (data.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questions.insert(q, func(r data.Question, id int64) data.Question { r.ID = id; return r }), nil
}

func (s *MemoryStore) GetQuestion(_ context.Context, id int64) (data.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.questions.get(id)
}

func (s *MemoryStore) ListQuestions(_ context.Context) ([]data.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.questions.list(nil), nil
}

func (s *MemoryStore) ListQuestionsByQuiz(_ context.Context, quizID int64) ([]data.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.questions.list(func(r data.Question) bool { return r.QuizID == quizID }), nil
}

func (s *MemoryStore) UpdateQuestion(_ context.Context, q data.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questions.update(q.ID, q)
}

func (s *MemoryStore) DeleteQuestion(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questions.remove(id)
}

func (s *MemoryStore) SearchQuestions(_ context.Context, term string) ([]data.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.questions.list(func(r data.Question) bool { return contains(r.Statement, term) }), nil
}

// ── Scores ──

func (s *MemoryStore) CreateScore(_ context.Context, sc data.Score) (data.Score, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scores.insert(sc, func(r data.Score, id int64) data.Score { r.ID = id; return r }), nil
}

func (s *MemoryStore) GetScore(_ context.Context, id int64) (data.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scores.get(id)
}

func (s *MemoryStore) ListScores(_ context.Context) ([]data.Score, error) {
	return s.scoresWhere(nil), nil
}

func (s *MemoryStore) ListScoresByUser(_ context.Context, userID int64) ([]data.Score, error) {
	return s.scoresWhere(func(r data.Score) bool { return r.UserID == userID }), nil
}

func (s *MemoryStore) ListScoresSince(_ context.Context, since time.Time) ([]data.Score, error) {
	return s.scoresWhere(func(r data.Score) bool { return !r.Timestamp.Before(since) }), nil
}

func (s *MemoryStore) scoresWhere(keep func(data.Score) bool) []data.Score {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.scores.list(keep)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

func (s *MemoryStore) UserTotals(_ context.Context, limit int) ([]data.UserTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sums := make(map[int64]int)
	for _, sc := range s.scores.rows {
		sums[sc.UserID] += sc.TotalScore
	}

	var out []data.UserTotal
	for id, total := range sums {
		u, ok := s.users.rows[id]
		if !ok {
			continue
		}
		out = append(out, data.UserTotal{UserID: id, FullName: u.FullName, TotalScore: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalScore != out[j].TotalScore {
			return out[i].TotalScore > out[j].TotalScore
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Totals(_ context.Context) (Totals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t := Totals{
		Quizzes:  len(s.quizzes.rows),
		Scores:   len(s.scores.rows),
		Subjects: len(s.subjects.rows),
		Chapters: len(s.chapters.rows),
	}
	for _, u := range s.users.rows {
		if u.Role == data.RoleUser {
			t.Users++
		}
	}
	if t.Scores > 0 {
		sum := 0
		for _, sc := range s.scores.rows {
			sum += sc.TotalScore
		}
		t.AverageScore = float64(sum) / float64(t.Scores)
	}
	return t, nil
}
