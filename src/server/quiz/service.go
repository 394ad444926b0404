// Package quiz holds the application logic of the quiz server: entity CRUD
// with cache invalidation, quiz attempts and scoring, analytics and search.
// Callers check authorization with RequireAdmin / RequireSelfOrAdmin before
// invoking a sensitive operation.
package quiz

import (
	"context"
	"errors"
	"time"

	"github.com/quiz-master/server/src/server/cache"
	"github.com/quiz-master/server/src/server/data"
	"github.com/quiz-master/server/src/server/store"
)

type Service struct {
	store store.Store
	inv   *cache.Invalidator
	now   func() time.Time
}

// NewService wires the service to its store. inv may be nil when caching is off.
func NewService(s store.Store, inv *cache.Invalidator) *Service {
	return &Service{store: s, inv: inv, now: time.Now}
}

// Store exposes the underlying store for read paths that need no logic.
func (s *Service) Store() store.Store { return s.store }

func (s *Service) invalidate(ctx context.Context, m cache.Mutation) {
	s.inv.Apply(ctx, m)
}

// exists maps a lookup error to a validation failure on field when the
// referenced row is missing.
func exists(err error, field string) error {
	if errors.Is(err, store.ErrNotFound) {
		return invalid(field)
	}
	return err
}

// ── Subjects ──

type SubjectInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type SubjectPatch struct {
	Name        *string `json:"name" validate:"omitnil,min=1"`
	Description *string `json:"description"`
}

func (s *Service) CreateSubject(ctx context.Context, in SubjectInput) (data.Subject, error) {
	if err := check(in); err != nil {
		return data.Subject{}, err
	}
	sub, err := s.store.CreateSubject(ctx, data.Subject{Name: in.Name, Description: in.Description})
	if err != nil {
		return data.Subject{}, err
	}
	s.invalidate(ctx, cache.Mutation{Entity: cache.EntitySubject, ID: sub.ID})
	return sub, nil
}

func (s *Service) GetSubject(ctx context.Context, id int64) (data.Subject, error) {
	return s.store.GetSubject(ctx, id)
}

func (s *Service) ListSubjects(ctx context.Context) ([]data.Subject, error) {
	return s.store.ListSubjects(ctx)
}

func (s *Service) UpdateSubject(ctx context.Context, id int64, p SubjectPatch) (data.Subject, error) {
	if err := check(p); err != nil {
		return data.Subject{}, err
	}
	sub, err := s.store.GetSubject(ctx, id)
	if err != nil {
		return data.Subject{}, err
	}
	if p.Name != nil {
		sub.Name = *p.Name
	}
	if p.Description != nil {
		sub.Description = *p.Description
	}
	if err := s.store.UpdateSubject(ctx, sub); err != nil {
		return data.Subject{}, err
	}
	s.invalidate(ctx, cache.Mutation{Entity: cache.EntitySubject, ID: id})
	return sub, nil
}

func (s *Service) DeleteSubject(ctx context.Context, id int64) error {
	if err := s.store.DeleteSubject(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, cache.Mutation{Entity: cache.EntitySubject, ID: id})
	return nil
}

// ── Chapters ──

type ChapterInput struct {
	SubjectID   int64  `json:"subject_id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type ChapterPatch struct {
	SubjectID   *int64  `json:"subject_id" validate:"omitnil,min=1"`
	Name        *string `json:"name" validate:"omitnil,min=1"`
	Description *string `json:"description"`
}

func (s *Service) CreateChapter(ctx context.Context, in ChapterInput) (data.Chapter, error) {
	if err := check(in); err != nil {
		return data.Chapter{}, err
	}
	if _, err := s.store.GetSubject(ctx, in.SubjectID); err != nil {
		return data.Chapter{}, exists(err, "subject_id")
	}
	ch, err := s.store.CreateChapter(ctx, data.Chapter{SubjectID: in.SubjectID, Name: in.Name, Description: in.Description})
	if err != nil {
		return data.Chapter{}, err
	}
	s.invalidate(ctx, cache.Mutation{Entity: cache.EntityChapter, ID: ch.ID})
	return ch, nil
}

func (s *Service) GetChapter(ctx context.Context, id int64) (data.Chapter, error) {
	return s.store.GetChapter(ctx, id)
}

func (s *Service) ListChapters(ctx context.Context) ([]data.Chapter, error) {
	return s.store.ListChapters(ctx)
}

func (s *Service) UpdateChapter(ctx context.Context, id int64, p ChapterPatch) (data.Chapter, error) {
	if err := check(p); err != nil {
		return data.Chapter{}, err
	}
	ch, err := s.store.GetChapter(ctx, id)
	if err != nil {
		return data.Chapter{}, err
	}
	if p.SubjectID != nil {
		if _, err := s.store.GetSubject(ctx, *p.SubjectID); err != nil {
			return data.Chapter{}, exists(err, "subject_id")
		}
		ch.SubjectID = *p.SubjectID
	}
	if p.Name != nil {
		ch.Name = *p.Name
	}
	if p.Description != nil {
		ch.Description = *p.Description
	}
	if err := s.store.UpdateChapter(ctx, ch); err != nil {
		return data.Chapter{}, err
	}
	s.invalidate(ctx, cache.Mutation{Entity: cache.EntityChapter, ID: id})
	return ch, nil
}

func (s *Service) DeleteChapter(ctx context.Context, id int64) error {
	if err := s.store.DeleteChapter(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, cache.Mutation{Entity: cache.EntityChapter, ID: id})
	return nil
}

// ── Quizzes ──

type QuizInput struct {
	ChapterID  int64  `json:"chapter_id" validate:"required"`
	DateOfQuiz string `json:"date_of_quiz" validate:"required,datetime=2006-01-02"`
	Duration   string `json:"time_duration" validate:"required"`
	Remarks    string `json:"remarks"`
}

type QuizPatch struct {
	ChapterID  *int64  `json:"chapter_id" validate:"omitnil,min=1"`
	DateOfQuiz *string `json:"date_of_quiz" validate:"omitnil,datetime=2006-01-02"`
	Duration   *string `json:"time_duration" validate:"omitnil,min=1"`
	Remarks    *string `json:"remarks"`
}

func (s *Service) CreateQuiz(ctx context.Context, in QuizInput) (data.Quiz, error) {
	if err := check(in); err != nil {
		return data.Quiz{}, err
	}
	if _, err := s.store.GetChapter(ctx, in.ChapterID); err != nil {
		return data.Quiz{}, exists(err, "chapter_id")
	}
	q, err := s.store.CreateQuiz(ctx, data.Quiz{
		ChapterID:  in.ChapterID,
		DateOfQuiz: in.DateOfQuiz,
		Duration:   in.Duration,
		Remarks:    in.Remarks,
	})
	if err != nil {
		return data.Quiz{}, err
	}
	s.invalidate(ctx, cache.Mutation{Entity: cache.EntityQuiz, ID: q.ID})
	return q, nil
}

func (s *Service) GetQuiz(ctx context.Context, id int64) (data.Quiz, error) {
	return s.store.GetQuiz(ctx, id)
}

func (s *Service) ListQuizzes(ctx context.Context) ([]data.Quiz, error) {
	return s.store.ListQuizzes(ctx)
}

func (s *Service) UpdateQuiz(ctx context.Context, id int64, p QuizPatch) (data.Quiz, error) {
	if err := check(p); err != nil {
		return data.Quiz{}, err
	}
	q, err := s.store.GetQuiz(ctx, id)
	if err != nil {
		return data.Quiz{}, err
	}
	if p.ChapterID != nil {
		if _, err := s.store.GetChapter(ctx, *p.ChapterID); err != nil {
			return data.Quiz{}, exists(err, "chapter_id")
		}
		q.ChapterID = *p.ChapterID
	}
	if p.DateOfQuiz != nil {
		q.DateOfQuiz = *p.DateOfQuiz
	}
	if p.Duration != nil {
		q.Duration = *p.Duration
	}
	if p.Remarks != nil {
		q.Remarks = *p.Remarks
	}
	if err := s.store.UpdateQuiz(ctx, q); err != nil {
		return data.Quiz{}, err
	}
	s.invalidate(ctx, cache.Mutation{Entity: cache.EntityQuiz, ID: id})
	return q, nil
}

func (s *Service) DeleteQuiz(ctx context.Context, id int64) error {
	if err := s.store.DeleteQuiz(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, cache.Mutation{Entity: cache.EntityQuiz, ID: id})
	return nil
}

// ── Questions ──

type QuestionInput struct {
	QuizID        int64  `json:"quiz_id" validate:"required"`
	Statement     string `json:"question_statement" validate:"required"`
	Option1       string `json:"option1" validate:"required"`
	Option2       string `json:"option2" validate:"required"`
	Option3       string `json:"option3" validate:"required"`
	Option4       string `json:"option4" validate:"required"`
	CorrectOption int    `json:"correct_option" validate:"required,min=1,max=4"`
}

type QuestionPatch struct {
	QuizID        *int64  `json:"quiz_id" validate:"omitnil,min=1"`
	Statement     *string `json:"question_statement" validate:"omitnil,min=1"`
	Option1       *string `json:"option1" validate:"omitnil,min=1"`
	Option2       *string `json:"option2" validate:"omitnil,min=1"`
	Option3       *string `json:"option3" validate:"omitnil,min=1"`
	Option4       *string `json:"option4" validate:"omitnil,min=1"`
	CorrectOption *int    `json:"correct_option" validate:"omitnil,min=1,max=4"`
}

func (s *Service) CreateQuestion(ctx context.Context, in QuestionInput) (data.Question, error) {
	if err := check(in); err != nil {
		return data.Question{}, err
	}
	if _, err := s.store.GetQuiz(ctx, in.QuizID); err != nil {
		return data.Question{}, exists(err, "quiz_id")
	}
	q, err := s.store.CreateQuestion(ctx, data.Question{
		QuizID:        in.QuizID,
		Statement:     in.Statement,
		Option1:       in.Option1,
		Option2:       in.Option2,
		Option3:       in.Option3,
		Option4:       in.Option4,
		CorrectOption: in.CorrectOption,
	})
	if err != nil {
		return data.Question{}, err
	}
	s.invalidate(ctx, cache.Mutation{Entity: cache.EntityQuestion, ID: q.ID})
	return q, nil
}

func (s *Service) GetQuestion(ctx context.Context, id int64) (data.Question, error) {
	return s.store.GetQuestion(ctx, id)
}

func (s *Service) ListQuestions(ctx context.Context) ([]data.Question, error) {
	return s.store.ListQuestions(ctx)
}

func (s *Service) UpdateQuestion(ctx context.Context, id int64, p QuestionPatch) (data.Question, error) {
	if err := check(p); err != nil {
		return data.Question{}, err
	}
	q, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return data.Question{}, err
	}
	if p.QuizID != nil {
		if _, err := s.store.GetQuiz(ctx, *p.QuizID); err != nil {
			return data.Question{}, exists(err, "quiz_id")
		}
		q.QuizID = *p.QuizID
	}
	for dst, src := range map[*string]*string{
		&q.Statement: p.Statement,
		&q.Option1:   p.Option1,
		&q.Option2:   p.Option2,
		&q.Option3:   p.Option3,
		&q.Option4:   p.Option4,
	} {
		if src != nil {
			*dst = *src
		}
	}
	if p.CorrectOption != nil {
		q.CorrectOption = *p.CorrectOption
	}
	if err := s.store.UpdateQuestion(ctx, q); err != nil {
		return data.Question{}, err
	}
	s.invalidate(ctx, cache.Mutation{Entity: cache.EntityQuestion, ID: id})
	return q, nil
}

func (s *Service) DeleteQuestion(ctx context.Context, id int64) error {
	if err := s.store.DeleteQuestion(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, cache.Mutation{Entity: cache.EntityQuestion, ID: id})
	return nil
}

// ── Scores ──

func (s *Service) GetScore(ctx context.Context, id int64) (data.Score, error) {
	return s.store.GetScore(ctx, id)
}

func (s *Service) ListScores(ctx context.Context) ([]data.Score, error) {
	return s.store.ListScores(ctx)
}
