package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/quiz-master/server/src/server/cache"
	"github.com/quiz-master/server/src/server/data"
	"github.com/quiz-master/server/src/server/quiz"
)

// cached writes the value produced by compute, served from c under key when present.
func cached[T any](w http.ResponseWriter, r *http.Request, c cache.Store, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) {
	v, err := cache.Remember(r.Context(), c, key, ttl, compute)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// CatalogHandler serves subjects, chapters, quizzes and questions. Reads are
// open to every authenticated caller; writes are mounted behind RequireAdmin.
type CatalogHandler struct {
	Service *quiz.Service
	Cache   cache.Store
	TTL     cache.TTLs
}

// ── Subjects ──

func (h *CatalogHandler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	cached(w, r, h.Cache, cache.CollectionKey("/api/subjects"), h.TTL.Subjects, h.Service.ListSubjects)
}

func (h *CatalogHandler) GetSubject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	cached(w, r, h.Cache, cache.EntityKey("subject", id), h.TTL.Subjects, func(ctx context.Context) (data.Subject, error) {
		return h.Service.GetSubject(ctx, id)
	})
}

func (h *CatalogHandler) CreateSubject(w http.ResponseWriter, r *http.Request) {
	var in quiz.SubjectInput
	if !decode(w, r, &in) {
		return
	}
	sub, err := h.Service.CreateSubject(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *CatalogHandler) UpdateSubject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var p quiz.SubjectPatch
	if !decode(w, r, &p) {
		return
	}
	sub, err := h.Service.UpdateSubject(r.Context(), id, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *CatalogHandler) DeleteSubject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Service.DeleteSubject(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Subject deleted successfully")
}

// ── Chapters ──

func (h *CatalogHandler) ListChapters(w http.ResponseWriter, r *http.Request) {
	cached(w, r, h.Cache, cache.CollectionKey("/api/chapters"), h.TTL.Chapters, h.Service.ListChapters)
}

func (h *CatalogHandler) GetChapter(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	cached(w, r, h.Cache, cache.EntityKey("chapter", id), h.TTL.Chapters, func(ctx context.Context) (data.Chapter, error) {
		return h.Service.GetChapter(ctx, id)
	})
}

func (h *CatalogHandler) CreateChapter(w http.ResponseWriter, r *http.Request) {
	var in quiz.ChapterInput
	if !decode(w, r, &in) {
		return
	}
	ch, err := h.Service.CreateChapter(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ch)
}

func (h *CatalogHandler) UpdateChapter(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var p quiz.ChapterPatch
	if !decode(w, r, &p) {
		return
	}
	ch, err := h.Service.UpdateChapter(r.Context(), id, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (h *CatalogHandler) DeleteChapter(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Service.DeleteChapter(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Chapter deleted successfully")
}

// ── Quizzes ──

func (h *CatalogHandler) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	cached(w, r, h.Cache, cache.CollectionKey("/api/quizzes"), h.TTL.Quizzes, h.Service.ListQuizzes)
}

func (h *CatalogHandler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	cached(w, r, h.Cache, cache.EntityKey("quiz", id), h.TTL.Quizzes, func(ctx context.Context) (data.Quiz, error) {
		return h.Service.GetQuiz(ctx, id)
	})
}

func (h *CatalogHandler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	var in quiz.QuizInput
	if !decode(w, r, &in) {
		return
	}
	q, err := h.Service.CreateQuiz(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (h *CatalogHandler) UpdateQuiz(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var p quiz.QuizPatch
	if !decode(w, r, &p) {
		return
	}
	q, err := h.Service.UpdateQuiz(r.Context(), id, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *CatalogHandler) DeleteQuiz(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Service.DeleteQuiz(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Quiz deleted successfully")
}

// ── Questions ──

func (h *CatalogHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	cached(w, r, h.Cache, cache.CollectionKey("/api/questions"), h.TTL.Questions, h.Service.ListQuestions)
}

func (h *CatalogHandler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	cached(w, r, h.Cache, cache.EntityKey("question", id), h.TTL.Questions, func(ctx context.Context) (data.Question, error) {
		return h.Service.GetQuestion(ctx, id)
	})
}

func (h *CatalogHandler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	var in quiz.QuestionInput
	if !decode(w, r, &in) {
		return
	}
	q, err := h.Service.CreateQuestion(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (h *CatalogHandler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var p quiz.QuestionPatch
	if !decode(w, r, &p) {
		return
	}
	q, err := h.Service.UpdateQuestion(r.Context(), id, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *CatalogHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Service.DeleteQuestion(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Question deleted successfully")
}
