package handlers

import (
	"context"
	"net/http"

	"github.com/quiz-master/server/src/server/cache"
	"github.com/quiz-master/server/src/server/data"
	"github.com/quiz-master/server/src/server/quiz"
)

// UserHandler serves accounts, scores and the per-user views.
type UserHandler struct {
	Service *quiz.Service
	Cache   cache.Store
	TTL     cache.TTLs
}

// ── Accounts ──

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if err := quiz.RequireAdmin(p); err != nil {
		writeError(w, r, err)
		return
	}
	cached(w, r, h.Cache, cache.RoleKey("users_list", p.Role), h.TTL.Default, h.Service.ListUsers)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := quiz.RequireSelfOrAdmin(p, id); err != nil {
		writeError(w, r, err)
		return
	}
	cached(w, r, h.Cache, cache.EntityKey("user", id), h.TTL.UserData, func(ctx context.Context) (data.User, error) {
		return h.Service.GetUser(ctx, id)
	})
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := quiz.RequireSelfOrAdmin(p, id); err != nil {
		writeError(w, r, err)
		return
	}
	var patch quiz.UserPatch
	if !decode(w, r, &patch) {
		return
	}
	u, err := h.Service.UpdateUser(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Delete is mounted behind RequireAdmin.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Service.DeleteUser(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "User deleted successfully")
}

// ── Scores ──

func (h *UserHandler) ListScores(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if err := quiz.RequireAdmin(p); err != nil {
		writeError(w, r, err)
		return
	}
	cached(w, r, h.Cache, cache.RoleKey("scores_list", p.Role), h.TTL.UserData, h.Service.ListScores)
}

// GetScore serves admins from the cache. Other callers read the store
// directly, since ownership is only known once the row is loaded.
func (h *UserHandler) GetScore(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if p.IsAdmin() {
		cached(w, r, h.Cache, cache.EntityKey("score", id), h.TTL.UserData, func(ctx context.Context) (data.Score, error) {
			return h.Service.GetScore(ctx, id)
		})
		return
	}
	sc, err := h.Service.GetScore(r.Context(), id)
	if err == nil {
		err = quiz.RequireSelfOrAdmin(p, sc.UserID)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

type attemptRequest struct {
	Answers quiz.Answers `json:"answers"`
}

func (h *UserHandler) Attempt(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	quizID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req attemptRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.Service.AttemptQuiz(r.Context(), quizID, p.UserID, req.Answers)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ── Per-user views ──

func (h *UserHandler) QuizHistory(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	cached(w, r, h.Cache, cache.UserKey("quiz_history", p.UserID), h.TTL.UserData, func(ctx context.Context) ([]data.HistoryEntry, error) {
		return h.Service.QuizHistory(ctx, p.UserID)
	})
}

func (h *UserHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	cached(w, r, h.Cache, cache.UserKey("user_analytics", p.UserID), h.TTL.UserData, func(ctx context.Context) (data.UserAnalytics, error) {
		return h.Service.UserAnalytics(ctx, p.UserID)
	})
}
