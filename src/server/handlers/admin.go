package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/quiz-master/server/src/server/cache"
	"github.com/quiz-master/server/src/server/data"
	"github.com/quiz-master/server/src/server/quiz"
)

// AdminHandler serves the dashboards and cache maintenance. Every route is
// mounted behind RequireAdmin.
type AdminHandler struct {
	Service *quiz.Service
	Cache   cache.Store
	TTL     cache.TTLs
}

func (h *AdminHandler) Charts(w http.ResponseWriter, r *http.Request) {
	cached(w, r, h.Cache, cache.CollectionKey("/api/admin/charts"), h.TTL.Charts, h.Service.AdminCharts)
}

func (h *AdminHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	cached(w, r, h.Cache, cache.CollectionKey("/api/admin/analytics"), h.TTL.Default, h.Service.AdminAnalytics)
}

type searchRequest struct {
	Query string `json:"query"`
}

func (h *AdminHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, r, &quiz.ValidationError{Missing: []string{"query"}})
		return
	}
	cached(w, r, h.Cache, cache.SearchKey(req.Query), h.TTL.Search, func(ctx context.Context) (data.SearchResults, error) {
		return h.Service.Search(ctx, req.Query)
	})
}

// ── Cache maintenance ──

type cacheStatsResponse struct {
	cache.Stats
	HitRate float64 `json:"hit_rate"`
}

func (h *AdminHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Cache.Stats(r.Context())
	if err != nil {
		slog.Warn("Cache stats unavailable", "error", err)
		http.Error(w, `{"error":"cache unavailable"}`, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, cacheStatsResponse{Stats: st, HitRate: cache.HitRate(st)})
}

func (h *AdminHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.Cache.Clear(r.Context()); err != nil {
		slog.Warn("Cache clear failed", "error", err)
		http.Error(w, `{"error":"failed to clear cache"}`, http.StatusServiceUnavailable)
		return
	}
	writeMessage(w, http.StatusOK, "Cache cleared successfully")
}

func (h *AdminHandler) OptimizeCache(w http.ResponseWriter, r *http.Request) {
	if err := h.Cache.Optimize(r.Context()); err != nil {
		slog.Warn("Cache optimize failed", "error", err)
		http.Error(w, `{"error":"failed to optimize cache"}`, http.StatusServiceUnavailable)
		return
	}
	writeMessage(w, http.StatusOK, "Cache optimized successfully")
}

// WarmCache refreshes the catalog collections.
func (h *AdminHandler) WarmCache(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	warmers := []struct {
		path    string
		ttl     time.Duration
		compute func(context.Context) (any, error)
	}{
		{"/api/subjects", h.TTL.Subjects, anyOf(h.Service.ListSubjects)},
		{"/api/chapters", h.TTL.Chapters, anyOf(h.Service.ListChapters)},
		{"/api/quizzes", h.TTL.Quizzes, anyOf(h.Service.ListQuizzes)},
		{"/api/questions", h.TTL.Questions, anyOf(h.Service.ListQuestions)},
	}

	warmed := make([]string, 0, len(warmers))
	for _, wm := range warmers {
		v, err := wm.compute(ctx)
		if err != nil {
			writeError(w, r, err)
			return
		}
		raw, err := json.Marshal(v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		key := cache.CollectionKey(wm.path)
		if err := h.Cache.Set(ctx, key, raw, wm.ttl); err != nil {
			slog.Warn("Cache warm failed", "key", key, "error", err)
			continue
		}
		warmed = append(warmed, key)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Cache warmed successfully",
		"keys":    warmed,
	})
}

func anyOf[T any](f func(context.Context) (T, error)) func(context.Context) (any, error) {
	return func(ctx context.Context) (any, error) { return f(ctx) }
}
