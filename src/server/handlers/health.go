package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/quiz-master/server/src/server/cache"
	"github.com/quiz-master/server/src/server/storage"
)

// Pinger is implemented by the store and the Redis job queue.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	Store   Pinger
	Queue   any // may implement Pinger
	Storage storage.ObjectStorage
	Cache   cache.Store
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allOK := true

	record := func(name string, err error) {
		if err != nil {
			checks[name] = "error: " + err.Error()
			allOK = false
			return
		}
		checks[name] = "ok"
	}

	if h.Store != nil {
		record("database", h.Store.Ping(ctx))
	}
	if pinger, ok := h.Queue.(Pinger); ok {
		record("queue", pinger.Ping(ctx))
	}
	if h.Storage != nil {
		record("storage", h.Storage.Ping(ctx))
	}

	// The cache fails open, so an outage is reported without degrading.
	if h.Cache != nil {
		if _, err := h.Cache.Stats(ctx); err != nil {
			checks["cache"] = "unavailable: " + err.Error()
		} else {
			checks["cache"] = "ok"
		}
	}

	resp := healthResponse{
		Status: "ok",
		Checks: checks,
	}

	if !allOK {
		resp.Status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	json.NewEncoder(w).Encode(resp)
}
