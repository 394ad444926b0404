package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quiz-master/server/src/server/data"
	"github.com/quiz-master/server/src/server/middleware"
	"github.com/quiz-master/server/src/server/quiz"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// writeError maps service errors to responses. Unexpected errors are logged
// and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *quiz.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": verr.Error()})
	case errors.Is(err, quiz.ErrNotFound):
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	case errors.Is(err, quiz.ErrUnauthorized):
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusForbidden)
	case errors.Is(err, quiz.ErrConflict):
		http.Error(w, `{"error":"already exists"}`, http.StatusBadRequest)
	case errors.Is(err, quiz.ErrInvalidCredentials):
		http.Error(w, `{"error":"Invalid credentials"}`, http.StatusUnauthorized)
	default:
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return 0, false
	}
	return id, true
}

// principal returns the caller set by middleware.RequireAuth.
func principal(w http.ResponseWriter, r *http.Request) (data.Principal, bool) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		http.Error(w, `{"error":"missing or invalid authorization header"}`, http.StatusUnauthorized)
	}
	return p, ok
}
