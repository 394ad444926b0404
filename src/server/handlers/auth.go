package handlers

import (
	"net/http"
	"time"

	"github.com/quiz-master/server/src/server/data"
	"github.com/quiz-master/server/src/server/middleware"
	"github.com/quiz-master/server/src/server/quiz"
)

type AuthHandler struct {
	Service *quiz.Service
	Auth    middleware.AuthConfig
	Now     func() time.Time
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        data.User `json:"user"`
}

func (h *AuthHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in quiz.RegisterInput
	if !decode(w, r, &in) {
		return
	}
	u, err := h.Service.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"user":    u,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	var absent []string
	if req.Email == "" {
		absent = append(absent, "email")
	}
	if req.Password == "" {
		absent = append(absent, "password")
	}
	if len(absent) > 0 {
		writeError(w, r, &quiz.ValidationError{Missing: absent})
		return
	}
	u, err := h.Service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	token, expires, err := middleware.IssueToken(h.Auth, data.Principal{UserID: u.ID, Role: u.Role}, h.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expires,
		User:        u,
	})
}

// Logout is acknowledged only; tokens stay valid until they expire.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, "Logged out successfully")
}
