package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/quiz-master/server/src/server/cache"
	"github.com/quiz-master/server/src/server/jobs"
	"github.com/quiz-master/server/src/server/middleware"
	"github.com/quiz-master/server/src/server/quiz"
	"github.com/quiz-master/server/src/server/reports"
	"github.com/quiz-master/server/src/server/storage"
)

type Deps struct {
	Service     *quiz.Service
	Cache       cache.Store
	TTL         cache.TTLs
	Queue       jobs.Queue
	Objects     storage.ObjectStorage
	Reports     *reports.Reports
	Auth        middleware.AuthConfig
	Health      *HealthHandler
	CORSOrigins []string
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authH := &AuthHandler{Service: d.Service, Auth: d.Auth}
	catalogH := &CatalogHandler{Service: d.Service, Cache: d.Cache, TTL: d.TTL}
	userH := &UserHandler{Service: d.Service, Cache: d.Cache, TTL: d.TTL}
	adminH := &AdminHandler{Service: d.Service, Cache: d.Cache, TTL: d.TTL}
	exportH := &ExportHandler{Service: d.Service, Queue: d.Queue, Objects: d.Objects, Reports: d.Reports}

	health := d.Health
	if health == nil {
		health = &HealthHandler{}
	}
	r.Get("/health", health.Check)

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", authH.Register)
		r.Post("/login", authH.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(d.Auth))

			r.Post("/logout", authH.Logout)

			r.Get("/users", userH.List)
			r.Get("/users/{id}", userH.Get)
			r.Put("/users/{id}", userH.Update)
			r.With(middleware.RequireAdmin).Delete("/users/{id}", userH.Delete)

			r.Get("/subjects", catalogH.ListSubjects)
			r.Get("/subjects/{id}", catalogH.GetSubject)
			r.Get("/chapters", catalogH.ListChapters)
			r.Get("/chapters/{id}", catalogH.GetChapter)
			r.Get("/quizzes", catalogH.ListQuizzes)
			r.Get("/quizzes/{id}", catalogH.GetQuiz)
			r.Get("/questions", catalogH.ListQuestions)
			r.Get("/questions/{id}", catalogH.GetQuestion)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Post("/subjects", catalogH.CreateSubject)
				r.Put("/subjects/{id}", catalogH.UpdateSubject)
				r.Delete("/subjects/{id}", catalogH.DeleteSubject)
				r.Post("/chapters", catalogH.CreateChapter)
				r.Put("/chapters/{id}", catalogH.UpdateChapter)
				r.Delete("/chapters/{id}", catalogH.DeleteChapter)
				r.Post("/quizzes", catalogH.CreateQuiz)
				r.Put("/quizzes/{id}", catalogH.UpdateQuiz)
				r.Delete("/quizzes/{id}", catalogH.DeleteQuiz)
				r.Post("/questions", catalogH.CreateQuestion)
				r.Put("/questions/{id}", catalogH.UpdateQuestion)
				r.Delete("/questions/{id}", catalogH.DeleteQuestion)
			})

			r.Get("/scores", userH.ListScores)
			r.Get("/scores/{id}", userH.GetScore)
			r.Post("/quizzes/{id}/attempt", userH.Attempt)

			r.Get("/user/quiz_history", userH.QuizHistory)
			r.Get("/user/analytics", userH.Analytics)
			r.Post("/user/export_quiz_history", exportH.ExportQuizHistory)
			r.Get("/user/download_quiz_history/{taskID}", exportH.DownloadQuizHistory)
			r.Get("/user/export_quiz_history_direct", exportH.ExportQuizHistoryDirect)
			r.Get("/jobs/{id}", exportH.JobStatus)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/charts", adminH.Charts)
				r.Get("/analytics", adminH.Analytics)
				r.Post("/search", adminH.Search)

				r.Post("/export_all_users_stats", exportH.ExportAllUsersStats)
				r.Get("/download_all_users_stats/latest", exportH.DownloadLatestStats)
				r.Get("/download_all_users_stats/{filename}", exportH.DownloadStats)
				r.Post("/test_email", exportH.TestEmail)
				r.Post("/test_monthly_report", exportH.TestMonthlyReport)

				r.Get("/cache/stats", adminH.CacheStats)
				r.Post("/cache/clear", adminH.ClearCache)
				r.Post("/cache/warm", adminH.WarmCache)
				r.Post("/cache/optimize", adminH.OptimizeCache)
			})
		})
	})

	return r
}
