package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/examprep-pro/examprep/internal/api/http"
	"github.com/examprep-pro/examprep/internal/auth"
	authmw "github.com/examprep-pro/examprep/internal/auth/middleware"
	"github.com/examprep-pro/examprep/internal/config"
	"github.com/examprep-pro/examprep/internal/db"
	"github.com/examprep-pro/examprep/internal/exam"
	"github.com/examprep-pro/examprep/internal/grading"
	"github.com/examprep-pro/examprep/internal/rbac"
	"github.com/examprep-pro/examprep/internal/syncx"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	store := exam.NewSQLStore(dbh, cfg.DBDriver)
	sessions := exam.NewSessionService(store, grading.NewDefaultGrader(), syncx.NewEventRepo(dbh))

	authSvc := authmw.NewAuthService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.EnableLocalAuth {
		r.Post("/auth/login", authmw.LoginHandler(authSvc, store))
		r.Post("/auth/register", authmw.RegisterHandler(authSvc, store))
	}
	if cfg.EnableGuestAuth {
		r.Post("/auth/guest", auth.GuestLoginHandler(authSvc, cfg))
	}

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(authSvc))

		pr.With(rbac.Require("exam:view")).
			Get("/exams", api.ListExamsHandler(store))
		pr.With(rbac.Require("exam:view")).
			Get("/exams/{examID}", api.GetExamHandler(store))
		pr.With(rbac.Require("leaderboard:view")).
			Get("/exams/{examID}/leaderboard", api.LeaderboardHandler(store))

		// Admin-only catalog management
		pr.With(rbac.Require("exam:create")).
			Post("/exams", api.CreateExamHandler(store))
		pr.With(rbac.Require("question:create")).
			Post("/exams/{examID}/questions", api.BulkAddQuestionsHandler(store))

		// Student flow
		pr.With(rbac.Require("session:start")).
			Post("/sessions", api.StartSessionHandler(sessions, cfg.ExcludeRecentWindow))
		pr.With(rbac.Require("session:resume")).
			Post("/sessions/resume", api.ResumeSessionHandler(sessions))
		pr.With(rbac.Require("session:submit")).
			Post("/sessions/submit", api.SubmitSessionHandler(sessions))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts/{attemptID}", api.GetAttemptHandler(store))

		pr.With(rbac.Require("discussion:read")).
			Get("/questions/{questionID}/discussions", api.ListDiscussionsHandler(store))
		pr.With(rbac.Require("discussion:write")).
			Post("/questions/{questionID}/discussions", api.AddDiscussionHandler(store))

		pr.With(rbac.Require("user:change_password")).
			Post("/users/change-password", api.ChangePasswordHandler(store))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("%s listening on %s (mode=%s, db=%s)", cfg.AppTitle, cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
