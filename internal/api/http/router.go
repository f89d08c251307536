package http

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
	"github.com/mind-engage/mindengage-quiz/internal/storage"
)

type Deps struct {
	Service *quiz.Service
	Auth    *auth.AuthService
	Blobs   storage.BlobStore // optional
	DB      *sql.DB           // optional; readiness probe

	// Events serves the event log feed. Optional.
	Events EventFeed

	// Users enables local login, stored roles and password changes. Optional.
	Users              *auth.UserRepo
	EnableLocalAuth    bool
	AllowClaimFallback bool

	CORSOrigins    []string
	RequestTimeout time.Duration
}

func NewRouter(d Deps) http.Handler {
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 30 * time.Second
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(d.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if d.EnableLocalAuth && d.Users != nil {
		r.Post("/auth/login", auth.LoginHandler(d.Auth, d.Users))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.DB != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.DB.PingContext(ctx); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	if d.Blobs != nil {
		r.Get("/assets/*", ServeAssetHandler(d.Blobs))
	}

	// Protected API (JWT -> subject and role in context -> RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth))
		if d.Users != nil {
			pr.Use(auth.AttachRole(d.Users, d.AllowClaimFallback))
		}

		if d.Blobs != nil {
			pr.With(rbac.Require(rbac.PermQuestionImport)).Post("/assets", UploadAssetHandler(d.Blobs))
		}

		svc := d.Service
		pr.Route("/tests", func(tr chi.Router) {
			tr.With(rbac.Require(rbac.PermSessionCreate)).Post("/", CreateSessionHandler(svc))
			tr.With(rbac.Require(rbac.PermSessionViewOwn)).Get("/", ListSessionsHandler(svc))
			tr.With(rbac.Require(rbac.PermSessionViewOwn)).Get("/{sessionID}", GetSessionHandler(svc))
			tr.With(rbac.Require(rbac.PermSessionClose)).Put("/{sessionID}", CloseSessionHandler(svc))
		})

		pr.Route("/student-questions", func(sr chi.Router) {
			sr.With(rbac.Require(rbac.PermAnswerSubmit)).Post("/submit", SubmitAnswerHandler(svc))
			sr.With(rbac.Require(rbac.PermAnswerViewOwn)).Get("/test/{sessionID}", TestAnswersHandler(svc))
			sr.With(rbac.Require(rbac.PermStatsViewOwn)).Get("/stats", StatsHandler(svc))
			sr.With(rbac.Require(rbac.PermAnswerViewOwn)).Get("/history", HistoryHandler(svc))
			sr.With(rbac.Require(rbac.PermAnswerViewOwn)).Get("/history/{sessionID}", SessionQuestionsHandler(svc))
		})

		pr.Route("/questions", func(qr chi.Router) {
			qr.With(rbac.Require(rbac.PermQuestionBrowse)).Get("/", ListQuestionsHandler(svc))
			qr.With(rbac.Require(rbac.PermQuestionBrowse)).Get("/tags", QuestionTagsHandler(svc))
			qr.With(rbac.Require(rbac.PermQuestionBrowse)).Get("/{questionID}", GetQuestionHandler(svc))
			qr.With(rbac.Require(rbac.PermQuestionImport)).Post("/", ImportQuestionsHandler(svc))
		})

		if d.Events != nil {
			pr.With(rbac.Require(rbac.PermEventsRead)).Get("/events", EventFeedHandler(d.Events))
		}

		if d.Users != nil {
			pr.With(rbac.Require(rbac.PermPasswordChange)).
				Post("/users/change-password", ChangePasswordHandler(d.Users))
			pr.With(rbac.Require(rbac.PermUsersBulkUpsert)).
				Post("/users/bulk", BulkUpsertUsersHandler(d.Users))
		}
	})
	return r
}
