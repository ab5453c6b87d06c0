package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/prepdesk/prepdesk/internal/auth"
	authmw "github.com/prepdesk/prepdesk/internal/auth/middleware"
	"github.com/prepdesk/prepdesk/internal/exam"
	"github.com/prepdesk/prepdesk/internal/session"
)

// Deps carries the wired services the router needs.
type Deps struct {
	Flow     *auth.Flow
	Users    auth.UserStore
	Tokens   *authmw.TokenService
	Registry *session.Registry
	Exams    *exam.Service

	CORSOrigins []string
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", RegisterHandler(d.Flow))
		r.Post("/login", LoginHandler(d.Flow))
		r.Post("/verify-login", VerifyLoginHandler(d.Flow))
		r.Post("/refresh", RefreshHandler(d.Flow))

		r.Group(func(r chi.Router) {
			r.Use(authmw.JWTMiddleware(d.Tokens))
			r.Post("/logout", LogoutHandler(d.Flow, d.Users))
			r.Get("/sessions", SessionsHandler(d.Registry, d.Users))
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(authmw.JWTMiddleware(d.Tokens))

		r.Post("/courses/{courseID}/mock/submit", SubmitMockHandler(d.Exams, d.Users))
		r.Post("/tests/{courseID}/start", StartTestHandler(d.Exams, d.Users))

		r.Route("/test-sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", GetSessionHandler(d.Exams, d.Users))
			r.Post("/pause", PauseSessionHandler(d.Exams, d.Users))
			r.Post("/resume", ResumeSessionHandler(d.Exams, d.Users))
			r.Post("/complete", CompleteSessionHandler(d.Exams, d.Users))
		})

		r.Get("/attempts", ListAttemptsHandler(d.Exams, d.Users))
		r.Get("/attempts/{attemptID}", GetAttemptHandler(d.Exams, d.Users))
	})

	return r
}
