package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/spendlog/spendlog-go/internal/logging"
	"github.com/spendlog/spendlog-go/internal/middleware"
	"github.com/spendlog/spendlog-go/internal/service"
)

// Deps is everything the router mounts.
type Deps struct {
	Auth     *service.AuthService
	Expenses *service.ExpenseService
	Tokens   middleware.TokenVerifier

	// AuthLimiter wraps the register and login routes. Nil disables it.
	AuthLimiter func(http.Handler) http.Handler

	CORSOrigins  []string
	Ping         func(ctx context.Context) error
	Logger       *slog.Logger
	ExposeErrors bool
}

// NewRouter builds the HTTP surface.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	authHandler := NewAuthHandler(d.Auth, d.ExposeErrors)
	expenseHandler := NewExpenseHandler(d.Expenses, d.ExposeErrors)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse(msgNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse("Method Not Allowed"))
	})

	r.Get("/health", healthHandler(d.Ping))

	r.Route("/api/v2", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if d.AuthLimiter != nil {
				r.Use(d.AuthLimiter)
			}
			r.Post("/auth/register", authHandler.HandleRegister)
			r.Post("/auth/login", authHandler.HandleLogin)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(d.Tokens, d.Auth))
			r.Get("/auth/me", authHandler.HandleMe)

			r.Get("/expense", expenseHandler.HandleList)
			r.Post("/expense", expenseHandler.HandleCreate)
			r.Put("/expense/{id}", expenseHandler.HandleUpdate)
			r.Delete("/expense/{id}", expenseHandler.HandleDelete)
		})
	})

	return r
}

func healthHandler(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				slog.WarnContext(r.Context(), "health check failed",
					logging.FieldComponent, logging.ComponentStorage,
					logging.FieldError, err,
				)
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("unavailable"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}
}
