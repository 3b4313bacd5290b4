package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/spendlog/spendlog-go/internal/logging"
)

const requestUserKey contextKey = "request_user"

// setRequestUser records the authenticated user on the request log line.
// It does nothing outside Logger.
func setRequestUser(ctx context.Context, userID string) {
	if p, ok := ctx.Value(requestUserKey).(*string); ok {
		*p = userID
	}
}

// Logger writes one record per request, at a level chosen by status class.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logging.Component(logger, logging.ComponentHTTP)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			var userID string
			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), requestUserKey, &userID)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}

			attrs := []any{
				logging.FieldRequestID, chimw.GetReqID(r.Context()),
				logging.FieldMethod, r.Method,
				logging.FieldPath, r.URL.Path,
				logging.FieldClientIP, r.RemoteAddr,
				logging.FieldStatus, status,
				logging.FieldDuration, time.Since(start).Milliseconds(),
			}
			if userID != "" {
				attrs = append(attrs, logging.FieldUserID, userID)
			}

			logger.Log(r.Context(), level, "request", attrs...)
		})
	}
}

// Recoverer turns a handler panic into a 500 envelope.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.ErrorContext(r.Context(), "panic recovered",
					logging.FieldComponent, logging.ComponentHTTP,
					logging.FieldRequestID, chimw.GetReqID(r.Context()),
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				writeJSONError(w, http.StatusInternalServerError, "internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
