package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/spendlog/spendlog-go/internal/crypto"
	"github.com/spendlog/spendlog-go/internal/logging"
	"github.com/spendlog/spendlog-go/internal/model"
	"github.com/spendlog/spendlog-go/internal/service"
)

type contextKey string

const identityKey contextKey = "identity"

const (
	msgUnauthorized = "Unauthorized"
	msgInvalidToken = "Invalid or expired token"
)

// TokenVerifier checks a bearer token and returns its subject.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// IdentityResolver loads the current identity for a user id. It returns
// service.ErrUserNotFound when the user no longer exists.
type IdentityResolver interface {
	Resolve(ctx context.Context, userID string) (model.Identity, error)
}

// Authenticate returns middleware that admits requests carrying a valid
// bearer token for a user that still exists. The user is looked up on
// every request.
func Authenticate(tokens TokenVerifier, users IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !found || strings.TrimSpace(token) == "" {
				writeJSONError(w, http.StatusUnauthorized, msgUnauthorized)
				return
			}

			userID, err := tokens.Verify(strings.TrimSpace(token))
			if err != nil {
				reason := "unknown"
				var tokenErr *crypto.TokenError
				if errors.As(err, &tokenErr) {
					reason = string(tokenErr.Kind)
				}
				slog.InfoContext(r.Context(), "token rejected",
					logging.FieldComponent, logging.ComponentAuth,
					logging.FieldRequestID, chimw.GetReqID(r.Context()),
					logging.FieldReason, reason,
				)
				writeJSONError(w, http.StatusUnauthorized, msgInvalidToken)
				return
			}

			identity, err := users.Resolve(r.Context(), userID)
			if err != nil {
				if errors.Is(err, service.ErrUserNotFound) {
					writeJSONError(w, http.StatusUnauthorized, msgUnauthorized)
					return
				}
				slog.ErrorContext(r.Context(), "resolve identity",
					logging.FieldComponent, logging.ComponentAuth,
					logging.FieldRequestID, chimw.GetReqID(r.Context()),
					logging.FieldUserID, userID,
					logging.FieldError, err,
				)
				writeJSONError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			setRequestUser(r.Context(), identity.ID)
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext extracts the authenticated identity from the request context.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(model.Identity)
	return identity, ok && identity.ID != ""
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "message": msg})
}
