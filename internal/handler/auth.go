package handler

import (
	"errors"
	"net/http"

	"github.com/spendlog/spendlog-go/internal/logging"
	"github.com/spendlog/spendlog-go/internal/middleware"
	"github.com/spendlog/spendlog-go/internal/model"
	"github.com/spendlog/spendlog-go/internal/service"
)

const msgCredentialsRequired = "Email and password are required"

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	service      *service.AuthService
	exposeErrors bool
}

// NewAuthHandler creates a new AuthHandler. exposeErrors puts internal
// error text in 500 responses.
func NewAuthHandler(svc *service.AuthService, exposeErrors bool) *AuthHandler {
	return &AuthHandler{service: svc, exposeErrors: exposeErrors}
}

// HandleRegister handles POST /api/v2/auth/register requests.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req model.CreateUserRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}

	resp, err := h.service.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailRequired), errors.Is(err, service.ErrPasswordRequired):
			writeJSON(w, http.StatusBadRequest, errorResponse(msgCredentialsRequired))
		case errors.Is(err, service.ErrNameTooLong):
			writeJSON(w, http.StatusBadRequest, errorResponse("Name must be at most 100 characters"))
		case errors.Is(err, service.ErrPasswordTooLong):
			writeJSON(w, http.StatusBadRequest, errorResponse("Password must be at most 72 bytes"))
		case errors.Is(err, service.ErrEmailTaken):
			writeJSON(w, http.StatusConflict, errorResponse("Email already registered"))
		default:
			internalError(w, r, logging.ComponentAuth, err, h.exposeErrors)
		}
		return
	}

	writeJSON(w, http.StatusCreated, successResponse(resp))
}

// HandleLogin handles POST /api/v2/auth/login requests.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCredentialsRequired):
			writeJSON(w, http.StatusBadRequest, errorResponse(msgCredentialsRequired))
		case errors.Is(err, service.ErrInvalidCredentials):
			writeJSON(w, http.StatusUnauthorized, errorResponse("Invalid credentials"))
		default:
			internalError(w, r, logging.ComponentAuth, err, h.exposeErrors)
		}
		return
	}

	writeJSON(w, http.StatusOK, successResponse(resp))
}

// HandleMe handles GET /api/v2/auth/me requests.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse(msgUnauthorized))
		return
	}

	resp, err := h.service.Me(r.Context(), identity.ID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeJSON(w, http.StatusUnauthorized, errorResponse(msgUnauthorized))
			return
		}
		internalError(w, r, logging.ComponentAuth, err, h.exposeErrors)
		return
	}

	writeJSON(w, http.StatusOK, successResponse(resp))
}
