package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/spendlog/spendlog-go/internal/logging"
	"github.com/spendlog/spendlog-go/internal/middleware"
	"github.com/spendlog/spendlog-go/internal/model"
	"github.com/spendlog/spendlog-go/internal/service"
)

// ExpenseHandler handles HTTP requests for the caller's expenses.
type ExpenseHandler struct {
	service      *service.ExpenseService
	exposeErrors bool
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(svc *service.ExpenseService, exposeErrors bool) *ExpenseHandler {
	return &ExpenseHandler{service: svc, exposeErrors: exposeErrors}
}

// HandleList handles GET /api/v2/expense requests.
func (h *ExpenseHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse(msgUnauthorized))
		return
	}

	expenses, err := h.service.List(r.Context(), identity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{"success": true, "count": len(expenses), "data": expenses})
}

// HandleCreate handles POST /api/v2/expense requests.
func (h *ExpenseHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse(msgUnauthorized))
		return
	}

	var req model.CreateExpenseRequest
	if err := decodeBody(w, r, &req, model.ErrInvalidAmount, model.ErrInvalidDate); err != nil {
		return
	}

	expense, err := h.service.Create(r.Context(), identity, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, successResponse(expense))
}

// HandleUpdate handles PUT /api/v2/expense/{id} requests.
func (h *ExpenseHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse(msgUnauthorized))
		return
	}

	var req model.UpdateExpenseRequest
	if err := decodeBody(w, r, &req, model.ErrInvalidAmount, model.ErrInvalidDate); err != nil {
		return
	}

	expense, err := h.service.Update(r.Context(), identity, chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, successResponse(expense))
}

// HandleDelete handles DELETE /api/v2/expense/{id} requests.
func (h *ExpenseHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse(msgUnauthorized))
		return
	}

	if err := h.service.Delete(r.Context(), identity, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{"success": true, "msg": "deleted successfully"})
}

func (h *ExpenseHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse(verr.Error()))
	case errors.Is(err, service.ErrNoIdentity):
		writeJSON(w, http.StatusUnauthorized, errorResponse(msgUnauthorized))
	case errors.Is(err, service.ErrExpenseNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse(msgNotFound))
	default:
		internalError(w, r, logging.ComponentExpense, err, h.exposeErrors)
	}
}
