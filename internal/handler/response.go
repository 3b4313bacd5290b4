package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/spendlog/spendlog-go/internal/logging"
	"github.com/spendlog/spendlog-go/internal/middleware"
)

const maxBodyBytes = 1 << 20 // 1MB

const (
	msgUnauthorized = "Unauthorized"
	msgNotFound     = "Not Found"
	msgInternal     = "internal server error"
)

type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func successResponse(data any) envelope {
	return envelope{"success": true, "data": data}
}

func errorResponse(msg string) envelope {
	return envelope{"success": false, "message": msg}
}

// errBodyTooLarge and errBadBody are what decodeBody reports after it has
// written the response.
var (
	errBodyTooLarge = errors.New("request body too large")
	errBadBody      = errors.New("invalid request body")
)

// decodeBody reads a JSON body capped at maxBodyBytes into dst. On failure
// it writes the 400 or 413 response itself. fieldErrs are decode errors
// whose message is safe to return to the client.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, fieldErrs ...error) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return nil
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse(errBodyTooLarge.Error()))
		return errBodyTooLarge
	}
	for _, fe := range fieldErrs {
		if errors.Is(err, fe) {
			writeJSON(w, http.StatusBadRequest, errorResponse(fe.Error()))
			return errBadBody
		}
	}
	if errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse("request body is required"))
		return errBadBody
	}
	writeJSON(w, http.StatusBadRequest, errorResponse(errBadBody.Error()))
	return errBadBody
}

// internalError logs err under component and writes a 500. The error text
// reaches the client only when expose is set.
func internalError(w http.ResponseWriter, r *http.Request, component string, err error, expose bool) {
	attrs := []any{
		logging.FieldComponent, component,
		logging.FieldRequestID, chimw.GetReqID(r.Context()),
		logging.FieldMethod, r.Method,
		logging.FieldPath, r.URL.Path,
		logging.FieldError, err,
	}
	if identity, ok := middleware.IdentityFromContext(r.Context()); ok {
		attrs = append(attrs, logging.FieldUserID, identity.ID)
	}
	if id := chi.URLParam(r, "id"); id != "" {
		attrs = append(attrs, logging.FieldExpenseID, id)
	}
	slog.ErrorContext(r.Context(), "request failed", attrs...)

	msg := msgInternal
	if expose {
		msg = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse(msg))
}
