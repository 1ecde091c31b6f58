package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"finplan/internal/api"
	"finplan/internal/log"
	"finplan/internal/records"
	"finplan/internal/remote"
	"finplan/internal/services"
	"finplan/internal/session"
)

func errorBody(msg string) api.ErrorResponse {
	return api.ErrorResponse{Error: msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps the error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	var br *badRequest
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, records.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, records.ErrNotFound), errors.Is(err, records.ErrSetupIncomplete):
		return http.StatusNotFound
	case errors.Is(err, services.ErrAdvisorDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, remote.ErrDataShape):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": ...}. Server-side failures are logged
// with their cause and answered with a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	logger := log.FromContext(r.Context())
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op)
		msg = http.StatusText(status)
		if status == http.StatusServiceUnavailable {
			msg = err.Error()
		}
	} else {
		logger.DebugContext(r.Context(), "Request rejected",
			log.FieldOperation, op,
			log.FieldStatusCode, status,
			log.FieldError, err)
	}
	writeJSON(w, status, errorBody(msg))
}
