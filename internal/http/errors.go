package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"backoffice/internal/core"
	"backoffice/internal/log"
)

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotRevertible):
		return http.StatusConflict
	case errors.Is(err, core.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrMail):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err once and writes it as a JSON error response. Messages
// of unexpected failures are not exposed to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	ctx := r.Context()
	logger := log.FromContext(ctx)

	body := Response{Error: err.Error()}
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		body.Field = ve.Field
	}
	if status == http.StatusInternalServerError {
		logger.ErrorContext(ctx, "Request failed", log.FieldError, err)
		body.Error = "internal error"
	} else {
		logger.WarnContext(ctx, "Request rejected", log.FieldStatusCode, status, log.FieldError, err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
