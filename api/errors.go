package api

import (
	"errors"
	"net/http"

	"github.com/focep/collecte-engine/generic"
	"github.com/focep/collecte-engine/service"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// statusFor maps the service error categories to HTTP statuses. Order
// matters: a forbidden update is also a validation failure of sorts, and
// must answer 403.
func statusFor(err error) int {
	switch {
	case service.IsAuthorization(err):
		return http.StatusForbidden
	case service.IsNotFound(err):
		return http.StatusNotFound
	case service.IsConcurrency(err):
		return http.StatusConflict
	case service.IsConfiguration(err):
		return http.StatusUnprocessableEntity
	case service.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, generic.ErrStoreRequired):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with the status of its category. Internal errors are
// logged; the rest are the caller's to fix.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), message, "error", err, "path", r.URL.Path)
	}
	writeError(w, status, message, err)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
