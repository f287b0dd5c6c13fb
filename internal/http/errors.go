package http

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/pet-services-marketplace/internal/domain"
	"github.com/robertarktes/pet-services-marketplace/internal/observability"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal"}`))
		return
	}
	_, _ = w.Write(payload)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrMismatch),
		errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrSerializationFailure),
		errors.Is(err, domain.ErrLockTimeout):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeDomainError maps err onto its HTTP status. Internal errors are logged
// and hidden from the client.
func writeDomainError(w http.ResponseWriter, r *http.Request, logger observability.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		observability.LoggerFromContext(r.Context(), logger).WithError(err).Error("request failed")
		writeError(w, status, "internal", "internal error")
		return
	}
	writeError(w, status, domain.Code(err), err.Error())
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(domain.ErrInvalidInput, "invalid request body")
	}
	return nil
}
