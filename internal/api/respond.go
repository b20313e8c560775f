package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hackgods/testing-registration/internal/registration"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}

// statusForKind maps engine error kinds to HTTP status codes.
func statusForKind(kind registration.Kind) int {
	switch kind {
	case registration.KindValidation, registration.KindIdentityMismatch:
		return http.StatusBadRequest
	case registration.KindNotFound:
		return http.StatusNotFound
	case registration.KindAuthorization:
		return http.StatusForbidden
	case registration.KindConflict:
		return http.StatusConflict
	case registration.KindExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// handleEngineError writes the error envelope. Store failures and unknown
// errors are logged and their details hidden from the client.
func handleEngineError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var e *registration.Error
	if !errors.As(err, &e) {
		log.Error("unexpected error", zap.String("path", r.URL.Path), zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	status := statusForKind(e.Kind)
	resp := ErrorResponse{
		Error:  string(e.Kind),
		Reason: string(e.Reason),
		Field:  e.Field,
	}
	if status == http.StatusInternalServerError {
		log.Error("store failure", zap.String("path", r.URL.Path), zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
	} else {
		resp.Details = e.Error()
	}
	writeJSON(w, status, resp)
}
