package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"schemabridge/internal/domain"
)

// errorResponse is the JSON error body for all failure responses.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Risk    string `json:"risk_level,omitempty"`
}

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var (
		validation    *domain.ValidationError
		notFound      *domain.NotFoundError
		conflict      *domain.ConflictError
		tokenInvalid  *domain.TokenInvalidError
		hallucination *domain.HallucinationError
		dryRun        *domain.DryRunError
		execution     *domain.ExecutionError
	)

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &tokenInvalid):
		return http.StatusConflict
	case errors.As(err, &hallucination):
		return http.StatusUnprocessableEntity
	case errors.As(err, &dryRun):
		return http.StatusUnprocessableEntity
	case errors.As(err, &execution):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// riskFromError extracts a risk level from errors that carry one.
func riskFromError(err error) string {
	var riskErr interface{ RiskLevel() string }
	if errors.As(err, &riskErr) {
		return riskErr.RiskLevel()
	}
	return ""
}

// writeError renders a domain error as a JSON error response.
func writeError(w http.ResponseWriter, err error) {
	status := httpStatusFromDomainError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Internal details stay in the server log.
		msg = "internal error"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:    status,
		Message: msg,
		Risk:    riskFromError(err),
	})
}

// writeJSON renders a success response body.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
