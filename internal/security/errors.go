package security

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every failed HTTP request. Field names the
// offending request field when a ledger value was rejected.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message,omitempty"`
	Field         string `json:"field,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// WriteJSONError writes the error envelope shared by every HTTP failure.
func WriteJSONError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeError(w, r, status, ErrorResponse{Error: code, Message: message})
}

// WriteFieldError rejects one request field with 400 invalid_field_value.
func WriteFieldError(w http.ResponseWriter, r *http.Request, field, message string) {
	writeError(w, r, http.StatusBadRequest, ErrorResponse{
		Error:   "invalid_field_value",
		Message: message,
		Field:   field,
	})
}

func writeError(w http.ResponseWriter, r *http.Request, status int, body ErrorResponse) {
	body.CorrelationID = CorrelationIDFromContext(r.Context())
	if body.CorrelationID != "" {
		w.Header().Set(CorrelationIDHeader, body.CorrelationID)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
