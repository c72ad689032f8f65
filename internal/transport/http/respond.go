package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"mcq-quiz-service/internal/domain"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// classify maps an error onto an HTTP status and a short machine-readable code. Generation is
// checked first because a GenerationError may wrap a ValidationError.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrGeneration):
		return http.StatusBadGateway, "generation_failed"
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity, "invalid_input"
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrQuestionSetNotFound):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}
