package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/benvon/task-analyzer/internal/logger"
	"github.com/benvon/task-analyzer/internal/queue"
	"github.com/benvon/task-analyzer/internal/scoring"
	"github.com/benvon/task-analyzer/internal/services/analysis"
	"go.uber.org/zap"
)

const (
	// ErrCodeInvalidJSON is returned for bodies that do not decode
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeInvalidRequest is returned for envelope fields failing validation
	ErrCodeInvalidRequest = "ERR_INVALID_REQUEST"
	// ErrCodeQueueUnavailable is returned when async analysis cannot be enqueued
	ErrCodeQueueUnavailable = "ERR_QUEUE_UNAVAILABLE"
	// ErrCodeTimeout is returned when the request context ends before the work does
	ErrCodeTimeout = "ERR_TIMEOUT"
	// ErrCodeInternal is returned for unexpected failures
	ErrCodeInternal = "ERR_INTERNAL"

	maxErrorMessageLength = 200
)

// errorBody is the JSON error envelope. Field and TaskID are set for task
// validation failures.
type errorBody struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	TaskID    string `json:"task_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func writeErrorBody(w http.ResponseWriter, status int, body errorBody) {
	body.Success = false
	body.Message = logger.SanitizeString(body.Message, maxErrorMessageLength)
	body.Timestamp = time.Now().UTC().Format(time.RFC3339)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondJSONError sends an error JSON response with a sanitized message
func respondJSONError(w http.ResponseWriter, status int, code, message string) {
	writeErrorBody(w, status, errorBody{Error: code, Message: message})
}

// respondError maps err onto a status code and error code. Unknown errors are
// logged and answered with a generic 500.
func respondError(w http.ResponseWriter, log *zap.Logger, err error) {
	if scoringErr, ok := scoring.AsError(err); ok {
		writeErrorBody(w, http.StatusBadRequest, errorBody{
			Error:   string(scoringErr.Code),
			Message: scoringErr.Message,
			Field:   scoringErr.Field,
			TaskID:  scoringErr.TaskID.String(),
		})
		return
	}

	switch {
	case errors.Is(err, analysis.ErrInvalidRequest):
		respondJSONError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
	case errors.Is(err, queue.ErrQueueUnavailable):
		respondJSONError(w, http.StatusServiceUnavailable, ErrCodeQueueUnavailable, "Analysis queue is temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		respondJSONError(w, http.StatusServiceUnavailable, ErrCodeTimeout, "Request did not complete in time")
	default:
		log.Error("request_failed", zap.String("error", logger.SanitizeError(err)))
		respondJSONError(w, http.StatusInternalServerError, ErrCodeInternal, "An unexpected error occurred")
	}
}

// decodeJSON decodes one JSON document from r.Body into dst. Trailing data is rejected.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return errors.New("invalid JSON: unexpected data after the document")
	}
	return nil
}
