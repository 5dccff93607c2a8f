package scoring

import (
	"errors"
	"fmt"

	"github.com/benvon/task-analyzer/internal/models"
)

// Code identifies a class of input validation failure
type Code string

const (
	// CodeNoTasks is returned when the task list is empty
	CodeNoTasks Code = "ERR_NO_TASKS"
	// CodeInvalidTasks is returned for malformed tasks and unresolvable dependencies
	CodeInvalidTasks Code = "ERR_INVALID_TASKS"
	// CodeInvalidWeights is returned when custom weights are missing, negative or do not sum to 1
	CodeInvalidWeights Code = "ERR_INVALID_WEIGHTS"
	// CodeInvalidStrategy is returned for an unknown strategy name
	CodeInvalidStrategy Code = "ERR_INVALID_STRATEGY"
)

// Error is a structured validation failure. It is always detected before any scoring runs.
type Error struct {
	Code    Code          `json:"error_code"`
	Message string        `json:"message"`
	Field   string        `json:"field,omitempty"`
	TaskID  models.TaskID `json:"task_id,omitzero"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case !e.TaskID.IsZero() && e.Field != "":
		return fmt.Sprintf("%s: task %s: %s: %s", e.Code, e.TaskID, e.Field, e.Message)
	case !e.TaskID.IsZero():
		return fmt.Sprintf("%s: task %s: %s", e.Code, e.TaskID, e.Message)
	case e.Field != "":
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

func newError(code Code, field string, taskID models.TaskID, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Field:   field,
		TaskID:  taskID,
	}
}

// AsError extracts a *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var scoringErr *Error
	if errors.As(err, &scoringErr) {
		return scoringErr, true
	}
	return nil, false
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	scoringErr, ok := AsError(err)
	return ok && scoringErr.Code == code
}
