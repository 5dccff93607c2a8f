package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeAnalyze ranks a task list and replies with the AnalysisResult
	JobTypeAnalyze JobType = "analyze"
	// JobTypeSuggest ranks a task list and replies with today's suggestions
	JobTypeSuggest JobType = "suggest"
)

// DefaultMaxRetries is how often a job whose result could not be published is retried
const DefaultMaxRetries = 3

const maxRetryDelay = 5 * time.Minute

// Job is one unit of batch work. Payload is the request envelope as received over HTTP.
type Job struct {
	ID         uuid.UUID       `json:"id"`
	Type       JobType         `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	ReplyTo    string          `json:"reply_to,omitempty"`
	NotBefore  *time.Time      `json:"not_before,omitempty"`
	NotAfter   *time.Time      `json:"not_after,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	RetryCount int             `json:"retry_count"`
	MaxRetries int             `json:"max_retries"`
}

// NewJob creates a job carrying payload as JSON.
func NewJob(jobType JobType, payload any, replyTo string) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job payload: %w", err)
	}
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		Payload:    raw,
		ReplyTo:    replyTo,
		CreatedAt:  time.Now().UTC(),
		MaxRetries: DefaultMaxRetries,
	}, nil
}

// Validate rejects jobs the worker could never process.
func (j *Job) Validate() error {
	if j.ID == uuid.Nil {
		return errors.New("job id is required")
	}
	switch j.Type {
	case JobTypeAnalyze, JobTypeSuggest:
	default:
		return fmt.Errorf("unknown job type %q", j.Type)
	}
	if len(j.Payload) == 0 || string(j.Payload) == "null" {
		return errors.New("job payload is required")
	}
	return nil
}

// ShouldProcess reports whether the job is inside its processing window at now.
func (j *Job) ShouldProcess(now time.Time) bool {
	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}
	return !j.IsExpired(now)
}

// IsExpired reports whether NotAfter has passed.
func (j *Job) IsExpired(now time.Time) bool {
	return j.NotAfter != nil && now.After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry bumps the retry count and schedules the next attempt with
// exponential backoff (1s, 2s, 4s, ... capped at five minutes).
func (j *Job) IncrementRetry(now time.Time) {
	j.RetryCount++
	delay := time.Second << min(j.RetryCount-1, 16)
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	next := now.Add(delay)
	j.NotBefore = &next
}

// JobError is the failure half of a JobResult. It mirrors the HTTP error body.
type JobError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	TaskID  string `json:"task_id,omitempty"`
}

// JobResult is published to a job's reply queue
type JobResult struct {
	JobID       uuid.UUID       `json:"job_id"`
	Type        JobType         `json:"type"`
	Success     bool            `json:"success"`
	Data        json.RawMessage `json:"data,omitempty"`
	Error       *JobError       `json:"error,omitempty"`
	CompletedAt time.Time       `json:"completed_at"`
}
