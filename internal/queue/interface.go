package queue

import (
	"context"
	"errors"
	"time"
)

// ErrQueueUnavailable is returned while the broker is failing and the circuit is open
var ErrQueueUnavailable = errors.New("job queue unavailable")

// MessageInterface is a consumed job awaiting acknowledgement
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetJob() *Job
}

// JobQueue is the interface for job queues
type JobQueue interface {
	// Enqueue adds a job to the queue
	Enqueue(ctx context.Context, job *Job) error

	// Consume delivers messages until ctx is cancelled. prefetchCount bounds
	// unacknowledged messages per consumer. Malformed deliveries are
	// dead-lettered and reported on the error channel.
	Consume(ctx context.Context, prefetchCount int) (<-chan MessageInterface, <-chan error, error)

	// PublishResult sends a job result to the reply queue named by replyTo
	PublishResult(ctx context.Context, replyTo string, result *JobResult) error

	// Close closes the queue connection
	Close() error

	// HealthCheck verifies the queue connection is healthy
	HealthCheck(ctx context.Context) error
}

// DLQPurger removes dead-lettered messages older than retention and reports how many it removed
type DLQPurger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error)
}
