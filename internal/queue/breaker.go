package queue

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerSettings tunes BreakerQueue
type BreakerSettings struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit
	FailureThreshold uint32
	// Timeout is how long the circuit stays open before a trial request
	Timeout time.Duration
}

// BreakerQueue guards publishes to an underlying JobQueue with a circuit
// breaker. While open, Enqueue and PublishResult fail fast with ErrQueueUnavailable.
type BreakerQueue struct {
	JobQueue
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewBreakerQueue wraps q.
func NewBreakerQueue(q JobQueue, s BreakerSettings, logger *zap.Logger) *BreakerQueue {
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 5
	}
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "job_queue",
		MaxRequests: 1,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// a cancelled caller says nothing about broker health
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit_breaker_state_changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &BreakerQueue{JobQueue: q, breaker: cb}
}

// Enqueue publishes through the breaker
func (b *BreakerQueue) Enqueue(ctx context.Context, job *Job) error {
	return b.run(func() error { return b.JobQueue.Enqueue(ctx, job) })
}

// PublishResult publishes through the breaker
func (b *BreakerQueue) PublishResult(ctx context.Context, replyTo string, result *JobResult) error {
	return b.run(func() error { return b.JobQueue.PublishResult(ctx, replyTo, result) })
}

// State reports the breaker state (closed, half-open, open)
func (b *BreakerQueue) State() string {
	return b.breaker.State().String()
}

func (b *BreakerQueue) run(fn func() error) error {
	_, err := b.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrQueueUnavailable
	}
	return err
}
