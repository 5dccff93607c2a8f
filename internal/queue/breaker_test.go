package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeQueue struct {
	enqueueErr error
	calls      atomic.Int32
}

func (f *fakeQueue) Enqueue(context.Context, *Job) error {
	f.calls.Add(1)
	return f.enqueueErr
}

func (f *fakeQueue) Consume(context.Context, int) (<-chan MessageInterface, <-chan error, error) {
	return nil, nil, nil
}

func (f *fakeQueue) PublishResult(context.Context, string, *JobResult) error {
	f.calls.Add(1)
	return f.enqueueErr
}

func (f *fakeQueue) Close() error                      { return nil }
func (f *fakeQueue) HealthCheck(context.Context) error { return nil }

func TestBreakerQueue_OpensAfterThreshold(t *testing.T) {
	t.Parallel()

	inner := &fakeQueue{enqueueErr: errors.New("connection refused")}
	bq := NewBreakerQueue(inner, BreakerSettings{FailureThreshold: 2, Timeout: time.Hour}, nil)
	job := &Job{ID: uuid.New()}

	for i := 0; i < 2; i++ {
		err := bq.Enqueue(context.Background(), job)
		if err == nil || errors.Is(err, ErrQueueUnavailable) {
			t.Fatalf("attempt %d: expected the broker error, got %v", i+1, err)
		}
	}
	if bq.State() != "open" {
		t.Errorf("Expected breaker to be open, got %s", bq.State())
	}

	err := bq.PublishResult(context.Background(), "replies", &JobResult{JobID: job.ID})
	if !errors.Is(err, ErrQueueUnavailable) {
		t.Errorf("Expected ErrQueueUnavailable while open, got %v", err)
	}
	if got := inner.calls.Load(); got != 2 {
		t.Errorf("Expected the open breaker to skip the broker, got %d calls", got)
	}
}

func TestBreakerQueue_HalfOpenRecovers(t *testing.T) {
	t.Parallel()

	inner := &fakeQueue{enqueueErr: errors.New("timeout")}
	bq := NewBreakerQueue(inner, BreakerSettings{FailureThreshold: 1, Timeout: 20 * time.Millisecond}, nil)
	job := &Job{ID: uuid.New()}

	_ = bq.Enqueue(context.Background(), job)
	if bq.State() != "open" {
		t.Fatalf("Expected open, got %s", bq.State())
	}

	time.Sleep(40 * time.Millisecond)
	inner.enqueueErr = nil
	if err := bq.Enqueue(context.Background(), job); err != nil {
		t.Fatalf("Expected trial request to pass, got %v", err)
	}
	if bq.State() != "closed" {
		t.Errorf("Expected breaker to close after a successful trial, got %s", bq.State())
	}
}

func TestBreakerQueue_CancelledCallerDoesNotTrip(t *testing.T) {
	t.Parallel()

	inner := &fakeQueue{enqueueErr: context.Canceled}
	bq := NewBreakerQueue(inner, BreakerSettings{FailureThreshold: 1, Timeout: time.Hour}, nil)

	for i := 0; i < 3; i++ {
		_ = bq.Enqueue(context.Background(), &Job{ID: uuid.New()})
	}
	if bq.State() != "closed" {
		t.Errorf("Expected cancellations to leave the breaker closed, got %s", bq.State())
	}
}
