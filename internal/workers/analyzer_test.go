package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benvon/task-analyzer/internal/models"
	"github.com/benvon/task-analyzer/internal/queue"
	"github.com/benvon/task-analyzer/internal/scoring"
	"github.com/benvon/task-analyzer/internal/services/analysis"
	"github.com/benvon/task-analyzer/internal/settings"
)

// mockMessage records how a message was settled
type mockMessage struct {
	job     *queue.Job
	acked   bool
	nacked  bool
	requeue bool
}

func (m *mockMessage) GetJob() *queue.Job { return m.job }

func (m *mockMessage) Ack() error {
	m.acked = true
	return nil
}

func (m *mockMessage) Nack(requeue bool) error {
	m.nacked = true
	m.requeue = requeue
	return nil
}

// mockQueue is a JobQueue recording published results and re-enqueued jobs
type mockQueue struct {
	mu         sync.Mutex
	publishErr error
	enqueueErr error
	results    map[string]*queue.JobResult
	enqueued   []*queue.Job
	messages   chan queue.MessageInterface
	errs       chan error
}

func newMockQueue() *mockQueue {
	return &mockQueue{
		results:  make(map[string]*queue.JobResult),
		messages: make(chan queue.MessageInterface, 4),
		errs:     make(chan error, 1),
	}
}

func (q *mockQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.enqueued = append(q.enqueued, job)
	return nil
}

func (q *mockQueue) Consume(ctx context.Context, prefetchCount int) (<-chan queue.MessageInterface, <-chan error, error) {
	return q.messages, q.errs, nil
}

func (q *mockQueue) PublishResult(ctx context.Context, replyTo string, result *queue.JobResult) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.publishErr != nil {
		return q.publishErr
	}
	q.results[replyTo] = result
	return nil
}

func (q *mockQueue) Close() error { return nil }

func (q *mockQueue) HealthCheck(ctx context.Context) error { return nil }

// mockAnalyzer lets tests replace either operation
type mockAnalyzer struct {
	analyzeFunc func(ctx context.Context, req models.AnalyzeRequest) (*models.AnalysisResult, error)
	suggestFunc func(ctx context.Context, req models.SuggestRequest) (*models.Suggestion, error)
}

func (m *mockAnalyzer) Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.AnalysisResult, error) {
	return m.analyzeFunc(ctx, req)
}

func (m *mockAnalyzer) Suggest(ctx context.Context, req models.SuggestRequest) (*models.Suggestion, error) {
	return m.suggestFunc(ctx, req)
}

var fixedNow = time.Date(2025, time.January, 6, 10, 0, 0, 0, time.UTC)

func newTestWorker(t *testing.T, q *mockQueue) *AnalysisWorker {
	t.Helper()
	store, err := settings.NewStaticStore(settings.Default())
	if err != nil {
		t.Fatalf("Failed to create settings store: %v", err)
	}
	svc := analysis.New(store, analysis.WithClock(func() time.Time { return fixedNow }))
	w := NewAnalysisWorker(svc, q, nil)
	w.now = func() time.Time { return fixedNow }
	w.pause = func(context.Context, time.Duration) {}
	return w
}

func newJob(t *testing.T, jobType queue.JobType, payload any, replyTo string) *queue.Job {
	t.Helper()
	job, err := queue.NewJob(jobType, payload, replyTo)
	if err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}
	return job
}

func sampleRequest() models.AnalyzeRequest {
	h := 1.0
	due := models.NewDate(time.Date(2025, time.January, 3, 0, 0, 0, 0, time.UTC))
	return models.AnalyzeRequest{Tasks: []models.Task{
		{ID: models.StringID("bug"), Title: "Fix production bug", Importance: 5, EstimatedHours: &h, DueDate: &due},
		{ID: models.StringID("docs"), Title: "Write docs", Importance: 2},
	}}
}

func TestProcessJob_AnalyzePublishesResult(t *testing.T) {
	t.Parallel()

	q := newMockQueue()
	w := newTestWorker(t, q)
	msg := &mockMessage{job: newJob(t, queue.JobTypeAnalyze, sampleRequest(), "results")}

	if err := w.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !msg.acked {
		t.Error("Expected message to be acked")
	}

	result := q.results["results"]
	if result == nil {
		t.Fatal("Expected a result on the reply queue")
	}
	if !result.Success || result.JobID != msg.job.ID {
		t.Errorf("Unexpected result: success=%v job_id=%s", result.Success, result.JobID)
	}
	var analysisResult models.AnalysisResult
	if err := json.Unmarshal(result.Data, &analysisResult); err != nil {
		t.Fatalf("Failed to decode result data: %v", err)
	}
	if len(analysisResult.Tasks) != 2 || analysisResult.Tasks[0].ID != models.StringID("bug") {
		t.Errorf("Expected bug ranked first, got %+v", analysisResult.Tasks)
	}
}

func TestProcessJob_SuggestPublishesResult(t *testing.T) {
	t.Parallel()

	q := newMockQueue()
	w := newTestWorker(t, q)
	req := models.SuggestRequest{AnalyzeRequest: sampleRequest(), Count: 1}
	msg := &mockMessage{job: newJob(t, queue.JobTypeSuggest, req, "results")}

	if err := w.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var suggestion models.Suggestion
	if err := json.Unmarshal(q.results["results"].Data, &suggestion); err != nil {
		t.Fatalf("Failed to decode suggestion: %v", err)
	}
	if len(suggestion.Tasks) != 1 {
		t.Errorf("Expected 1 suggestion, got %d", len(suggestion.Tasks))
	}
}

func TestProcessJob_DomainErrorPublishesFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		jobType  queue.JobType
		payload  any
		wantCode string
	}{
		{
			name:     "no tasks",
			jobType:  queue.JobTypeAnalyze,
			payload:  models.AnalyzeRequest{},
			wantCode: string(scoring.CodeNoTasks),
		},
		{
			name:     "unknown strategy",
			jobType:  queue.JobTypeAnalyze,
			payload:  models.AnalyzeRequest{Tasks: sampleRequest().Tasks, Strategy: "yolo"},
			wantCode: string(scoring.CodeInvalidStrategy),
		},
		{
			name:     "suggest count out of range",
			jobType:  queue.JobTypeSuggest,
			payload:  models.SuggestRequest{AnalyzeRequest: sampleRequest(), Count: 99},
			wantCode: "ERR_INVALID_REQUEST",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			q := newMockQueue()
			w := newTestWorker(t, q)
			msg := &mockMessage{job: newJob(t, tt.jobType, tt.payload, "results")}

			if err := w.ProcessJob(context.Background(), msg); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !msg.acked || msg.nacked {
				t.Errorf("Expected ack only, got acked=%v nacked=%v", msg.acked, msg.nacked)
			}
			result := q.results["results"]
			if result == nil || result.Success || result.Error == nil {
				t.Fatalf("Expected a failed result, got %+v", result)
			}
			if result.Error.Code != tt.wantCode {
				t.Errorf("Expected code %s, got %s", tt.wantCode, result.Error.Code)
			}
		})
	}
}

func TestProcessJob_MalformedPayloadGoesToDLQ(t *testing.T) {
	t.Parallel()

	q := newMockQueue()
	w := newTestWorker(t, q)
	job := newJob(t, queue.JobTypeAnalyze, map[string]any{"tasks": "not a list"}, "results")
	msg := &mockMessage{job: job}

	err := w.ProcessJob(context.Background(), msg)
	if !errors.Is(err, errMalformedPayload) {
		t.Errorf("Expected malformed payload error, got %v", err)
	}
	if !msg.nacked || msg.requeue {
		t.Errorf("Expected nack without requeue, got nacked=%v requeue=%v", msg.nacked, msg.requeue)
	}
	if len(q.results) != 0 {
		t.Error("Expected no result to be published")
	}
}

func TestProcessJob_PublishFailureRetries(t *testing.T) {
	t.Parallel()

	q := newMockQueue()
	q.publishErr = errors.New("channel closed")
	w := newTestWorker(t, q)
	msg := &mockMessage{job: newJob(t, queue.JobTypeAnalyze, sampleRequest(), "results")}

	if err := w.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !msg.acked {
		t.Error("Expected original message to be acked after re-enqueue")
	}
	if len(q.enqueued) != 1 {
		t.Fatalf("Expected 1 re-enqueued job, got %d", len(q.enqueued))
	}
	retry := q.enqueued[0]
	if retry.ID != msg.job.ID || retry.RetryCount != 1 {
		t.Errorf("Unexpected retry job: id=%s retry_count=%d", retry.ID, retry.RetryCount)
	}
	if retry.NotBefore == nil || !retry.NotBefore.Equal(fixedNow.Add(time.Second)) {
		t.Errorf("Expected NotBefore one second out, got %v", retry.NotBefore)
	}
	if msg.job.RetryCount != 0 {
		t.Error("Expected the delivered job to be left unchanged")
	}
}

func TestProcessJob_PublishFailureExhausted(t *testing.T) {
	t.Parallel()

	q := newMockQueue()
	q.publishErr = errors.New("channel closed")
	w := newTestWorker(t, q)
	job := newJob(t, queue.JobTypeAnalyze, sampleRequest(), "results")
	job.RetryCount = job.MaxRetries
	msg := &mockMessage{job: job}

	if err := w.ProcessJob(context.Background(), msg); err == nil {
		t.Error("Expected an error once retries are exhausted")
	}
	if !msg.nacked || msg.requeue {
		t.Errorf("Expected nack to DLQ, got nacked=%v requeue=%v", msg.nacked, msg.requeue)
	}
	if len(q.enqueued) != 0 {
		t.Errorf("Expected no re-enqueue, got %d", len(q.enqueued))
	}
}

func TestProcessJob_ReEnqueueFailureRequeues(t *testing.T) {
	t.Parallel()

	q := newMockQueue()
	q.publishErr = errors.New("channel closed")
	q.enqueueErr = queue.ErrQueueUnavailable
	w := newTestWorker(t, q)
	var pauses []time.Duration
	w.pause = func(ctx context.Context, d time.Duration) { pauses = append(pauses, d) }
	msg := &mockMessage{job: newJob(t, queue.JobTypeAnalyze, sampleRequest(), "results")}

	if err := w.ProcessJob(context.Background(), msg); !errors.Is(err, queue.ErrQueueUnavailable) {
		t.Errorf("Expected queue unavailable error, got %v", err)
	}
	if !msg.nacked || !msg.requeue {
		t.Errorf("Expected nack with requeue, got nacked=%v requeue=%v", msg.nacked, msg.requeue)
	}
	if len(pauses) != 1 || pauses[0] != unavailableBackoff {
		t.Errorf("Expected one %v backoff before requeue, got %v", unavailableBackoff, pauses)
	}
}

func TestProcessJob_ReEnqueueOtherFailureRequeuesImmediately(t *testing.T) {
	t.Parallel()

	q := newMockQueue()
	q.publishErr = errors.New("channel closed")
	q.enqueueErr = errors.New("connection reset")
	w := newTestWorker(t, q)
	var pauses []time.Duration
	w.pause = func(ctx context.Context, d time.Duration) { pauses = append(pauses, d) }
	msg := &mockMessage{job: newJob(t, queue.JobTypeAnalyze, sampleRequest(), "results")}

	if err := w.ProcessJob(context.Background(), msg); err == nil {
		t.Error("Expected an error when re-enqueue fails")
	}
	if !msg.nacked || !msg.requeue {
		t.Errorf("Expected nack with requeue, got nacked=%v requeue=%v", msg.nacked, msg.requeue)
	}
	if len(pauses) != 0 {
		t.Errorf("Expected no backoff, got %v", pauses)
	}
}

func TestSleepContext_ReturnsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	sleepContext(ctx, time.Minute)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Expected cancelled wait to return promptly, took %v", elapsed)
	}
}

func TestProcessJob_SchedulingWindow(t *testing.T) {
	t.Parallel()

	t.Run("expired job is dropped", func(t *testing.T) {
		t.Parallel()
		q := newMockQueue()
		w := newTestWorker(t, q)
		job := newJob(t, queue.JobTypeAnalyze, sampleRequest(), "results")
		past := fixedNow.Add(-time.Minute)
		job.NotAfter = &past
		msg := &mockMessage{job: job}

		if err := w.ProcessJob(context.Background(), msg); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !msg.acked || len(q.results) != 0 {
			t.Errorf("Expected ack without result, got acked=%v results=%d", msg.acked, len(q.results))
		}
	})

	t.Run("job not yet due is requeued", func(t *testing.T) {
		t.Parallel()
		q := newMockQueue()
		w := newTestWorker(t, q)
		job := newJob(t, queue.JobTypeAnalyze, sampleRequest(), "results")
		future := fixedNow.Add(time.Hour)
		job.NotBefore = &future
		msg := &mockMessage{job: job}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := w.ProcessJob(ctx, msg); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !msg.nacked || !msg.requeue {
			t.Errorf("Expected nack with requeue, got nacked=%v requeue=%v", msg.nacked, msg.requeue)
		}
	})

	t.Run("missing reply queue", func(t *testing.T) {
		t.Parallel()
		q := newMockQueue()
		w := newTestWorker(t, q)
		msg := &mockMessage{job: newJob(t, queue.JobTypeAnalyze, sampleRequest(), "")}

		if err := w.ProcessJob(context.Background(), msg); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !msg.acked || len(q.results) != 0 {
			t.Errorf("Expected ack without result, got acked=%v results=%d", msg.acked, len(q.results))
		}
	})
}

func TestProcessJob_InfrastructureErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         error
		wantRequeue bool
	}{
		{name: "cancelled", err: context.Canceled, wantRequeue: true},
		{name: "unexpected", err: errors.New("boom"), wantRequeue: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			q := newMockQueue()
			a := &mockAnalyzer{
				analyzeFunc: func(ctx context.Context, req models.AnalyzeRequest) (*models.AnalysisResult, error) {
					return nil, fmt.Errorf("analyze: %w", tt.err)
				},
			}
			w := NewAnalysisWorker(a, q, nil)
			msg := &mockMessage{job: newJob(t, queue.JobTypeAnalyze, sampleRequest(), "results")}

			if err := w.ProcessJob(context.Background(), msg); !errors.Is(err, tt.err) {
				t.Errorf("Expected %v, got %v", tt.err, err)
			}
			if !msg.nacked || msg.requeue != tt.wantRequeue {
				t.Errorf("Expected nack requeue=%v, got nacked=%v requeue=%v", tt.wantRequeue, msg.nacked, msg.requeue)
			}
			if len(q.results) != 0 {
				t.Error("Expected no result to be published")
			}
		})
	}
}

func TestRun_ProcessesUntilChannelCloses(t *testing.T) {
	t.Parallel()

	q := newMockQueue()
	w := newTestWorker(t, q)
	msg := &mockMessage{job: newJob(t, queue.JobTypeAnalyze, sampleRequest(), "results")}
	q.messages <- msg
	q.errs <- errors.New("delivery not decodable")
	close(q.messages)

	if err := w.Run(context.Background(), 1); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !msg.acked {
		t.Error("Expected message to be processed before Run returned")
	}
}
