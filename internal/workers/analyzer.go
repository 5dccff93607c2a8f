package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/task-analyzer/internal/logger"
	"github.com/benvon/task-analyzer/internal/models"
	"github.com/benvon/task-analyzer/internal/queue"
	"github.com/benvon/task-analyzer/internal/scoring"
	"github.com/benvon/task-analyzer/internal/services/analysis"
	"go.uber.org/zap"
)

const (
	// maxNotReadyWait bounds how long a not-yet-due job is held before it is requeued
	maxNotReadyWait = time.Second
	// unavailableBackoff is how long a delivery is held before requeue while the queue breaker is open
	unavailableBackoff = 5 * time.Second
)

// Analyzer is the part of the analysis service the worker runs jobs against
type Analyzer interface {
	Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.AnalysisResult, error)
	Suggest(ctx context.Context, req models.SuggestRequest) (*models.Suggestion, error)
}

var _ Analyzer = (*analysis.Service)(nil)

// errMalformedPayload marks jobs whose payload does not decode for their type
var errMalformedPayload = errors.New("malformed job payload")

// AnalysisWorker processes analyze and suggest jobs
type AnalysisWorker struct {
	analyzer Analyzer
	jobQueue queue.JobQueue
	logger   *zap.Logger
	now      func() time.Time
	pause    func(ctx context.Context, d time.Duration)
}

// NewAnalysisWorker creates a worker publishing results through jobQueue
func NewAnalysisWorker(analyzer Analyzer, jobQueue queue.JobQueue, log *zap.Logger) *AnalysisWorker {
	if log == nil {
		log = zap.NewNop()
	}
	return &AnalysisWorker{analyzer: analyzer, jobQueue: jobQueue, logger: log, now: time.Now, pause: sleepContext}
}

// Run consumes jobs until ctx is cancelled or the delivery channel closes.
func (w *AnalysisWorker) Run(ctx context.Context, prefetch int) error {
	msgChan, errChan, err := w.jobQueue.Consume(ctx, prefetch)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errChan:
			if !ok {
				errChan = nil
				continue
			}
			w.logger.Error("queue_error", zap.String("error", logger.SanitizeError(err)))
		case msg, ok := <-msgChan:
			if !ok {
				w.logger.Info("message_channel_closed")
				return nil
			}
			if err := w.ProcessJob(ctx, msg); err != nil {
				job := msg.GetJob()
				w.logger.Error("job_failed",
					zap.String("error", logger.SanitizeError(err)),
					zap.String("job_id", job.ID.String()),
					zap.String("job_type", string(job.Type)),
				)
			}
		}
	}
}

// ProcessJob runs one job and settles its message. Domain errors become
// failed results; malformed payloads go to the DLQ; publish failures are
// retried with backoff until the job runs out of retries.
func (w *AnalysisWorker) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()
	now := w.now()

	if job.IsExpired(now) {
		w.logger.Warn("job_expired", zap.String("job_id", job.ID.String()))
		return msg.Ack()
	}
	if !job.ShouldProcess(now) {
		w.waitUntilDue(ctx, job, now)
		return msg.Nack(true)
	}
	if job.ReplyTo == "" {
		w.logger.Warn("job_result_discarded",
			zap.String("job_id", job.ID.String()),
			zap.String("reason", "no reply queue"),
		)
		return msg.Ack()
	}

	result, err := w.run(ctx, job)
	switch {
	case errors.Is(err, errMalformedPayload):
		w.logger.Warn("job_payload_invalid",
			zap.String("job_id", job.ID.String()),
			zap.String("error", logger.SanitizeError(err)),
		)
		if nackErr := msg.Nack(false); nackErr != nil {
			return fmt.Errorf("failed to dead-letter job: %w", nackErr)
		}
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		if nackErr := msg.Nack(true); nackErr != nil {
			return fmt.Errorf("failed to requeue job: %w", nackErr)
		}
		return err
	case err != nil:
		return w.deadLetter(msg, err)
	}

	if err := w.jobQueue.PublishResult(ctx, job.ReplyTo, result); err != nil {
		return w.retryPublish(ctx, msg, err)
	}

	w.logger.Info("job_completed",
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(job.Type)),
		zap.Bool("success", result.Success),
	)
	return msg.Ack()
}

// run executes the job. Errors returned here are infrastructure problems;
// domain rejections are folded into a failed result.
func (w *AnalysisWorker) run(ctx context.Context, job *queue.Job) (*queue.JobResult, error) {
	var (
		data any
		err  error
	)
	switch job.Type {
	case queue.JobTypeAnalyze:
		var req models.AnalyzeRequest
		if decodeErr := json.Unmarshal(job.Payload, &req); decodeErr != nil {
			return nil, fmt.Errorf("%w: %v", errMalformedPayload, decodeErr)
		}
		data, err = w.analyzer.Analyze(ctx, req)
	case queue.JobTypeSuggest:
		var req models.SuggestRequest
		if decodeErr := json.Unmarshal(job.Payload, &req); decodeErr != nil {
			return nil, fmt.Errorf("%w: %v", errMalformedPayload, decodeErr)
		}
		data, err = w.analyzer.Suggest(ctx, req)
	default:
		return nil, fmt.Errorf("%w: unknown job type %q", errMalformedPayload, job.Type)
	}

	result := &queue.JobResult{JobID: job.ID, Type: job.Type, CompletedAt: w.now().UTC()}
	if err != nil {
		jobErr, ok := toJobError(err)
		if !ok {
			return nil, err
		}
		result.Error = jobErr
		return result, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job result: %w", err)
	}
	result.Success = true
	result.Data = raw
	return result, nil
}

func toJobError(err error) (*queue.JobError, bool) {
	if scoringErr, ok := scoring.AsError(err); ok {
		return &queue.JobError{
			Code:    string(scoringErr.Code),
			Message: scoringErr.Message,
			Field:   scoringErr.Field,
			TaskID:  scoringErr.TaskID.String(),
		}, true
	}
	if errors.Is(err, analysis.ErrInvalidRequest) {
		return &queue.JobError{Code: "ERR_INVALID_REQUEST", Message: err.Error()}, true
	}
	return nil, false
}

func (w *AnalysisWorker) retryPublish(ctx context.Context, msg queue.MessageInterface, publishErr error) error {
	job := msg.GetJob()
	if !job.CanRetry() {
		w.logger.Error("job_publish_exhausted",
			zap.String("job_id", job.ID.String()),
			zap.Int("retry_count", job.RetryCount),
			zap.String("error", logger.SanitizeError(publishErr)),
		)
		if nackErr := msg.Nack(false); nackErr != nil {
			return fmt.Errorf("failed to dead-letter job: %w", nackErr)
		}
		return fmt.Errorf("result publish failed after %d retries: %w", job.RetryCount, publishErr)
	}

	retry := *job
	retry.IncrementRetry(w.now())
	if err := w.jobQueue.Enqueue(ctx, &retry); err != nil {
		if errors.Is(err, queue.ErrQueueUnavailable) {
			w.logger.Warn("job_queue_unavailable",
				zap.String("job_id", job.ID.String()),
				zap.Duration("backoff", unavailableBackoff),
			)
			w.pause(ctx, unavailableBackoff)
		}
		if nackErr := msg.Nack(true); nackErr != nil {
			return fmt.Errorf("failed to requeue job: %w", nackErr)
		}
		return fmt.Errorf("failed to re-enqueue job after publish failure: %w", err)
	}

	w.logger.Warn("job_publish_retry",
		zap.String("job_id", job.ID.String()),
		zap.Int("retry_count", retry.RetryCount),
		zap.Int("max_retries", retry.MaxRetries),
		zap.Time("not_before", *retry.NotBefore),
		zap.String("error", logger.SanitizeError(publishErr)),
	)
	return msg.Ack()
}

func (w *AnalysisWorker) deadLetter(msg queue.MessageInterface, err error) error {
	if nackErr := msg.Nack(false); nackErr != nil {
		return fmt.Errorf("failed to dead-letter job: %w", nackErr)
	}
	return fmt.Errorf("job failed: %w", err)
}

func (w *AnalysisWorker) waitUntilDue(ctx context.Context, job *queue.Job, now time.Time) {
	wait := min(job.NotBefore.Sub(now), maxNotReadyWait)
	if wait <= 0 {
		return
	}
	w.pause(ctx, wait)
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
