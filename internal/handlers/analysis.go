package handlers

import (
	"bytes"
	"net/http"

	"github.com/benvon/task-analyzer/internal/export"
	"github.com/benvon/task-analyzer/internal/insights"
	"github.com/benvon/task-analyzer/internal/logger"
	"github.com/benvon/task-analyzer/internal/models"
	"github.com/benvon/task-analyzer/internal/queue"
	"github.com/benvon/task-analyzer/internal/request"
	"github.com/benvon/task-analyzer/internal/scoring"
	"github.com/benvon/task-analyzer/internal/services/analysis"
	"github.com/benvon/task-analyzer/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// AsyncRequest is the body of POST /tasks/analyze/async. Type selects the job
// kind and defaults to analyze.
type AsyncRequest struct {
	models.SuggestRequest
	ReplyTo string        `json:"reply_to" validate:"required,max=255"`
	Type    queue.JobType `json:"type,omitempty" validate:"omitempty,oneof=analyze suggest"`
}

// AnalysisHandler serves the ranking endpoints under /api/v1/tasks
type AnalysisHandler struct {
	service    *analysis.Service
	queue      queue.JobQueue
	maxRetries int
	logger     *zap.Logger
}

// NewAnalysisHandler creates a handler. jobQueue may be nil, in which case
// async analysis answers 503.
func NewAnalysisHandler(service *analysis.Service, jobQueue queue.JobQueue, log *zap.Logger) *AnalysisHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AnalysisHandler{service: service, queue: jobQueue, logger: log}
}

// WithJobMaxRetries sets how often an async job's result publish is retried
func (h *AnalysisHandler) WithJobMaxRetries(n int) *AnalysisHandler {
	h.maxRetries = n
	return h
}

// RegisterRoutes registers routes on the /api/v1/tasks subrouter
func (h *AnalysisHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/analyze", h.Analyze).Methods("POST")
	r.HandleFunc("/analyze/async", h.AnalyzeAsync).Methods("POST")
	r.HandleFunc("/suggest", h.Suggest).Methods("POST")
	r.HandleFunc("/strategies", h.Strategies).Methods("GET")
	r.HandleFunc("/detect-patterns", h.DetectPatterns).Methods("POST")
	r.HandleFunc("/time-context", h.TimeContext).Methods("GET")
	r.HandleFunc("/fatigue", h.Fatigue).Methods("POST")
	r.HandleFunc("/export/json", h.ExportJSON).Methods("POST")
	r.HandleFunc("/export/csv", h.ExportCSV).Methods("POST")
}

// Analyze ranks the submitted tasks
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req models.AnalyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, ErrCodeInvalidJSON, err.Error())
		return
	}

	result, err := h.service.Analyze(r.Context(), req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Suggest ranks the submitted tasks and returns what to work on today
func (h *AnalysisHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req models.SuggestRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, ErrCodeInvalidJSON, err.Error())
		return
	}

	suggestion, err := h.service.Suggest(r.Context(), req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, suggestion)
}

// Strategies returns the strategy catalog
func (h *AnalysisHandler) Strategies(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"strategies": scoring.Strategies(),
		"default":    scoring.StrategySmartBalance,
	})
}

// DetectPatterns suggests importance and effort from a title and description
func (h *AnalysisHandler) DetectPatterns(w http.ResponseWriter, r *http.Request) {
	var req models.PatternRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, ErrCodeInvalidJSON, err.Error())
		return
	}
	if err := validation.Validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, ErrCodeInvalidRequest, validation.FirstError(err))
		return
	}

	respondJSON(w, http.StatusOK, insights.DetectPatterns(req.Title, req.Description))
}

// TimeContext describes the current time of day in the configured timezone
func (h *AnalysisHandler) TimeContext(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, insights.TimeContextAt(h.service.Now()))
}

// Fatigue estimates fatigue from recently completed work
func (h *AnalysisHandler) Fatigue(w http.ResponseWriter, r *http.Request) {
	var req models.FatigueRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, ErrCodeInvalidJSON, err.Error())
		return
	}
	if err := validation.Validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, ErrCodeInvalidRequest, validation.FirstError(err))
		return
	}

	respondJSON(w, http.StatusOK, insights.Fatigue(req.CompletedTasks, req.CurrentTaskEffort, req.CurrentTaskCategory))
}

// ExportJSON ranks the submitted tasks and returns the result as a JSON attachment
func (h *AnalysisHandler) ExportJSON(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "json", "application/json")
}

// ExportCSV ranks the submitted tasks and returns the result as a CSV attachment
func (h *AnalysisHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "csv", "text/csv")
}

func (h *AnalysisHandler) export(w http.ResponseWriter, r *http.Request, ext, contentType string) {
	var req models.AnalyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, ErrCodeInvalidJSON, err.Error())
		return
	}

	result, err := h.service.Analyze(r.Context(), req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	now := h.service.Now()
	var buf bytes.Buffer
	if ext == "csv" {
		err = export.WriteCSV(&buf, result)
	} else {
		err = export.WriteJSON(&buf, result, now)
	}
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(now, ext)+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("export_write_failed", zap.String("error", logger.SanitizeError(err)))
	}
}

// AnalyzeAsync enqueues a ranking job. The result is published to reply_to.
func (h *AnalysisHandler) AnalyzeAsync(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		respondJSONError(w, http.StatusServiceUnavailable, ErrCodeQueueUnavailable, "Async analysis is not configured")
		return
	}

	var req AsyncRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, ErrCodeInvalidJSON, err.Error())
		return
	}
	if err := validation.Validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, ErrCodeInvalidRequest, validation.FirstError(err))
		return
	}
	if len(req.Tasks) == 0 {
		respondError(w, h.logger, &scoring.Error{Code: scoring.CodeNoTasks, Field: "tasks", Message: "at least one task is required"})
		return
	}

	jobType := req.Type
	if jobType == "" {
		jobType = queue.JobTypeAnalyze
	}
	var payload any = req.AnalyzeRequest
	if jobType == queue.JobTypeSuggest {
		payload = req.SuggestRequest
	}

	job, err := queue.NewJob(jobType, payload, req.ReplyTo)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if h.maxRetries > 0 {
		job.MaxRetries = h.maxRetries
	}
	if err := h.queue.Enqueue(r.Context(), job); err != nil {
		respondError(w, h.logger, err)
		return
	}

	h.logger.Info("analysis_job_enqueued",
		zap.String("job_id", job.ID.String()),
		zap.String("type", string(jobType)),
		zap.Int("task_count", len(req.Tasks)),
		zap.String("request_id", request.RequestID(r.Context())),
	)
	respondJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID.String()})
}
