package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gridline/design-review-service/internal/cache"
	"github.com/gridline/design-review-service/internal/config"
	"github.com/gridline/design-review-service/internal/models"
	"github.com/gridline/design-review-service/internal/prompt"
	"github.com/gridline/design-review-service/internal/reasoning"
	"github.com/gridline/design-review-service/internal/repository"
	"github.com/gridline/design-review-service/internal/review"
)

// ValidationResponse is the envelope returned to callers on both the
// HTTP and NATS surfaces. ID is the history record identifier; it is
// empty when the best-effort persistence write failed.
type ValidationResponse struct {
	ReqID         string               `json:"req_id"`
	ID            string               `json:"id,omitempty"`
	Timestamp     time.Time            `json:"timestamp"`
	OriginalInput models.DesignInput   `json:"original_input"`
	Result        *models.ReviewResult `json:"result,omitempty"`
	Summary       models.StatusSummary `json:"summary"`
	DurationMs    int64                `json:"duration_ms"`
	Cached        bool                 `json:"cached"`
	Error         string               `json:"error,omitempty"`
}

// ValidationService runs the review pipeline: normalize, cache lookup,
// engine call, schema enforcement, memoization, history persistence.
type ValidationService struct {
	engine reasoning.Engine
	repo   repository.Repository
	cache  *cache.Cache
	cfg    *config.Config
}

func NewValidationService(engine reasoning.Engine, repo repository.Repository, memo *cache.Cache, cfg *config.Config) *ValidationService {
	return &ValidationService{
		engine: engine,
		repo:   repo,
		cache:  memo,
		cfg:    cfg,
	}
}

// ProcessValidation executes one request/response cycle.
//
// Failure states: a normalization failure surfaces prompt.ErrNoInput, an
// engine failure *reasoning.UpstreamError, a structurally invalid payload
// *review.SchemaError. A history write failure is logged and swallowed;
// the caller still receives the validated result, with an empty record id.
func (s *ValidationService) ProcessValidation(ctx context.Context, req models.ValidationRequest, source, workerID string) (*ValidationResponse, error) {
	canonical, err := prompt.Normalize(req.StructuredData, req.FreeText)
	if err != nil {
		return nil, err
	}

	traceID := req.TraceID
	if traceID == "" {
		traceID = req.ReqID
	}

	fingerprint := prompt.Fingerprint(canonical)
	result, cached := s.cache.Get(fingerprint)
	var engineDur time.Duration

	if !cached {
		raw, dur, err := s.callEngine(ctx, prompt.BuildPrompt(canonical), req.ReqID, workerID)
		engineDur = dur
		if err != nil {
			s.repo.Event().LogEvent(ctx, "error", "review.upstream", "Reasoning engine call failed", map[string]interface{}{
				"req_id": req.ReqID, "trace_id": traceID, "source": source, "error": err.Error(),
			})
			return nil, err
		}

		result, err = review.Parse(raw)
		if err != nil {
			// Retrying a schema failure would resend the same prompt to a
			// non-deterministic producer; it is surfaced, not retried.
			slog.Error("Engine output rejected by schema validation",
				"req_id", req.ReqID,
				"trace_id", traceID,
				"error", err)
			s.repo.Event().LogEvent(ctx, "error", "review.schema", "Engine output failed schema validation", map[string]interface{}{
				"req_id": req.ReqID, "trace_id": traceID, "source": source, "error": err.Error(),
			})
			return nil, err
		}

		s.cache.Put(fingerprint, result)
	}

	summary := review.Summarize(result.Validation)

	rec := &models.HistoryRecord{
		Principal:  req.Principal,
		InputType:  req.DesignInput.InputType(),
		Input:      req.DesignInput,
		Result:     result,
		Summary:    summary,
		DurationMs: engineDur.Milliseconds(),
		CreatedAt:  time.Now(),
	}

	// Best-effort secondary write: the verdict is already in hand, so a
	// persistence failure must not fail the request.
	recordID, perr := s.repo.History().Create(ctx, rec)
	if perr != nil {
		slog.Error("Failed to persist history record",
			"req_id", req.ReqID,
			"trace_id", traceID,
			"principal", req.Principal,
			"error", perr)
		s.repo.Event().LogEvent(ctx, "error", "history.create", "History write failed", map[string]interface{}{
			"req_id": req.ReqID, "trace_id": traceID, "principal": req.Principal, "error": perr.Error(),
		})
		recordID = ""
	}

	return &ValidationResponse{
		ReqID:         req.ReqID,
		ID:            recordID,
		Timestamp:     time.Now(),
		OriginalInput: req.DesignInput,
		Result:        result,
		Summary:       summary,
		DurationMs:    engineDur.Milliseconds(),
		Cached:        cached,
	}, nil
}

// callEngine performs the external call under a bounded timeout, with a
// single retry for transport-level failures. Latency is measured from
// the start of the call to the moment it returns; on retry the
// successful attempt's duration wins.
func (s *ValidationService) callEngine(ctx context.Context, promptText, reqID, workerID string) (string, time.Duration, error) {
	raw, dur, err := s.attempt(ctx, promptText)
	if err == nil {
		return raw, dur, nil
	}

	var upstream *reasoning.UpstreamError
	if !errors.As(err, &upstream) || ctx.Err() != nil {
		return "", dur, err
	}

	slog.Warn("Reasoning engine call failed, retrying once",
		"req_id", reqID,
		"worker_id", workerID,
		"backoff", s.cfg.RetryBackoff,
		"error", err)

	select {
	case <-time.After(s.cfg.RetryBackoff):
	case <-ctx.Done():
		return "", dur, &reasoning.UpstreamError{Cause: ctx.Err()}
	}

	return s.attempt(ctx, promptText)
}

func (s *ValidationService) attempt(ctx context.Context, promptText string) (string, time.Duration, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ReviewTimeout)
	defer cancel()

	start := time.Now()
	raw, err := s.engine.Review(callCtx, promptText, prompt.DefaultParams())
	return raw, time.Since(start), err
}

// ListHistory returns the principal's records, newest first.
func (s *ValidationService) ListHistory(ctx context.Context, principal string, limit, offset int) ([]*models.HistoryRecord, error) {
	return s.repo.History().List(ctx, principal, limit, offset)
}

// RenameRecord sets a record's display name, subject to ownership.
func (s *ValidationService) RenameRecord(ctx context.Context, id, principal, name string) error {
	return s.repo.History().Rename(ctx, id, principal, name)
}

// DeleteRecord removes a record, subject to ownership.
func (s *ValidationService) DeleteRecord(ctx context.Context, id, principal string) error {
	return s.repo.History().Delete(ctx, id, principal)
}

// RecentEvents returns the operational event tail.
func (s *ValidationService) RecentEvents(ctx context.Context, limit int) ([]*models.EventLog, error) {
	return s.repo.Event().RecentEvents(ctx, limit)
}

// CacheStats exposes memo cache counters for health reporting.
func (s *ValidationService) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// GetRepository returns the repository for use by other services
func (s *ValidationService) GetRepository() repository.Repository {
	return s.repo
}
