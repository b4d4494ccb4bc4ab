package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridline/design-review-service/internal/cache"
	"github.com/gridline/design-review-service/internal/config"
	"github.com/gridline/design-review-service/internal/models"
	"github.com/gridline/design-review-service/internal/prompt"
	"github.com/gridline/design-review-service/internal/reasoning"
	"github.com/gridline/design-review-service/internal/repository"
	"github.com/gridline/design-review-service/internal/review"
)

const enginePayload = `{
	"fields": {"voltage": "0.6/1kV"},
	"validation": [
		{"field": "voltage", "status": "PASS", "expected": "0.6/1kV", "comment": "stated"},
		{"field": "csa", "status": "WARN", "expected": "typically 240", "comment": "inferred"}
	],
	"confidence": {"overall": 0.8},
	"assumptions": []
}`

// fakeEngine scripts successive Review outcomes.
type fakeEngine struct {
	calls     int
	responses []string
	errs      []error
}

func (f *fakeEngine) Review(ctx context.Context, promptText string, params prompt.Params) (string, error) {
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	resp := ""
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	return resp, err
}

// fakeRepo records history writes and can be told to fail them.
type fakeRepo struct {
	records    []*models.HistoryRecord
	createErr  error
	events     []string
	lastEvent  map[string]interface{}
	nextRecord int
}

func (f *fakeRepo) History() repository.HistoryRepositoryInterface { return (*fakeHistory)(f) }
func (f *fakeRepo) Event() repository.EventRepositoryInterface     { return (*fakeEvents)(f) }

type fakeHistory fakeRepo

func (f *fakeHistory) Create(ctx context.Context, rec *models.HistoryRecord) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextRecord++
	rec.ID = fmt.Sprintf("rec-%d", f.nextRecord)
	f.records = append(f.records, rec)
	return rec.ID, nil
}

func (f *fakeHistory) List(ctx context.Context, principal string, limit, offset int) ([]*models.HistoryRecord, error) {
	return f.records, nil
}

func (f *fakeHistory) Rename(ctx context.Context, id, principal, name string) error { return nil }
func (f *fakeHistory) Delete(ctx context.Context, id, principal string) error       { return nil }

type fakeEvents fakeRepo

func (f *fakeEvents) LogEvent(ctx context.Context, level, code, msg string, meta map[string]interface{}) error {
	f.events = append(f.events, code)
	f.lastEvent = meta
	return nil
}

func (f *fakeEvents) RecentEvents(ctx context.Context, limit int) ([]*models.EventLog, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		ReviewTimeout:   5 * time.Second,
		RetryBackoff:    time.Millisecond,
		CacheMaxEntries: 16,
	}
}

func testRequest() models.ValidationRequest {
	return models.ValidationRequest{
		ReqID:     "req-1",
		Principal: "alice",
		DesignInput: models.DesignInput{
			FreeText: "3x240+120mm2 Cu XLPE/PVC 0.6/1kV",
		},
	}
}

func TestProcessValidationSuccess(t *testing.T) {
	engine := &fakeEngine{responses: []string{enginePayload}}
	repo := &fakeRepo{}
	svc := NewValidationService(engine, repo, cache.New(16), testConfig())

	resp, err := svc.ProcessValidation(context.Background(), testRequest(), "test", "worker-1")
	require.NoError(t, err)

	assert.Equal(t, "req-1", resp.ReqID)
	assert.NotEmpty(t, resp.ID)
	assert.False(t, resp.Cached)
	assert.Equal(t, 1, resp.Summary.PassCount)
	assert.Equal(t, 1, resp.Summary.WarnCount)
	require.Len(t, repo.records, 1)
	assert.Equal(t, "alice", repo.records[0].Principal)
	assert.Equal(t, "free_text", repo.records[0].InputType)
}

func TestProcessValidationRejectsEmptyInput(t *testing.T) {
	engine := &fakeEngine{responses: []string{enginePayload}}
	svc := NewValidationService(engine, &fakeRepo{}, cache.New(16), testConfig())

	req := testRequest()
	req.DesignInput = models.DesignInput{}

	_, err := svc.ProcessValidation(context.Background(), req, "test", "worker-1")
	require.ErrorIs(t, err, prompt.ErrNoInput)
	assert.Zero(t, engine.calls, "engine must not be called without input")
}

func TestProcessValidationCacheHitSkipsEngine(t *testing.T) {
	engine := &fakeEngine{responses: []string{enginePayload, enginePayload}}
	repo := &fakeRepo{}
	svc := NewValidationService(engine, repo, cache.New(16), testConfig())

	first, err := svc.ProcessValidation(context.Background(), testRequest(), "test", "worker-1")
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.ProcessValidation(context.Background(), testRequest(), "test", "worker-1")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Zero(t, second.DurationMs, "cache hit spends no engine time")
	assert.Equal(t, 1, engine.calls)

	// Both runs are persisted, hit or miss.
	assert.Len(t, repo.records, 2)
}

func TestProcessValidationSchemaErrorNotRetried(t *testing.T) {
	engine := &fakeEngine{responses: []string{"not json at all", enginePayload}}
	repo := &fakeRepo{}
	svc := NewValidationService(engine, repo, cache.New(16), testConfig())

	_, err := svc.ProcessValidation(context.Background(), testRequest(), "test", "worker-1")
	var schemaErr *review.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, 1, engine.calls, "schema failures must not trigger a retry")
	assert.Contains(t, repo.events, "review.schema")
	assert.Empty(t, repo.records, "rejected output must not be persisted")
}

func TestProcessValidationUpstreamRetriedOnce(t *testing.T) {
	engine := &fakeEngine{
		responses: []string{"", enginePayload},
		errs:      []error{&reasoning.UpstreamError{Cause: errors.New("connection reset")}, nil},
	}
	repo := &fakeRepo{}
	svc := NewValidationService(engine, repo, cache.New(16), testConfig())

	resp, err := svc.ProcessValidation(context.Background(), testRequest(), "test", "worker-1")
	require.NoError(t, err)
	assert.Equal(t, 2, engine.calls)
	assert.False(t, resp.Cached)
}

func TestProcessValidationUpstreamFailsAfterRetry(t *testing.T) {
	upstream := &reasoning.UpstreamError{Cause: errors.New("unreachable")}
	engine := &fakeEngine{errs: []error{upstream, upstream}}
	repo := &fakeRepo{}
	svc := NewValidationService(engine, repo, cache.New(16), testConfig())

	_, err := svc.ProcessValidation(context.Background(), testRequest(), "test", "worker-1")
	var upstreamErr *reasoning.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, 2, engine.calls, "exactly one retry")
	assert.Contains(t, repo.events, "review.upstream")
}

func TestProcessValidationPersistenceFailureSwallowed(t *testing.T) {
	engine := &fakeEngine{responses: []string{enginePayload}}
	repo := &fakeRepo{createErr: errors.New("disk full")}
	svc := NewValidationService(engine, repo, cache.New(16), testConfig())

	resp, err := svc.ProcessValidation(context.Background(), testRequest(), "test", "worker-1")
	require.NoError(t, err, "history write failure must not fail the request")
	assert.Empty(t, resp.ID)
	require.NotNil(t, resp.Result)
	assert.Contains(t, repo.events, "history.create")
}

func TestProcessValidationResultSharedAcrossPrincipals(t *testing.T) {
	engine := &fakeEngine{responses: []string{enginePayload}}
	repo := &fakeRepo{}
	svc := NewValidationService(engine, repo, cache.New(16), testConfig())

	_, err := svc.ProcessValidation(context.Background(), testRequest(), "test", "worker-1")
	require.NoError(t, err)

	other := testRequest()
	other.Principal = "bob"
	resp, err := svc.ProcessValidation(context.Background(), other, "test", "worker-1")
	require.NoError(t, err)
	assert.True(t, resp.Cached, "memoization keys on input, not principal")
	assert.Equal(t, 1, engine.calls)
}
