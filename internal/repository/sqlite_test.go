package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridline/design-review-service/internal/models"
	"github.com/gridline/design-review-service/internal/store"
)

func setupRepo(t *testing.T) Repository {
	t.Helper()
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLiteRepository(db)
}

func sampleRecord(principal string) *models.HistoryRecord {
	return &models.HistoryRecord{
		Principal: principal,
		InputType: "free_text",
		Input:     models.DesignInput{FreeText: "3x240+120mm2 Cu XLPE/PVC 0.6/1kV"},
		Result: &models.ReviewResult{
			Fields: map[string]interface{}{"voltage": "0.6/1kV"},
			Validation: []models.ValidationEntry{
				{Field: "voltage", Status: models.StatusPass, Expected: "0.6/1kV", Comment: "stated"},
			},
			Confidence:  models.Confidence{Overall: 0.8},
			Assumptions: []string{},
		},
		Summary:    models.StatusSummary{PassCount: 1},
		DurationMs: 1200,
	}
}

func TestHistoryCreateAndList(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	id, err := repo.History().Create(ctx, sampleRecord("alice"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	records, err := repo.History().List(ctx, "alice", 10, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "alice", rec.Principal)
	assert.Equal(t, "free_text", rec.InputType)
	assert.Equal(t, "3x240+120mm2 Cu XLPE/PVC 0.6/1kV", rec.Input.FreeText)
	require.NotNil(t, rec.Result)
	assert.Equal(t, 0.8, rec.Result.Confidence.Overall)
	assert.Equal(t, 1, rec.Summary.PassCount)
	assert.Equal(t, int64(1200), rec.DurationMs)
}

func TestHistoryListIsolatedByPrincipal(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	_, err := repo.History().Create(ctx, sampleRecord("alice"))
	require.NoError(t, err)
	_, err = repo.History().Create(ctx, sampleRecord("bob"))
	require.NoError(t, err)

	records, err := repo.History().List(ctx, "alice", 10, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "alice", records[0].Principal)
}

func TestHistoryListNewestFirst(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	older := sampleRecord("alice")
	older.CreatedAt = time.Now().Add(-time.Hour)
	olderID, err := repo.History().Create(ctx, older)
	require.NoError(t, err)

	newer := sampleRecord("alice")
	newerID, err := repo.History().Create(ctx, newer)
	require.NoError(t, err)

	records, err := repo.History().List(ctx, "alice", 10, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, newerID, records[0].ID)
	assert.Equal(t, olderID, records[1].ID)
}

func TestHistoryListPagination(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rec := sampleRecord("alice")
		rec.CreatedAt = time.Now().Add(time.Duration(i) * time.Second)
		_, err := repo.History().Create(ctx, rec)
		require.NoError(t, err)
	}

	page, err := repo.History().List(ctx, "alice", 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := repo.History().List(ctx, "alice", 10, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 3)
}

func TestRename(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	id, err := repo.History().Create(ctx, sampleRecord("alice"))
	require.NoError(t, err)

	require.NoError(t, repo.History().Rename(ctx, id, "alice", "feeder run A"))

	records, err := repo.History().List(ctx, "alice", 10, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "feeder run A", records[0].DisplayName)
}

func TestRenameOwnershipEnforced(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	id, err := repo.History().Create(ctx, sampleRecord("alice"))
	require.NoError(t, err)

	err = repo.History().Rename(ctx, id, "mallory", "stolen")
	assert.ErrorIs(t, err, ErrNotOwner)

	err = repo.History().Rename(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV", "alice", "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	id, err := repo.History().Create(ctx, sampleRecord("alice"))
	require.NoError(t, err)

	require.NoError(t, repo.History().Delete(ctx, id, "alice"))

	records, err := repo.History().List(ctx, "alice", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, records)

	// Second delete reports not found, not success.
	assert.ErrorIs(t, repo.History().Delete(ctx, id, "alice"), ErrNotFound)
}

func TestDeleteOwnershipEnforced(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	id, err := repo.History().Create(ctx, sampleRecord("alice"))
	require.NoError(t, err)

	assert.ErrorIs(t, repo.History().Delete(ctx, id, "mallory"), ErrNotOwner)

	// Record untouched.
	records, err := repo.History().List(ctx, "alice", 10, 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestEventLogRoundTrip(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Event().LogEvent(ctx, "info", "startup", "Server starting", map[string]interface{}{"addr": ":8082"}))
	require.NoError(t, repo.Event().LogEvent(ctx, "error", "review.upstream", "Engine call failed", nil))

	events, err := repo.Event().RecentEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Newest first.
	assert.Equal(t, "review.upstream", events[0].Code)
	assert.Equal(t, "startup", events[1].Code)
	assert.Contains(t, events[1].Meta, ":8082")
}
