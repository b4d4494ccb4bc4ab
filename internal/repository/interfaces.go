package repository

import (
	"context"
	"errors"

	"github.com/gridline/design-review-service/internal/models"
)

// ErrNotFound reports that no history record exists with the given id.
var ErrNotFound = errors.New("history record not found")

// ErrNotOwner reports that the record exists but belongs to another
// principal. Callers surface this as an authorization failure.
var ErrNotOwner = errors.New("history record belongs to another principal")

// Repository aggregates all repository interfaces
type Repository interface {
	History() HistoryRepositoryInterface
	Event() EventRepositoryInterface
}

// HistoryRepositoryInterface defines review history operations.
// Rename and Delete verify ownership before mutating: a mismatched
// principal yields ErrNotOwner regardless of the record's state.
type HistoryRepositoryInterface interface {
	Create(ctx context.Context, rec *models.HistoryRecord) (string, error)
	List(ctx context.Context, principal string, limit, offset int) ([]*models.HistoryRecord, error)
	Rename(ctx context.Context, id, principal, name string) error
	Delete(ctx context.Context, id, principal string) error
}

// EventRepositoryInterface defines operational event logging
type EventRepositoryInterface interface {
	LogEvent(ctx context.Context, level, code, msg string, meta map[string]interface{}) error
	RecentEvents(ctx context.Context, limit int) ([]*models.EventLog, error)
}
