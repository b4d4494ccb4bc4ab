package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/gridline/design-review-service/internal/models"
	"github.com/gridline/design-review-service/internal/store"
)

// SQLiteRepository implements Repository using SQLite
type SQLiteRepository struct {
	db          *store.DB
	historyRepo HistoryRepositoryInterface
	eventRepo   EventRepositoryInterface
}

func NewSQLiteRepository(db *store.DB) Repository {
	return &SQLiteRepository{
		db:          db,
		historyRepo: &SQLiteHistoryRepository{db: db},
		eventRepo:   &SQLiteEventRepository{db: db},
	}
}

func (r *SQLiteRepository) History() HistoryRepositoryInterface {
	return r.historyRepo
}

func (r *SQLiteRepository) Event() EventRepositoryInterface {
	return r.eventRepo
}

// SQLiteHistoryRepository persists per-principal review runs
type SQLiteHistoryRepository struct {
	db *store.DB
}

func (r *SQLiteHistoryRepository) Create(ctx context.Context, rec *models.HistoryRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = ulid.Make().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	input, err := json.Marshal(rec.Input)
	if err != nil {
		return "", err
	}
	var fields, result []byte
	if rec.Result != nil {
		if fields, err = json.Marshal(rec.Result.Fields); err != nil {
			return "", err
		}
		if result, err = json.Marshal(rec.Result); err != nil {
			return "", err
		}
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO records(
		id, principal, input_type, original_input, fields_json, result_json,
		pass_count, warn_count, fail_count, dur_ms, display_name, created_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.Principal, rec.InputType, string(input), string(fields), string(result),
		rec.Summary.PassCount, rec.Summary.WarnCount, rec.Summary.FailCount,
		float64(rec.DurationMs), rec.DisplayName,
		float64(rec.CreatedAt.UnixNano())/1e9)
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (r *SQLiteHistoryRepository) List(ctx context.Context, principal string, limit, offset int) ([]*models.HistoryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `SELECT
		id, principal, input_type, original_input, result_json,
		pass_count, warn_count, fail_count, dur_ms, display_name, created_at
		FROM records WHERE principal = ?
		ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		principal, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.HistoryRecord
	for rows.Next() {
		var rec models.HistoryRecord
		var input, result sql.NullString
		var durMs, tsFloat float64

		if err := rows.Scan(
			&rec.ID, &rec.Principal, &rec.InputType, &input, &result,
			&rec.Summary.PassCount, &rec.Summary.WarnCount, &rec.Summary.FailCount,
			&durMs, &rec.DisplayName, &tsFloat,
		); err != nil {
			return nil, err
		}

		rec.DurationMs = int64(durMs)
		rec.CreatedAt = time.Unix(0, int64(tsFloat*1e9))
		if input.Valid && input.String != "" {
			_ = json.Unmarshal([]byte(input.String), &rec.Input)
		}
		if result.Valid && result.String != "" {
			_ = json.Unmarshal([]byte(result.String), &rec.Result)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

func (r *SQLiteHistoryRepository) Rename(ctx context.Context, id, principal, name string) error {
	if err := r.checkOwner(ctx, id, principal); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `UPDATE records SET display_name = ? WHERE id = ?`, name, id)
	return err
}

func (r *SQLiteHistoryRepository) Delete(ctx context.Context, id, principal string) error {
	if err := r.checkOwner(ctx, id, principal); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	return err
}

func (r *SQLiteHistoryRepository) checkOwner(ctx context.Context, id, principal string) error {
	var owner string
	err := r.db.QueryRowContext(ctx, `SELECT principal FROM records WHERE id = ?`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if owner != principal {
		return ErrNotOwner
	}
	return nil
}

// SQLiteEventRepository handles operational event logging
type SQLiteEventRepository struct {
	db *store.DB
}

func (r *SQLiteEventRepository) LogEvent(ctx context.Context, level, code, msg string, meta map[string]interface{}) error {
	r.db.Event(level, code, msg, meta)
	return nil
}

func (r *SQLiteEventRepository) RecentEvents(ctx context.Context, limit int) ([]*models.EventLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT ts, level, code, msg, meta FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.EventLog
	for rows.Next() {
		var ev models.EventLog
		var tsFloat float64
		if err := rows.Scan(&tsFloat, &ev.Level, &ev.Code, &ev.Msg, &ev.Meta); err == nil {
			ev.Timestamp = time.Unix(0, int64(tsFloat*1e9))
			events = append(events, &ev)
		}
	}
	return events, rows.Err()
}
