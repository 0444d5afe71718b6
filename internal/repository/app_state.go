package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// AppStateRepository keeps small named values such as the last update time.
type AppStateRepository struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

func NewAppStateRepository(db *sqlx.DB, logger zerolog.Logger) *AppStateRepository {
	return &AppStateRepository{db: db, logger: logger}
}

func (r *AppStateRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.GetContext(ctx, &value, `SELECT value FROM app_state WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get app state %s: %w", key, err)
	}
	return value, true, nil
}

func (r *AppStateRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO app_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set app state %s: %w", key, err)
	}
	return nil
}

func (r *AppStateRepository) GetTime(ctx context.Context, key string) (time.Time, bool, error) {
	raw, ok, err := r.Get(ctx, key)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to parse app state %s: %w", key, err)
	}
	return t, true, nil
}

func (r *AppStateRepository) SetTime(ctx context.Context, key string, t time.Time) error {
	return r.Set(ctx, key, t.UTC().Format(time.RFC3339Nano))
}
