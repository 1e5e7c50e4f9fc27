package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"daylog/internal/domain/settings"
)

type SettingsRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewSettingsRepository(pool *pgxpool.Pool, log *slog.Logger) *SettingsRepository {
	return &SettingsRepository{pool: pool, log: log.With("component", "settings_repository")}
}

func (r *SettingsRepository) Get(ctx context.Context, userID int) (*settings.Settings, error) {
	const query = `SELECT user_id, theme, day_cut_hour, updated_at FROM settings WHERE user_id = $1`

	var s settings.Settings
	err := r.pool.QueryRow(ctx, query, userID).Scan(&s.UserID, &s.Theme, &s.DayCutHour, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.log.Error("get settings failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &s, nil
}

func (r *SettingsRepository) PullSince(ctx context.Context, userID int, since time.Time) (*settings.Settings, error) {
	const query = `SELECT user_id, theme, day_cut_hour, updated_at FROM settings WHERE user_id = $1 AND updated_at > $2`

	var s settings.Settings
	err := r.pool.QueryRow(ctx, query, userID, since).Scan(&s.UserID, &s.Theme, &s.DayCutHour, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("pull settings: %w", err)
	}
	return &s, nil
}

func upsertSettingsTx(ctx context.Context, tx pgx.Tx, s settings.Settings) error {
	const query = `
		INSERT INTO settings (user_id, theme, day_cut_hour, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			theme = EXCLUDED.theme,
			day_cut_hour = EXCLUDED.day_cut_hour,
			updated_at = EXCLUDED.updated_at`

	_, err := tx.Exec(ctx, query, s.UserID, s.Theme, s.DayCutHour, s.UpdatedAt)
	return err
}
