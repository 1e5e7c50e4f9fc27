package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"daylog/internal/domain/block"
	"daylog/internal/domain/device"
	"daylog/internal/domain/settings"
	"daylog/internal/domain/sync"
	"daylog/internal/domain/tomorrowtask"
)

// SyncRepository implements sync.Repository. It composes the per-entity
// repositories for reads and owns the single pgx.Tx that ApplyPushPlan uses
// to commit a whole push batch atomically (spec.md §9).
type SyncRepository struct {
	pool     *pgxpool.Pool
	log      *slog.Logger
	blocks   *BlockRepository
	tasks    *TomorrowTaskRepository
	settings *SettingsRepository
}

func NewSyncRepository(pool *pgxpool.Pool, log *slog.Logger) *SyncRepository {
	log = log.With("component", "sync_repository")
	return &SyncRepository{
		pool:     pool,
		log:      log,
		blocks:   NewBlockRepository(pool, log),
		tasks:    NewTomorrowTaskRepository(pool, log),
		settings: NewSettingsRepository(pool, log),
	}
}

func (r *SyncRepository) GetBlockByID(ctx context.Context, userID int, id string) (block.Block, bool, error) {
	return r.blocks.GetByID(ctx, userID, id)
}

func (r *SyncRepository) GetTaskByID(ctx context.Context, userID int, id string) (tomorrowtask.TomorrowTask, bool, error) {
	return r.tasks.GetByID(ctx, userID, id)
}

func (r *SyncRepository) PullBlocks(ctx context.Context, userID int, since time.Time) ([]block.Block, error) {
	return r.blocks.PullSince(ctx, userID, since)
}

func (r *SyncRepository) PullTasks(ctx context.Context, userID int, since time.Time) ([]tomorrowtask.TomorrowTask, error) {
	return r.tasks.PullSince(ctx, userID, since)
}

func (r *SyncRepository) PullSettings(ctx context.Context, userID int, since time.Time) (*settings.Settings, error) {
	return r.settings.PullSince(ctx, userID, since)
}

func (r *SyncRepository) FullBlocks(ctx context.Context, userID int) ([]block.Block, error) {
	return r.blocks.Full(ctx, userID)
}

func (r *SyncRepository) FullTasks(ctx context.Context, userID int) ([]tomorrowtask.TomorrowTask, error) {
	return r.tasks.Full(ctx, userID)
}

func (r *SyncRepository) GetSettings(ctx context.Context, userID int) (*settings.Settings, error) {
	return r.settings.Get(ctx, userID)
}

// ApplyPushPlan commits every accepted row, every keep-both conflict row,
// the conflict ledger entries and the settings upsert in one transaction —
// the server never leaves a push half-applied (spec.md §9).
func (r *SyncRepository) ApplyPushPlan(ctx context.Context, plan sync.PushPlan) (sync.PushOutcome, error) {
	var outcome sync.PushOutcome

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, b := range plan.AcceptedBlock {
			if err := upsertBlockTx(ctx, tx, b); err != nil {
				return fmt.Errorf("upsert accepted block %s: %w", b.ID, err)
			}
			outcome.AppliedBlocks = append(outcome.AppliedBlocks, b.ID)
		}
		for _, b := range plan.ConflictBlock {
			if err := upsertBlockTx(ctx, tx, b); err != nil {
				return fmt.Errorf("insert conflict block %s: %w", b.ID, err)
			}
		}
		for _, t := range plan.AcceptedTask {
			if err := upsertTaskTx(ctx, tx, t); err != nil {
				return fmt.Errorf("upsert accepted task %s: %w", t.ID, err)
			}
			outcome.AppliedTasks = append(outcome.AppliedTasks, t.ID)
		}
		for _, t := range plan.ConflictTask {
			if err := upsertTaskTx(ctx, tx, t); err != nil {
				return fmt.Errorf("insert conflict task %s: %w", t.ID, err)
			}
		}
		for _, c := range plan.Conflicts {
			if err := insertConflictTx(ctx, tx, c); err != nil {
				return fmt.Errorf("insert conflict record %s: %w", c.ID, err)
			}
		}
		if plan.Settings != nil {
			if err := upsertSettingsTx(ctx, tx, *plan.Settings); err != nil {
				return fmt.Errorf("upsert settings: %w", err)
			}
			outcome.AppliedSettings = true
		}
		return nil
	})
	if err != nil {
		r.log.Error("apply push plan failed", "user_id", plan.UserID, "error", err)
		return sync.PushOutcome{}, err
	}

	return outcome, nil
}

const conflictColumns = `id, user_id, kind, record_id, local_version, server_version, local_client_id, server_client_id, created_at, resolved, resolution, resolved_at`

func insertConflictTx(ctx context.Context, tx pgx.Tx, c sync.Conflict) error {
	const query = `
		INSERT INTO conflicts (` + conflictColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := tx.Exec(ctx, query,
		c.ID, c.UserID, c.Kind, c.RecordID, c.LocalVersion, c.ServerVersion,
		c.LocalClientID, c.ServerClientID, c.CreatedAt, c.Resolved, c.Resolution, c.ResolvedAt)
	return err
}

func (r *SyncRepository) GetConflictByID(ctx context.Context, id string) (sync.Conflict, bool, error) {
	const query = `SELECT ` + conflictColumns + ` FROM conflicts WHERE id = $1`

	var c sync.Conflict
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.UserID, &c.Kind, &c.RecordID, &c.LocalVersion, &c.ServerVersion,
		&c.LocalClientID, &c.ServerClientID, &c.CreatedAt, &c.Resolved, &c.Resolution, &c.ResolvedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return sync.Conflict{}, false, nil
		}
		return sync.Conflict{}, false, fmt.Errorf("get conflict: %w", err)
	}
	return c, true, nil
}

func (r *SyncRepository) ResolveConflict(ctx context.Context, id, resolution string) error {
	const query = `
		UPDATE conflicts SET resolved = true, resolution = $1, resolved_at = NOW()
		WHERE id = $2`

	_, err := r.pool.Exec(ctx, query, resolution, id)
	if err != nil {
		return fmt.Errorf("resolve conflict: %w", err)
	}
	return nil
}

func (r *SyncRepository) DeleteResolvedConflictsOlderThan(ctx context.Context, before time.Time) (int64, error) {
	const query = `DELETE FROM conflicts WHERE resolved = true AND resolved_at < $1`

	tag, err := r.pool.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("sweep resolved conflicts: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *SyncRepository) UpsertDevice(ctx context.Context, d device.Device) error {
	const query = `
		INSERT INTO devices (id, user_id, client_id, label, platform, last_seen_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, client_id) DO UPDATE SET
			label = EXCLUDED.label,
			platform = EXCLUDED.platform,
			last_seen_at = EXCLUDED.last_seen_at`

	_, err := r.pool.Exec(ctx, query, d.ID, d.UserID, d.ClientID, d.Label, d.Platform, d.LastSeenAt, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert device: %w", err)
	}
	return nil
}

func (r *SyncRepository) ListDevices(ctx context.Context, userID int) ([]device.Device, error) {
	const query = `
		SELECT id, user_id, client_id, label, platform, last_seen_at, created_at
		FROM devices WHERE user_id = $1 ORDER BY last_seen_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var devices []device.Device
	for rows.Next() {
		var d device.Device
		if err := rows.Scan(&d.ID, &d.UserID, &d.ClientID, &d.Label, &d.Platform, &d.LastSeenAt, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

func (r *SyncRepository) DeleteDevice(ctx context.Context, userID int, deviceID string) error {
	const query = `DELETE FROM devices WHERE id = $1 AND user_id = $2`

	tag, err := r.pool.Exec(ctx, query, deviceID, userID)
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sync.ErrDeviceNotFound
	}
	return nil
}
