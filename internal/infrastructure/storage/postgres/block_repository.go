package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"daylog/internal/domain/block"
)

type BlockRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewBlockRepository(pool *pgxpool.Pool, log *slog.Logger) *BlockRepository {
	return &BlockRepository{pool: pool, log: log.With("component", "block_repository")}
}

const blockColumns = `id, user_id, text, created_at, calendar_event_id, position, version, updated_at, deleted_at, client_id`

func (r *BlockRepository) GetByID(ctx context.Context, userID int, id string) (block.Block, bool, error) {
	const query = `SELECT ` + blockColumns + ` FROM blocks WHERE user_id = $1 AND id = $2`

	b, err := scanBlock(r.pool.QueryRow(ctx, query, userID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return block.Block{}, false, nil
		}
		r.log.Error("get block by id failed", "id", id, "error", err)
		return block.Block{}, false, fmt.Errorf("get block: %w", err)
	}
	return b, true, nil
}

func (r *BlockRepository) PullSince(ctx context.Context, userID int, since time.Time) ([]block.Block, error) {
	const query = `
		SELECT ` + blockColumns + ` FROM blocks
		WHERE user_id = $1 AND updated_at > $2
		ORDER BY created_at ASC, position ASC`

	rows, err := r.pool.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("pull blocks: %w", err)
	}
	defer rows.Close()
	return scanBlocks(rows)
}

func (r *BlockRepository) Full(ctx context.Context, userID int) ([]block.Block, error) {
	const query = `
		SELECT ` + blockColumns + ` FROM blocks
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC, position ASC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("full blocks: %w", err)
	}
	defer rows.Close()
	return scanBlocks(rows)
}

func upsertBlockTx(ctx context.Context, tx pgx.Tx, b block.Block) error {
	const query = `
		INSERT INTO blocks (id, user_id, text, created_at, calendar_event_id, position, version, updated_at, deleted_at, client_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, id) DO UPDATE SET
			text = EXCLUDED.text,
			calendar_event_id = EXCLUDED.calendar_event_id,
			position = EXCLUDED.position,
			version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at,
			deleted_at = EXCLUDED.deleted_at,
			client_id = EXCLUDED.client_id`

	_, err := tx.Exec(ctx, query,
		b.ID, b.UserID, b.Text, b.CreatedAt, b.CalendarEventID, b.Position, b.Version, b.UpdatedAt, b.DeletedAt, b.ClientID)
	return err
}

func scanBlocks(rows pgx.Rows) ([]block.Block, error) {
	var out []block.Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBlock(row interface {
	Scan(dest ...interface{}) error
}) (block.Block, error) {
	var b block.Block
	var deletedAt sql.NullTime
	var calendarEventID sql.NullString

	err := row.Scan(&b.ID, &b.UserID, &b.Text, &b.CreatedAt, &calendarEventID, &b.Position, &b.Version, &b.UpdatedAt, &deletedAt, &b.ClientID)
	if err != nil {
		return block.Block{}, err
	}
	if deletedAt.Valid {
		b.DeletedAt = &deletedAt.Time
	}
	if calendarEventID.Valid {
		b.CalendarEventID = &calendarEventID.String
	}
	return b, nil
}
