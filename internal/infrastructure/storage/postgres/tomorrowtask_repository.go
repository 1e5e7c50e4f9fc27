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

	"daylog/internal/domain/tomorrowtask"
)

type TomorrowTaskRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewTomorrowTaskRepository(pool *pgxpool.Pool, log *slog.Logger) *TomorrowTaskRepository {
	return &TomorrowTaskRepository{pool: pool, log: log.With("component", "tomorrowtask_repository")}
}

const taskColumns = `id, user_id, text, time, position, version, updated_at, deleted_at, client_id`

func (r *TomorrowTaskRepository) GetByID(ctx context.Context, userID int, id string) (tomorrowtask.TomorrowTask, bool, error) {
	const query = `SELECT ` + taskColumns + ` FROM tomorrow_tasks WHERE user_id = $1 AND id = $2`

	t, err := scanTask(r.pool.QueryRow(ctx, query, userID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tomorrowtask.TomorrowTask{}, false, nil
		}
		r.log.Error("get task by id failed", "id", id, "error", err)
		return tomorrowtask.TomorrowTask{}, false, fmt.Errorf("get task: %w", err)
	}
	return t, true, nil
}

func (r *TomorrowTaskRepository) PullSince(ctx context.Context, userID int, since time.Time) ([]tomorrowtask.TomorrowTask, error) {
	const query = `
		SELECT ` + taskColumns + ` FROM tomorrow_tasks
		WHERE user_id = $1 AND updated_at > $2
		ORDER BY position ASC`

	rows, err := r.pool.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("pull tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *TomorrowTaskRepository) Full(ctx context.Context, userID int) ([]tomorrowtask.TomorrowTask, error) {
	const query = `
		SELECT ` + taskColumns + ` FROM tomorrow_tasks
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY position ASC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("full tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func upsertTaskTx(ctx context.Context, tx pgx.Tx, t tomorrowtask.TomorrowTask) error {
	const query = `
		INSERT INTO tomorrow_tasks (id, user_id, text, time, position, version, updated_at, deleted_at, client_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, id) DO UPDATE SET
			text = EXCLUDED.text,
			time = EXCLUDED.time,
			position = EXCLUDED.position,
			version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at,
			deleted_at = EXCLUDED.deleted_at,
			client_id = EXCLUDED.client_id`

	_, err := tx.Exec(ctx, query,
		t.ID, t.UserID, t.Text, t.Time, t.Position, t.Version, t.UpdatedAt, t.DeletedAt, t.ClientID)
	return err
}

func scanTasks(rows pgx.Rows) ([]tomorrowtask.TomorrowTask, error) {
	var out []tomorrowtask.TomorrowTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTask(row interface {
	Scan(dest ...interface{}) error
}) (tomorrowtask.TomorrowTask, error) {
	var t tomorrowtask.TomorrowTask
	var deletedAt sql.NullTime
	var taskTime sql.NullString

	err := row.Scan(&t.ID, &t.UserID, &t.Text, &taskTime, &t.Position, &t.Version, &t.UpdatedAt, &deletedAt, &t.ClientID)
	if err != nil {
		return tomorrowtask.TomorrowTask{}, err
	}
	if deletedAt.Valid {
		t.DeletedAt = &deletedAt.Time
	}
	if taskTime.Valid {
		t.Time = &taskTime.String
	}
	return t, nil
}
