package client

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStorage is the client's local cache: one row per block/task, a
// single settings row, and a key/value table for sync bookkeeping (the sync
// cursor; the client id and the encrypted token are kept in separate files
// under the config dir). Mirrors the server's block/tomorrow_tasks/
// settings schema closely enough that Push/Pull payloads map 1:1.
type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	storage := &SQLiteStorage{db: db}
	if err := storage.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init tables: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) initTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS blocks (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			calendar_event_id TEXT,
			position INTEGER NOT NULL,
			version INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME NOT NULL,
			deleted_at DATETIME,
			dirty BOOLEAN NOT NULL DEFAULT 1,
			sync_status TEXT NOT NULL DEFAULT 'pending',
			server_version INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_blocks_dirty ON blocks(dirty);
		CREATE INDEX IF NOT EXISTS idx_blocks_deleted ON blocks(deleted_at);

		CREATE TABLE IF NOT EXISTS tomorrow_tasks (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			time TEXT,
			position INTEGER NOT NULL,
			version INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME NOT NULL,
			deleted_at DATETIME,
			dirty BOOLEAN NOT NULL DEFAULT 1,
			sync_status TEXT NOT NULL DEFAULT 'pending',
			server_version INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_tasks_dirty ON tomorrow_tasks(dirty);

		CREATE TABLE IF NOT EXISTS settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			theme TEXT NOT NULL DEFAULT 'system',
			day_cut_hour INTEGER NOT NULL DEFAULT 4,
			updated_at DATETIME NOT NULL,
			dirty BOOLEAN NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- key/value bookkeeping (sync cursor) ---

func (s *SQLiteStorage) GetKV(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get kv %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteStorage) SetKV(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set kv %s: %w", key, err)
	}
	return nil
}

// --- blocks ---

const blockColumns = "id, text, created_at, calendar_event_id, position, version, updated_at, deleted_at, dirty, sync_status, server_version"

func scanBlock(row interface{ Scan(...any) error }) (Block, error) {
	var b Block
	err := row.Scan(&b.ID, &b.Text, &b.CreatedAt, &b.CalendarEventID, &b.Position, &b.Version, &b.UpdatedAt, &b.DeletedAt, &b.Dirty, &b.SyncStatus, &b.ServerVersion)
	return b, err
}

func (s *SQLiteStorage) UpsertBlock(b Block) error {
	_, err := s.db.Exec(`
		INSERT INTO blocks (id, text, created_at, calendar_event_id, position, version, updated_at, deleted_at, dirty, sync_status, server_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text, calendar_event_id = excluded.calendar_event_id,
			position = excluded.position, version = excluded.version,
			updated_at = excluded.updated_at, deleted_at = excluded.deleted_at, dirty = excluded.dirty,
			sync_status = excluded.sync_status, server_version = excluded.server_version
	`, b.ID, b.Text, b.CreatedAt, b.CalendarEventID, b.Position, b.Version, b.UpdatedAt, b.DeletedAt, b.Dirty, b.SyncStatus, b.ServerVersion)
	if err != nil {
		return fmt.Errorf("upsert block: %w", err)
	}
	return nil
}

// GetBlock looks up a single local block by id, returning (nil, nil) if it
// isn't cached yet. The pull-side merge algorithm (spec.md §4.3) needs this
// to decide whether an incoming row is new, or collides with a local edit.
func (s *SQLiteStorage) GetBlock(id string) (*Block, error) {
	b, err := scanBlock(s.db.QueryRow("SELECT "+blockColumns+" FROM blocks WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get block: %w", err)
	}
	return &b, nil
}

func (s *SQLiteStorage) ListBlocks(includeDeleted bool) ([]Block, error) {
	query := "SELECT " + blockColumns + " FROM blocks"
	if !includeDeleted {
		query += " WHERE deleted_at IS NULL"
	}
	query += " ORDER BY created_at ASC, position ASC"

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	defer rows.Close()

	var blocks []Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

func (s *SQLiteStorage) ListDirtyBlocks() ([]Block, error) {
	rows, err := s.db.Query("SELECT " + blockColumns + " FROM blocks WHERE dirty = 1")
	if err != nil {
		return nil, fmt.Errorf("list dirty blocks: %w", err)
	}
	defer rows.Close()

	var blocks []Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

// ClearBlockDirty marks a pushed block accepted by the server: no more
// pending edit, and version (the version that was pushed) becomes both the
// local and the cached-server version. The server stores the accepted row
// one version higher; that copy replaces this one on the next pull
// (spec.md §3 Lifecycle, "synced").
func (s *SQLiteStorage) ClearBlockDirty(id string, version int64) error {
	_, err := s.db.Exec("UPDATE blocks SET dirty = 0, version = ?, sync_status = ?, server_version = ? WHERE id = ?", version, StatusSynced, version, id)
	if err != nil {
		return fmt.Errorf("clear block dirty: %w", err)
	}
	return nil
}

// MarkBlockConflict records that a pushed block was rejected: the local
// edit is kept (still dirty, still pending a resend) but the cached server
// version advances so the next pull/push round can tell the conflict apart
// from a plain race (spec.md §4.2.1/§4.3).
func (s *SQLiteStorage) MarkBlockConflict(id string, serverVersion int64) error {
	_, err := s.db.Exec("UPDATE blocks SET sync_status = ?, server_version = ? WHERE id = ?", StatusConflict, serverVersion, id)
	if err != nil {
		return fmt.Errorf("mark block conflict: %w", err)
	}
	return nil
}

// --- tomorrow tasks ---

const taskColumns = "id, text, time, position, version, updated_at, deleted_at, dirty, sync_status, server_version"

func scanTask(row interface{ Scan(...any) error }) (TomorrowTask, error) {
	var t TomorrowTask
	err := row.Scan(&t.ID, &t.Text, &t.Time, &t.Position, &t.Version, &t.UpdatedAt, &t.DeletedAt, &t.Dirty, &t.SyncStatus, &t.ServerVersion)
	return t, err
}

func (s *SQLiteStorage) UpsertTask(t TomorrowTask) error {
	_, err := s.db.Exec(`
		INSERT INTO tomorrow_tasks (id, text, time, position, version, updated_at, deleted_at, dirty, sync_status, server_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text, time = excluded.time, position = excluded.position,
			version = excluded.version, updated_at = excluded.updated_at,
			deleted_at = excluded.deleted_at, dirty = excluded.dirty,
			sync_status = excluded.sync_status, server_version = excluded.server_version
	`, t.ID, t.Text, t.Time, t.Position, t.Version, t.UpdatedAt, t.DeletedAt, t.Dirty, t.SyncStatus, t.ServerVersion)
	if err != nil {
		return fmt.Errorf("upsert task: %w", err)
	}
	return nil
}

// GetTask mirrors GetBlock for tomorrow tasks.
func (s *SQLiteStorage) GetTask(id string) (*TomorrowTask, error) {
	t, err := scanTask(s.db.QueryRow("SELECT "+taskColumns+" FROM tomorrow_tasks WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &t, nil
}

func (s *SQLiteStorage) ListTasks(includeDeleted bool) ([]TomorrowTask, error) {
	query := "SELECT " + taskColumns + " FROM tomorrow_tasks"
	if !includeDeleted {
		query += " WHERE deleted_at IS NULL"
	}
	query += " ORDER BY position ASC"

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []TomorrowTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (s *SQLiteStorage) ListDirtyTasks() ([]TomorrowTask, error) {
	rows, err := s.db.Query("SELECT " + taskColumns + " FROM tomorrow_tasks WHERE dirty = 1")
	if err != nil {
		return nil, fmt.Errorf("list dirty tasks: %w", err)
	}
	defer rows.Close()

	var tasks []TomorrowTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// ClearTaskDirty mirrors ClearBlockDirty for tomorrow tasks.
func (s *SQLiteStorage) ClearTaskDirty(id string, version int64) error {
	_, err := s.db.Exec("UPDATE tomorrow_tasks SET dirty = 0, version = ?, sync_status = ?, server_version = ? WHERE id = ?", version, StatusSynced, version, id)
	if err != nil {
		return fmt.Errorf("clear task dirty: %w", err)
	}
	return nil
}

// MarkTaskConflict mirrors MarkBlockConflict for tomorrow tasks.
func (s *SQLiteStorage) MarkTaskConflict(id string, serverVersion int64) error {
	_, err := s.db.Exec("UPDATE tomorrow_tasks SET sync_status = ?, server_version = ? WHERE id = ?", StatusConflict, serverVersion, id)
	if err != nil {
		return fmt.Errorf("mark task conflict: %w", err)
	}
	return nil
}

// --- settings ---

func (s *SQLiteStorage) GetSettings() (*Settings, error) {
	var st Settings
	err := s.db.QueryRow("SELECT theme, day_cut_hour, updated_at, dirty FROM settings WHERE id = 1").
		Scan(&st.Theme, &st.DayCutHour, &st.UpdatedAt, &st.Dirty)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &st, nil
}

func (s *SQLiteStorage) PutSettings(st Settings) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (id, theme, day_cut_hour, updated_at, dirty)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			theme = excluded.theme, day_cut_hour = excluded.day_cut_hour,
			updated_at = excluded.updated_at, dirty = excluded.dirty
	`, st.Theme, st.DayCutHour, st.UpdatedAt, st.Dirty)
	if err != nil {
		return fmt.Errorf("put settings: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) ClearSettingsDirty() error {
	_, err := s.db.Exec("UPDATE settings SET dirty = 0 WHERE id = 1")
	return err
}

// --- sync cursor ---

const kvKeyCursor = "sync_cursor"

func (s *SQLiteStorage) GetCursor() (time.Time, error) {
	value, ok, err := s.GetKV(kvKeyCursor)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func (s *SQLiteStorage) SetCursor(t time.Time) error {
	return s.SetKV(kvKeyCursor, t.UTC().Format(time.RFC3339Nano))
}
