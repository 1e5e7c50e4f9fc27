package sync

import (
	"context"
	"time"

	"daylog/internal/domain/block"
	"daylog/internal/domain/device"
	"daylog/internal/domain/settings"
	"daylog/internal/domain/tomorrowtask"
)

// PushPlan is computed entirely by Service.Push before any write happens; the
// repository's job is only to apply it atomically (spec.md §9: "funnel all
// writes into a single unit of work; do not split per collection").
type PushPlan struct {
	UserID        int
	AcceptedBlock []block.Block
	ConflictBlock []block.Block
	AcceptedTask  []tomorrowtask.TomorrowTask
	ConflictTask  []tomorrowtask.TomorrowTask
	Conflicts     []Conflict
	Settings      *settings.Settings
}

type PushOutcome struct {
	AppliedBlocks []string
	AppliedTasks  []string
	AppliedSettings bool
}

// Repository abstracts the authoritative store behind the sync service.
// Reads used for conflict detection (GetBlockByID/GetTaskByID) are not
// required to run inside the same transaction as the write: the
// version+clientId check is the authoritative gate, not serializability
// (spec.md §4.2.1 "Concurrency"). Both reads are scoped to (userID, id) —
// id alone is only unique per user (spec.md §3 invariant 1).
type Repository interface {
	GetBlockByID(ctx context.Context, userID int, id string) (block.Block, bool, error)
	GetTaskByID(ctx context.Context, userID int, id string) (tomorrowtask.TomorrowTask, bool, error)

	// ApplyPushPlan commits the whole plan in one transaction.
	ApplyPushPlan(ctx context.Context, plan PushPlan) (PushOutcome, error)

	PullBlocks(ctx context.Context, userID int, since time.Time) ([]block.Block, error)
	PullTasks(ctx context.Context, userID int, since time.Time) ([]tomorrowtask.TomorrowTask, error)
	PullSettings(ctx context.Context, userID int, since time.Time) (*settings.Settings, error)

	FullBlocks(ctx context.Context, userID int) ([]block.Block, error)
	FullTasks(ctx context.Context, userID int) ([]tomorrowtask.TomorrowTask, error)
	GetSettings(ctx context.Context, userID int) (*settings.Settings, error)

	GetConflictByID(ctx context.Context, id string) (Conflict, bool, error)
	ResolveConflict(ctx context.Context, id, resolution string) error
	DeleteResolvedConflictsOlderThan(ctx context.Context, before time.Time) (int64, error)

	UpsertDevice(ctx context.Context, d device.Device) error
	ListDevices(ctx context.Context, userID int) ([]device.Device, error)
	DeleteDevice(ctx context.Context, userID int, deviceID string) error
}

// Notifier fans out a best-effort wakeup ping to a user's other live
// replicas after a push commits from one clientId (SPEC_FULL.md §4.2.5).
type Notifier interface {
	NotifyUserChanged(userID int, exceptClientID string)
}

// NoopNotifier is used where no websocket hub is wired (e.g. tests).
type NoopNotifier struct{}

func (NoopNotifier) NotifyUserChanged(int, string) {}
