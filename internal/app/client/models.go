package client

import "time"

// SyncStatus is the client-local lifecycle tag a Block/TomorrowTask carries
// between syncs (spec.md §3 Lifecycle, GLOSSARY).
type SyncStatus string

const (
	// StatusPending means the record has a local change the server hasn't
	// accepted yet.
	StatusPending SyncStatus = "pending"
	// StatusSynced means the local copy matches what the server last
	// confirmed.
	StatusSynced SyncStatus = "synced"
	// StatusConflict means a pull observed a server version newer than the
	// one this pending edit was based on; the local edit is kept, awaiting
	// resolution (spec.md §4.3).
	StatusConflict SyncStatus = "conflict"
)

// Block mirrors daylog/internal/domain/block.Block on the client side, plus
// the bookkeeping the local SQLite store needs to run the merge algorithm:
// Dirty selects rows for the next push, SyncStatus/ServerVersion track where
// this copy stands relative to the server's (spec.md §3, §4.3).
type Block struct {
	ID              string
	Text            string
	CreatedAt       time.Time
	CalendarEventID *string
	Position        int
	Version         int64
	UpdatedAt       time.Time
	DeletedAt       *time.Time
	Dirty           bool
	SyncStatus      SyncStatus
	ServerVersion   int64
}

func (b Block) IsTombstone() bool {
	return b.DeletedAt != nil
}

// TomorrowTask mirrors daylog/internal/domain/tomorrowtask.TomorrowTask.
type TomorrowTask struct {
	ID            string
	Text          string
	Time          *string
	Position      int
	Version       int64
	UpdatedAt     time.Time
	DeletedAt     *time.Time
	Dirty         bool
	SyncStatus    SyncStatus
	ServerVersion int64
}

func (t TomorrowTask) IsTombstone() bool {
	return t.DeletedAt != nil
}

// Settings mirrors daylog/internal/domain/settings.Settings; it has no
// version counter, it is last-writer-wins by UpdatedAt.
type Settings struct {
	Theme      string
	DayCutHour int
	UpdatedAt  time.Time
	Dirty      bool
}

// Conflict is the local record of a server-reported conflict awaiting
// resolution, mirroring sync.ConflictReport plus the user-facing flag that
// it still needs a decision.
type Conflict struct {
	Type          string
	ID            string
	LocalVersion  int64
	ServerVersion int64
	Resolved      bool
}

// Device mirrors sync.DeviceWire for the "daylog device list" command.
type Device struct {
	ID         string
	ClientID   string
	Label      string
	Platform   string
	LastSeenAt time.Time
	CreatedAt  time.Time
}
