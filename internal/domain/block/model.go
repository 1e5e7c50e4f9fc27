// Package block defines the "block" entity: one line of a user's log.
package block

import "time"

// Block is the server-authoritative shape of one log line. The zero value of
// DeletedAt means the block is live; a non-nil DeletedAt is a tombstone and is
// never cleared again (spec invariant: once deleted, a reinsert with the same
// id is a conflict, not an undelete).
type Block struct {
	ID              string
	UserID          int
	Text            string
	CreatedAt       time.Time
	Position        int
	Version         int64
	UpdatedAt       time.Time
	DeletedAt       *time.Time
	ClientID        string
	CalendarEventID *string
}

func (b Block) IsTombstone() bool {
	return b.DeletedAt != nil
}

// Incoming is what a push payload carries for one block: everything the
// client knows, before the server has assigned/verified UserID or applied the
// conflict rule. Fields absent on the wire fall back to spec.md §9 defaults.
type Incoming struct {
	ID              string
	Text            string
	CreatedAt       time.Time
	Position        int
	Version         int64
	UpdatedAt       time.Time
	DeletedAt       *time.Time
	ClientID        string
	CalendarEventID *string
}
