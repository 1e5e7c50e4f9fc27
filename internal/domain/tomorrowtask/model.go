// Package tomorrowtask defines the "tomorrow task" entity: an item in the
// user's next-day queue that the editor UI rolls into blocks at day boundary.
package tomorrowtask

import "time"

type TomorrowTask struct {
	ID        string
	UserID    int
	Text      string
	Time      *string // "HH:MM", optional
	Position  int
	Version   int64
	UpdatedAt time.Time
	DeletedAt *time.Time
	ClientID  string
}

func (t TomorrowTask) IsTombstone() bool {
	return t.DeletedAt != nil
}

// Incoming mirrors block.Incoming for the tomorrow-task collection; there is
// no createdAt in this collection's wire shape per spec.md §3/§6.
type Incoming struct {
	ID        string
	Text      string
	Time      *string
	Position  int
	Version   int64
	UpdatedAt time.Time
	DeletedAt *time.Time
	ClientID  string
}
