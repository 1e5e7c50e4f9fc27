package sync

import "time"

// Wire shapes, field names per spec.md §6 verbatim.

type BlockWire struct {
	ID              string     `json:"id"`
	Text            string     `json:"text"`
	CreatedAt       time.Time  `json:"createdAt"`
	CalendarEventID *string    `json:"calendarEventId,omitempty"`
	Position        int        `json:"position"`
	Version         int64      `json:"version"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	DeletedAt       *time.Time `json:"deletedAt,omitempty"`
	ClientID        string     `json:"clientId,omitempty"`
}

type TomorrowTaskWire struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	Time      *string    `json:"time,omitempty"`
	Position  int        `json:"position"`
	Version   int64      `json:"version"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	ClientID  string     `json:"clientId,omitempty"`
}

type SettingsWire struct {
	Theme      string    `json:"theme"`
	DayCutHour int       `json:"dayCutHour"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type PushPayload struct {
	ClientID       string             `json:"clientId"`
	DeviceLabel    string             `json:"deviceLabel,omitempty"`
	DevicePlatform string             `json:"devicePlatform,omitempty"`
	Blocks         []BlockWire        `json:"blocks,omitempty"`
	TomorrowTasks  []TomorrowTaskWire `json:"tomorrowTasks,omitempty"`
	Settings       *SettingsWire      `json:"settings,omitempty"`
}

type ConflictReport struct {
	Type          string `json:"type"`
	ID            string `json:"id"`
	LocalVersion  int64  `json:"localVersion"`
	ServerVersion int64  `json:"serverVersion"`
}

type AppliedSet struct {
	Blocks        []string `json:"blocks"`
	TomorrowTasks []string `json:"tomorrowTasks"`
	Settings      bool     `json:"settings"`
}

type PushResponse struct {
	Success   bool             `json:"success"`
	Applied   AppliedSet       `json:"applied"`
	Conflicts []ConflictReport `json:"conflicts"`
}

type PullResponse struct {
	Blocks        []BlockWire        `json:"blocks"`
	TomorrowTasks []TomorrowTaskWire `json:"tomorrowTasks"`
	Settings      *SettingsWire      `json:"settings"`
	Conflicts     []ConflictReport   `json:"conflicts"`
	SyncedAt      time.Time          `json:"syncedAt"`
}

type FullResponse struct {
	Blocks        []BlockWire        `json:"blocks"`
	TomorrowTasks []TomorrowTaskWire `json:"tomorrowTasks"`
	Settings      *SettingsWire      `json:"settings"`
	SyncedAt      time.Time          `json:"syncedAt"`
}

type ResolveConflictRequest struct {
	ConflictID string `json:"conflictId"`
	Resolution string `json:"resolution"` // kept_local | kept_server | kept_both
}

type ResolveConflictResponse struct {
	Success bool `json:"success"`
}

type DeviceWire struct {
	ID         string    `json:"id"`
	ClientID   string    `json:"clientId"`
	Label      string    `json:"label"`
	Platform   string    `json:"platform"`
	LastSeenAt time.Time `json:"lastSeenAt"`
	CreatedAt  time.Time `json:"createdAt"`
}
