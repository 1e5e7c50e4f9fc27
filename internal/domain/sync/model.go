// Package sync implements the server sync service: push/pull/full/resolve-
// conflict, the conflict-detection rule, and conflict/device bookkeeping
// (spec.md §4.2, SPEC_FULL.md §4.2/§3).
package sync

import "time"

type ConflictKind string

const (
	ConflictBlock ConflictKind = "block"
	ConflictTask  ConflictKind = "tomorrow_task"
)

// Conflict is the durable counterpart of the push response's conflicts[]
// entry (SPEC_FULL.md §3). It never changes the data rows themselves — the
// keep-both rule already settled those at push time — it only tracks that a
// conflict happened and, later, how a human chose to think about it.
type Conflict struct {
	ID             string
	UserID         int
	Kind           ConflictKind
	RecordID       string
	LocalVersion   int64
	ServerVersion  int64
	LocalClientID  string
	ServerClientID string
	CreatedAt      time.Time
	Resolved       bool
	Resolution     string
	ResolvedAt     *time.Time
}

// ServiceConfig carries the sync service's tunables. ConflictTTL drives the
// cron sweep in internal/infrastructure/cron.
type ServiceConfig struct {
	ConflictTTL time.Duration
}

func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{ConflictTTL: 7 * 24 * time.Hour}
}
