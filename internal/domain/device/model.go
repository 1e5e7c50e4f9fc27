// Package device defines the per-installation replica registration row
// (SPEC_FULL.md §3, supplementing spec.md from original_source/ prior art).
package device

import "time"

type Platform string

const (
	PlatformWeb     Platform = "web"
	PlatformDesktop Platform = "desktop"
	PlatformMobile  Platform = "mobile"
	PlatformUnknown Platform = "unknown"
)

type Device struct {
	ID         string
	UserID     int
	ClientID   string
	Label      string
	Platform   Platform
	LastSeenAt time.Time
	CreatedAt  time.Time
}
