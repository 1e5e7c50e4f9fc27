package sync

import (
	"time"

	"daylog/internal/domain/sync"
)

type pushInput struct {
	Body sync.PushPayload
}

type pushOutput struct {
	Body sync.PushResponse
}

type pullInput struct {
	Since time.Time `query:"since" doc:"only rows with updatedAt strictly after this cursor are returned"`
}

type pullOutput struct {
	Body sync.PullResponse
}

type fullInput struct{}

type fullOutput struct {
	Body sync.FullResponse
}

type resolveConflictInput struct {
	Body sync.ResolveConflictRequest
}

type resolveConflictOutput struct {
	Body sync.ResolveConflictResponse
}

type listDevicesInput struct{}

type listDevicesOutput struct {
	Body []sync.DeviceWire
}

type removeDeviceInput struct {
	ID string `path:"id"`
}

type removeDeviceOutput struct {
	Body struct {
		Success bool `json:"success"`
	}
}
