package sync

import "errors"

var (
	ErrConflictNotFound = errors.New("conflict not found")
	ErrDeviceNotFound   = errors.New("device not found")
	ErrNotAuthenticated = errors.New("user not authenticated")
)
