package tomorrowtask

import "errors"

var (
	ErrNotFound     = errors.New("tomorrow task not found")
	ErrForeignOwner = errors.New("tomorrow task belongs to another user")
)
