package block

import "errors"

var (
	ErrNotFound     = errors.New("block not found")
	ErrForeignOwner = errors.New("block belongs to another user")
)
