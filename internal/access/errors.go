package access

import "errors"

var (
	// ErrLockFailed is returned when the lock output could not be driven.
	ErrLockFailed = errors.New("access: lock output failed")
)
