package controller

import "errors"

// ErrStopped is returned by operator operations after shutdown.
var ErrStopped = errors.New("controller: stopped")
