package motor

import "errors"

var (
	// ErrFaultActive is returned when a cycle is requested while any part
	// of the box is in ERROR.
	ErrFaultActive = errors.New("motor: fault state active")

	// ErrDriveStart is returned when a drive relay could not be energised.
	ErrDriveStart = errors.New("motor: drive start failed")
)
