package hardware

import "errors"

var (
	// ErrUnknownLine is returned for a line that has no pin assigned.
	ErrUnknownLine = errors.New("hardware: unknown line")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("hardware: lines closed")

	// ErrDuplicatePin is returned when two lines share a pin.
	ErrDuplicatePin = errors.New("hardware: pin assigned twice")
)
