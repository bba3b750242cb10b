package command

import (
	"errors"
	"fmt"

	"github.com/nerrad567/paketbox-core/internal/box"
)

// Command names.
const (
	Open   = "open"
	Close  = "close"
	Reset  = "reset"
	Lock   = "lock"
	Unlock = "unlock"
	Cancel = "cancel"
)

var (
	// ErrUnknownCommand is returned for a name Execute does not know.
	ErrUnknownCommand = errors.New("command: unknown command")

	// ErrNotCleared is returned by reset when the box is still in ERROR.
	ErrNotCleared = errors.New("command: error state persists")

	// ErrNothingPending is returned by cancel when no delivery was waiting.
	ErrNothingPending = errors.New("command: no pending delivery")
)

// Operator is the box surface commands act on. *controller.Controller
// satisfies it.
type Operator interface {
	Open() error
	Close() error
	Reset() bool
	Lock() error
	Unlock() error
	CancelPendingOpen() bool
	Snapshot() box.Snapshot
	IsLocked() bool
}

// Names returns every supported command name.
func Names() []string {
	return []string{Open, Close, Reset, Lock, Unlock, Cancel}
}

// Execute runs the named command.
func Execute(op Operator, name string) error {
	switch name {
	case Open:
		return op.Open()
	case Close:
		return op.Close()
	case Lock:
		return op.Lock()
	case Unlock:
		return op.Unlock()
	case Reset:
		if !op.Reset() {
			return ErrNotCleared
		}
		return nil
	case Cancel:
		if !op.CancelPendingOpen() {
			return ErrNothingPending
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
}
