package box

import (
	"sync"
	"time"
)

// State is the thread-safe aggregate of door and motor status.
// Create it once with New and pass it to every component that needs it.
type State struct {
	mu sync.RWMutex

	leftDoor     DoorStatus
	rightDoor    DoorStatus
	deliveryDoor DoorStatus
	leftMotor    MotorStatus
	rightMotor   MotorStatus

	// quietUntil is the expiry instant of the interference window.
	quietUntil time.Time

	now     func() time.Time
	changed chan struct{}
}

// New returns a State with all doors CLOSED and both motors STOPPED.
// The real position is established by the start-up re-grounding.
func New() *State {
	return &State{
		leftDoor:     DoorClosed,
		rightDoor:    DoorClosed,
		deliveryDoor: DoorClosed,
		leftMotor:    MotorStopped,
		rightMotor:   MotorStopped,
		now:          time.Now,
		changed:      make(chan struct{}, 1),
	}
}

// Changes returns a channel that receives a signal after any setter
// modified a status field. Signals coalesce: one pending signal stands for
// any number of changes, so the receiver should take a fresh Snapshot.
func (s *State) Changes() <-chan struct{} {
	return s.changed
}

func (s *State) signal() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

func (s *State) setDoor(field *DoorStatus, status DoorStatus) {
	s.mu.Lock()
	modified := *field != status
	*field = status
	s.mu.Unlock()

	if modified {
		s.signal()
	}
}

// commitDoor writes a sensor-derived status unless the field is in ERROR.
// It reports whether the status was applied.
func (s *State) commitDoor(field *DoorStatus, status DoorStatus) bool {
	s.mu.Lock()
	if *field == DoorError && status != DoorError {
		s.mu.Unlock()
		return false
	}
	modified := *field != status
	*field = status
	s.mu.Unlock()

	if modified {
		s.signal()
	}
	return true
}

func (s *State) setMotor(field *MotorStatus, status MotorStatus) {
	s.mu.Lock()
	modified := *field != status
	*field = status
	s.mu.Unlock()

	if modified {
		s.signal()
	}
}

// SetLeftDoor sets the left flap status.
func (s *State) SetLeftDoor(status DoorStatus) { s.setDoor(&s.leftDoor, status) }

// SetRightDoor sets the right flap status.
func (s *State) SetRightDoor(status DoorStatus) { s.setDoor(&s.rightDoor, status) }

// SetDeliveryDoor sets the delivery door status.
func (s *State) SetDeliveryDoor(status DoorStatus) { s.setDoor(&s.deliveryDoor, status) }

// CommitLeftDoor applies a sensor reading to the left flap. A flap in ERROR
// stays there; only the recovery setters can leave it.
func (s *State) CommitLeftDoor(status DoorStatus) bool { return s.commitDoor(&s.leftDoor, status) }

// CommitRightDoor is CommitLeftDoor for the right flap.
func (s *State) CommitRightDoor(status DoorStatus) bool { return s.commitDoor(&s.rightDoor, status) }

// CommitDeliveryDoor is CommitLeftDoor for the delivery door.
func (s *State) CommitDeliveryDoor(status DoorStatus) bool {
	return s.commitDoor(&s.deliveryDoor, status)
}

// SetLeftMotor sets the left motor status.
func (s *State) SetLeftMotor(status MotorStatus) { s.setMotor(&s.leftMotor, status) }

// SetRightMotor sets the right motor status.
func (s *State) SetRightMotor(status MotorStatus) { s.setMotor(&s.rightMotor, status) }

// SetFlaps sets both flap statuses under one lock acquisition.
func (s *State) SetFlaps(status DoorStatus) {
	s.mu.Lock()
	modified := s.leftDoor != status || s.rightDoor != status
	s.leftDoor, s.rightDoor = status, status
	s.mu.Unlock()

	if modified {
		s.signal()
	}
}

// SetMotors sets both motor statuses under one lock acquisition.
func (s *State) SetMotors(status MotorStatus) {
	s.mu.Lock()
	modified := s.leftMotor != status || s.rightMotor != status
	s.leftMotor, s.rightMotor = status, status
	s.mu.Unlock()

	if modified {
		s.signal()
	}
}

// SetInterferenceWindow makes InterferenceActive report true until the
// given instant. The zero time clears the window.
func (s *State) SetInterferenceWindow(until time.Time) {
	s.mu.Lock()
	s.quietUntil = until
	s.mu.Unlock()
}

// SuppressInterference opens an interference window of length d from now.
func (s *State) SuppressInterference(d time.Duration) {
	s.SetInterferenceWindow(s.now().Add(d))
}

// Snapshot returns a consistent copy of all fields.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() Snapshot {
	return Snapshot{
		LeftDoor:     s.leftDoor,
		RightDoor:    s.rightDoor,
		DeliveryDoor: s.deliveryDoor,
		LeftMotor:    s.leftMotor,
		RightMotor:   s.rightMotor,
		QuietUntil:   s.quietUntil,
	}
}

// LeftDoor returns the left flap status.
func (s *State) LeftDoor() DoorStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.leftDoor
}

// RightDoor returns the right flap status.
func (s *State) RightDoor() DoorStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rightDoor
}

// DeliveryDoor returns the delivery door status.
func (s *State) DeliveryDoor() DoorStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deliveryDoor
}

// IsFullyOpen reports whether both flaps are OPEN.
func (s *State) IsFullyOpen() bool { return s.Snapshot().IsFullyOpen() }

// IsAnyOpen reports whether any of the three doors is OPEN.
func (s *State) IsAnyOpen() bool { return s.Snapshot().IsAnyOpen() }

// IsAllClosed reports whether both flaps and the delivery door are CLOSED.
func (s *State) IsAllClosed() bool { return s.Snapshot().IsAllClosed() }

// AnyError reports whether any door or motor is in ERROR.
func (s *State) AnyError() bool { return s.Snapshot().AnyError() }

// AnyMotorRunning reports whether either motor is OPENING or CLOSING.
func (s *State) AnyMotorRunning() bool { return s.Snapshot().AnyMotorRunning() }

// AnyMotorError reports whether either motor is in ERROR.
func (s *State) AnyMotorError() bool { return s.Snapshot().AnyMotorError() }

// BothMotorsStopped reports whether both motors are STOPPED.
func (s *State) BothMotorsStopped() bool { return s.Snapshot().BothMotorsStopped() }

// InterferenceActive reports whether the interference window is still open.
func (s *State) InterferenceActive() bool {
	s.mu.RLock()
	until := s.quietUntil
	s.mu.RUnlock()
	return s.now().Before(until)
}
