package box

import "time"

// Snapshot is an immutable copy of State taken under its lock.
type Snapshot struct {
	LeftDoor     DoorStatus  `json:"left_door"`
	RightDoor    DoorStatus  `json:"right_door"`
	DeliveryDoor DoorStatus  `json:"delivery_door"`
	LeftMotor    MotorStatus `json:"left_motor"`
	RightMotor   MotorStatus `json:"right_motor"`
	QuietUntil   time.Time   `json:"-"`
}

// IsFullyOpen reports whether both flaps are OPEN.
func (s Snapshot) IsFullyOpen() bool {
	return s.LeftDoor == DoorOpen && s.RightDoor == DoorOpen
}

// IsAnyOpen reports whether any of the three doors is OPEN.
func (s Snapshot) IsAnyOpen() bool {
	return s.LeftDoor == DoorOpen || s.RightDoor == DoorOpen || s.DeliveryDoor == DoorOpen
}

// IsAllClosed reports whether both flaps and the delivery door are CLOSED.
func (s Snapshot) IsAllClosed() bool {
	return s.LeftDoor == DoorClosed && s.RightDoor == DoorClosed && s.DeliveryDoor == DoorClosed
}

// AnyError reports whether any of the five status fields is ERROR.
func (s Snapshot) AnyError() bool {
	return s.LeftDoor == DoorError || s.RightDoor == DoorError || s.DeliveryDoor == DoorError ||
		s.AnyMotorError()
}

// AnyMotorRunning reports whether either motor is OPENING or CLOSING.
func (s Snapshot) AnyMotorRunning() bool {
	return s.LeftMotor.Running() || s.RightMotor.Running()
}

// AnyMotorError reports whether either motor is in ERROR.
func (s Snapshot) AnyMotorError() bool {
	return s.LeftMotor == MotorError || s.RightMotor == MotorError
}

// BothMotorsStopped reports whether both motors are STOPPED.
func (s Snapshot) BothMotorsStopped() bool {
	return s.LeftMotor == MotorStopped && s.RightMotor == MotorStopped
}

// InterferenceActive reports whether the interference window covers now.
func (s Snapshot) InterferenceActive(now time.Time) bool {
	return now.Before(s.QuietUntil)
}
