package box

// DoorStatus is the logical position of a flap or the delivery door.
type DoorStatus string

const (
	DoorClosed DoorStatus = "CLOSED"
	DoorOpen   DoorStatus = "OPEN"
	DoorError  DoorStatus = "ERROR"
)

// MotorStatus is the logical state of a flap motor.
type MotorStatus string

const (
	MotorStopped MotorStatus = "STOPPED"
	MotorOpening MotorStatus = "OPENING"
	MotorClosing MotorStatus = "CLOSING"
	MotorError   MotorStatus = "ERROR"
)

// Running reports whether the motor is driving in either direction.
func (m MotorStatus) Running() bool {
	return m == MotorOpening || m == MotorClosing
}
