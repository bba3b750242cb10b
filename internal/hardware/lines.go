package hardware

import (
	"github.com/nerrad567/paketbox-core/internal/infrastructure/config"
)

// Level is the electrical level of a digital line.
type Level uint8

const (
	Low  Level = 0
	High Level = 1
)

func (l Level) String() string {
	if l == High {
		return "HIGH"
	}
	return "LOW"
}

// Input names one of the eleven input lines.
type Input int

const (
	LeftFlapClosed Input = iota
	LeftFlapOpen
	RightFlapClosed
	RightFlapOpen
	DeliveryDoor
	MailboxContact
	MailboxEmptyingDoor
	BoxEmptyingDoor
	DoorOpenerButtonA
	DoorOpenerButtonB
	MotionSensor

	inputCount
)

// Inputs lists every input line in poll order.
func Inputs() []Input {
	out := make([]Input, 0, inputCount)
	for in := Input(0); in < inputCount; in++ {
		out = append(out, in)
	}
	return out
}

var inputNames = [...]string{
	LeftFlapClosed:      "left_flap_closed",
	LeftFlapOpen:        "left_flap_open",
	RightFlapClosed:     "right_flap_closed",
	RightFlapOpen:       "right_flap_open",
	DeliveryDoor:        "delivery_door",
	MailboxContact:      "mailbox_contact",
	MailboxEmptyingDoor: "mailbox_emptying_door",
	BoxEmptyingDoor:     "box_emptying_door",
	DoorOpenerButtonA:   "door_opener_button_a",
	DoorOpenerButtonB:   "door_opener_button_b",
	MotionSensor:        "motion_sensor",
}

func (in Input) String() string {
	if in < 0 || in >= inputCount {
		return "unknown_input"
	}
	return inputNames[in]
}

// ActiveLevel returns the level at which the input reports its active
// condition (sensor triggered, door open, button pressed).
func (in Input) ActiveLevel() Level {
	switch in {
	case DeliveryDoor, DoorOpenerButtonA, DoorOpenerButtonB, MotionSensor:
		return High
	default:
		return Low
	}
}

// Output names one of the eight output lines.
type Output int

const (
	LeftFlapCloseDrive Output = iota
	LeftFlapOpenDrive
	RightFlapCloseDrive
	RightFlapOpenDrive
	Reserved
	AuxLightA
	AuxLightB
	DeliveryDoorLock

	outputCount
)

// Outputs lists every output line.
func Outputs() []Output {
	out := make([]Output, 0, outputCount)
	for o := Output(0); o < outputCount; o++ {
		out = append(out, o)
	}
	return out
}

var outputNames = [...]string{
	LeftFlapCloseDrive:  "left_flap_close_drive",
	LeftFlapOpenDrive:   "left_flap_open_drive",
	RightFlapCloseDrive: "right_flap_close_drive",
	RightFlapOpenDrive:  "right_flap_open_drive",
	Reserved:            "reserved",
	AuxLightA:           "aux_light_a",
	AuxLightB:           "aux_light_b",
	DeliveryDoorLock:    "delivery_door_lock",
}

func (o Output) String() string {
	if o < 0 || o >= outputCount {
		return "unknown_output"
	}
	return outputNames[o]
}

// Drive relay and lock levels.
const (
	// RestLevel is the idle level of every output.
	RestLevel = High

	// DriveOn energises a drive relay.
	DriveOn = Low

	// LockEngaged and LockReleased are the lock output levels.
	LockEngaged  = Low
	LockReleased = High
)

// Lines is the digital I/O the core depends on.
type Lines interface {
	// Read samples an input line.
	Read(in Input) (Level, error)

	// Write drives an output line.
	Write(out Output, level Level) error

	// Output returns the last commanded level of an output line.
	Output(out Output) (Level, error)

	// Close releases the lines.
	Close() error
}

// PinMap resolves line names to BCM pin numbers.
type PinMap struct {
	Inputs  map[Input]uint
	Outputs map[Output]uint
}

// PinMapFromConfig builds the pin map from the gpio config section.
func PinMapFromConfig(cfg config.GPIOConfig) PinMap {
	in, out := cfg.Inputs, cfg.Outputs
	return PinMap{
		Inputs: map[Input]uint{
			LeftFlapClosed:      in.LeftFlapClosed,
			LeftFlapOpen:        in.LeftFlapOpen,
			RightFlapClosed:     in.RightFlapClosed,
			RightFlapOpen:       in.RightFlapOpen,
			DeliveryDoor:        in.DeliveryDoor,
			MailboxContact:      in.MailboxContact,
			MailboxEmptyingDoor: in.MailboxEmptyingDoor,
			BoxEmptyingDoor:     in.BoxEmptyingDoor,
			DoorOpenerButtonA:   in.DoorOpenerButtonA,
			DoorOpenerButtonB:   in.DoorOpenerButtonB,
			MotionSensor:        in.MotionSensor,
		},
		Outputs: map[Output]uint{
			LeftFlapCloseDrive:  out.LeftFlapCloseDrive,
			LeftFlapOpenDrive:   out.LeftFlapOpenDrive,
			RightFlapCloseDrive: out.RightFlapCloseDrive,
			RightFlapOpenDrive:  out.RightFlapOpenDrive,
			Reserved:            out.Reserved,
			AuxLightA:           out.AuxLightA,
			AuxLightB:           out.AuxLightB,
			DeliveryDoorLock:    out.DeliveryDoorLock,
		},
	}
}

// Open returns the Lines implementation selected by the config driver.
func Open(cfg config.GPIOConfig) (Lines, error) {
	if cfg.Driver == "fake" {
		return NewFake(), nil
	}
	return OpenSysfs(PinMapFromConfig(cfg))
}

// ReleaseAll returns every output to its rest level and returns the first error.
func ReleaseAll(lines Lines) error {
	var first error
	for _, out := range Outputs() {
		if err := lines.Write(out, RestLevel); err != nil && first == nil {
			first = err
		}
	}
	return first
}
