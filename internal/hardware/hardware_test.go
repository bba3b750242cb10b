package hardware

import (
	"errors"
	"testing"

	"github.com/nerrad567/paketbox-core/internal/infrastructure/config"
)

func TestLineNames(t *testing.T) {
	if got := len(Inputs()); got != 11 {
		t.Errorf("len(Inputs()) = %d, want 11", got)
	}
	if got := len(Outputs()); got != 8 {
		t.Errorf("len(Outputs()) = %d, want 8", got)
	}

	seen := map[string]bool{}
	for _, in := range Inputs() {
		if seen[in.String()] {
			t.Errorf("duplicate input name %q", in)
		}
		seen[in.String()] = true
	}
	if Input(99).String() != "unknown_input" || Output(-1).String() != "unknown_output" {
		t.Error("out-of-range lines should have placeholder names")
	}
}

func TestActiveLevel(t *testing.T) {
	tests := []struct {
		in   Input
		want Level
	}{
		{LeftFlapClosed, Low},
		{RightFlapOpen, Low},
		{DeliveryDoor, High},
		{MailboxContact, Low},
		{BoxEmptyingDoor, Low},
		{DoorOpenerButtonA, High},
		{MotionSensor, High},
	}

	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			if got := tt.in.ActiveLevel(); got != tt.want {
				t.Errorf("ActiveLevel() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPinMapFromConfig_Defaults(t *testing.T) {
	pins := PinMapFromConfig(config.Default().GPIO)

	if err := checkPinMap(pins); err != nil {
		t.Fatalf("default pin map invalid: %v", err)
	}
	if pins.Inputs[LeftFlapClosed] != 27 || pins.Inputs[MotionSensor] != 11 {
		t.Errorf("unexpected input pins: %v", pins.Inputs)
	}
	if pins.Outputs[LeftFlapCloseDrive] != 5 || pins.Outputs[DeliveryDoorLock] != 26 {
		t.Errorf("unexpected output pins: %v", pins.Outputs)
	}
}

func TestCheckPinMap_Duplicate(t *testing.T) {
	pins := PinMapFromConfig(config.Default().GPIO)
	pins.Outputs[AuxLightA] = pins.Inputs[DeliveryDoor]

	if err := checkPinMap(pins); !errors.Is(err, ErrDuplicatePin) {
		t.Errorf("checkPinMap() error = %v, want ErrDuplicatePin", err)
	}

	delete(pins.Inputs, MotionSensor)
	if err := checkPinMap(pins); !errors.Is(err, ErrUnknownLine) {
		t.Errorf("checkPinMap() error = %v, want ErrUnknownLine", err)
	}
}

func TestOpen_FakeDriver(t *testing.T) {
	cfg := config.Default().GPIO
	cfg.Driver = "fake"

	lines, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, ok := lines.(*Fake); !ok {
		t.Errorf("Open(fake) returned %T", lines)
	}
}

func TestFake(t *testing.T) {
	f := NewFake()

	for _, in := range Inputs() {
		level, err := f.Read(in)
		if err != nil {
			t.Fatalf("Read(%s) error = %v", in, err)
		}
		if level == in.ActiveLevel() {
			t.Errorf("%s starts active", in)
		}
	}

	f.SetActive(LeftFlapOpen, true)
	if level, _ := f.Read(LeftFlapOpen); level != Low {
		t.Errorf("active flap sensor reads %s, want LOW", level)
	}

	f.SetActive(DeliveryDoor, true)
	if level, _ := f.Read(DeliveryDoor); level != High {
		t.Errorf("open delivery door reads %s, want HIGH", level)
	}

	if err := f.Write(LeftFlapOpenDrive, DriveOn); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if f.Level(LeftFlapOpenDrive) != Low {
		t.Error("drive output not recorded")
	}

	fault := errors.New("line stuck")
	f.FailRead(MailboxContact, fault)
	if _, err := f.Read(MailboxContact); !errors.Is(err, fault) {
		t.Errorf("Read() error = %v, want injected fault", err)
	}
	f.FailRead(MailboxContact, nil)
	if _, err := f.Read(MailboxContact); err != nil {
		t.Errorf("Read() after clearing fault error = %v", err)
	}

	f.FailWrite(RightFlapCloseDrive, fault)
	if err := f.Write(RightFlapCloseDrive, DriveOn); !errors.Is(err, fault) {
		t.Errorf("Write() error = %v, want injected fault", err)
	}
	if f.Level(RightFlapCloseDrive) != RestLevel {
		t.Error("failed write must not change the output")
	}

	if got := len(f.Writes()); got != 1 {
		t.Errorf("len(Writes()) = %d, want 1", got)
	}

	f.Close()
	if _, err := f.Read(DeliveryDoor); !errors.Is(err, ErrClosed) {
		t.Errorf("Read() after Close error = %v, want ErrClosed", err)
	}
}

func TestReleaseAll(t *testing.T) {
	f := NewFake()
	f.Write(LeftFlapCloseDrive, DriveOn)    //nolint:errcheck // bench setup
	f.Write(DeliveryDoorLock, LockEngaged)  //nolint:errcheck // bench setup
	f.FailWrite(AuxLightA, errors.New("x")) // first error is reported, rest still released

	if err := ReleaseAll(f); err == nil {
		t.Error("ReleaseAll() should report the failing output")
	}
	for _, out := range []Output{LeftFlapCloseDrive, DeliveryDoorLock} {
		if f.Level(out) != RestLevel {
			t.Errorf("%s = %s after ReleaseAll, want rest", out, f.Level(out))
		}
	}
}
