// Package recovery re-grounds the box state in fresh sensor reads.
//
// ERROR is sticky: nothing but an explicit reset leaves it. A reset never
// starts a motor, it only re-reads the end-position sensors and the
// delivery door contact, stops motors marked ERROR and clears the error
// report latch so the next fault is reported again.
package recovery

import (
	"github.com/nerrad567/paketbox-core/internal/box"
	"github.com/nerrad567/paketbox-core/internal/hardware"
	"github.com/nerrad567/paketbox-core/internal/notify"
)

// Reader samples input lines. hardware.Lines satisfies it.
type Reader interface {
	Read(in hardware.Input) (hardware.Level, error)
}

// Lock is the delivery door lock. *access.Controller satisfies it.
type Lock interface {
	IsLocked() bool
	Unlock() error
}

// Latch is the error report latch. *notify.ErrorReporter satisfies it.
type Latch interface {
	Reset()
}

// Logger is the logging interface used by the manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Manager resets the box out of ERROR.
type Manager struct {
	state    *box.State
	lines    Reader
	lock     Lock
	latch    Latch
	notifier notify.Notifier
	logger   Logger
}

// New creates a recovery manager.
func New(state *box.State, lines Reader, lock Lock, latch Latch, n notify.Notifier) *Manager {
	return &Manager{
		state:    state,
		lines:    lines,
		lock:     lock,
		latch:    latch,
		notifier: n,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger.
func (m *Manager) SetLogger(logger Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// ResetErrorState clears the error state from fresh reads and reports
// whether the box is error free afterwards.
//
// Without an error the only correction is releasing a delivery door left
// locked while no motor runs.
func (m *Manager) ResetErrorState() bool {
	if !m.state.AnyError() {
		if !m.state.AnyMotorRunning() && m.lock.IsLocked() {
			m.logger.Info("idle box with locked delivery door, unlocking")
			if err := m.lock.Unlock(); err != nil {
				m.logger.Error("idle unlock failed", "error", err)
			}
		}
		return true
	}

	before := m.state.Snapshot()
	m.Resync()

	if m.state.AnyMotorError() {
		m.state.SetMotors(box.MotorStopped)
	}
	m.latch.Reset()

	after := m.state.Snapshot()
	ok := !after.AnyError()
	if ok {
		m.logger.Info("error state cleared", "before", before, "after", after)
		m.notifier.PublishStatus("Paketbox reset, all clear")
	} else {
		m.logger.Warn("error state persists after reset", "state", after)
		m.notifier.PublishStatus(notify.DescribeError(after))
	}
	return ok
}

// Resync commits the three door statuses read directly from the sensors.
// Motor statuses are left alone.
func (m *Manager) Resync() box.Snapshot {
	m.state.SetLeftDoor(m.flap(hardware.LeftFlapClosed, hardware.LeftFlapOpen))
	m.state.SetRightDoor(m.flap(hardware.RightFlapClosed, hardware.RightFlapOpen))
	m.state.SetDeliveryDoor(m.deliveryDoor())
	return m.state.Snapshot()
}

// flap derives a flap position from its two end sensors. Both or neither
// sensor active is an ERROR.
func (m *Manager) flap(closedSensor, openSensor hardware.Input) box.DoorStatus {
	closed, err := m.active(closedSensor)
	if err != nil {
		return box.DoorError
	}
	open, err := m.active(openSensor)
	if err != nil {
		return box.DoorError
	}

	switch {
	case closed && !open:
		return box.DoorClosed
	case open && !closed:
		return box.DoorOpen
	default:
		m.logger.Warn("flap between end positions",
			"closed_sensor", closedSensor.String(), "closed", closed,
			"open_sensor", openSensor.String(), "open", open,
		)
		return box.DoorError
	}
}

func (m *Manager) deliveryDoor() box.DoorStatus {
	open, err := m.active(hardware.DeliveryDoor)
	if err != nil {
		return box.DoorError
	}
	if open {
		return box.DoorOpen
	}
	return box.DoorClosed
}

func (m *Manager) active(in hardware.Input) (bool, error) {
	level, err := m.lines.Read(in)
	if err != nil {
		m.logger.Error("sensor read failed during resync", "input", in.String(), "error", err)
		return false, err
	}
	return level == in.ActiveLevel(), nil
}
