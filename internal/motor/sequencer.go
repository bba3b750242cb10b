package motor

import (
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/paketbox-core/internal/box"
	"github.com/nerrad567/paketbox-core/internal/hardware"
	"github.com/nerrad567/paketbox-core/internal/infrastructure/config"
	"github.com/nerrad567/paketbox-core/internal/notify"
	"github.com/nerrad567/paketbox-core/internal/timers"
)

// Direction is the travel direction of a cycle.
type Direction string

const (
	DirectionOpen  Direction = "open"
	DirectionClose Direction = "close"
)

// Writer drives output lines. hardware.Lines satisfies it.
type Writer interface {
	Write(out hardware.Output, level hardware.Level) error
}

// Scheduler runs actions after a delay under a slot. *timers.Registry
// satisfies it.
type Scheduler interface {
	Schedule(slot timers.Slot, delay time.Duration, action func())
	Cancel(slot timers.Slot) bool
}

// Unlocker releases the delivery door lock.
type Unlocker interface {
	Unlock() error
}

// Observer is told about every verified cycle.
type Observer interface {
	CycleCompleted(dir Direction, ok bool, elapsed time.Duration)
}

// Logger is the logging interface used by the sequencer.
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

// Timing holds the cycle durations.
type Timing struct {
	// Closure is how long a close drive stays energised.
	Closure time.Duration
	// Reverse is how long an open drive stays energised.
	Reverse time.Duration
	// VerifyMargin is added to Closure before the end position is checked.
	VerifyMargin time.Duration
	// Interference is the quiet window opened at drive start.
	Interference time.Duration
}

// TimingFromConfig extracts the cycle durations from the box config.
func TimingFromConfig(cfg config.BoxConfig) Timing {
	return Timing{
		Closure:      cfg.ClosureDuration,
		Reverse:      cfg.ReverseSignalDuration,
		VerifyMargin: cfg.VerifyMargin,
		Interference: cfg.InterferenceWindow,
	}
}

func (t Timing) verifyDelay() time.Duration {
	return t.Closure + t.VerifyMargin
}

type driveSet struct {
	left, right       hardware.Output
	oppLeft, oppRight hardware.Output
	runFor            time.Duration
	motor             box.MotorStatus
	target            box.DoorStatus
	check             timers.Slot
	otherCheck        timers.Slot
}

// Sequencer runs open and close cycles.
//
// Thread Safety: Open and Close may be called from any goroutine. State is
// guarded by box.State and slot bookkeeping by the Scheduler.
type Sequencer struct {
	state    *box.State
	lines    Writer
	timers   Scheduler
	notifier notify.Notifier
	timing   Timing
	logger   Logger
	now      func() time.Time

	mu        sync.RWMutex
	unlocker  Unlocker
	observers []Observer
}

// New creates a sequencer.
func New(state *box.State, lines Writer, sched Scheduler, n notify.Notifier, timing Timing) *Sequencer {
	return &Sequencer{
		state:    state,
		lines:    lines,
		timers:   sched,
		notifier: n,
		timing:   timing,
		logger:   noopLogger{},
		now:      time.Now,
	}
}

// SetLogger sets the logger.
func (s *Sequencer) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetUnlocker sets the lock released after a successful close cycle.
func (s *Sequencer) SetUnlocker(u Unlocker) {
	s.mu.Lock()
	s.unlocker = u
	s.mu.Unlock()
}

// AddObserver registers a cycle observer.
func (s *Sequencer) AddObserver(o Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, o)
	s.mu.Unlock()
}

// Open starts an open cycle. It returns ErrFaultActive without touching any
// output if the box has an error, or an ErrDriveStart error if a relay could
// not be energised. Calling Open while a cycle is in flight re-arms the
// timers.
func (s *Sequencer) Open() error {
	return s.run(DirectionOpen, driveSet{
		left:       hardware.LeftFlapOpenDrive,
		right:      hardware.RightFlapOpenDrive,
		oppLeft:    hardware.LeftFlapCloseDrive,
		oppRight:   hardware.RightFlapCloseDrive,
		runFor:     s.timing.Reverse,
		motor:      box.MotorOpening,
		target:     box.DoorOpen,
		check:      timers.SlotRightCheck,
		otherCheck: timers.SlotLeftCheck,
	})
}

// Close starts a close cycle. Errors are as for Open.
func (s *Sequencer) Close() error {
	return s.run(DirectionClose, driveSet{
		left:       hardware.LeftFlapCloseDrive,
		right:      hardware.RightFlapCloseDrive,
		oppLeft:    hardware.LeftFlapOpenDrive,
		oppRight:   hardware.RightFlapOpenDrive,
		runFor:     s.timing.Closure,
		motor:      box.MotorClosing,
		target:     box.DoorClosed,
		check:      timers.SlotLeftCheck,
		otherCheck: timers.SlotRightCheck,
	})
}

func (s *Sequencer) run(dir Direction, d driveSet) error {
	if s.state.AnyError() {
		s.logger.Warn("cycle refused, fault state active", "direction", dir)
		return ErrFaultActive
	}

	s.logger.Info("starting flap cycle", "direction", dir)
	s.state.SetMotors(d.motor)
	s.state.SuppressInterference(s.timing.Interference)
	s.timers.Cancel(d.otherCheck)

	// Never energise both directions of a motor at once.
	s.rest(d.oppLeft, d.oppRight)

	if err := s.energise(timers.SlotLeftMotor, d.left, d.runFor); err != nil {
		s.driveFailed(dir, d, err)
		return err
	}
	if err := s.energise(timers.SlotRightMotor, d.right, d.runFor); err != nil {
		s.driveFailed(dir, d, err)
		return err
	}

	started := s.now()
	s.timers.Schedule(d.check, s.timing.verifyDelay(), func() {
		s.verify(dir, d, started)
	})
	return nil
}

// energise drives out on and schedules its reset under slot.
func (s *Sequencer) energise(slot timers.Slot, out hardware.Output, runFor time.Duration) error {
	if err := s.lines.Write(out, hardware.DriveOn); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDriveStart, out, err)
	}
	s.timers.Schedule(slot, runFor, func() {
		if err := s.lines.Write(out, hardware.RestLevel); err != nil {
			s.logger.Error("failed to reset drive", "output", out.String(), "error", err)
		}
	})
	return nil
}

// rest returns outputs to their rest level, logging failures.
func (s *Sequencer) rest(outs ...hardware.Output) {
	for _, out := range outs {
		if err := s.lines.Write(out, hardware.RestLevel); err != nil {
			s.logger.Error("failed to rest drive", "output", out.String(), "error", err)
		}
	}
}

func (s *Sequencer) driveFailed(dir Direction, d driveSet, err error) {
	s.logger.Error("drive start failed", "direction", dir, "error", err)
	s.timers.Cancel(timers.SlotLeftMotor)
	s.timers.Cancel(timers.SlotRightMotor)
	s.rest(d.left, d.right)
	s.state.SetMotors(box.MotorError)
	s.notifier.PublishStatus(fmt.Sprintf("Flap %s failed: drive did not start", dir))
}

func (s *Sequencer) verify(dir Direction, d driveSet, started time.Time) {
	elapsed := s.now().Sub(started)
	snap := s.state.Snapshot()
	ok := snap.LeftDoor == d.target && snap.RightDoor == d.target

	s.mu.RLock()
	observers := s.observers
	unlocker := s.unlocker
	s.mu.RUnlock()
	for _, o := range observers {
		o.CycleCompleted(dir, ok, elapsed)
	}

	if !ok {
		s.logger.Error("flap cycle failed verification",
			"direction", dir,
			"left", snap.LeftDoor,
			"right", snap.RightDoor,
		)
		s.timers.Cancel(timers.SlotLeftMotor)
		s.timers.Cancel(timers.SlotRightMotor)
		s.rest(d.left, d.right)
		s.state.SetFlaps(box.DoorError)
		s.state.SetMotors(box.MotorError)
		s.notifier.PublishStatus(fmt.Sprintf("Flap %s failed: end position not reached", dir))
		return
	}

	s.state.SetMotors(box.MotorStopped)
	s.logger.Info("flap cycle verified", "direction", dir, "elapsed", elapsed)

	switch dir {
	case DirectionOpen:
		s.notifier.PublishStatus("Flaps open, parcel dropped")
		if err := s.Close(); err != nil {
			s.logger.Error("automatic close failed", "error", err)
		}
	case DirectionClose:
		s.notifier.PublishStatus("Flaps closed")
		if unlocker != nil {
			if err := unlocker.Unlock(); err != nil {
				s.logger.Error("unlock after close failed", "error", err)
			}
		}
	}
}
