package access

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

// Lines drives and reads back output lines. hardware.Lines satisfies it.
type Lines interface {
	Write(out hardware.Output, level hardware.Level) error
	Output(out hardware.Output) (hardware.Level, error)
}

// Flaps starts flap cycles. *motor.Sequencer satisfies it.
type Flaps interface {
	Open() error
	Close() error
}

// Scheduler runs actions after a delay under a slot. *timers.Registry
// satisfies it.
type Scheduler interface {
	Schedule(slot timers.Slot, delay time.Duration, action func())
	Cancel(slot timers.Slot) bool
}

// DeliveryObserver is told when a delivery starts the flaps.
type DeliveryObserver interface {
	DeliveryAccepted()
}

// Logger is the logging interface used by the controller.
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

// Timing holds the access durations.
type Timing struct {
	// GracePeriod is how long the door must stay closed before delivery.
	GracePeriod time.Duration
	// Watchdog is how long the door may stay open before a warning.
	// Zero disables the watchdog.
	Watchdog time.Duration
}

// TimingFromConfig extracts the access durations from the box config.
func TimingFromConfig(cfg config.BoxConfig) Timing {
	return Timing{
		GracePeriod: cfg.GracePeriod,
		Watchdog:    cfg.DoorOpenWatchdog,
	}
}

// Controller is the delivery door access controller.
//
// Thread Safety: all methods are safe for concurrent use.
type Controller struct {
	state    *box.State
	lines    Lines
	flaps    Flaps
	timers   Scheduler
	notifier notify.Notifier
	timing   Timing
	logger   Logger

	mu        sync.RWMutex
	observers []DeliveryObserver
}

// New creates an access controller.
func New(state *box.State, lines Lines, flaps Flaps, sched Scheduler, n notify.Notifier, timing Timing) *Controller {
	return &Controller{
		state:    state,
		lines:    lines,
		flaps:    flaps,
		timers:   sched,
		notifier: n,
		timing:   timing,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger.
func (c *Controller) SetLogger(logger Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// AddObserver registers a delivery observer.
func (c *Controller) AddObserver(o DeliveryObserver) {
	c.mu.Lock()
	c.observers = append(c.observers, o)
	c.mu.Unlock()
}

// Lock engages the delivery door lock. Failures are reported, not retried.
func (c *Controller) Lock() error {
	return c.setLock(hardware.LockEngaged, "lock")
}

// Unlock releases the delivery door lock. Failures are reported, not retried.
func (c *Controller) Unlock() error {
	return c.setLock(hardware.LockReleased, "unlock")
}

func (c *Controller) setLock(level hardware.Level, action string) error {
	if err := c.lines.Write(hardware.DeliveryDoorLock, level); err != nil {
		c.logger.Error("delivery door lock failed", "action", action, "error", err)
		c.notifier.PublishStatus(fmt.Sprintf("Delivery door %s failed", action))
		return fmt.Errorf("%w: %s: %w", ErrLockFailed, action, err)
	}
	c.logger.Info("delivery door lock set", "action", action)
	return nil
}

// IsLocked reports whether the lock output is commanded to engaged.
func (c *Controller) IsLocked() bool {
	level, err := c.lines.Output(hardware.DeliveryDoorLock)
	if err != nil {
		c.logger.Warn("reading lock output failed", "error", err)
		return false
	}
	return level == hardware.LockEngaged
}

// CancelPendingOpen cancels a delivery waiting out its grace period.
func (c *Controller) CancelPendingOpen() bool {
	cancelled := c.timers.Cancel(timers.SlotDelayedOpen)
	if cancelled {
		c.logger.Info("pending delivery cancelled")
	}
	return cancelled
}

// DeliveryDoorClosed starts the grace period. It replaces any grace period
// already running.
func (c *Controller) DeliveryDoorClosed() {
	c.timers.Cancel(timers.SlotDoorOpenWatchdog)
	c.timers.Cancel(timers.SlotDelayedOpen)
	c.timers.Schedule(timers.SlotDelayedOpen, c.timing.GracePeriod, c.graceElapsed)
	c.logger.Info("delivery door closed, grace period started", "grace", c.timing.GracePeriod)
}

// DeliveryDoorOpened aborts a pending delivery and closes flaps left open.
func (c *Controller) DeliveryDoorOpened() {
	if c.timers.Cancel(timers.SlotDelayedOpen) {
		c.logger.Info("delivery aborted, door reopened during grace period")
	}

	if c.state.IsFullyOpen() {
		c.logger.Info("door opened with flaps open, closing flaps")
		if err := c.flaps.Close(); err != nil {
			c.logger.Error("closing flaps failed", "error", err)
		}
	}

	if c.timing.Watchdog > 0 {
		c.timers.Schedule(timers.SlotDoorOpenWatchdog, c.timing.Watchdog, c.watchdogExpired)
	}
}

func (c *Controller) graceElapsed() {
	if c.state.DeliveryDoor() != box.DoorClosed {
		c.logger.Debug("grace period elapsed with door not closed, delivery skipped")
		return
	}

	if err := c.Lock(); err != nil {
		c.logger.Error("delivery not started, door could not be locked", "error", err)
		return
	}
	if err := c.flaps.Open(); err != nil {
		c.logger.Error("delivery flap cycle not started", "error", err)
		return
	}

	c.notifier.PublishStatus("Parcel delivered, door locked")

	c.mu.RLock()
	observers := c.observers
	c.mu.RUnlock()
	for _, o := range observers {
		o.DeliveryAccepted()
	}
}

func (c *Controller) watchdogExpired() {
	if c.state.DeliveryDoor() != box.DoorOpen {
		return
	}
	c.logger.Warn("delivery door left open", "after", c.timing.Watchdog)
	c.notifier.PublishStatus(fmt.Sprintf("Delivery door open for %s", c.timing.Watchdog))
}
