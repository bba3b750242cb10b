package timers

import (
	"sync"
	"time"
)

// Slot names a scheduled action.
type Slot string

// Slots used by the box.
const (
	SlotLeftMotor        Slot = "left_motor"
	SlotRightMotor       Slot = "right_motor"
	SlotLeftCheck        Slot = "left_check"
	SlotRightCheck       Slot = "right_check"
	SlotDelayedOpen      Slot = "delayed_open"
	SlotDoorOpenWatchdog Slot = "door_open_watchdog"
)

// Logger is the logging interface used by the registry.
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

// handle is one scheduled action. cancelled is only read or written with
// the registry mutex held.
type handle struct {
	timer     *time.Timer
	cancelled bool
}

// cancel stops the handle. It returns false if it was already cancelled.
func (h *handle) cancel() bool {
	if h.cancelled {
		return false
	}
	h.cancelled = true
	h.timer.Stop()
	return true
}

// Registry maps slots to live handles.
//
// Thread Safety: all methods are safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	slots  map[Slot]*handle
	logger Logger
}

// New creates an empty registry. A nil logger discards output.
func New(logger Logger) *Registry {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Registry{
		slots:  make(map[Slot]*handle),
		logger: logger,
	}
}

// Schedule runs action after delay under slot. A handle already in the
// slot is cancelled and replaced in the same critical section.
func (r *Registry) Schedule(slot Slot, delay time.Duration, action func()) {
	h := &handle{}

	r.mu.Lock()
	prev := r.slots[slot]
	if prev != nil {
		prev.cancel()
	}
	r.slots[slot] = h
	h.timer = time.AfterFunc(delay, func() { r.fire(slot, h, action) })
	r.mu.Unlock()

	if prev != nil {
		r.logger.Debug("timer replaced", "slot", slot, "delay", delay)
	} else {
		r.logger.Debug("timer scheduled", "slot", slot, "delay", delay)
	}
}

func (r *Registry) fire(slot Slot, h *handle, action func()) {
	r.mu.Lock()
	if h.cancelled {
		r.mu.Unlock()
		return
	}
	if r.slots[slot] == h {
		delete(r.slots, slot)
	}
	r.mu.Unlock()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("timer action panicked", "slot", slot, "panic", rec)
		}
	}()
	action()
}

// Cancel cancels the live handle in slot. It reports whether there was one.
func (r *Registry) Cancel(slot Slot) bool {
	r.mu.Lock()
	h, ok := r.slots[slot]
	if ok {
		delete(r.slots, slot)
		ok = h.cancel()
	}
	r.mu.Unlock()

	if ok {
		r.logger.Debug("timer cancelled", "slot", slot)
	}
	return ok
}

// CancelAll cancels every live handle and returns how many were cancelled.
func (r *Registry) CancelAll() int {
	r.mu.Lock()
	count := 0
	for slot, h := range r.slots {
		if h.cancel() {
			count++
		}
		delete(r.slots, slot)
	}
	r.mu.Unlock()

	r.logger.Info("all timers cancelled", "count", count)
	return count
}

// Clear drops the registry's reference to slot without cancelling it.
// A handle cleared this way still fires, but can no longer be cancelled
// through the registry.
func (r *Registry) Clear(slot Slot) {
	r.mu.Lock()
	delete(r.slots, slot)
	r.mu.Unlock()
}

// Pending reports whether slot holds a live handle.
func (r *Registry) Pending(slot Slot) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.slots[slot]
	return ok
}
