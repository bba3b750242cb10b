package notify

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/paketbox-core/internal/box"
)

// ErrorReporter publishes one status report per error episode.
//
// Check is called on every poll tick. The first tick that sees an error
// publishes a report and sets the latch; later ticks stay quiet until
// Reset clears the latch. Reports are additionally spaced by at least the
// configured interval so an error that flaps across recoveries does not
// flood the broker.
type ErrorReporter struct {
	notifier Notifier
	interval time.Duration
	now      func() time.Time

	mu         sync.Mutex
	reported   bool
	lastReport time.Time
}

// NewErrorReporter creates a reporter that publishes through n.
func NewErrorReporter(n Notifier, interval time.Duration) *ErrorReporter {
	return &ErrorReporter{
		notifier: n,
		interval: interval,
		now:      time.Now,
	}
}

// Check publishes a report for snap if it is in error and none is pending.
// It reports whether a message was published.
func (r *ErrorReporter) Check(snap box.Snapshot) bool {
	if !snap.AnyError() {
		return false
	}

	r.mu.Lock()
	now := r.now()
	if r.reported || (!r.lastReport.IsZero() && now.Sub(r.lastReport) < r.interval) {
		r.mu.Unlock()
		return false
	}
	r.reported = true
	r.lastReport = now
	r.mu.Unlock()

	r.notifier.PublishStatus(DescribeError(snap))
	return true
}

// Reset clears the latch so the next error episode is reported.
func (r *ErrorReporter) Reset() {
	r.mu.Lock()
	r.reported = false
	r.mu.Unlock()
}

// Reported reports whether the current error episode has been published.
func (r *ErrorReporter) Reported() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reported
}

// DescribeError lists the components of snap that are in ERROR.
func DescribeError(snap box.Snapshot) string {
	var parts []string
	if snap.LeftDoor == box.DoorError {
		parts = append(parts, "left flap")
	}
	if snap.RightDoor == box.DoorError {
		parts = append(parts, "right flap")
	}
	if snap.DeliveryDoor == box.DoorError {
		parts = append(parts, "delivery door")
	}
	if snap.LeftMotor == box.MotorError {
		parts = append(parts, "left motor")
	}
	if snap.RightMotor == box.MotorError {
		parts = append(parts, "right motor")
	}
	if len(parts) == 0 {
		return "Paketbox OK"
	}
	return fmt.Sprintf("Paketbox error: %s. Reset required.", strings.Join(parts, ", "))
}
