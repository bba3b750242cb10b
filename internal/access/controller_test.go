package access

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/paketbox-core/internal/box"
	"github.com/nerrad567/paketbox-core/internal/hardware"
	"github.com/nerrad567/paketbox-core/internal/infrastructure/config"
	"github.com/nerrad567/paketbox-core/internal/notify"
	"github.com/nerrad567/paketbox-core/internal/timers"
)

type flapsSpy struct {
	mu      sync.Mutex
	opens   int
	closes  int
	openErr error
}

func (f *flapsSpy) Open() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	return f.openErr
}

func (f *flapsSpy) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *flapsSpy) counts() (opens, closes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens, f.closes
}

type deliverySpy struct {
	mu sync.Mutex
	n  int
}

func (d *deliverySpy) DeliveryAccepted() {
	d.mu.Lock()
	d.n++
	d.mu.Unlock()
}

func (d *deliverySpy) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.n
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

type rig struct {
	state  *box.State
	lines  *hardware.Fake
	flaps  *flapsSpy
	timers *timers.Registry
	rec    *notify.Recorder
	ctrl   *Controller
}

func newRig(t *testing.T, timing Timing) *rig {
	t.Helper()
	r := &rig{
		state:  box.New(),
		lines:  hardware.NewFake(),
		flaps:  &flapsSpy{},
		timers: timers.New(nil),
		rec:    &notify.Recorder{},
	}
	r.ctrl = New(r.state, r.lines, r.flaps, r.timers, r.rec, timing)
	t.Cleanup(func() { r.timers.CancelAll() })
	return r
}

func TestLockUnlock(t *testing.T) {
	r := newRig(t, Timing{GracePeriod: time.Hour})

	if r.ctrl.IsLocked() {
		t.Fatal("IsLocked() = true at rest")
	}
	if err := r.ctrl.Lock(); err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	if !r.ctrl.IsLocked() {
		t.Error("IsLocked() = false after Lock()")
	}
	if got := r.lines.Level(hardware.DeliveryDoorLock); got != hardware.LockEngaged {
		t.Errorf("lock output = %s, want %s", got, hardware.LockEngaged)
	}
	if err := r.ctrl.Unlock(); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if r.ctrl.IsLocked() {
		t.Error("IsLocked() = true after Unlock()")
	}
}

func TestLock_FailureReported(t *testing.T) {
	r := newRig(t, Timing{GracePeriod: time.Hour})
	r.lines.FailWrite(hardware.DeliveryDoorLock, errors.New("relay stuck"))

	err := r.ctrl.Lock()
	if !errors.Is(err, ErrLockFailed) {
		t.Fatalf("Lock() error = %v, want ErrLockFailed", err)
	}
	statuses := r.rec.Statuses()
	if len(statuses) != 1 || !strings.Contains(statuses[0], "lock failed") {
		t.Errorf("statuses = %v, want one lock failure report", statuses)
	}
}

// Door reopened during the grace period: the delivery never starts.
func TestDoorReopenedDuringGrace(t *testing.T) {
	r := newRig(t, Timing{GracePeriod: 100 * time.Millisecond})

	r.ctrl.DeliveryDoorClosed()
	if !r.timers.Pending(timers.SlotDelayedOpen) {
		t.Fatal("grace period not scheduled")
	}

	time.Sleep(30 * time.Millisecond)
	r.state.SetDeliveryDoor(box.DoorOpen)
	r.ctrl.DeliveryDoorOpened()

	if r.timers.Pending(timers.SlotDelayedOpen) {
		t.Error("grace period still pending after door opened")
	}
	time.Sleep(150 * time.Millisecond)
	if opens, _ := r.flaps.counts(); opens != 0 {
		t.Errorf("Open() calls = %d, want 0", opens)
	}
	if r.ctrl.IsLocked() {
		t.Error("door locked after aborted delivery")
	}
}

// Door stays closed for the whole grace period: lock then open once.
func TestGraceElapsedStartsDelivery(t *testing.T) {
	r := newRig(t, Timing{GracePeriod: 20 * time.Millisecond})
	spy := &deliverySpy{}
	r.ctrl.AddObserver(spy)

	r.ctrl.DeliveryDoorClosed()

	waitFor(t, time.Second, func() bool {
		opens, _ := r.flaps.counts()
		return opens > 0
	})
	time.Sleep(40 * time.Millisecond)

	if opens, _ := r.flaps.counts(); opens != 1 {
		t.Errorf("Open() calls = %d, want 1", opens)
	}
	if !r.ctrl.IsLocked() {
		t.Error("door not locked before the flaps opened")
	}
	if spy.count() != 1 {
		t.Errorf("deliveries = %d, want 1", spy.count())
	}
}

func TestGraceElapsed_DoorNotClosed(t *testing.T) {
	r := newRig(t, Timing{GracePeriod: time.Hour})
	r.state.SetDeliveryDoor(box.DoorError)

	r.ctrl.graceElapsed()

	if opens, _ := r.flaps.counts(); opens != 0 {
		t.Errorf("Open() calls = %d, want 0", opens)
	}
	if r.ctrl.IsLocked() {
		t.Error("door locked although it was not closed")
	}
}

func TestGraceElapsed_LockFailureSkipsOpen(t *testing.T) {
	r := newRig(t, Timing{GracePeriod: time.Hour})
	r.lines.FailWrite(hardware.DeliveryDoorLock, errors.New("relay stuck"))

	r.ctrl.graceElapsed()

	if opens, _ := r.flaps.counts(); opens != 0 {
		t.Errorf("Open() calls = %d, want 0 when the lock fails", opens)
	}
}

func TestGraceElapsed_OpenRefused(t *testing.T) {
	r := newRig(t, Timing{GracePeriod: time.Hour})
	r.flaps.openErr = errors.New("motor: fault state active")
	spy := &deliverySpy{}
	r.ctrl.AddObserver(spy)

	r.ctrl.graceElapsed()

	if spy.count() != 0 {
		t.Errorf("deliveries = %d, want 0 when the cycle is refused", spy.count())
	}
}

func TestDoorOpened_ClosesOpenFlaps(t *testing.T) {
	tests := []struct {
		name       string
		left       box.DoorStatus
		right      box.DoorStatus
		wantCloses int
	}{
		{"both open", box.DoorOpen, box.DoorOpen, 1},
		{"one open", box.DoorOpen, box.DoorClosed, 0},
		{"both closed", box.DoorClosed, box.DoorClosed, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t, Timing{GracePeriod: time.Hour})
			r.state.SetLeftDoor(tt.left)
			r.state.SetRightDoor(tt.right)

			r.ctrl.DeliveryDoorOpened()

			if _, closes := r.flaps.counts(); closes != tt.wantCloses {
				t.Errorf("Close() calls = %d, want %d", closes, tt.wantCloses)
			}
		})
	}
}

func TestCancelPendingOpen(t *testing.T) {
	r := newRig(t, Timing{GracePeriod: time.Hour})

	if r.ctrl.CancelPendingOpen() {
		t.Error("CancelPendingOpen() = true with nothing pending")
	}
	r.ctrl.DeliveryDoorClosed()
	if !r.ctrl.CancelPendingOpen() {
		t.Error("CancelPendingOpen() = false with a pending delivery")
	}
	if r.timers.Pending(timers.SlotDelayedOpen) {
		t.Error("delivery still pending after cancel")
	}
}

func TestWatchdog(t *testing.T) {
	r := newRig(t, Timing{GracePeriod: time.Hour, Watchdog: 20 * time.Millisecond})
	r.state.SetDeliveryDoor(box.DoorOpen)

	r.ctrl.DeliveryDoorOpened()

	waitFor(t, time.Second, func() bool { return len(r.rec.Statuses()) > 0 })
	if got := r.rec.Statuses()[0]; !strings.Contains(got, "Delivery door open for") {
		t.Errorf("status = %q, want door-open warning", got)
	}
}

func TestWatchdog_CancelledByClose(t *testing.T) {
	r := newRig(t, Timing{GracePeriod: time.Hour, Watchdog: 50 * time.Millisecond})
	r.state.SetDeliveryDoor(box.DoorOpen)

	r.ctrl.DeliveryDoorOpened()
	r.state.SetDeliveryDoor(box.DoorClosed)
	r.ctrl.DeliveryDoorClosed()

	if r.timers.Pending(timers.SlotDoorOpenWatchdog) {
		t.Error("watchdog still pending after the door closed")
	}
}

func TestTimingFromConfig(t *testing.T) {
	got := TimingFromConfig(config.Default().Box)
	want := Timing{GracePeriod: 10 * time.Second, Watchdog: 15 * time.Minute}
	if got != want {
		t.Errorf("TimingFromConfig() = %+v, want %+v", got, want)
	}
}
