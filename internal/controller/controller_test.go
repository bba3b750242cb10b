package controller

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/paketbox-core/internal/box"
	"github.com/nerrad567/paketbox-core/internal/hardware"
	"github.com/nerrad567/paketbox-core/internal/infrastructure/config"
	"github.com/nerrad567/paketbox-core/internal/motor"
	"github.com/nerrad567/paketbox-core/internal/notify"
)

func testBoxConfig() config.BoxConfig {
	return config.BoxConfig{
		ClosureDuration:       120 * time.Millisecond,
		ReverseSignalDuration: 110 * time.Millisecond,
		VerifyMargin:          20 * time.Millisecond,
		DebounceInterval:      time.Millisecond,
		StabilitySamples:      2,
		PollInterval:          5 * time.Millisecond,
		GracePeriod:           40 * time.Millisecond,
		InterferenceWindow:    10 * time.Millisecond,
		ErrorReportInterval:   time.Hour,
		DoorOpenWatchdog:      time.Hour,
	}
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

type stateSpy struct {
	mu    sync.Mutex
	snaps []box.Snapshot
}

func (s *stateSpy) StateChanged(snap box.Snapshot) {
	s.mu.Lock()
	s.snaps = append(s.snaps, snap)
	s.mu.Unlock()
}

func (s *stateSpy) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snaps)
}

type cycleSpy struct {
	mu     sync.Mutex
	cycles []motor.Direction
}

func (c *cycleSpy) CycleCompleted(dir motor.Direction, ok bool, _ time.Duration) {
	if !ok {
		return
	}
	c.mu.Lock()
	c.cycles = append(c.cycles, dir)
	c.mu.Unlock()
}

func (c *cycleSpy) has(dir motor.Direction) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.cycles {
		if d == dir {
			return true
		}
	}
	return false
}

type bench struct {
	lines  *hardware.Fake
	rec    *notify.Recorder
	ctrl   *Controller
	cancel context.CancelFunc
	done   chan error
}

func flapsClosed(lines *hardware.Fake) {
	lines.SetActive(hardware.LeftFlapClosed, true)
	lines.SetActive(hardware.RightFlapClosed, true)
	lines.SetActive(hardware.LeftFlapOpen, false)
	lines.SetActive(hardware.RightFlapOpen, false)
}

func flapsOpen(lines *hardware.Fake) {
	lines.SetActive(hardware.LeftFlapClosed, false)
	lines.SetActive(hardware.RightFlapClosed, false)
	lines.SetActive(hardware.LeftFlapOpen, true)
	lines.SetActive(hardware.RightFlapOpen, true)
}

func newBench(t *testing.T, setup func(*Controller)) *bench {
	t.Helper()
	b := &bench{
		lines: hardware.NewFake(),
		rec:   &notify.Recorder{},
		done:  make(chan error, 1),
	}
	flapsClosed(b.lines)
	b.ctrl = New(testBoxConfig(), b.lines, b.rec, nil)
	if setup != nil {
		setup(b.ctrl)
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	go func() { b.done <- b.ctrl.Run(ctx) }()
	t.Cleanup(b.stop)
	return b
}

func (b *bench) stop() {
	b.cancel()
	<-b.done
	b.done <- nil
}

func TestRun_SynchronisesAtStart(t *testing.T) {
	spy := &stateSpy{}
	b := newBench(t, func(c *Controller) { c.AddStateListener(spy) })

	waitFor(t, time.Second, func() bool { return spy.count() > 0 })

	if !b.ctrl.Snapshot().IsAllClosed() {
		t.Errorf("Snapshot() = %+v, want all closed", b.ctrl.Snapshot())
	}
	statuses := b.rec.Statuses()
	if len(statuses) == 0 || statuses[0] != "Paketbox started" {
		t.Errorf("statuses = %v, want start message first", statuses)
	}
}

func TestRun_StartWithFlapBetweenPositions(t *testing.T) {
	lines := hardware.NewFake()
	ctrl := New(testBoxConfig(), lines, &notify.Recorder{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()
	defer func() { cancel(); <-done }()

	waitFor(t, time.Second, func() bool { return ctrl.Snapshot().AnyError() })
	if err := ctrl.Open(); !errors.Is(err, motor.ErrFaultActive) {
		t.Errorf("Open() error = %v, want ErrFaultActive", err)
	}
}

// A courier opens and closes the door; after the grace period the door is
// locked, the flaps open and close again, and the door is released.
func TestDeliveryCycle(t *testing.T) {
	cycles := &cycleSpy{}
	b := newBench(t, func(c *Controller) { c.AddCycleObserver(cycles) })
	waitFor(t, time.Second, func() bool { return len(b.rec.Statuses()) > 0 })

	b.lines.SetActive(hardware.DeliveryDoor, true)
	waitFor(t, time.Second, func() bool { return b.ctrl.Snapshot().DeliveryDoor == box.DoorOpen })

	b.lines.SetActive(hardware.DeliveryDoor, false)
	waitFor(t, time.Second, func() bool { return b.ctrl.Snapshot().DeliveryDoor == box.DoorClosed })

	waitFor(t, time.Second, func() bool {
		return b.lines.Level(hardware.LeftFlapOpenDrive) == hardware.DriveOn
	})
	if !b.ctrl.IsLocked() {
		t.Fatal("door not locked during delivery")
	}

	flapsOpen(b.lines)
	waitFor(t, 2*time.Second, func() bool { return cycles.has(motor.DirectionOpen) })

	flapsClosed(b.lines)
	waitFor(t, 2*time.Second, func() bool { return cycles.has(motor.DirectionClose) })

	waitFor(t, time.Second, func() bool { return !b.ctrl.IsLocked() })
	snap := b.ctrl.Snapshot()
	if !snap.IsAllClosed() || !snap.BothMotorsStopped() {
		t.Errorf("final state = %+v, want closed and stopped", snap)
	}
}

func TestErrorReported(t *testing.T) {
	b := newBench(t, nil)
	waitFor(t, time.Second, func() bool { return len(b.rec.Statuses()) > 0 })

	b.ctrl.state.SetLeftDoor(box.DoorError)

	waitFor(t, time.Second, func() bool {
		for _, s := range b.rec.Statuses() {
			if strings.HasPrefix(s, "Paketbox error") {
				return true
			}
		}
		return false
	})

	if !b.ctrl.Reset() {
		t.Errorf("Reset() = false, state %+v", b.ctrl.Snapshot())
	}
}

func TestShutdown(t *testing.T) {
	b := newBench(t, nil)
	waitFor(t, time.Second, func() bool { return len(b.rec.Statuses()) > 0 })

	if err := b.ctrl.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := b.ctrl.Lock(); err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	b.cancel()
	if err := <-b.done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	b.done <- nil

	for _, out := range hardware.Outputs() {
		if got := b.lines.Level(out); got != hardware.RestLevel {
			t.Errorf("%s = %s after shutdown, want rest", out, got)
		}
	}
	if err := b.ctrl.Open(); !errors.Is(err, ErrStopped) {
		t.Errorf("Open() after shutdown error = %v, want ErrStopped", err)
	}
	if err := b.ctrl.Unlock(); !errors.Is(err, ErrStopped) {
		t.Errorf("Unlock() after shutdown error = %v, want ErrStopped", err)
	}
}

func TestOperatorLockAndCancel(t *testing.T) {
	b := newBench(t, nil)

	if err := b.ctrl.Lock(); err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	if !b.ctrl.IsLocked() {
		t.Error("IsLocked() = false after Lock()")
	}
	if err := b.ctrl.Unlock(); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if b.ctrl.CancelPendingOpen() {
		t.Error("CancelPendingOpen() = true with nothing pending")
	}
}
