package sensor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/paketbox-core/internal/box"
	"github.com/nerrad567/paketbox-core/internal/hardware"
	"github.com/nerrad567/paketbox-core/internal/notify"
)

const quiet = time.Millisecond

// scriptReader returns a scripted sequence of levels per input. The last
// level repeats once the script is exhausted.
type scriptReader struct {
	mu     sync.Mutex
	script map[hardware.Input][]hardware.Level
	reads  map[hardware.Input]int
	err    error
}

func newScriptReader() *scriptReader {
	return &scriptReader{
		script: make(map[hardware.Input][]hardware.Level),
		reads:  make(map[hardware.Input]int),
	}
}

func (r *scriptReader) Read(in hardware.Input) (hardware.Level, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return hardware.Low, r.err
	}
	seq := r.script[in]
	n := r.reads[in]
	r.reads[in] = n + 1
	if len(seq) == 0 {
		return hardware.Low, nil
	}
	if n >= len(seq) {
		return seq[len(seq)-1], nil
	}
	return seq[n], nil
}

type doorSpy struct {
	mu     sync.Mutex
	opened int
	closed int
}

func (d *doorSpy) DeliveryDoorOpened() { d.mu.Lock(); d.opened++; d.mu.Unlock() }
func (d *doorSpy) DeliveryDoorClosed() { d.mu.Lock(); d.closed++; d.mu.Unlock() }

func (d *doorSpy) counts() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened, d.closed
}

type edgeSpy struct {
	mu    sync.Mutex
	edges map[hardware.Input]bool
}

func (e *edgeSpy) InputChanged(in hardware.Input, active bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.edges == nil {
		e.edges = make(map[hardware.Input]bool)
	}
	e.edges[in] = active
}

type bench struct {
	lines  *hardware.Fake
	state  *box.State
	door   *doorSpy
	rec    *notify.Recorder
	poller *Poller
}

func newBench(t *testing.T) *bench {
	t.Helper()
	b := &bench{
		lines: hardware.NewFake(),
		state: box.New(),
		door:  &doorSpy{},
		rec:   &notify.Recorder{},
	}
	filter := NewFilter(b.lines, quiet, 3)
	b.poller = NewPoller(b.lines, filter, b.state, time.Hour, BoxBindings(b.state, b.door, b.rec))
	// Baseline sample.
	b.poller.Poll(context.Background())
	return b
}

func (b *bench) poll() {
	b.poller.Poll(context.Background())
	b.poller.Wait()
}

func TestFilter_Confirm(t *testing.T) {
	tests := []struct {
		name string
		seq  []hardware.Level
		want bool
	}{
		{name: "level holds", seq: []hardware.Level{hardware.High}, want: true},
		{name: "level reverted", seq: []hardware.Level{hardware.Low}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newScriptReader()
			r.script[hardware.MotionSensor] = tt.seq
			f := NewFilter(r, quiet, 5)

			got, err := f.Confirm(context.Background(), hardware.MotionSensor, hardware.High)
			if err != nil {
				t.Fatalf("Confirm() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Confirm() = %v, want %v", got, tt.want)
			}
			if r.reads[hardware.MotionSensor] != 1 {
				t.Errorf("Confirm() took %d samples, want 1", r.reads[hardware.MotionSensor])
			}
		})
	}
}

func TestFilter_Stable(t *testing.T) {
	h, l := hardware.High, hardware.Low
	tests := []struct {
		name      string
		seq       []hardware.Level
		want      bool
		wantReads int
	}{
		{name: "stable throughout", seq: []hardware.Level{h, h, h, h}, want: true, wantReads: 4},
		{name: "reverts on last sample", seq: []hardware.Level{h, h, h, l}, want: false, wantReads: 4},
		{name: "reverts early", seq: []hardware.Level{h, l, h, h}, want: false, wantReads: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newScriptReader()
			r.script[hardware.DeliveryDoor] = tt.seq
			f := NewFilter(r, quiet, 4)

			got, err := f.Stable(context.Background(), hardware.DeliveryDoor, hardware.High)
			if err != nil {
				t.Fatalf("Stable() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Stable() = %v, want %v", got, tt.want)
			}
			if r.reads[hardware.DeliveryDoor] != tt.wantReads {
				t.Errorf("Stable() took %d samples, want %d", r.reads[hardware.DeliveryDoor], tt.wantReads)
			}
		})
	}
}

func TestFilter_ReadFault(t *testing.T) {
	r := newScriptReader()
	r.err = errors.New("bus error")
	f := NewFilter(r, quiet, 3)

	ok, err := f.Stable(context.Background(), hardware.LeftFlapClosed, hardware.Low)
	if ok {
		t.Error("Stable() = true on read fault")
	}
	if !errors.Is(err, ErrSensorFault) {
		t.Errorf("Stable() error = %v, want ErrSensorFault", err)
	}
}

func TestFilter_ContextCancelled(t *testing.T) {
	f := NewFilter(newScriptReader(), time.Hour, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, err := f.Confirm(ctx, hardware.MotionSensor, hardware.High)
	if ok || !errors.Is(err, context.Canceled) {
		t.Errorf("Confirm() = (%v, %v), want (false, context.Canceled)", ok, err)
	}
}

func TestPoller_BaselineDoesNotDispatch(t *testing.T) {
	lines := hardware.NewFake()
	lines.SetActive(hardware.DeliveryDoor, true)
	state := box.New()
	door := &doorSpy{}
	p := NewPoller(lines, NewFilter(lines, quiet, 2), state, time.Hour, BoxBindings(state, door, &notify.Recorder{}))

	p.Poll(context.Background())
	p.Wait()

	if opened, _ := door.counts(); opened != 0 {
		t.Errorf("baseline dispatched %d door openings, want 0", opened)
	}
	if state.DeliveryDoor() != box.DoorClosed {
		t.Errorf("DeliveryDoor() = %s, want CLOSED", state.DeliveryDoor())
	}
}

func TestPoller_DeliveryDoorEdges(t *testing.T) {
	b := newBench(t)

	b.lines.SetActive(hardware.DeliveryDoor, true)
	b.poll()

	if got := b.state.DeliveryDoor(); got != box.DoorOpen {
		t.Fatalf("DeliveryDoor() = %s, want OPEN", got)
	}
	if opened, _ := b.door.counts(); opened != 1 {
		t.Errorf("door opened %d times, want 1", opened)
	}

	b.lines.SetActive(hardware.DeliveryDoor, false)
	b.poll()

	if got := b.state.DeliveryDoor(); got != box.DoorClosed {
		t.Fatalf("DeliveryDoor() = %s, want CLOSED", got)
	}
	if _, closed := b.door.counts(); closed != 1 {
		t.Errorf("door closed %d times, want 1", closed)
	}

	want := []notify.Event{
		{Channel: notify.ChannelDelivery, State: notify.On},
		{Channel: notify.ChannelDelivery, State: notify.Off},
	}
	got := b.rec.Events()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPoller_FlapSensors(t *testing.T) {
	tests := []struct {
		name   string
		input  hardware.Input
		active bool
		get    func(*box.State) box.DoorStatus
		want   box.DoorStatus
	}{
		{"left open sensor", hardware.LeftFlapOpen, true, (*box.State).LeftDoor, box.DoorOpen},
		{"right open sensor", hardware.RightFlapOpen, true, (*box.State).RightDoor, box.DoorOpen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBench(t)
			b.lines.SetActive(tt.input, tt.active)
			b.poll()
			if got := tt.get(b.state); got != tt.want {
				t.Errorf("status = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPoller_FlapClosedAfterOpen(t *testing.T) {
	b := newBench(t)
	b.state.SetLeftDoor(box.DoorOpen)

	b.lines.SetActive(hardware.LeftFlapClosed, true)
	b.poll()

	if got := b.state.LeftDoor(); got != box.DoorClosed {
		t.Errorf("LeftDoor() = %s, want CLOSED", got)
	}
}

func TestPoller_CriticalReadFaultSetsError(t *testing.T) {
	b := newBench(t)
	b.lines.FailRead(hardware.RightFlapOpen, errors.New("sysfs: no such file"))
	b.poll()

	if got := b.state.RightDoor(); got != box.DoorError {
		t.Errorf("RightDoor() = %s, want ERROR", got)
	}
}

func TestPoller_DeliveryDoorErrorSurvivesRecoveredLine(t *testing.T) {
	b := newBench(t)
	b.lines.FailRead(hardware.DeliveryDoor, errors.New("sysfs: no such file"))
	b.poll()

	if got := b.state.DeliveryDoor(); got != box.DoorError {
		t.Fatalf("DeliveryDoor() = %s, want ERROR", got)
	}

	b.lines.FailRead(hardware.DeliveryDoor, nil)
	b.lines.SetActive(hardware.DeliveryDoor, true)
	b.poll()
	b.lines.SetActive(hardware.DeliveryDoor, false)
	b.poll()

	if got := b.state.DeliveryDoor(); got != box.DoorError {
		t.Errorf("DeliveryDoor() = %s, want ERROR", got)
	}
	if !b.state.AnyError() {
		t.Error("AnyError() = false after edges on a failed door")
	}
	if opened, closed := b.door.counts(); opened != 0 || closed != 0 {
		t.Errorf("door listener called opened=%d closed=%d, want 0/0", opened, closed)
	}
	for _, e := range b.rec.Events() {
		if e.Channel == notify.ChannelDelivery {
			t.Errorf("delivery event %v published for a door in ERROR", e)
		}
	}
}

func TestPoller_FlapEdgesKeepError(t *testing.T) {
	b := newBench(t)
	b.state.SetFlaps(box.DoorError)

	b.lines.SetActive(hardware.LeftFlapOpen, true)
	b.lines.SetActive(hardware.RightFlapOpen, true)
	b.poll()
	b.lines.SetActive(hardware.LeftFlapOpen, false)
	b.lines.SetActive(hardware.RightFlapOpen, false)
	b.lines.SetActive(hardware.LeftFlapClosed, true)
	b.lines.SetActive(hardware.RightFlapClosed, true)
	b.poll()

	if l, r := b.state.LeftDoor(), b.state.RightDoor(); l != box.DoorError || r != box.DoorError {
		t.Errorf("flaps = %s/%s, want ERROR/ERROR", l, r)
	}
}

func TestPoller_NonCriticalReadFaultOnlyLogs(t *testing.T) {
	b := newBench(t)
	b.lines.FailRead(hardware.MotionSensor, errors.New("sysfs: no such file"))
	b.poll()

	if b.state.AnyError() {
		t.Errorf("state has error after non-critical fault: %+v", b.state.Snapshot())
	}
}

func TestPoller_InterferenceGate(t *testing.T) {
	b := newBench(t)
	b.state.SuppressInterference(time.Hour)

	b.lines.SetActive(hardware.MailboxContact, true)
	b.lines.SetActive(hardware.DeliveryDoor, true)
	b.poll()

	for _, e := range b.rec.Events() {
		if e.Channel == notify.ChannelMailbox {
			t.Errorf("mailbox event %v published during interference window", e)
		}
	}
	// Critical inputs are not gated.
	if got := b.state.DeliveryDoor(); got != box.DoorOpen {
		t.Errorf("DeliveryDoor() = %s, want OPEN", got)
	}
}

func TestPoller_NonCriticalEvents(t *testing.T) {
	b := newBench(t)

	b.lines.SetActive(hardware.MailboxContact, true)
	b.lines.SetActive(hardware.BoxEmptyingDoor, true)
	b.lines.SetActive(hardware.DoorOpenerButtonA, true)
	b.poll()

	events := b.rec.Events()
	seen := make(map[notify.Channel]notify.EventState)
	for _, e := range events {
		seen[e.Channel] = e.State
	}
	if seen[notify.ChannelMailbox] != notify.On {
		t.Errorf("mailbox event = %q, want ON", seen[notify.ChannelMailbox])
	}
	if seen[notify.ChannelBoxEmptying] != notify.On {
		t.Errorf("box_emptying event = %q, want ON", seen[notify.ChannelBoxEmptying])
	}

	statuses := b.rec.Statuses()
	if len(statuses) != 2 {
		t.Errorf("statuses = %v, want mail and button texts", statuses)
	}
}

func TestPoller_NoiseDiscarded(t *testing.T) {
	r := newScriptReader()
	// baseline low, edge high, confirmation sample low
	r.script[hardware.MotionSensor] = []hardware.Level{hardware.Low, hardware.High, hardware.Low}
	state := box.New()
	rec := &notify.Recorder{}
	bindings := []Binding{{
		Input:    hardware.MotionSensor,
		OnActive: func(context.Context) { rec.PublishStatus("motion") },
	}}
	p := NewPoller(r, NewFilter(r, quiet, 3), state, time.Hour, bindings)

	p.Poll(context.Background())
	p.Poll(context.Background())
	p.Wait()

	if got := rec.Statuses(); len(got) != 0 {
		t.Errorf("statuses = %v, want none for a noise pulse", got)
	}
}

func TestPoller_ObserverSeesConfirmedEdges(t *testing.T) {
	b := newBench(t)
	spy := &edgeSpy{}
	b.poller.SetObserver(spy)

	b.lines.SetActive(hardware.BoxEmptyingDoor, true)
	b.poll()

	spy.mu.Lock()
	defer spy.mu.Unlock()
	if active, ok := spy.edges[hardware.BoxEmptyingDoor]; !ok || !active {
		t.Errorf("observer edges = %v, want box_emptying_door active", spy.edges)
	}
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	lines := hardware.NewFake()
	state := box.New()
	p := NewPoller(lines, NewFilter(lines, quiet, 1), state, time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
