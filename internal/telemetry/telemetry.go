// Package telemetry forwards box activity to the time-series store.
//
// The Recorder observes flap cycles, confirmed input edges and channel
// events and writes each as a point. Writes are non-blocking; a missing or
// unreachable store never affects box control.
package telemetry

import (
	"time"

	"github.com/nerrad567/paketbox-core/internal/hardware"
	"github.com/nerrad567/paketbox-core/internal/motor"
	"github.com/nerrad567/paketbox-core/internal/notify"
)

// Writer writes telemetry points. *influxdb.Client satisfies it.
type Writer interface {
	WriteCycle(direction string, ok bool, elapsed time.Duration)
	WriteInputEdge(input string, active bool)
	WriteFault(component, reason string)
	WriteEvent(channel string, on bool)
}

// Recorder satisfies motor.Observer, sensor.EdgeObserver and
// notify.Notifier.
type Recorder struct {
	w Writer
}

// NewRecorder creates a recorder writing to w.
func NewRecorder(w Writer) *Recorder {
	return &Recorder{w: w}
}

// CycleCompleted records a cycle outcome and, on failure, a fault.
func (r *Recorder) CycleCompleted(dir motor.Direction, ok bool, elapsed time.Duration) {
	r.w.WriteCycle(string(dir), ok, elapsed)
	if !ok {
		r.w.WriteFault("flaps", string(dir)+" verification failed")
	}
}

// InputChanged records a confirmed input edge.
func (r *Recorder) InputChanged(in hardware.Input, active bool) {
	r.w.WriteInputEdge(in.String(), active)
}

// PublishEvent records a channel event.
func (r *Recorder) PublishEvent(channel notify.Channel, state notify.EventState) {
	r.w.WriteEvent(string(channel), state == notify.On)
}

// PublishStatus is a no-op; status text is not telemetry.
func (r *Recorder) PublishStatus(string) {}
