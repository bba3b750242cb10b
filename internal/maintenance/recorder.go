package maintenance

import (
	"context"
	"math"
	"time"

	"github.com/nerrad567/paketbox-core/internal/motor"
)

const writeTimeout = 5 * time.Second

// Logger is the logging interface used by the recorder.
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

// Recorder updates wear counters from cycle and delivery events. It
// satisfies motor.Observer and access.DeliveryObserver.
type Recorder struct {
	repo   Repository
	logger Logger
}

// NewRecorder creates a recorder writing to repo.
func NewRecorder(repo Repository, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{repo: repo, logger: logger}
}

// CycleCompleted counts a verified cycle and its motor run time.
func (r *Recorder) CycleCompleted(dir motor.Direction, ok bool, elapsed time.Duration) {
	switch {
	case !ok:
		r.increment(CounterFailedCycles, 1)
	case dir == motor.DirectionOpen:
		r.increment(CounterOpenCycles, 1)
	default:
		r.increment(CounterCloseCycles, 1)
	}
	r.increment(CounterMotorRuntime, int64(math.Round(elapsed.Seconds())))
}

// DeliveryAccepted counts a delivery.
func (r *Recorder) DeliveryAccepted() {
	r.increment(CounterDeliveries, 1)
}

func (r *Recorder) increment(name string, delta int64) {
	if delta == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := r.repo.Increment(ctx, name, delta); err != nil {
		r.logger.Error("updating wear counter failed", "counter", name, "error", err)
	}
}
