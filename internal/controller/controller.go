package controller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/paketbox-core/internal/access"
	"github.com/nerrad567/paketbox-core/internal/box"
	"github.com/nerrad567/paketbox-core/internal/hardware"
	"github.com/nerrad567/paketbox-core/internal/infrastructure/config"
	"github.com/nerrad567/paketbox-core/internal/motor"
	"github.com/nerrad567/paketbox-core/internal/notify"
	"github.com/nerrad567/paketbox-core/internal/recovery"
	"github.com/nerrad567/paketbox-core/internal/sensor"
	"github.com/nerrad567/paketbox-core/internal/timers"
)

// Logger is the logging interface used by the controller. It is passed on
// to every core component.
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

// StateListener receives every changed snapshot.
type StateListener interface {
	StateChanged(snap box.Snapshot)
}

// Controller is the assembled box control core.
//
// Thread Safety: operator methods are safe for concurrent use. Run must be
// called once.
type Controller struct {
	cfg      config.BoxConfig
	state    *box.State
	lines    hardware.Lines
	timers   *timers.Registry
	poller   *sensor.Poller
	motor    *motor.Sequencer
	access   *access.Controller
	recovery *recovery.Manager
	reporter *notify.ErrorReporter
	notifier notify.Notifier
	logger   Logger

	mu        sync.RWMutex
	listeners []StateListener

	stopped  atomic.Bool
	shutdown sync.Once
}

// New assembles the core on top of lines, publishing through n.
func New(cfg config.BoxConfig, lines hardware.Lines, n notify.Notifier, logger Logger) *Controller {
	if logger == nil {
		logger = noopLogger{}
	}

	state := box.New()
	registry := timers.New(logger)
	reporter := notify.NewErrorReporter(n, cfg.ErrorReportInterval)

	seq := motor.New(state, lines, registry, n, motor.TimingFromConfig(cfg))
	seq.SetLogger(logger)

	door := access.New(state, lines, seq, registry, n, access.TimingFromConfig(cfg))
	door.SetLogger(logger)
	seq.SetUnlocker(door)

	rec := recovery.New(state, lines, door, reporter, n)
	rec.SetLogger(logger)

	filter := sensor.NewFilter(lines, cfg.DebounceInterval, cfg.StabilitySamples)
	poller := sensor.NewPoller(lines, filter, state, cfg.PollInterval, sensor.BoxBindings(state, door, n))
	poller.SetLogger(logger)

	return &Controller{
		cfg:      cfg,
		state:    state,
		lines:    lines,
		timers:   registry,
		poller:   poller,
		motor:    seq,
		access:   door,
		recovery: rec,
		reporter: reporter,
		notifier: n,
		logger:   logger,
	}
}

// AddStateListener registers a listener for state changes. Register
// listeners before Run.
func (c *Controller) AddStateListener(l StateListener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

// AddCycleObserver registers an observer of verified flap cycles.
func (c *Controller) AddCycleObserver(o motor.Observer) {
	c.motor.AddObserver(o)
}

// AddDeliveryObserver registers an observer of accepted deliveries.
func (c *Controller) AddDeliveryObserver(o access.DeliveryObserver) {
	c.access.AddObserver(o)
}

// SetEdgeObserver registers an observer of confirmed input edges.
func (c *Controller) SetEdgeObserver(o sensor.EdgeObserver) {
	c.poller.SetObserver(o)
}

// Run synchronises with the sensors and runs the core until ctx is
// cancelled. It always shuts the core down before returning.
func (c *Controller) Run(ctx context.Context) error {
	defer c.Shutdown()

	snap := c.recovery.Resync()
	c.logger.Info("box state synchronised",
		"left", snap.LeftDoor,
		"right", snap.RightDoor,
		"delivery", snap.DeliveryDoor,
	)
	c.notifier.PublishStatus("Paketbox started")
	c.broadcast(snap)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.poller.Run(gctx) })
	g.Go(func() error { return c.watchErrors(gctx) })
	g.Go(func() error { return c.watchState(gctx) })
	return g.Wait()
}

// watchErrors runs the error reporter once per poll interval.
func (c *Controller) watchErrors(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.reporter.Check(c.state.Snapshot())
		}
	}
}

// watchState fans state changes out to the listeners.
func (c *Controller) watchState(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.state.Changes():
			c.broadcast(c.state.Snapshot())
		}
	}
}

func (c *Controller) broadcast(snap box.Snapshot) {
	c.mu.RLock()
	listeners := c.listeners
	c.mu.RUnlock()
	for _, l := range listeners {
		l.StateChanged(snap)
	}
}

// Shutdown cancels every pending timer and returns all outputs to rest.
// It is safe to call more than once.
func (c *Controller) Shutdown() {
	c.shutdown.Do(func() {
		c.stopped.Store(true)
		n := c.timers.CancelAll()
		if err := hardware.ReleaseAll(c.lines); err != nil {
			c.logger.Error("returning outputs to rest failed", "error", err)
		}
		c.logger.Info("box core stopped", "timers_cancelled", n)
	})
}

// Snapshot returns the current box state.
func (c *Controller) Snapshot() box.Snapshot {
	return c.state.Snapshot()
}

// IsLocked reports whether the delivery door lock is engaged.
func (c *Controller) IsLocked() bool {
	return c.access.IsLocked()
}

// Open starts an open cycle.
func (c *Controller) Open() error {
	if c.stopped.Load() {
		return ErrStopped
	}
	return c.motor.Open()
}

// Close starts a close cycle.
func (c *Controller) Close() error {
	if c.stopped.Load() {
		return ErrStopped
	}
	return c.motor.Close()
}

// Reset runs error recovery and reports whether the box is error free.
func (c *Controller) Reset() bool {
	if c.stopped.Load() {
		return false
	}
	return c.recovery.ResetErrorState()
}

// Lock engages the delivery door lock.
func (c *Controller) Lock() error {
	if c.stopped.Load() {
		return ErrStopped
	}
	return c.access.Lock()
}

// Unlock releases the delivery door lock.
func (c *Controller) Unlock() error {
	if c.stopped.Load() {
		return ErrStopped
	}
	return c.access.Unlock()
}

// CancelPendingOpen cancels a delivery waiting out its grace period.
func (c *Controller) CancelPendingOpen() bool {
	return c.access.CancelPendingOpen()
}
