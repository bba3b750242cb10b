package sensor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nerrad567/paketbox-core/internal/box"
	"github.com/nerrad567/paketbox-core/internal/hardware"
)

// Logger is the logging interface used by the sensor package.
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

// EdgeObserver is told about every confirmed edge. Telemetry implements it.
type EdgeObserver interface {
	InputChanged(in hardware.Input, active bool)
}

// Poller samples all bound inputs on a fixed interval and dispatches
// confirmed edges to their bindings.
//
// Thread Safety: Run must be called once. Edge handlers run on their own
// goroutines and may overlap.
type Poller struct {
	lines    Reader
	filter   *Filter
	state    *box.State
	interval time.Duration
	bindings map[hardware.Input]Binding
	order    []hardware.Input
	observer EdgeObserver
	logger   Logger

	last    map[hardware.Input]hardware.Level
	faulted map[hardware.Input]bool
	wg      sync.WaitGroup
}

// NewPoller creates a poller over the given bindings.
func NewPoller(lines Reader, filter *Filter, state *box.State, interval time.Duration, bindings []Binding) *Poller {
	p := &Poller{
		lines:    lines,
		filter:   filter,
		state:    state,
		interval: interval,
		bindings: make(map[hardware.Input]Binding, len(bindings)),
		logger:   noopLogger{},
		last:     make(map[hardware.Input]hardware.Level),
		faulted:  make(map[hardware.Input]bool),
	}
	for _, b := range bindings {
		if _, dup := p.bindings[b.Input]; !dup {
			p.order = append(p.order, b.Input)
		}
		p.bindings[b.Input] = b
	}
	return p
}

// SetLogger sets the logger.
func (p *Poller) SetLogger(logger Logger) {
	if logger != nil {
		p.logger = logger
	}
}

// SetObserver registers an observer for confirmed edges.
func (p *Poller) SetObserver(o EdgeObserver) {
	p.observer = o
}

// Run polls until ctx is cancelled, then waits for in-flight edge handlers.
// The first sample of each line sets its baseline without dispatching.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	defer p.wg.Wait()

	p.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll takes one sample of every bound input. It is not safe to call
// concurrently with itself.
func (p *Poller) Poll(ctx context.Context) {
	for _, in := range p.order {
		level, err := p.lines.Read(in)
		if err != nil {
			p.fault(in, err)
			continue
		}
		if p.faulted[in] {
			p.logger.Info("input readable again", "input", in.String())
			delete(p.faulted, in)
		}

		prev, seen := p.last[in]
		p.last[in] = level
		if !seen || prev == level {
			continue
		}

		p.wg.Add(1)
		go func(in hardware.Input, level hardware.Level) {
			defer p.wg.Done()
			p.handleEdge(ctx, in, level)
		}(in, level)
	}
}

// Wait blocks until all dispatched edge handlers have returned.
func (p *Poller) Wait() {
	p.wg.Wait()
}

func (p *Poller) fault(in hardware.Input, err error) {
	b := p.bindings[in]
	if !p.faulted[in] {
		p.logger.Error("input read failed", "input", in.String(), "critical", b.Critical, "error", err)
		p.faulted[in] = true
	}
	if b.Critical && b.OnFault != nil {
		b.OnFault(err)
	}
}

func (p *Poller) handleEdge(ctx context.Context, in hardware.Input, level hardware.Level) {
	b := p.bindings[in]

	if !b.Critical && p.state.InterferenceActive() {
		p.logger.Debug("edge discarded during motor interference", "input", in.String(), "level", level.String())
		return
	}

	var (
		ok  bool
		err error
	)
	if b.Critical {
		ok, err = p.filter.Stable(ctx, in, level)
	} else {
		ok, err = p.filter.Confirm(ctx, in, level)
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return
	case err != nil:
		p.logger.Error("edge confirmation failed", "input", in.String(), "error", err)
		if b.Critical && b.OnFault != nil {
			b.OnFault(err)
		}
		return
	case !ok:
		p.logger.Debug("edge discarded as noise", "input", in.String(), "level", level.String())
		return
	}

	if !b.Critical && p.state.InterferenceActive() {
		p.logger.Debug("edge discarded during motor interference", "input", in.String(), "level", level.String())
		return
	}

	active := level == in.ActiveLevel()
	p.logger.Debug("edge confirmed", "input", in.String(), "active", active)

	if p.observer != nil {
		p.observer.InputChanged(in, active)
	}
	if active && b.OnActive != nil {
		b.OnActive(ctx)
	} else if !active && b.OnInactive != nil {
		b.OnInactive(ctx)
	}
}
