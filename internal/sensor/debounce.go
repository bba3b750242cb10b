package sensor

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/paketbox-core/internal/hardware"
)

// Reader samples input lines. hardware.Lines satisfies it.
type Reader interface {
	Read(in hardware.Input) (hardware.Level, error)
}

// Filter validates raw edges against transient noise.
type Filter struct {
	lines    Reader
	interval time.Duration
	samples  int
}

// NewFilter creates a filter re-sampling every interval; the extended check
// takes samples re-samples.
func NewFilter(lines Reader, interval time.Duration, samples int) *Filter {
	if samples < 1 {
		samples = 1
	}
	return &Filter{lines: lines, interval: interval, samples: samples}
}

// Confirm waits one quiet period and re-samples in. It reports whether the
// line still reads expected.
func (f *Filter) Confirm(ctx context.Context, in hardware.Input, expected hardware.Level) (bool, error) {
	return f.hold(ctx, in, expected, 1)
}

// Stable re-samples in up to the configured number of times, one quiet
// period apart. Any sample that differs from expected discards the edge.
func (f *Filter) Stable(ctx context.Context, in hardware.Input, expected hardware.Level) (bool, error) {
	return f.hold(ctx, in, expected, f.samples)
}

func (f *Filter) hold(ctx context.Context, in hardware.Input, expected hardware.Level, samples int) (bool, error) {
	timer := time.NewTimer(f.interval)
	defer timer.Stop()

	for i := 0; i < samples; i++ {
		if i > 0 {
			timer.Reset(f.interval)
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}

		level, err := f.lines.Read(in)
		if err != nil {
			return false, fmt.Errorf("%w: %s: %w", ErrSensorFault, in, err)
		}
		if level != expected {
			return false, nil
		}
	}
	return true, nil
}
