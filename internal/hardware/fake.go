package hardware

import (
	"fmt"
	"sync"
)

// Write records one output write on a Fake.
type Write struct {
	Output Output
	Level  Level
}

// Fake is an in-memory Lines implementation. Inputs start at their
// inactive level and outputs at RestLevel.
//
// Thread Safety: all methods are safe for concurrent use.
type Fake struct {
	mu         sync.Mutex
	inputs     map[Input]Level
	outputs    map[Output]Level
	readFaults map[Input]error
	writeFault map[Output]error
	writes     []Write
	closed     bool
}

// NewFake returns a bench with every input inactive and every output at rest.
func NewFake() *Fake {
	f := &Fake{
		inputs:     make(map[Input]Level),
		outputs:    make(map[Output]Level),
		readFaults: make(map[Input]error),
		writeFault: make(map[Output]error),
	}
	for _, in := range Inputs() {
		f.inputs[in] = inactive(in)
	}
	for _, out := range Outputs() {
		f.outputs[out] = RestLevel
	}
	return f
}

func inactive(in Input) Level {
	if in.ActiveLevel() == High {
		return Low
	}
	return High
}

// Set forces an input to a level.
func (f *Fake) Set(in Input, level Level) {
	f.mu.Lock()
	f.inputs[in] = level
	f.mu.Unlock()
}

// SetActive drives an input to its active (true) or inactive (false) level.
func (f *Fake) SetActive(in Input, active bool) {
	level := inactive(in)
	if active {
		level = in.ActiveLevel()
	}
	f.Set(in, level)
}

// FailRead makes reads of in return err until cleared with a nil err.
func (f *Fake) FailRead(in Input, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.readFaults, in)
		return
	}
	f.readFaults[in] = err
}

// FailWrite makes writes to out return err until cleared with a nil err.
func (f *Fake) FailWrite(out Output, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.writeFault, out)
		return
	}
	f.writeFault[out] = err
}

// Read implements Lines.
func (f *Fake) Read(in Input) (Level, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return Low, ErrClosed
	}
	if err := f.readFaults[in]; err != nil {
		return Low, fmt.Errorf("reading %s: %w", in, err)
	}
	level, ok := f.inputs[in]
	if !ok {
		return Low, fmt.Errorf("%w: %s", ErrUnknownLine, in)
	}
	return level, nil
}

// Write implements Lines.
func (f *Fake) Write(out Output, level Level) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	if _, ok := f.outputs[out]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLine, out)
	}
	if err := f.writeFault[out]; err != nil {
		return fmt.Errorf("writing %s %s: %w", out, level, err)
	}
	f.outputs[out] = level
	f.writes = append(f.writes, Write{Output: out, Level: level})
	return nil
}

// Output implements Lines.
func (f *Fake) Output(out Output) (Level, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	level, ok := f.outputs[out]
	if !ok {
		return Low, fmt.Errorf("%w: %s", ErrUnknownLine, out)
	}
	return level, nil
}

// Level returns the current level of an output, ignoring errors.
func (f *Fake) Level(out Output) Level {
	level, _ := f.Output(out) //nolint:errcheck // every Output exists on a Fake
	return level
}

// Writes returns a copy of every successful write so far.
func (f *Fake) Writes() []Write {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Write(nil), f.writes...)
}

// Close implements Lines.
func (f *Fake) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}
