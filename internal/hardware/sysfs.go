package hardware

import (
	"fmt"
	"sync"

	"github.com/brian-armstrong/gpio"
)

// SysfsGPIO implements Lines on the kernel sysfs GPIO interface.
//
// Thread Safety: all methods are safe for concurrent use.
type SysfsGPIO struct {
	mu      sync.Mutex
	inputs  map[Input]gpio.Pin
	outputs map[Output]gpio.Pin
	levels  map[Output]Level
	closed  bool
}

// OpenSysfs exports every pin in the map. Outputs start at RestLevel.
func OpenSysfs(pins PinMap) (*SysfsGPIO, error) {
	if err := checkPinMap(pins); err != nil {
		return nil, err
	}

	g := &SysfsGPIO{
		inputs:  make(map[Input]gpio.Pin, len(pins.Inputs)),
		outputs: make(map[Output]gpio.Pin, len(pins.Outputs)),
		levels:  make(map[Output]Level, len(pins.Outputs)),
	}

	for in, pin := range pins.Inputs {
		g.inputs[in] = gpio.NewInput(pin)
	}
	for out, pin := range pins.Outputs {
		g.outputs[out] = gpio.NewOutput(pin, RestLevel == High)
		g.levels[out] = RestLevel
	}

	return g, nil
}

func checkPinMap(pins PinMap) error {
	seen := make(map[uint]string)
	claim := func(pin uint, name string) error {
		if other, ok := seen[pin]; ok {
			return fmt.Errorf("%w: pin %d used by %s and %s", ErrDuplicatePin, pin, other, name)
		}
		seen[pin] = name
		return nil
	}

	for _, in := range Inputs() {
		pin, ok := pins.Inputs[in]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownLine, in)
		}
		if err := claim(pin, in.String()); err != nil {
			return err
		}
	}
	for _, out := range Outputs() {
		pin, ok := pins.Outputs[out]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownLine, out)
		}
		if err := claim(pin, out.String()); err != nil {
			return err
		}
	}
	return nil
}

// Read samples an input line.
func (g *SysfsGPIO) Read(in Input) (Level, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return Low, ErrClosed
	}
	pin, ok := g.inputs[in]
	if !ok {
		return Low, fmt.Errorf("%w: %s", ErrUnknownLine, in)
	}

	v, err := pin.Read()
	if err != nil {
		return Low, fmt.Errorf("reading %s: %w", in, err)
	}
	if v != 0 {
		return High, nil
	}
	return Low, nil
}

// Write drives an output line.
func (g *SysfsGPIO) Write(out Output, level Level) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return ErrClosed
	}
	pin, ok := g.outputs[out]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLine, out)
	}

	var err error
	if level == High {
		err = pin.High()
	} else {
		err = pin.Low()
	}
	if err != nil {
		return fmt.Errorf("writing %s %s: %w", out, level, err)
	}

	g.levels[out] = level
	return nil
}

// Output returns the last commanded level of an output line.
func (g *SysfsGPIO) Output(out Output) (Level, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	level, ok := g.levels[out]
	if !ok {
		return Low, fmt.Errorf("%w: %s", ErrUnknownLine, out)
	}
	return level, nil
}

// Close releases every exported pin.
func (g *SysfsGPIO) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}
	g.closed = true

	for _, pin := range g.inputs {
		pin.Close()
	}
	for _, pin := range g.outputs {
		pin.Close()
	}
	return nil
}
