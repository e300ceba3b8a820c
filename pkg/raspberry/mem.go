//go:build linux

package raspberry

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/gpio"
	"quadenc/pkg/app/config"
	"quadenc/pkg/port"
)

// Mem holds both encoder pins mapped from /dev/gpiomem.
// The pin number provided is the BCM GPIO number.
type Mem struct {
	a, b *gpio.Pin
	// start is the reference of the monotonic event timestamps.
	start time.Time
	// mu serializes the handler, the watcher of package gpio may
	// report the edges of both pins from different interrupts.
	mu      sync.Mutex
	handler func(port.Event)
}

// openMem opens the GPIO memory range from /dev/gpiomem and sets both pins as input.
func openMem(c config.GpioConfig) (Encoder, error) {
	switch c.Bias {
	case "pullup", "pulldown", "none", "":
	default:
		return nil, fmt.Errorf("%w: bias %q", ErrInvalidParam, c.Bias)
	}

	if err := gpio.Open(); err != nil {
		return nil, err
	}

	m := &Mem{a: gpio.NewPin(c.A), b: gpio.NewPin(c.B), start: time.Now()}
	for _, p := range []*gpio.Pin{m.a, m.b} {
		p.Input()
		switch c.Bias {
		case "pullup":
			p.PullUp()
		case "pulldown":
			p.PullDown()
		}
	}

	return m, nil
}

// Watch the pins for both edges.
func (m *Mem) Watch(handler func(port.Event)) error {
	if handler == nil {
		return ErrInvalidParam
	}

	m.mu.Lock()
	m.handler = handler
	m.mu.Unlock()

	if err := m.a.Watch(gpio.EdgeBoth, m.edge); err != nil {
		return err
	}
	if err := m.b.Watch(gpio.EdgeBoth, m.edge); err != nil {
		m.a.Unwatch()
		return err
	}
	return nil
}

// Values reads the current levels of both pins.
func (m *Mem) Values() (a, b bool, err error) {
	return bool(m.a.Read()), bool(m.b.Read()), nil
}

// Now returns the time since the pins were opened.
func (m *Mem) Now() time.Duration {
	return time.Since(m.start)
}

// edge is called by the gpio watcher for each edge of either pin.
func (m *Mem) edge(p *gpio.Pin) {
	ts := m.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handler == nil {
		return
	}

	e := port.Event{Timestamp: ts, Type: port.FallingEdge}
	e.A, e.B, _ = m.Values()
	if p.Pin() == m.b.Pin() {
		e.Line = port.ChannelB
		if e.B {
			e.Type = port.RisingEdge
		}
	} else if e.A {
		e.Type = port.RisingEdge
	}

	m.handler(e)
}

// Close removes the interrupt handlers and unmaps GPIO memory.
func (m *Mem) Close() error {
	m.a.Unwatch()
	m.b.Unwatch()

	m.mu.Lock()
	m.handler = nil
	m.mu.Unlock()

	return gpio.Close()
}
