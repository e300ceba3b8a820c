package raspberry

import (
	"sync"
	"time"

	"github.com/womat/debug"
	"quadenc/pkg/port"
)

// gray is the level sequence (A, B) of an encoder turning forward.
var gray = [4][2]bool{{false, false}, {true, false}, {true, true}, {false, true}}

// Emu emulates an encoder turning at a constant pulse rate.
// It is used to run without gpio hardware and in tests.
type Emu struct {
	mu      sync.Mutex
	step    int
	reverse bool
	period  time.Duration
	start   time.Time
	handler func(port.Event)

	closeOnce sync.Once
	// quit stops the emulation
	quit chan struct{}
	// done signals that run() is stopped
	done chan struct{}
}

// NewEmu generates an emulated encoder with pps edges per second.
// If pps is 0, edges are only generated by calling Step.
func NewEmu(pps float64, reverse bool) *Emu {
	e := &Emu{
		reverse: reverse,
		start:   time.Now(),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if pps > 0 {
		e.period = time.Duration(float64(time.Second) / pps)
	}
	return e
}

// Watch installs the handler and starts the emulation.
func (e *Emu) Watch(handler func(port.Event)) error {
	if handler == nil {
		return ErrInvalidParam
	}

	e.mu.Lock()
	running := e.handler != nil
	e.handler = handler
	e.mu.Unlock()

	if !running && e.period > 0 {
		debug.InfoLog.Printf("emulating encoder with %v per edge", e.period)
		go e.run()
	}
	return nil
}

// Values returns the current emulated levels.
func (e *Emu) Values() (a, b bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	l := gray[e.step]
	return l[0], l[1], nil
}

// Now returns the time since the emulation was created.
func (e *Emu) Now() time.Duration {
	return time.Since(e.start)
}

// Step advances the emulated encoder by one edge and calls the handler.
func (e *Emu) Step() {
	e.StepAt(e.Now())
}

// StepAt advances the emulated encoder by one edge with the given timestamp.
func (e *Emu) StepAt(ts time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev := gray[e.step]
	if e.reverse {
		e.step = (e.step + 3) % 4
	} else {
		e.step = (e.step + 1) % 4
	}
	cur := gray[e.step]

	if e.handler == nil {
		return
	}

	evt := port.Event{Timestamp: ts, Type: port.FallingEdge, A: cur[0], B: cur[1]}
	changed := cur[0]
	if prev[1] != cur[1] {
		evt.Line = port.ChannelB
		changed = cur[1]
	}
	if changed {
		evt.Type = port.RisingEdge
	}

	e.handler(evt)
}

// run generates edges until Close is called.
func (e *Emu) run() {
	defer close(e.done)

	t := time.NewTicker(e.period)
	defer t.Stop()

	for {
		select {
		case <-e.quit:
			return
		case <-t.C:
			e.Step()
		}
	}
}

// Close stops the emulation.
func (e *Emu) Close() error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		running := e.handler != nil && e.period > 0
		e.handler = nil
		e.mu.Unlock()

		close(e.quit)
		if running {
			// wait until run() is terminated
			<-e.done
		}
	})
	return nil
}
