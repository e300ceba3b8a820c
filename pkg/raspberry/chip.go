//go:build linux

package raspberry

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/warthog618/gpiod"
	"github.com/womat/debug"
	"golang.org/x/sys/unix"
	"quadenc/pkg/app/config"
	"quadenc/pkg/port"
)

// Chip holds both encoder lines of a GPIO character device (/dev/gpiochipN).
type Chip struct {
	gpiodChip *gpiod.Chip
	lines     *gpiod.Lines
	a, b      int
	handler   atomic.Pointer[func(port.Event)]
}

// openChip opens a GPIO character device and requests both encoder lines in one request,
// so the edges of both lines are reported by a single watcher in the order they occur.
func openChip(c config.GpioConfig) (Encoder, error) {
	chip := &Chip{a: c.A, b: c.B}
	opts := []gpiod.LineReqOption{gpiod.AsInput, gpiod.WithBothEdges, gpiod.WithEventHandler(chip.eventHandler)}

	switch c.Bias {
	case "pullup":
		opts = append(opts, gpiod.WithPullUp)
	case "pulldown":
		opts = append(opts, gpiod.WithPullDown)
	case "none", "":
	default:
		return nil, fmt.Errorf("%w: bias %q", ErrInvalidParam, c.Bias)
	}

	gc, err := gpiod.NewChip(c.Chip)
	if err != nil {
		return nil, err
	}

	chip.gpiodChip = gc
	chip.lines, err = gc.RequestLines([]int{c.A, c.B}, opts...)
	if err != nil {
		_ = gc.Close()
		return nil, err
	}

	return chip, nil
}

// Watch installs the handler for edge events of both lines.
func (c *Chip) Watch(handler func(port.Event)) error {
	if handler == nil {
		return ErrInvalidParam
	}
	c.handler.Store(&handler)
	return nil
}

// Values reads the current levels of both lines.
func (c *Chip) Values() (a, b bool, err error) {
	v := make([]int, 2)
	if err = c.lines.Values(v); err != nil {
		return
	}
	return v[0] == 1, v[1] == 1, nil
}

// Now returns the current time of CLOCK_MONOTONIC, the clock of the kernel event timestamps.
func (c *Chip) Now() time.Duration {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return time.Duration(ts.Nano())
}

// eventHandler is called by the gpiod watcher for each edge of either line.
func (c *Chip) eventHandler(evt gpiod.LineEvent) {
	h := c.handler.Load()
	if h == nil {
		return
	}

	e := port.Event{Timestamp: evt.Timestamp, Type: port.RisingEdge}
	if evt.Type == gpiod.LineEventFallingEdge {
		e.Type = port.FallingEdge
	}
	if evt.Offset == c.b {
		e.Line = port.ChannelB
	}

	var err error
	if e.A, e.B, err = c.Values(); err != nil {
		debug.ErrorLog.Printf("can't read encoder lines: %v", err)
		return
	}

	(*h)(e)
}

// Close releases the lines and the chip.
//
// Close waits for a running event handler to return, so it must not be
// called from the handler.
func (c *Chip) Close() error {
	c.handler.Store(nil)
	if err := c.lines.Close(); err != nil {
		_ = c.gpiodChip.Close()
		return err
	}
	return c.gpiodChip.Close()
}
