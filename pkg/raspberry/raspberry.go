// Package raspberry is the watcher for the gpio lines of the encoder
package raspberry

import (
	"errors"
	"fmt"
	"time"

	"quadenc/pkg/app/config"
	"quadenc/pkg/port"
)

var (
	ErrInvalidParam = errors.New("invalid parameters")
	ErrUnsupported  = errors.New("gpio backend not supported on this platform")
)

// Encoder is implemented by the gpio backends and gives access to the two encoder lines.
type Encoder interface {
	// Watch the lines for both edges. The handler is called for each edge of
	// either line, one event at a time in the order the edges are detected.
	// There can only be one watcher at a time.
	Watch(handler func(port.Event)) error
	// Values reads the current levels of channel A and channel B.
	Values() (a, b bool, err error)
	// Now returns the current time of the clock used for the event timestamps.
	Now() time.Duration
	// Close stops watching and releases the lines.
	Close() error
}

// Open requests the encoder lines from the backend defined in the configuration.
func Open(c config.GpioConfig) (Encoder, error) {
	if c.A == c.B {
		return nil, fmt.Errorf("%w: line a and b are both %d", ErrInvalidParam, c.A)
	}

	switch c.Backend {
	case "gpiod":
		return openChip(c)
	case "gpiomem":
		return openMem(c)
	case "emu":
		return NewEmu(c.Emu.PPS, c.Emu.Reverse), nil
	default:
		return nil, fmt.Errorf("%w: backend %q", ErrInvalidParam, c.Backend)
	}
}
