// Package quadrature decodes the two channels of an incremental rotary encoder
// into a relative position and an instantaneous pulse rate.
//
// The Decoder is fed from the edge callback of a GPIO backend. Edge must only be
// called from one goroutine at a time (the backends deliver events of both lines
// from a single watcher), while Position, Rate and Snapshot may be called from
// any goroutine.
package quadrature

import (
	"math"
	"sync/atomic"
	"time"
)

const (
	// Forward is the direction label of a non negative position.
	Forward = "Forward"
	// Reverse is the direction label of a negative position.
	Reverse = "Reverse"

	usPerSecond = 1e6
)

// State holds the levels of both channels, bit 0 is channel A and bit 1 is channel B.
type State uint32

const (
	chA State = 1 << iota
	chB
)

// NewState packs the channel levels into a State.
func NewState(a, b bool) State {
	var s State
	if a {
		s |= chA
	}
	if b {
		s |= chB
	}
	return s
}

// A returns the level of channel A.
func (s State) A() bool { return s&chA != 0 }

// B returns the level of channel B.
func (s State) B() bool { return s&chB != 0 }

func (s State) String() string {
	b := []byte("00")
	if s.A() {
		b[0] = '1'
	}
	if s.B() {
		b[1] = '1'
	}
	return string(b)
}

// Decoder is the edge decoder and rate estimator of a single encoder.
type Decoder struct {
	// state contains the channel levels as of the last accepted edge.
	state atomic.Uint32
	// position is incremented or decremented by one per accepted edge and wraps like an int32.
	position atomic.Int32
	// lastEdge is the monotonic timestamp of the last processed edge (accepted or not).
	lastEdge atomic.Int64
	// rate is the float64 bit pattern of the last pulse rate estimate (pulses per second).
	rate atomic.Uint64

	edges    atomic.Uint64
	accepted atomic.Uint64
	illegal  atomic.Uint64

	// strict rejects transitions where both channels flip at once.
	strict bool
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithStrict enables rejection of illegal transitions (00<->11, 01<->10).
// An illegal transition is always counted, but only moves the position if strict is false.
func WithStrict(strict bool) Option {
	return func(d *Decoder) { d.strict = strict }
}

// WithInitialState sets the channel levels the decoder starts with.
// Without this option both channels are assumed to be low.
func WithInitialState(a, b bool) Option {
	return func(d *Decoder) { d.state.Store(uint32(NewState(a, b))) }
}

// WithStart sets the timestamp the first edge is measured against.
func WithStart(ts time.Duration) Option {
	return func(d *Decoder) { d.lastEdge.Store(int64(ts)) }
}

// New returns a decoder with position 0 and rate 0.
func New(opts ...Option) *Decoder {
	d := &Decoder{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Edge processes one edge of either channel. a and b are the levels of both
// channels read after the edge, ts is the monotonic time of the edge.
//
// The rate is 1s divided by the time since the previous edge, counted in whole
// microseconds. If that is not positive the previous rate is kept.
// If the levels differ from the stored state the position moves by one:
// up if both levels are equal, down otherwise.
//
// Edge does not block, allocate or log.
func (d *Decoder) Edge(a, b bool, ts time.Duration) {
	d.edges.Add(1)

	if us := (ts - time.Duration(d.lastEdge.Load())).Microseconds(); us > 0 {
		d.rate.Store(math.Float64bits(usPerSecond / float64(us)))
	}
	d.lastEdge.Store(int64(ts))

	cur := NewState(a, b)
	prev := State(d.state.Load())
	if cur == prev {
		return
	}
	d.state.Store(uint32(cur))

	if prev^cur == chA|chB {
		d.illegal.Add(1)
		if d.strict {
			return
		}
	}

	d.accepted.Add(1)
	if a == b {
		d.position.Add(1)
	} else {
		d.position.Add(-1)
	}
}

// Position returns the current position count.
func (d *Decoder) Position() int32 {
	return d.position.Load()
}

// Rate returns the last pulse rate estimate in pulses per second.
// It is a single sample, not an average.
func (d *Decoder) Rate() float64 {
	return math.Float64frombits(d.rate.Load())
}

// State returns the channel levels as of the last accepted edge.
func (d *Decoder) State() State {
	return State(d.state.Load())
}

// Snapshot is a view of the decoder for reporting.
type Snapshot struct {
	Direction string  `json:"direction"`
	Rate      float64 `json:"rate"`
	Position  int32   `json:"position"`
	// Edges is the count of all processed edges.
	Edges uint64 `json:"edges"`
	// Transitions is the count of edges which moved the position.
	Transitions uint64 `json:"transitions"`
	// Illegal is the count of transitions where both channels changed at once.
	Illegal uint64 `json:"illegal"`
}

// Snapshot reads all fields of the decoder.
// The fields are loaded one by one while Edge may run, so the position
// can be one edge ahead of or behind the rate. Callers accept that window.
func (d *Decoder) Snapshot() Snapshot {
	pos := d.Position()
	return Snapshot{
		Direction:   Direction(pos),
		Rate:        d.Rate(),
		Position:    pos,
		Edges:       d.edges.Load(),
		Transitions: d.accepted.Load(),
		Illegal:     d.illegal.Load(),
	}
}

// Direction classifies a position by its sign.
func Direction(position int32) string {
	if position >= 0 {
		return Forward
	}
	return Reverse
}
