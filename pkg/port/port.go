// Package port holds the definition of a physical port
package port

import "time"

// EventType indicates the type of change to the line level.
type EventType int

const (
	_ EventType = iota
	// RisingEdge indicates a low to high transition.
	RisingEdge
	// FallingEdge indicates a high to low transition.
	FallingEdge
)

func (t EventType) String() string {
	switch t {
	case RisingEdge:
		return "rising"
	case FallingEdge:
		return "falling"
	default:
		return "unknown"
	}
}

// Line identifies one of the two encoder channels.
type Line int

const (
	// ChannelA is the leading channel of the encoder.
	ChannelA Line = iota
	// ChannelB is the trailing channel of the encoder.
	ChannelB
)

func (l Line) String() string {
	if l == ChannelA {
		return "A"
	}
	return "B"
}

// Event is an edge on one of the encoder lines together with
// the levels of both lines read right after the edge was detected.
type Event struct {
	// Line is the channel which triggered the event.
	Line Line
	// Timestamp indicates the time the event was detected.
	// It is taken from a monotonic clock and is only meaningful
	// as a difference to the timestamp of another event.
	Timestamp time.Duration
	// The type of state change event this structure represents.
	Type EventType
	// A and B are the current levels of channel A and channel B.
	A, B bool
}
