package raspberry

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"quadenc/pkg/app/config"
	"quadenc/pkg/port"
)

func TestOpen(t *testing.T) {
	c := config.NewConfig().Gpio

	c.Backend = "emu"
	e, err := Open(c)
	require.NoError(t, err)
	assert.IsType(t, &Emu{}, e)
	require.NoError(t, e.Close())

	c.Backend = "serial"
	_, err = Open(c)
	assert.True(t, errors.Is(err, ErrInvalidParam))

	c.Backend = "emu"
	c.B = c.A
	_, err = Open(c)
	assert.True(t, errors.Is(err, ErrInvalidParam))
}

func TestEmuForward(t *testing.T) {
	e := NewEmu(0, false)
	defer func() { _ = e.Close() }()

	var events []port.Event
	require.NoError(t, e.Watch(func(evt port.Event) { events = append(events, evt) }))

	for i := 1; i <= 5; i++ {
		e.StepAt(time.Duration(i) * time.Millisecond)
	}

	want := []port.Event{
		{Line: port.ChannelA, Type: port.RisingEdge, Timestamp: 1 * time.Millisecond, A: true, B: false},
		{Line: port.ChannelB, Type: port.RisingEdge, Timestamp: 2 * time.Millisecond, A: true, B: true},
		{Line: port.ChannelA, Type: port.FallingEdge, Timestamp: 3 * time.Millisecond, A: false, B: true},
		{Line: port.ChannelB, Type: port.FallingEdge, Timestamp: 4 * time.Millisecond, A: false, B: false},
		{Line: port.ChannelA, Type: port.RisingEdge, Timestamp: 5 * time.Millisecond, A: true, B: false},
	}
	assert.Equal(t, want, events)

	a, b, err := e.Values()
	require.NoError(t, err)
	assert.True(t, a)
	assert.False(t, b)
}

func TestEmuReverse(t *testing.T) {
	e := NewEmu(0, true)
	defer func() { _ = e.Close() }()

	var events []port.Event
	require.NoError(t, e.Watch(func(evt port.Event) { events = append(events, evt) }))

	e.StepAt(time.Millisecond)
	e.StepAt(2 * time.Millisecond)

	require.Len(t, events, 2)
	assert.Equal(t, port.ChannelB, events[0].Line)
	assert.Equal(t, port.RisingEdge, events[0].Type)
	assert.Equal(t, port.ChannelA, events[1].Line)
	assert.True(t, events[1].A)
	assert.True(t, events[1].B)
}

func TestEmuWatchNil(t *testing.T) {
	e := NewEmu(0, false)
	assert.ErrorIs(t, e.Watch(nil), ErrInvalidParam)
	assert.NoError(t, e.Close())
	assert.NoError(t, e.Close())
}

func TestEmuRun(t *testing.T) {
	e := NewEmu(1000, false)

	var mu sync.Mutex
	n := 0
	require.NoError(t, e.Watch(func(port.Event) {
		mu.Lock()
		n++
		mu.Unlock()
	}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return n >= 10
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, e.Close())

	mu.Lock()
	stopped := n
	mu.Unlock()
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, stopped, n)
}
