package app

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"quadenc/pkg/app/config"
	"quadenc/pkg/raspberry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer which can be written by the reporter while the test reads it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testConfig(t *testing.T, out io.Writer) *config.Config {
	t.Helper()

	c := config.NewConfig()
	c.Gpio.Backend = "emu"
	c.Gpio.Emu.PPS = 0
	c.LockFile = filepath.Join(t.TempDir(), "quadenc.lock")
	c.Webserver.URL = "http://127.0.0.1:0"
	c.Report.Interval = 10 * time.Millisecond
	c.Report.Output = out
	return c
}

// startApp runs the application and turns the emulated encoder three edges forward:
// 00 -> 10 -> 11 -> 01, the last two edges 500ms apart.
func startApp(t *testing.T, out io.Writer) *App {
	t.Helper()

	a, err := New(testConfig(t, out))
	require.NoError(t, err)
	require.NoError(t, a.Run())
	t.Cleanup(func() { _ = a.Close() })

	emu, ok := a.encoder.(*raspberry.Emu)
	require.True(t, ok)

	ts := emu.Now()
	emu.StepAt(ts + time.Second)
	emu.StepAt(ts + 2*time.Second)
	emu.StepAt(ts + 2500*time.Millisecond)
	return a
}

func TestReporter(t *testing.T) {
	out := &syncBuffer{}
	a := startApp(t, out)

	assert.Equal(t, int32(-1), a.decoder.Position())
	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Dirección: Reverse, Velocidad: 2.00 PPS, Posición: -1\n")
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, a.Close())
	n := len(out.String())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, len(out.String()))
}

func TestHandleData(t *testing.T) {
	a := startApp(t, io.Discard)

	res, err := a.web.Test(httptest.NewRequest(http.MethodGet, "/data", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var data struct {
		Direction   string
		Rate        float64
		Position    int32
		Edges       uint64
		Transitions uint64
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&data))
	assert.Equal(t, "Reverse", data.Direction)
	assert.Equal(t, 2.0, data.Rate)
	assert.Equal(t, int32(-1), data.Position)
	assert.Equal(t, uint64(3), data.Edges)
	assert.Equal(t, uint64(3), data.Transitions)
}

func TestHandleMetrics(t *testing.T) {
	a := startApp(t, io.Discard)

	res, err := a.web.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "quadenc_position -1")
	assert.Contains(t, string(body), "quadenc_rate_pps 2")
	assert.Contains(t, string(body), "quadenc_edges_total 3")
	assert.Contains(t, string(body), "quadenc_illegal_transitions_total 0")
}

func TestHandleVersionAndHealth(t *testing.T) {
	a := startApp(t, io.Discard)

	res, err := a.web.Test(httptest.NewRequest(http.MethodGet, "/version", nil))
	require.NoError(t, err)
	var v map[string]string
	require.NoError(t, json.NewDecoder(res.Body).Decode(&v))
	assert.Equal(t, VERSION, v["version"])
	assert.Equal(t, Version(), v["about"])

	res, err = a.web.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	var h struct {
		Backend string
		Edges   uint64
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&h))
	assert.Equal(t, "emu", h.Backend)
	assert.Equal(t, uint64(3), h.Edges)
}

func TestDisabledWebservice(t *testing.T) {
	c := testConfig(t, io.Discard)
	c.Webserver.Webservices["metrics"] = false

	a, err := New(c)
	require.NoError(t, err)
	require.NoError(t, a.Run())
	defer func() { _ = a.Close() }()

	res, err := a.web.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestLockFile(t *testing.T) {
	c := testConfig(t, io.Discard)

	first, err := New(c)
	require.NoError(t, err)
	require.NoError(t, first.Run())
	defer func() { _ = first.Close() }()

	second, err := New(c)
	require.NoError(t, err)
	assert.Error(t, second.Run())
	assert.NoError(t, second.Close())
}

func TestVersion(t *testing.T) {
	assert.Equal(t, "quadenc V1.0.10", Version())
}
