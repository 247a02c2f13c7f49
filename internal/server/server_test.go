package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winlens/internal/clients"
	"winlens/internal/frame"
	"winlens/internal/input"
	"winlens/internal/window"
)

func framePNG(t *testing.T, v uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// swappableCapturer serves whatever frame was last Set.
type swappableCapturer struct {
	mu   sync.Mutex
	data []byte
}

func (c *swappableCapturer) Set(data []byte) {
	c.mu.Lock()
	c.data = data
	c.mu.Unlock()
}

func (c *swappableCapturer) Capture() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data, nil
}

// countingPort implements input.Port and counts injection calls.
type countingPort struct {
	injections atomic.Int64
	clipboard  string
	mu         sync.Mutex
}

func (p *countingPort) Move(x, y int) { p.injections.Add(1) }

func (p *countingPort) Toggle(btn, dir string) error { p.injections.Add(1); return nil }

func (p *countingPort) Scroll(dx, dy int) { p.injections.Add(1) }

func (p *countingPort) KeyTap(k string, m []string) error {
	p.injections.Add(1)
	return nil
}

func (p *countingPort) KeyToggle(k, d string, m []string) error {
	p.injections.Add(1)
	return nil
}
func (p *countingPort) ReadClipboard() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clipboard, nil
}
func (p *countingPort) WriteClipboard(text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clipboard = text
	return nil
}
func (p *countingPort) Activate(pid int) error { return nil }

type fixture struct {
	ts      *httptest.Server
	cap     *swappableCapturer
	port    *countingPort
	monitor *frame.Monitor
	reg     *clients.Registry
}

func newFixture(t *testing.T, interval time.Duration) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cap := &swappableCapturer{data: framePNG(t, 0)}
	reg := clients.NewRegistry(logger)
	monitor := frame.NewMonitor(cap, reg, 0.01, interval, logger)
	port := &countingPort{}
	handle := &window.Handle{
		PID:    4242,
		Title:  "Test App",
		Bounds: window.Bounds{X: 0, Y: 0, Width: 320, Height: 240},
	}
	translator := input.NewTranslator(port, handle, logger)
	srv := New(monitor, reg, translator, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &fixture{ts: ts, cap: cap, port: port, monitor: monitor, reg: reg}
}

func (f *fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(msg, &m))
	return m
}

func TestIndexPage(t *testing.T) {
	f := newFixture(t, time.Hour)
	resp, err := http.Get(f.ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(body), "screenshot.png")
}

func TestScreenshotEndpoint(t *testing.T) {
	f := newFixture(t, time.Hour)
	resp, err := http.Get(f.ts.URL + "/screenshot.png")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Cache-Control"), "no-store")
	assert.Equal(t, framePNG(t, 0), body)
}

func TestScrollEventAckThenUpdatePush(t *testing.T) {
	f := newFixture(t, time.Hour)
	conn := f.dial(t)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "scroll", "dx": 0, "dy": 120,
	}))

	ack := readJSON(t, conn)
	assert.Equal(t, "ok", ack["status"])
	assert.Equal(t, "scroll", ack["type"])

	push := readJSON(t, conn)
	assert.Equal(t, "screenshot_update", push["type"], "forced refresh follows acknowledged input")
}

func TestTwoViewersBothReceiveUpdateOnPixelChange(t *testing.T) {
	f := newFixture(t, 15*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.monitor.Run(ctx)

	a := f.dial(t)
	b := f.dial(t)

	// Let the loop establish its baseline, then change the pixels.
	time.Sleep(60 * time.Millisecond)
	f.cap.Set(framePNG(t, 200))

	for _, conn := range []*websocket.Conn{a, b} {
		push := readJSON(t, conn)
		assert.Equal(t, "screenshot_update", push["type"])
	}
}

func TestMalformedEventKeepsConnectionOpen(t *testing.T) {
	f := newFixture(t, time.Hour)
	conn := f.dial(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	ack := readJSON(t, conn)
	assert.Equal(t, "error", ack["status"])
	assert.Contains(t, ack["message"], "malformed")

	// The session still works afterwards.
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "focus"}))
	ack = readJSON(t, conn)
	assert.Equal(t, "ok", ack["status"])
}

func TestUnknownEventType(t *testing.T) {
	f := newFixture(t, time.Hour)
	conn := f.dial(t)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "pinch"}))
	ack := readJSON(t, conn)
	assert.Equal(t, "error", ack["status"])
	assert.Contains(t, ack["message"], "unknown event type")
}

func TestUnmappedKeyProducesErrorAndNoInjection(t *testing.T) {
	f := newFixture(t, time.Hour)
	conn := f.dial(t)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "key", "key": "MediaPlayPause", "code": "MediaPlayPause",
	}))
	ack := readJSON(t, conn)
	assert.Equal(t, "error", ack["status"])
	assert.Contains(t, ack["message"], "unmapped key code")
	assert.Equal(t, int64(0), f.port.injections.Load())
}

func TestClickEventInjects(t *testing.T) {
	f := newFixture(t, time.Hour)
	conn := f.dial(t)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "click", "x": 10, "y": 10,
		"displayWidth": 320, "displayHeight": 240, "button": "left",
	}))
	ack := readJSON(t, conn)
	assert.Equal(t, "ok", ack["status"])
	assert.Equal(t, "click", ack["type"])
	// move + down + up
	assert.Equal(t, int64(3), f.port.injections.Load())
}

func TestPasteRoundTrip(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.port.clipboard = "before"
	conn := f.dial(t)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "paste", "text": "hello",
	}))
	ack := readJSON(t, conn)
	assert.Equal(t, "ok", ack["status"])

	f.port.mu.Lock()
	defer f.port.mu.Unlock()
	assert.Equal(t, "before", f.port.clipboard, "clipboard restored after paste")
}

func TestDisconnectUnregisters(t *testing.T) {
	f := newFixture(t, time.Hour)
	conn := f.dial(t)

	require.Eventually(t, func() bool { return f.reg.Count() == 1 },
		time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return f.reg.Count() == 0 },
		time.Second, 10*time.Millisecond, "session deregistered on disconnect")
}
