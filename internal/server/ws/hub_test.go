package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

type fakeBus struct {
	ch chan []byte
}

func (f *fakeBus) Publish(_ context.Context, _ string, payload []byte) error {
	f.ch <- payload
	return nil
}

func (f *fakeBus) Subscribe(_ context.Context, channel string) (<-chan []byte, error) {
	if channel != domain.ChannelCycles {
		return nil, fmt.Errorf("unexpected channel %q", channel)
	}
	return f.ch, nil
}

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// startHub runs hub and returns the ws:// URL of its endpoint.
func startHub(t *testing.T, hub *Hub) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = hub.Run(ctx) }()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", hub.HandleWS)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)

	var f frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func newTestHub(bus domain.SignalBus) *Hub {
	return NewHub(bus, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHubBroadcastsRecordedReports(t *testing.T) {
	hub := newTestHub(nil)
	url := startHub(t, hub)

	first := dial(t, url)
	assert.Equal(t, "hello", readFrame(t, first).Type)

	require.NoError(t, hub.Record(context.Background(), &domain.CycleReport{ID: "cycle-1"}))
	f := readFrame(t, first)
	assert.Equal(t, "cycle_report", f.Type)
	assert.Contains(t, string(f.Payload), `"id":"cycle-1"`)

	// A late client gets the last report right after hello.
	second := dial(t, url)
	assert.Equal(t, "hello", readFrame(t, second).Type)
	f = readFrame(t, second)
	assert.Equal(t, "cycle_report", f.Type)
	assert.Contains(t, string(f.Payload), `"id":"cycle-1"`)
}

func TestHubForwardsBusMessages(t *testing.T) {
	bus := &fakeBus{ch: make(chan []byte, 1)}
	hub := newTestHub(bus)
	conn := dial(t, startHub(t, hub))
	readFrame(t, conn)

	require.NoError(t, bus.Publish(context.Background(), domain.ChannelCycles, []byte(`{"id":"cycle-3"}`)))
	f := readFrame(t, conn)
	assert.Equal(t, "cycle_report", f.Type)
	assert.JSONEq(t, `{"id":"cycle-3"}`, string(f.Payload))
}

func TestHubName(t *testing.T) {
	assert.Equal(t, "ws", newTestHub(nil).Name())
}

func TestHubRefusesClientsAfterStop(t *testing.T) {
	hub := newTestHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(stopped)
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", hub.HandleWS)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	live := dial(t, url)
	assert.Equal(t, "hello", readFrame(t, live).Type)

	cancel()
	<-stopped

	// The connected client is told the hub went away.
	require.NoError(t, live.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := live.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived), err.Error())

	// A client arriving after shutdown is closed instead of hanging the handler.
	late := dial(t, url)
	require.NoError(t, late.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = late.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), err.Error())
}
