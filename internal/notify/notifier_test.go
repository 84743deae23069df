package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	name   string
	err    error
	titles []string
}

func (r *recordingSender) Send(_ context.Context, title, _ string) error {
	r.titles = append(r.titles, title)
	return r.err
}

func (r *recordingSender) Name() string { return r.name }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifierFiltersEvents(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, []string{"variance_alert"}, discardLogger())

	require.NoError(t, n.Notify(t.Context(), "cycle_failed", "ignored", ""))
	require.NoError(t, n.Notify(t.Context(), "variance_alert", "sent", ""))
	require.NoError(t, n.NotifyAll(t.Context(), "forced", ""))

	assert.Equal(t, []string{"sent", "forced"}, s.titles)
	assert.Equal(t, 1, n.Len())
}

func TestNotifierEmptyEventsAllowsAll(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, nil, discardLogger())

	require.NoError(t, n.Notify(t.Context(), "anything", "t", ""))
	assert.Len(t, s.titles, 1)
}

func TestNotifierContinuesAfterFailure(t *testing.T) {
	boom := errors.New("boom")
	bad := &recordingSender{name: "bad", err: boom}
	good := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, discardLogger())

	err := n.NotifyAll(t.Context(), "t", "m")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "bad")
	assert.Len(t, good.titles, 1)
}

func TestPushedSender(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "key", r.PostForm.Get("app_key"))
		assert.Equal(t, "secret", r.PostForm.Get("app_secret"))
		assert.Equal(t, "app", r.PostForm.Get("target_type"))
		assert.Equal(t, "BTC:1.23%  ETH:-0.50%", r.PostForm.Get("content"))
		_, _ = io.WriteString(w, `{"type":"shipment_successfuly_created"}`)
	}))
	defer srv.Close()

	p := NewPushedSender("key", "secret")
	p.endpoint = srv.URL
	require.NoError(t, p.Send(t.Context(), "ARB", "BTC:1.23%  ETH:-0.50%"))
}

func TestPushedSenderHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewPushedSender("key", "secret")
	p.endpoint = srv.URL
	err := p.Send(t.Context(), "", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pushed: unexpected status 400")
}

func TestTelegramAndDiscordSenders(t *testing.T) {
	var got []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		got = append(got, payload)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	tg := NewTelegramSender("tok", "42")
	tg.apiBase = srv.URL
	require.NoError(t, tg.Send(t.Context(), "Title", "body"))

	dc := NewDiscordSender(srv.URL + "/hook")
	require.NoError(t, dc.Send(t.Context(), "Title", "body"))

	require.Len(t, got, 2)
	assert.Equal(t, "42", got[0]["chat_id"])
	assert.Equal(t, "*Title*\nbody", got[0]["text"])
	assert.Equal(t, "**Title**\nbody", got[1]["content"])
}

func TestDesktopSender(t *testing.T) {
	var args []string
	d := &DesktopSender{goos: "darwin", run: func(_ context.Context, name string, a ...string) ([]byte, error) {
		args = append([]string{name}, a...)
		return nil, nil
	}}

	require.NoError(t, d.Send(t.Context(), `ARB: Can buy $520.00`, `say "hi"`))
	require.Len(t, args, 3)
	assert.Equal(t, "osascript", args[0])
	assert.Equal(t, `display notification "say \"hi\"" with title "ARB: Can buy $520.00"`, args[2])

	linux := &DesktopSender{goos: "linux", run: d.run}
	require.Error(t, linux.Send(t.Context(), "t", "m"))
}
