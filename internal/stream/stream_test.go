// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap

package stream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gorilla/websocket"
	"github.com/thejerf/suture/v4"
)

type recordingHandler struct {
	mu       sync.Mutex
	payloads []string
	sources  []string
}

func (h *recordingHandler) HandlePayload(payload []byte, source string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.payloads = append(h.payloads, string(payload))
	h.sources = append(h.sources, source)
	return nil
}

func (h *recordingHandler) got() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.payloads...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// detectionServer upgrades each connection and writes the next batch of
// messages from batches, then closes it.
func detectionServer(t *testing.T, batches ...[]string) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	next := 0
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		mu.Lock()
		var batch []string
		if next < len(batches) {
			batch = batches[next]
			next++
		}
		last := next == len(batches)
		mu.Unlock()

		for _, m := range batch {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}
		if last {
			// keep the final connection open until the client goes away
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocketSource_DeliversInOrder(t *testing.T) {
	srv := detectionServer(t, []string{"a", "b", "c"})
	h := &recordingHandler{}
	src := NewWebSocketSource(WebSocketConfig{URL: wsURL(srv), ReconnectWait: 10 * time.Millisecond}, h)

	errCh := make(chan error, 1)
	go func() { errCh <- src.Serve(context.Background()) }()

	waitFor(t, "three payloads", func() bool { return len(h.got()) == 3 })
	if got := strings.Join(h.got(), ","); got != "a,b,c" {
		t.Errorf("payloads = %s, want a,b,c", got)
	}
	waitFor(t, "connected", src.Connected)
	h.mu.Lock()
	source := h.sources[0]
	h.mu.Unlock()
	if source != SourceWebSocket {
		t.Errorf("source = %q, want %q", source, SourceWebSocket)
	}

	if err := src.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	select {
	case err := <-errCh:
		if !errors.Is(err, suture.ErrDoNotRestart) {
			t.Errorf("Serve() after Close = %v, want ErrDoNotRestart", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after Close")
	}
	if src.Connected() {
		t.Error("Connected() should be false after Close")
	}
}

func TestWebSocketSource_ReconnectsAfterDrop(t *testing.T) {
	srv := detectionServer(t, []string{"first"}, []string{"second"})
	h := &recordingHandler{}
	src := NewWebSocketSource(WebSocketConfig{URL: wsURL(srv), ReconnectWait: 10 * time.Millisecond}, h)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- src.Serve(ctx) }()

	waitFor(t, "payloads from both connections", func() bool { return len(h.got()) == 2 })
	if got := strings.Join(h.got(), ","); got != "first,second" {
		t.Errorf("payloads = %s, want first,second", got)
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() after cancel = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestWebSocketSource_UnreachableKeepsRetrying(t *testing.T) {
	h := &recordingHandler{}
	src := NewWebSocketSource(WebSocketConfig{
		URL:              "ws://127.0.0.1:1/ws",
		ReconnectWait:    5 * time.Millisecond,
		BreakerThreshold: 2,
		BreakerTimeout:   time.Hour,
	}, h)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := src.Serve(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() = %v, want DeadlineExceeded", err)
	}
	if src.Connected() {
		t.Error("Connected() = true for unreachable endpoint")
	}
}

func TestPubSubSource_GoChannel(t *testing.T) {
	pubsub := NewGoChannel()
	defer pubsub.Close()

	h := &recordingHandler{}
	src := NewPubSubSource(pubsub, "detections", h)

	errCh := make(chan error, 1)
	go func() { errCh <- src.Serve(context.Background()) }()
	waitFor(t, "subscription", src.Connected)

	for _, p := range []string{"one", "two", "three"} {
		if err := pubsub.Publish("detections", message.NewMessage(watermill.NewUUID(), []byte(p))); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	waitFor(t, "three payloads", func() bool { return len(h.got()) == 3 })
	if got := strings.Join(h.got(), ","); got != "one,two,three" {
		t.Errorf("payloads = %s, want one,two,three", got)
	}

	_ = src.Close()
	select {
	case err := <-errCh:
		if !errors.Is(err, suture.ErrDoNotRestart) {
			t.Errorf("Serve() after Close = %v, want ErrDoNotRestart", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after Close")
	}
}

func TestEmbeddedServer(t *testing.T) {
	if testing.Short() {
		t.Skip("starts a NATS server")
	}
	srv, err := StartEmbeddedServer("127.0.0.1", -1, t.TempDir())
	if err != nil {
		t.Fatalf("StartEmbeddedServer: %v", err)
	}
	if !strings.HasPrefix(srv.ClientURL(), "nats://") {
		t.Errorf("ClientURL() = %q", srv.ClientURL())
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}
