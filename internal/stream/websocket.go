// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap

package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/thejerf/suture/v4"
	"golang.org/x/time/rate"

	"github.com/tomtom215/vigilmap/internal/logging"
	"github.com/tomtom215/vigilmap/internal/metrics"
)

const (
	wsHandshakeTimeout = 10 * time.Second
	wsReadTimeout      = 90 * time.Second
	wsMaxMessageSize   = 1 << 20
)

// WebSocketConfig configures a WebSocketSource.
type WebSocketConfig struct {
	URL              string
	ReconnectWait    time.Duration
	BreakerThreshold uint32
	BreakerTimeout   time.Duration
}

// WebSocketSource reads detection payloads from a raw websocket. Dials are
// paced by a rate limiter and guarded by a circuit breaker, so an
// unreachable endpoint is retried with bounded effort.
type WebSocketSource struct {
	cfg     WebSocketConfig
	handler Handler
	dialer  websocket.Dialer
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[*websocket.Conn]

	connected atomic.Bool
	closeOnce sync.Once
	stop      chan struct{}
}

// NewWebSocketSource creates a source for cfg.URL.
func NewWebSocketSource(cfg WebSocketConfig, handler Handler) *WebSocketSource {
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 2 * time.Second
	}
	if cfg.BreakerThreshold == 0 {
		cfg.BreakerThreshold = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	s := &WebSocketSource{
		cfg:     cfg,
		handler: handler,
		dialer:  websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout},
		limiter: rate.NewLimiter(rate.Every(cfg.ReconnectWait), 1),
		stop:    make(chan struct{}),
	}
	s.cb = gobreaker.NewCircuitBreaker[*websocket.Conn](gobreaker.Settings{
		Name:        "detection-ws",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Detection stream breaker state changed")
		},
	})
	metrics.SetStreamConnected(SourceWebSocket, false)
	return s
}

// Serve dials, reads until the connection drops, and redials until ctx is
// cancelled or Close is called.
func (s *WebSocketSource) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	logger := logging.With().Str("source", SourceWebSocket).Str("url", s.cfg.URL).Logger()
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			// the next dial would land past the deadline
			<-ctx.Done()
			return s.exitErr(ctx)
		}

		conn, err := s.cb.Execute(func() (*websocket.Conn, error) {
			return s.dial(ctx)
		})
		if err != nil {
			if ctx.Err() != nil {
				return s.exitErr(ctx)
			}
			if errors.Is(err, gobreaker.ErrOpenState) {
				logger.Debug().Msg("Breaker open, skipping dial")
			} else {
				logger.Warn().Err(err).Msg("Detection stream dial failed")
			}
			continue
		}

		logger.Info().Msg("Detection stream connected")
		metrics.StreamReconnects.WithLabelValues(SourceWebSocket).Inc()
		s.setConnected(true)
		err = s.readLoop(ctx, conn)
		s.setConnected(false)

		if ctx.Err() != nil {
			return s.exitErr(ctx)
		}
		logger.Warn().Err(err).Msg("Detection stream disconnected")
	}
}

func (s *WebSocketSource) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := s.dialer.DialContext(ctx, s.cfg.URL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// readLoop hands each message to the handler before reading the next one.
func (s *WebSocketSource) readLoop(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
			_ = conn.Close()
		}
	}()

	conn.SetReadLimit(wsMaxMessageSize)
	for {
		if err := conn.SetReadDeadline(time.Now().Add(wsReadTimeout)); err != nil {
			return err
		}
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		_ = s.handler.HandlePayload(payload, SourceWebSocket)
	}
}

func (s *WebSocketSource) setConnected(v bool) {
	s.connected.Store(v)
	metrics.SetStreamConnected(SourceWebSocket, v)
}

// exitErr tells the supervisor whether to restart this source.
func (s *WebSocketSource) exitErr(ctx context.Context) error {
	select {
	case <-s.stop:
		return suture.ErrDoNotRestart
	default:
		return ctx.Err()
	}
}

// Connected reports whether a connection is currently open.
func (s *WebSocketSource) Connected() bool {
	return s.connected.Load()
}

// Close stops this source. It is safe to call more than once.
func (s *WebSocketSource) Close() error {
	s.closeOnce.Do(func() { close(s.stop) })
	return nil
}

func (s *WebSocketSource) String() string {
	return "detection-stream-websocket"
}
