// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap

// Package stream feeds detection payloads from external transports into the
// aggregator. Every source runs a single receive loop, so payloads from one
// connection are handled in arrival order. Closing a source stops only that
// source; the aggregate it fed is kept.
package stream

import "context"

// Handler consumes one raw detection payload. Malformed payloads are the
// handler's concern; sources keep reading regardless of the returned error.
type Handler interface {
	HandlePayload(payload []byte, source string) error
}

// Source is a supervised detection transport.
type Source interface {
	Serve(ctx context.Context) error
	String() string
	Connected() bool
	Close() error
}

// Source names used in logs and metric labels.
const (
	SourceWebSocket = "websocket"
	SourcePubSub    = "pubsub"
)

var (
	_ Source = (*WebSocketSource)(nil)
	_ Source = (*PubSubSource)(nil)
)
