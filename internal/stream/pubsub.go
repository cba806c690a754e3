// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap

package stream

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/vigilmap/internal/logging"
	"github.com/tomtom215/vigilmap/internal/metrics"
)

// PubSubSource consumes detection payloads from a watermill subscriber.
// Each message is acked once the handler has seen it; malformed payloads
// are dropped rather than redelivered.
type PubSubSource struct {
	subscriber message.Subscriber
	topic      string
	handler    Handler

	connected atomic.Bool
	closeOnce sync.Once
	stop      chan struct{}
}

// NewPubSubSource subscribes handler to topic on subscriber.
func NewPubSubSource(subscriber message.Subscriber, topic string, handler Handler) *PubSubSource {
	metrics.SetStreamConnected(SourcePubSub, false)
	return &PubSubSource{
		subscriber: subscriber,
		topic:      topic,
		handler:    handler,
		stop:       make(chan struct{}),
	}
}

// Serve receives messages until ctx is cancelled, Close is called, or the
// subscription channel closes.
func (s *PubSubSource) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	messages, err := s.subscriber.Subscribe(ctx, s.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.topic, err)
	}

	logging.Info().Str("source", SourcePubSub).Str("topic", s.topic).Msg("Detection subscription started")
	s.setConnected(true)
	defer s.setConnected(false)

	for {
		select {
		case <-s.stop:
			return suture.ErrDoNotRestart
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("subscription to %s closed", s.topic)
			}
			_ = s.handler.HandlePayload(msg.Payload, SourcePubSub)
			msg.Ack()
		}
	}
}

func (s *PubSubSource) setConnected(v bool) {
	s.connected.Store(v)
	metrics.SetStreamConnected(SourcePubSub, v)
}

// Connected reports whether the subscription is active.
func (s *PubSubSource) Connected() bool {
	return s.connected.Load()
}

// Close stops this source without closing the shared subscriber.
func (s *PubSubSource) Close() error {
	s.closeOnce.Do(func() { close(s.stop) })
	return nil
}

func (s *PubSubSource) String() string {
	return "detection-stream-pubsub"
}

// NewGoChannel returns an in-process pub/sub used when no broker is configured.
func NewGoChannel() *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, logging.NewWatermillAdapter())
}
