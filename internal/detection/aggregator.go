// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap
package detection

import (
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/tomtom215/vigilmap/internal/cache"
	"github.com/tomtom215/vigilmap/internal/logging"
	"github.com/tomtom215/vigilmap/internal/metrics"
)

// DefaultBufferSize bounds the alert buffer.
const DefaultBufferSize = 50

// Message types pushed to UI clients.
const (
	MessageDetectionAlert    = "detection_alert"
	MessageDetectionSnapshot = "detection_snapshot"
)

// Broadcaster pushes alerts to UI clients.
type Broadcaster interface {
	BroadcastJSON(messageType string, data interface{})
}

// DedupConfig enables duplicate suppression keyed by label and arrival
// time bucket. Disabled by default: every event counts.
type DedupConfig struct {
	Enabled  bool
	Window   time.Duration
	Capacity int
}

// Config configures an Aggregator.
type Config struct {
	BufferSize int
	Dedup      DedupConfig
}

// DefaultConfig returns a 50-record buffer with no deduplication.
func DefaultConfig() Config {
	return Config{
		BufferSize: DefaultBufferSize,
		Dedup: DedupConfig{
			Window:   2 * time.Second,
			Capacity: 1024,
		},
	}
}

// Snapshot is a consistent copy of the aggregate.
type Snapshot struct {
	Counts          map[string]int64 `json:"counts"`
	Alerts          []AlertRecord    `json:"alerts"`
	Total           int64            `json:"total"`
	EventsPerMinute int64            `json:"events_per_minute"`
	StartedAt       time.Time        `json:"started_at"`
}

// History mirrors the detection history endpoint.
type History struct {
	Detections []AlertRecord `json:"detections"`
	Total      int           `json:"total"`
}

// Distribution is the per-label breakdown used by analysis charts.
type Distribution struct {
	Labels []string `json:"labels"`
	Data   []int64  `json:"data"`
}

// Aggregator is shared by every stream source. It holds no reference to
// any connection, so disconnects never reset it.
type Aggregator struct {
	mu        sync.RWMutex
	counts    map[string]int64
	alerts    []AlertRecord
	total     int64
	capacity  int
	startedAt time.Time

	dedup       *cache.DedupLRU
	dedupWindow time.Duration
	rate        *cache.WindowCounter
	broadcaster Broadcaster
}

// NewAggregator creates an empty aggregator. broadcaster may be nil.
func NewAggregator(cfg Config, broadcaster Broadcaster) *Aggregator {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}

	a := &Aggregator{
		counts:      make(map[string]int64),
		alerts:      make([]AlertRecord, 0, cfg.BufferSize),
		capacity:    cfg.BufferSize,
		startedAt:   time.Now().UTC(),
		rate:        cache.NewWindowCounter(time.Minute, 12),
		broadcaster: broadcaster,
	}
	if cfg.Dedup.Enabled {
		if cfg.Dedup.Window <= 0 {
			cfg.Dedup.Window = 2 * time.Second
		}
		a.dedupWindow = cfg.Dedup.Window
		a.dedup = cache.NewDedupLRU(cfg.Dedup.Capacity, 2*cfg.Dedup.Window)
	}
	return a
}

// OnEvent folds ev into the aggregate: the label count is incremented and
// an AlertRecord is prepended, dropping the oldest past capacity. It
// returns false only when deduplication is enabled and ev is a repeat.
func (a *Aggregator) OnEvent(ev Event) bool {
	if ev.ArrivedAt.IsZero() {
		ev.ArrivedAt = time.Now().UTC()
	}
	label := ev.EffectiveLabel()

	if a.dedup != nil && a.dedup.IsDuplicate(a.dedupKey(label, ev.ArrivedAt)) {
		metrics.RecordDetectionDropped(ev.Source, "duplicate")
		logging.Debug().Str("label", label).Str("source", ev.Source).Msg("Duplicate detection suppressed")
		return false
	}

	rec := ev.Record()

	a.mu.Lock()
	a.counts[label]++
	a.total++
	if len(a.alerts) < a.capacity {
		a.alerts = append(a.alerts, AlertRecord{})
	}
	copy(a.alerts[1:], a.alerts[:len(a.alerts)-1])
	a.alerts[0] = rec
	size := len(a.alerts)
	a.mu.Unlock()

	a.rate.Add(1)
	metrics.RecordDetection(label, ev.Source)
	metrics.AlertBufferSize.Set(float64(size))

	if a.broadcaster != nil {
		a.broadcaster.BroadcastJSON(MessageDetectionAlert, rec)
	}
	return true
}

// HandlePayload parses payload and feeds it to OnEvent. Malformed payloads
// are logged at debug level, counted and dropped; the returned error is
// only informational.
func (a *Aggregator) HandlePayload(payload []byte, source string) error {
	ev, err := ParseEvent(payload, source, time.Now().UTC())
	if err != nil {
		if errors.Is(err, ErrMalformedEvent) {
			metrics.RecordDetectionDropped(source, "malformed")
		}
		logging.Debug().Err(err).Str("source", source).Int("bytes", len(payload)).Msg("Dropping detection payload")
		return err
	}
	a.OnEvent(ev)
	return nil
}

func (a *Aggregator) dedupKey(label string, at time.Time) string {
	bucket := at.UnixNano() / int64(a.dedupWindow)
	return label + "|" + strconv.FormatInt(bucket, 10)
}

// Count returns the number of events seen for label.
func (a *Aggregator) Count(label string) int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.counts[label]
}

// Snapshot returns a copy of the aggregate.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	counts := make(map[string]int64, len(a.counts))
	for k, v := range a.counts {
		counts[k] = v
	}
	alerts := make([]AlertRecord, len(a.alerts))
	copy(alerts, a.alerts)
	total := a.total
	a.mu.RUnlock()

	return Snapshot{
		Counts:          counts,
		Alerts:          alerts,
		Total:           total,
		EventsPerMinute: a.rate.Count(),
		StartedAt:       a.startedAt,
	}
}

// History returns the retained alerts, newest first.
func (a *Aggregator) History() History {
	a.mu.RLock()
	defer a.mu.RUnlock()

	alerts := make([]AlertRecord, len(a.alerts))
	copy(alerts, a.alerts)
	return History{Detections: alerts, Total: len(alerts)}
}

// Distribution returns counts per label sorted by label.
func (a *Aggregator) Distribution() Distribution {
	a.mu.RLock()
	defer a.mu.RUnlock()

	labels := make([]string, 0, len(a.counts))
	for l := range a.counts {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	data := make([]int64, len(labels))
	for i, l := range labels {
		data[i] = a.counts[l]
	}
	return Distribution{Labels: labels, Data: data}
}
