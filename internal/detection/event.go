// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap
// Package detection folds the inbound detection stream into per-label
// counts and a bounded, newest-first buffer of alert records.
package detection

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

const (
	// DefaultLabel is used when an event's label is absent or null.
	DefaultLabel = "weapon"

	// DefaultAlertMessage is shown for events without a message.
	DefaultAlertMessage = "Threat detected in camera view"
)

// ErrMalformedEvent is returned for payloads that are not a JSON object.
var ErrMalformedEvent = errors.New("malformed detection event")

// Event is one inbound detection. Only Label is interpreted by the
// aggregator; everything else is carried through for display. Label is
// kept exactly as received; a non-string label holds its JSON text.
type Event struct {
	Label      string          `json:"label"`
	HasLabel   bool            `json:"-"`
	Message    string          `json:"message,omitempty"`
	Confidence *float64        `json:"confidence,omitempty"`
	BBox       []float64       `json:"bbox,omitempty"`
	CameraID   string          `json:"camera_id,omitempty"`
	Timestamp  time.Time       `json:"timestamp,omitempty"`
	Source     string          `json:"source,omitempty"`
	ArrivedAt  time.Time       `json:"arrived_at"`
	Raw        json.RawMessage `json:"raw,omitempty"`
}

// AlertRecord is the retained projection of an Event.
type AlertRecord struct {
	Label      string          `json:"label"`
	Message    string          `json:"message"`
	Confidence *float64        `json:"confidence,omitempty"`
	CameraID   string          `json:"camera_id,omitempty"`
	Source     string          `json:"source,omitempty"`
	ArrivedAt  time.Time       `json:"arrived_at"`
	Raw        json.RawMessage `json:"raw,omitempty"`
}

// ParseEvent decodes a stream payload. Recognized keys:
//
//	label | weapon_type          detection class, any JSON type
//	message                      operator-facing text
//	confidence | score           0..1
//	bbox                         [x, y, w, h]
//	camera_id | cameraId | camera_index
//	timestamp                    RFC 3339
//
// Unknown keys are ignored and kept in Raw. Wrongly typed known keys other
// than the label are ignored rather than failing the event. arrivedAt stamps the event.
func ParseEvent(payload []byte, source string, arrivedAt time.Time) (Event, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if raw == nil {
		return Event{}, fmt.Errorf("%w: payload is null", ErrMalformedEvent)
	}

	ev := Event{
		Source:    source,
		ArrivedAt: arrivedAt,
		Raw:       append(json.RawMessage(nil), payload...),
	}

	ev.Label, ev.HasLabel = parseLabel(raw, "label", "weapon_type")
	ev.Message = firstString(raw, "message")
	if c, ok := firstNumber(raw, "confidence", "score"); ok {
		ev.Confidence = &c
	}
	ev.BBox = parseBBox(raw["bbox"])
	ev.CameraID = parseCameraID(raw)
	if ts := firstString(raw, "timestamp"); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			ev.Timestamp = t
		}
	}

	return ev, nil
}

// EffectiveLabel returns the label as received, or DefaultLabel when the
// event carried none. An empty or blank label is a label of its own.
func (e *Event) EffectiveLabel() string {
	if e.HasLabel || e.Label != "" {
		return e.Label
	}
	return DefaultLabel
}

// Record projects the event into an AlertRecord.
func (e *Event) Record() AlertRecord {
	msg := e.Message
	if msg == "" {
		msg = DefaultAlertMessage
	}
	return AlertRecord{
		Label:      e.EffectiveLabel(),
		Message:    msg,
		Confidence: e.Confidence,
		CameraID:   e.CameraID,
		Source:     e.Source,
		ArrivedAt:  e.ArrivedAt,
		Raw:        e.Raw,
	}
}

func firstString(raw map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := raw[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// parseLabel returns the first non-null value among keys. Strings are
// returned verbatim; other JSON values as their encoded text.
func parseLabel(raw map[string]interface{}, keys ...string) (string, bool) {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			return s, true
		}
		b, err := json.Marshal(v)
		if err != nil {
			continue
		}
		return string(b), true
	}
	return "", false
}

func firstNumber(raw map[string]interface{}, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := raw[k].(float64); ok {
			return v, true
		}
	}
	return 0, false
}

func parseBBox(v interface{}) []float64 {
	arr, ok := v.([]interface{})
	if !ok || len(arr) != 4 {
		return nil
	}
	out := make([]float64, 4)
	for i, x := range arr {
		f, ok := x.(float64)
		if !ok {
			return nil
		}
		out[i] = f
	}
	return out
}

func parseCameraID(raw map[string]interface{}) string {
	if s := firstString(raw, "camera_id", "cameraId"); s != "" {
		return s
	}
	if n, ok := firstNumber(raw, "camera_id", "cameraId", "camera_index"); ok {
		return fmt.Sprintf("%d", int64(n))
	}
	return ""
}
