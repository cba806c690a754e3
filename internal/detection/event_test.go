// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap
package detection

import (
	"errors"
	"testing"
	"time"
)

func TestParseEvent(t *testing.T) {
	t.Parallel()

	arrived := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		payload    string
		wantLabel  string
		wantMsg    string
		wantConf   float64
		wantCamera string
		wantBBox   bool
	}{
		{
			name:      "minimal label",
			payload:   `{"label":"knife"}`,
			wantLabel: "knife",
		},
		{
			name:       "backend alert payload",
			payload:    `{"message":"Weapon detected: pistol","weapon_type":"pistol","confidence":0.91,"camera_index":2,"timestamp":"2026-03-01T09:59:59Z"}`,
			wantLabel:  "pistol",
			wantMsg:    "Weapon detected: pistol",
			wantConf:   0.91,
			wantCamera: "2",
		},
		{
			name:       "generic socket payload",
			payload:    `{"cameraId":"cam_7","label":"rifle","score":0.5,"bbox":[1,2,3,4]}`,
			wantLabel:  "rifle",
			wantConf:   0.5,
			wantCamera: "cam_7",
			wantBBox:   true,
		},
		{
			name:    "no label",
			payload: `{"message":"motion"}`,
			wantMsg: "motion",
		},
		{
			name:      "wrong types ignored except label",
			payload:   `{"label":42,"confidence":"high","bbox":[1,2]}`,
			wantLabel: "42",
		},
		{
			name:      "label kept verbatim",
			payload:   `{"label":" gun "}`,
			wantLabel: " gun ",
		},
		{
			name:      "null label falls through to weapon_type",
			payload:   `{"label":null,"weapon_type":"rifle"}`,
			wantLabel: "rifle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseEvent([]byte(tt.payload), "test", arrived)
			if err != nil {
				t.Fatalf("ParseEvent() error = %v", err)
			}
			if ev.Label != tt.wantLabel {
				t.Errorf("Label = %q, want %q", ev.Label, tt.wantLabel)
			}
			if ev.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", ev.Message, tt.wantMsg)
			}
			if tt.wantConf != 0 && (ev.Confidence == nil || *ev.Confidence != tt.wantConf) {
				t.Errorf("Confidence = %v, want %v", ev.Confidence, tt.wantConf)
			}
			if tt.wantConf == 0 && ev.Confidence != nil {
				t.Errorf("Confidence = %v, want nil", *ev.Confidence)
			}
			if ev.CameraID != tt.wantCamera {
				t.Errorf("CameraID = %q, want %q", ev.CameraID, tt.wantCamera)
			}
			if (ev.BBox != nil) != tt.wantBBox {
				t.Errorf("BBox = %v", ev.BBox)
			}
			if !ev.ArrivedAt.Equal(arrived) || ev.Source != "test" {
				t.Errorf("ArrivedAt/Source = %v/%q", ev.ArrivedAt, ev.Source)
			}
			if string(ev.Raw) != tt.payload {
				t.Errorf("Raw = %s", ev.Raw)
			}
		})
	}
}

func TestParseEventTimestamp(t *testing.T) {
	t.Parallel()

	ev, err := ParseEvent([]byte(`{"timestamp":"2026-03-01T09:59:59Z"}`), "", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if ev.Timestamp.IsZero() || ev.Timestamp.Second() != 59 {
		t.Errorf("Timestamp = %v", ev.Timestamp)
	}
}

func TestParseEventMalformed(t *testing.T) {
	t.Parallel()

	for _, payload := range []string{``, `{`, `not json`, `[1,2,3]`, `"label"`, `null`} {
		if _, err := ParseEvent([]byte(payload), "test", time.Now()); !errors.Is(err, ErrMalformedEvent) {
			t.Errorf("ParseEvent(%q) error = %v, want ErrMalformedEvent", payload, err)
		}
	}
}

func TestRecordDefaults(t *testing.T) {
	t.Parallel()

	ev := Event{}
	rec := ev.Record()
	if rec.Label != DefaultLabel {
		t.Errorf("Label = %q, want %q", rec.Label, DefaultLabel)
	}
	if rec.Message != DefaultAlertMessage {
		t.Errorf("Message = %q, want %q", rec.Message, DefaultAlertMessage)
	}
}

func TestEffectiveLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"absent", `{}`, DefaultLabel},
		{"null", `{"label":null}`, DefaultLabel},
		{"empty string", `{"label":""}`, ""},
		{"blank", `{"label":"  "}`, "  "},
		{"padded", `{"label":" gun "}`, " gun "},
		{"plain", `{"label":"gun"}`, "gun"},
		{"number", `{"label":7}`, "7"},
		{"bool", `{"label":true}`, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseEvent([]byte(tt.payload), "test", time.Now())
			if err != nil {
				t.Fatalf("ParseEvent() error = %v", err)
			}
			if got := ev.EffectiveLabel(); got != tt.want {
				t.Errorf("EffectiveLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}
