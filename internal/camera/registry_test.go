// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap
package camera

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sequentialIDs() IDFunc {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("cam_%d", n)
	}
}

func TestClampRadius(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want float64
	}{
		{-5, 10},
		{0, 10},
		{10, 10},
		{20, 20},
		{50, 50},
		{75, 50},
		{math.Inf(1), 50},
		{math.NaN(), 10},
	}

	for _, tt := range tests {
		if got := ClampRadius(tt.in); got != tt.want {
			t.Errorf("ClampRadius(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRegistryAddDefaults(t *testing.T) {
	t.Parallel()

	r := NewRegistry(sequentialIDs())
	first := r.Add(18.5204, 73.8567)
	second := r.Add(18.5250, 73.8600)

	want := Camera{ID: "cam_1", Name: "Camera 1", Lat: 18.5204, Lng: 73.8567, FOVRadius: 20, Status: "active"}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Errorf("first camera mismatch (-want +got):\n%s", diff)
	}
	if second.Name != "Camera 2" {
		t.Errorf("second camera name = %q, want %q", second.Name, "Camera 2")
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
}

func TestRegistryNameUsesCurrentSize(t *testing.T) {
	t.Parallel()

	r := NewRegistry(sequentialIDs())
	a := r.Add(0, 0)
	r.Add(0, 0)
	if err := r.Remove(a.ID); err != nil {
		t.Fatal(err)
	}
	// Size is 1 after the removal, so the next name repeats "Camera 2".
	if c := r.Add(0, 0); c.Name != "Camera 2" {
		t.Errorf("name after removal = %q, want %q", c.Name, "Camera 2")
	}
}

func TestRegistryDefaultIDs(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil)
	a := r.Add(0, 0)
	b := r.Add(0, 0)
	if !strings.HasPrefix(a.ID, IDPrefix) {
		t.Errorf("id %q missing prefix", a.ID)
	}
	if a.ID == b.ID {
		t.Error("generated ids must be unique")
	}
}

func TestRegistryMutations(t *testing.T) {
	t.Parallel()

	r := NewRegistry(sequentialIDs())
	r.Add(1, 1)
	r.Add(2, 2)
	r.Add(3, 3)

	if _, err := r.Move("cam_2", 5, 6); err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if _, err := r.SetDirection("cam_2", 400); err != nil {
		t.Fatalf("SetDirection() error = %v", err)
	}
	c, err := r.SetRadius("cam_2", 80)
	if err != nil {
		t.Fatalf("SetRadius() error = %v", err)
	}
	if c.FOVRadius != 80 || c.EffectiveRadius() != 50 {
		t.Errorf("radius stored=%v effective=%v, want 80/50", c.FOVRadius, c.EffectiveRadius())
	}

	got, _ := r.Get("cam_2")
	if got.Lat != 5 || got.Lng != 6 || got.Direction != 400 {
		t.Errorf("unexpected camera after edits: %+v", got)
	}

	if err := r.Remove("cam_1"); err != nil {
		t.Fatal(err)
	}
	ids := []string{}
	for _, c := range r.List() {
		ids = append(ids, c.ID)
	}
	if diff := cmp.Diff([]string{"cam_2", "cam_3"}, ids); diff != "" {
		t.Errorf("order after removal (-want +got):\n%s", diff)
	}
}

func TestRegistryNotFound(t *testing.T) {
	t.Parallel()

	r := NewRegistry(sequentialIDs())
	ops := map[string]func() error{
		"get":       func() error { _, err := r.Get("nope"); return err },
		"remove":    func() error { return r.Remove("nope") },
		"move":      func() error { _, err := r.Move("nope", 0, 0); return err },
		"direction": func() error { _, err := r.SetDirection("nope", 0); return err },
		"radius":    func() error { _, err := r.SetRadius("nope", 0); return err },
	}
	for name, op := range ops {
		if err := op(); !errors.Is(err, ErrCameraNotFound) {
			t.Errorf("%s: expected ErrCameraNotFound, got %v", name, err)
		}
	}
}

func TestRegistrySnapshotRestore(t *testing.T) {
	t.Parallel()

	r := NewRegistry(sequentialIDs())
	r.Add(1, 1)
	snap := r.Snapshot()

	r.Add(2, 2)
	_, _ = r.Move("cam_1", 9, 9)

	// Mutating the snapshot must not leak into the registry.
	snap[0].Name = "mutated"
	if c, _ := r.Get("cam_1"); c.Name != "Camera 1" {
		t.Fatalf("snapshot aliases registry storage: %q", c.Name)
	}
	r.Restore(snap)

	got := r.List()
	if len(got) != 1 || got[0].Lat != 1 || got[0].Name != "mutated" {
		t.Errorf("Restore() produced %+v", got)
	}
	got[0].Name = "again"
	if c, _ := r.Get("cam_1"); c.Name != "mutated" {
		t.Error("List() must return a copy")
	}
}

func TestRegistryConcurrentAdds(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := r.Add(float64(i), float64(i))
			_, _ = r.SetDirection(c.ID, float64(i))
		}(i)
	}
	wg.Wait()

	if r.Len() != 50 {
		t.Errorf("Len() = %d, want 50", r.Len())
	}
}

func TestRegistryOnCountChange(t *testing.T) {
	t.Parallel()

	r := NewRegistry(sequentialIDs())
	var sizes []int
	r.OnCountChange(func(n int) {
		// The lock is released before listeners run.
		if got := r.Len(); got != n {
			t.Errorf("Len() inside listener = %d, want %d", got, n)
		}
		sizes = append(sizes, n)
	})

	r.Add(1, 1)
	r.Add(2, 2)
	if _, err := r.SetDirection("cam_1", 90); err != nil {
		t.Fatal(err)
	}
	if err := r.Remove("cam_1"); err != nil {
		t.Fatal(err)
	}
	_ = r.Remove("cam_missing")
	r.Restore(nil)

	if diff := cmp.Diff([]int{1, 2, 1, 0}, sizes); diff != "" {
		t.Errorf("count notifications mismatch (-want +got):\n%s", diff)
	}
}
