// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap
package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func TestDedupLRUWindow(t *testing.T) {
	clock := newClock()
	c := NewDedupLRU(100, 10*time.Second)
	c.now = clock.Now

	if c.IsDuplicate("weapon|1") {
		t.Fatal("first sighting must not be a duplicate")
	}
	clock.Advance(5 * time.Second)
	if !c.IsDuplicate("weapon|1") {
		t.Error("repeat inside ttl must be a duplicate")
	}
	if c.IsDuplicate("knife|1") {
		t.Error("different key must not be a duplicate")
	}

	clock.Advance(11 * time.Second)
	if c.IsDuplicate("weapon|1") {
		t.Error("repeat after ttl must not be a duplicate")
	}

	dups, unique := c.Stats()
	if dups != 1 || unique != 3 {
		t.Errorf("Stats() = %d, %d; want 1, 3", dups, unique)
	}
}

func TestDedupLRUEviction(t *testing.T) {
	c := NewDedupLRU(3, time.Hour)
	for i := 0; i < 5; i++ {
		c.IsDuplicate(fmt.Sprintf("k%d", i))
	}
	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}
	// k0 and k1 were evicted as least recently seen.
	if c.IsDuplicate("k0") {
		t.Error("evicted key reported as duplicate")
	}
	if !c.IsDuplicate("k4") {
		t.Error("recent key should still be remembered")
	}
}

func TestDedupLRUCleanupExpired(t *testing.T) {
	clock := newClock()
	c := NewDedupLRU(10, time.Second)
	c.now = clock.Now

	c.IsDuplicate("a")
	c.IsDuplicate("b")
	clock.Advance(2 * time.Second)
	c.IsDuplicate("c")

	if removed := c.CleanupExpired(); removed != 2 {
		t.Errorf("CleanupExpired() = %d, want 2", removed)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestNewDedupLRUDefaults(t *testing.T) {
	c := NewDedupLRU(0, 0)
	if c.capacity != 10000 || c.ttl != 5*time.Minute {
		t.Errorf("defaults = %d, %v", c.capacity, c.ttl)
	}
}

func TestWindowCounter(t *testing.T) {
	clock := newClock()
	w := newWindowCounter(time.Minute, 6, clock.Now)

	w.Add(1)
	clock.Advance(15 * time.Second)
	w.Add(2)
	if got := w.Count(); got != 3 {
		t.Fatalf("Count() = %d, want 3", got)
	}

	// First event falls out after a full window.
	clock.Advance(50 * time.Second)
	if got := w.Count(); got != 2 {
		t.Errorf("Count() after 65s = %d, want 2", got)
	}

	clock.Advance(2 * time.Minute)
	if got := w.Count(); got != 0 {
		t.Errorf("Count() after idle = %d, want 0", got)
	}
}

func TestWindowCounterConcurrent(t *testing.T) {
	w := NewWindowCounter(time.Hour, 4)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				w.Add(1)
			}
		}()
	}
	wg.Wait()
	if got := w.Count(); got != 1000 {
		t.Errorf("Count() = %d, want 1000", got)
	}
}
