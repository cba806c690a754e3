// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap
package cache

import (
	"sync"
	"time"
)

// WindowCounter counts events over a trailing window split into fixed
// buckets. Old buckets are zeroed lazily on the next call.
type WindowCounter struct {
	mu         sync.Mutex
	buckets    []int64
	bucketSize time.Duration
	current    int
	bucketAt   time.Time
	now        func() time.Time
}

// NewWindowCounter creates a counter over window with n buckets.
// Defaults: one minute, 12 buckets.
func NewWindowCounter(window time.Duration, n int) *WindowCounter {
	if n <= 0 {
		n = 12
	}
	if window <= 0 {
		window = time.Minute
	}
	return newWindowCounter(window, n, time.Now)
}

func newWindowCounter(window time.Duration, n int, now func() time.Time) *WindowCounter {
	return &WindowCounter{
		buckets:    make([]int64, n),
		bucketSize: window / time.Duration(n),
		bucketAt:   now(),
		now:        now,
	}
}

// Add records delta events now.
func (w *WindowCounter) Add(delta int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.advance()
	w.buckets[w.current] += delta
}

// Count returns the number of events inside the window.
func (w *WindowCounter) Count() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.advance()

	var total int64
	for _, n := range w.buckets {
		total += n
	}
	return total
}

func (w *WindowCounter) advance() {
	elapsed := int(w.now().Sub(w.bucketAt) / w.bucketSize)
	if elapsed <= 0 {
		return
	}

	if elapsed >= len(w.buckets) {
		for i := range w.buckets {
			w.buckets[i] = 0
		}
		w.current = 0
	} else {
		for i := 0; i < elapsed; i++ {
			w.current = (w.current + 1) % len(w.buckets)
			w.buckets[w.current] = 0
		}
	}
	// Keep bucket boundaries aligned to the original start.
	w.bucketAt = w.bucketAt.Add(time.Duration(elapsed) * w.bucketSize)
}
