// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap
// Package cache provides the small in-memory structures used on the
// detection hot path: a TTL-bounded LRU for duplicate suppression and a
// bucketed sliding-window counter for event rates.
package cache

import (
	"sync"
	"time"
)

type dedupEntry struct {
	key       string
	expiresAt time.Time
	prev      *dedupEntry
	next      *dedupEntry
}

// DedupLRU remembers keys for ttl and evicts the least recently seen key
// once capacity is reached. A doubly linked list with sentinel head and
// tail keeps every operation O(1).
type DedupLRU struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*dedupEntry
	head     *dedupEntry
	tail     *dedupEntry
	now      func() time.Time

	duplicates int64
	unique     int64
}

// NewDedupLRU creates a cache. Non-positive arguments fall back to 10000
// entries and 5 minutes.
func NewDedupLRU(capacity int, ttl time.Duration) *DedupLRU {
	if capacity <= 0 {
		capacity = 10000
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	c := &DedupLRU{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*dedupEntry, capacity),
		head:     &dedupEntry{},
		tail:     &dedupEntry{},
		now:      time.Now,
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// IsDuplicate reports whether key was seen within ttl, and records it
// either way. The check and the insert are one atomic step.
func (c *DedupLRU) IsDuplicate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if entry, ok := c.items[key]; ok {
		if now.Before(entry.expiresAt) {
			c.unlink(entry)
			c.pushFront(entry)
			c.duplicates++
			return true
		}
		c.remove(entry)
	}

	entry := &dedupEntry{key: key, expiresAt: now.Add(c.ttl)}
	c.pushFront(entry)
	c.items[key] = entry
	for len(c.items) > c.capacity {
		c.remove(c.tail.prev)
	}

	c.unique++
	return false
}

// Len returns the number of remembered keys, including expired ones not
// yet swept.
func (c *DedupLRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// CleanupExpired sweeps expired keys from the tail and returns how many
// were removed.
func (c *DedupLRU) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for entry := c.tail.prev; entry != c.head; {
		prev := entry.prev
		if !now.Before(entry.expiresAt) {
			c.remove(entry)
			removed++
		}
		entry = prev
	}
	return removed
}

// Stats returns how many keys were reported duplicate and unique.
func (c *DedupLRU) Stats() (duplicates, unique int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duplicates, c.unique
}

func (c *DedupLRU) pushFront(entry *dedupEntry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *DedupLRU) unlink(entry *dedupEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
}

func (c *DedupLRU) remove(entry *dedupEntry) {
	if entry == c.head {
		return
	}
	c.unlink(entry)
	delete(c.items, entry.key)
}
