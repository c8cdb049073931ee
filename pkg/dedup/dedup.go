// Package dedup drops QoS-1 redeliveries. The broker may deliver a
// message more than once; callers key each delivery by topic and packet
// id and skip the ones already seen inside the TTL window.
package dedup

import (
	"strconv"
	"sync"
	"time"
)

type Deduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	max  int
	seen map[string]time.Time
}

func New(ttl time.Duration, max int) *Deduper {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if max <= 0 {
		max = 10000
	}
	return &Deduper{ttl: ttl, max: max, seen: make(map[string]time.Time, max)}
}

// Key builds the canonical delivery key for an MQTT message.
func Key(topic string, messageID uint16) string {
	return topic + "#" + strconv.FormatUint(uint64(messageID), 10)
}

// ShouldProcess reports whether the delivery identified by key has not
// been seen within the TTL window, and marks it seen. An empty key is
// always processed.
func (d *Deduper) ShouldProcess(key string) bool {
	if key == "" {
		return true
	}
	now := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()
	if exp, ok := d.seen[key]; ok && now.Before(exp) {
		return false
	}
	d.seen[key] = now.Add(d.ttl)
	if len(d.seen) > d.max {
		d.evictLocked(now)
	}
	return true
}

// evictLocked removes expired entries; if the map is still over
// capacity afterwards it drops arbitrary entries until it fits. A false
// duplicate dropped here only costs one redundant handler invocation.
func (d *Deduper) evictLocked(now time.Time) {
	for k, exp := range d.seen {
		if now.After(exp) {
			delete(d.seen, k)
		}
	}
	for k := range d.seen {
		if len(d.seen) <= d.max {
			break
		}
		delete(d.seen, k)
	}
}
