package ratelimit

import (
	"sync"
	"time"
)

const blocklistSweepSize = 4096

// blocklist remembers clients that were rejected so that repeated attempts
// are answered locally until the store could admit them again. It is advisory:
// an empty blocklist only costs extra round trips.
type blocklist struct {
	mu    sync.Mutex
	until map[string]time.Time
}

func newBlocklist() *blocklist {
	return &blocklist{until: make(map[string]time.Time)}
}

func (b *blocklist) blocked(key string, now time.Time) (time.Time, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	until, ok := b.until[key]
	if !ok {
		return time.Time{}, false
	}

	if !now.Before(until) {
		delete(b.until, key)

		return time.Time{}, false
	}

	return until, true
}

func (b *blocklist) block(key string, until, now time.Time) {
	if !now.Before(until) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.until) >= blocklistSweepSize {
		for k, t := range b.until {
			if !now.Before(t) {
				delete(b.until, k)
			}
		}
	}

	b.until[key] = until
}
