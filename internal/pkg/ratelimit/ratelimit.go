package ratelimit

import (
	"hash/fnv"
	"log"
	"sync"
	"time"
)

const shardCount = 32

type window struct {
	start time.Time
	size  time.Duration
	count int
}

type shard struct {
	mu      sync.Mutex
	windows map[string]*window
}

// Limiter is a process-local fixed-window counter keyed by arbitrary
// strings. Counters live in memory only: a restart clears them and multiple
// server instances do not share limits, so this is a development-grade
// throttle that needs a shared store before clustering.
//
// Keys are spread over shards so requests for different keys do not contend
// on one lock.
type Limiter struct {
	shards [shardCount]*shard
	now    func() time.Time
}

func New() *Limiter {
	l := &Limiter{now: time.Now}
	for i := range l.shards {
		l.shards[i] = &shard{windows: make(map[string]*window)}
	}
	return l
}

func (l *Limiter) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return l.shards[h.Sum32()%shardCount]
}

// Allow reports whether key may proceed and increments its window when it
// can. The expiry check, reset and increment all happen under the shard lock
// so concurrent callers for the same key observe a consistent window. A
// window past its size is reset before evaluation; a saturated window
// returns false without incrementing.
func (l *Limiter) Allow(key string, limit int, windowSize time.Duration) bool {
	if key == "" {
		log.Printf("ratelimit: blank key rejected")
		return false
	}

	s := l.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := l.now()
	w, ok := s.windows[key]
	if !ok {
		w = &window{start: now, size: windowSize}
		s.windows[key] = w
	}
	if now.Sub(w.start) > w.size {
		w.start = now
		w.count = 0
	}
	w.size = windowSize

	if w.count >= limit {
		return false
	}
	w.count++
	return true
}

// Count returns the current count for key, or 0 for an unknown key. An
// expired window reports 0 as well; its stale count is never exposed.
func (l *Limiter) Count(key string) int {
	if key == "" {
		return 0
	}

	s := l.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok {
		return 0
	}
	if l.now().Sub(w.start) > w.size {
		return 0
	}
	return w.count
}

// Reset removes key entirely.
func (l *Limiter) Reset(key string) {
	if key == "" {
		return
	}

	s := l.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
}
