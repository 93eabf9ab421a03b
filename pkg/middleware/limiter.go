package middleware

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

const (
	defaultShards             = 32
	defaultMaxClientsPerShard = 4096
)

// AdmissionConfig defines fixed-window admission settings
type AdmissionConfig struct {
	// MaxRequests admitted per client per window
	MaxRequests int
	// Window is the fixed window length
	Window time.Duration
	// Shards partitions client records; each shard has its own lock
	Shards int
	// MaxClientsPerShard caps tracked clients per shard. The least recently
	// seen client is evicted when a shard is full.
	MaxClientsPerShard int
}

// Decision is the outcome of one admission check
type Decision struct {
	Allowed   bool
	Count     int
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type windowRecord struct {
	count   int
	resetAt time.Time
}

type shard struct {
	mu      sync.Mutex
	records *simplelru.LRU[string, *windowRecord]
}

// AdmissionLimiter is a fixed-window request counter keyed by client address.
//
// The first request from a client, or the first after its window has
// passed, opens a new window with count 1. Later requests increment the
// count and are rejected once it exceeds MaxRequests. Rejected requests
// still count but never extend the window.
type AdmissionLimiter struct {
	max    int
	window time.Duration
	shards []*shard
}

// NewAdmissionLimiter creates a limiter. Zero Shards or MaxClientsPerShard
// take defaults.
func NewAdmissionLimiter(cfg AdmissionConfig) *AdmissionLimiter {
	if cfg.Shards <= 0 {
		cfg.Shards = defaultShards
	}
	if cfg.MaxClientsPerShard <= 0 {
		cfg.MaxClientsPerShard = defaultMaxClientsPerShard
	}

	l := &AdmissionLimiter{
		max:    cfg.MaxRequests,
		window: cfg.Window,
		shards: make([]*shard, cfg.Shards),
	}
	for i := range l.shards {
		// NewLRU only fails for a non-positive size.
		records, _ := simplelru.NewLRU[string, *windowRecord](cfg.MaxClientsPerShard, nil)
		l.shards[i] = &shard{records: records}
	}
	return l
}

// Limit returns the per-window maximum
func (l *AdmissionLimiter) Limit() int {
	return l.max
}

// Window returns the window length
func (l *AdmissionLimiter) Window() time.Duration {
	return l.window
}

func (l *AdmissionLimiter) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return l.shards[h.Sum32()%uint32(len(l.shards))]
}

// Admit counts a request from key at now. The read-check-write runs under
// the key's shard lock.
func (l *AdmissionLimiter) Admit(key string, now time.Time) Decision {
	s := l.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records.Get(key)
	if !ok || now.After(rec.resetAt) {
		rec = &windowRecord{count: 1, resetAt: now.Add(l.window)}
		s.records.Add(key, rec)
	} else {
		rec.count++
	}
	return l.decide(rec)
}

func (l *AdmissionLimiter) decide(rec *windowRecord) Decision {
	remaining := l.max - rec.count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   rec.count <= l.max,
		Count:     rec.count,
		Limit:     l.max,
		Remaining: remaining,
		ResetAt:   rec.resetAt,
	}
}

// Sweep drops records whose window ended before now and returns how many
// were removed.
func (l *AdmissionLimiter) Sweep(now time.Time) int {
	removed := 0
	for _, s := range l.shards {
		s.mu.Lock()
		for _, key := range s.records.Keys() {
			if rec, ok := s.records.Peek(key); ok && now.After(rec.resetAt) {
				s.records.Remove(key)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Len returns the number of tracked clients
func (l *AdmissionLimiter) Len() int {
	n := 0
	for _, s := range l.shards {
		s.mu.Lock()
		n += s.records.Len()
		s.mu.Unlock()
	}
	return n
}
