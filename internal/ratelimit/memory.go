package ratelimit

import (
	"context"
	"sync"
	"time"
)

// defaultSweepEvery is how many admissions pass between inline sweeps of
// fully expired keys.
const defaultSweepEvery = 1024

// MemoryStore keeps rolling windows in process memory. Each key has its own
// mutex so check-and-record is atomic per key without serializing unrelated keys.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]*windowEntry
	sweepEvery int
	admits     int
}

type windowEntry struct {
	mu     sync.Mutex
	stamps []time.Time // admitted timestamps, oldest first
	window time.Duration
	dead   bool // removed from the map by a sweep
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:    make(map[string]*windowEntry),
		sweepEvery: defaultSweepEvery,
	}
}

// Admit implements Store.
func (s *MemoryStore) Admit(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	s.maybeSweep(now)

	for {
		e := s.entry(key)
		e.mu.Lock()
		if e.dead {
			// Swept between lookup and lock; fetch the replacement.
			e.mu.Unlock()
			continue
		}

		e.window = window
		e.purge(now)
		d := e.decide(limit, now)
		if d.Allowed {
			e.stamps = append(e.stamps, now)
			d.Remaining = limit - len(e.stamps)
		}
		e.mu.Unlock()
		return d, nil
	}
}

// Peek implements Store.
func (s *MemoryStore) Peek(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	s.mu.Lock()
	e, ok := s.entries[key]
	s.mu.Unlock()
	if !ok {
		return Decision{Allowed: true, Remaining: limit, Limit: limit}, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.window = window
	e.purge(now)
	d := e.decide(limit, now)
	if d.Allowed {
		d.Remaining = limit - len(e.stamps)
	}
	return d, nil
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) entry(key string) *windowEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		e = &windowEntry{}
		s.entries[key] = e
	}
	return e
}

// maybeSweep drops keys whose windows have fully elapsed. It runs on the
// calling goroutine; there is no background sweeper.
func (s *MemoryStore) maybeSweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.admits++
	if s.admits < s.sweepEvery {
		return
	}
	s.admits = 0

	for key, e := range s.entries {
		if !e.mu.TryLock() {
			continue
		}
		e.purge(now)
		if len(e.stamps) == 0 {
			e.dead = true
			delete(s.entries, key)
		}
		e.mu.Unlock()
	}
}

// purge removes timestamps at or before now-window.
func (e *windowEntry) purge(now time.Time) {
	cutoff := now.Add(-e.window)
	i := 0
	for i < len(e.stamps) && !e.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		e.stamps = append(e.stamps[:0], e.stamps[i:]...)
	}
}

func (e *windowEntry) decide(limit int, now time.Time) Decision {
	if len(e.stamps) < limit {
		return Decision{Allowed: true, Limit: limit, Remaining: limit - len(e.stamps)}
	}
	// The window drops below limit once this stamp expires.
	oldest := e.stamps[len(e.stamps)-limit]
	retry := oldest.Add(e.window).Sub(now)
	if retry < 0 {
		retry = 0
	}
	return Decision{Allowed: false, RetryAfter: retry, Limit: limit}
}
