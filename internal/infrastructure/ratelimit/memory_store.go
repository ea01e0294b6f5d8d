// Package ratelimit holds the in-process quota store used when no shared
// store is configured.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps request timestamps per key in process memory. Quotas are
// not shared between instances and reset on restart.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*window
	now     func() time.Time
}

type window struct {
	hits      []time.Time
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*window), now: time.Now}
}

func (s *MemoryStore) Count(_ context.Context, key string, windowStart time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.entries[key]
	if !ok {
		return 0, nil
	}
	if s.expired(w) {
		delete(s.entries, key)
		return 0, nil
	}

	kept := w.hits[:0]
	for _, at := range w.hits {
		if !at.Before(windowStart) {
			kept = append(kept, at)
		}
	}
	w.hits = kept
	return len(kept), nil
}

func (s *MemoryStore) Increment(_ context.Context, key string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.entries[key]
	if !ok || s.expired(w) {
		w = &window{}
		s.entries[key] = w
	}
	w.hits = append(w.hits, at)
	return nil
}

func (s *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.entries[key]; ok {
		w.expiresAt = s.now().Add(ttl)
	}
	return nil
}

// Sweep drops every lapsed key.
func (s *MemoryStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, w := range s.entries {
		if s.expired(w) {
			delete(s.entries, key)
		}
	}
}

// Run sweeps lapsed keys every interval until ctx is cancelled.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *MemoryStore) expired(w *window) bool {
	return !w.expiresAt.IsZero() && !s.now().Before(w.expiresAt)
}
