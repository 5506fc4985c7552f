package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Store keeps fixed-window counters keyed by client.
type Store interface {
	Get(ctx context.Context, key string) (count int, resetTime time.Time, exists bool, err error)
	Increment(ctx context.Context, key string, resetTime time.Time) (count int, err error)
}

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]*entry
	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

type entry struct {
	count     int
	resetTime time.Time
}

func NewMemoryStore() *MemoryStore {
	store := newMemoryStore(time.Now)
	go store.cleanup(time.Minute)
	return store
}

func newMemoryStore(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		data: make(map[string]*entry),
		now:  now,
		stop: make(chan struct{}),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (int, time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.data[key]; ok && s.now().Before(e.resetTime) {
		return e.count, e.resetTime, true, nil
	}
	return 0, time.Time{}, false, nil
}

func (s *MemoryStore) Increment(_ context.Context, key string, resetTime time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.data[key]; ok && s.now().Before(e.resetTime) {
		e.count++
		return e.count, nil
	}

	s.data[key] = &entry{count: 1, resetTime: resetTime}
	return 1, nil
}

// Close stops the background sweep.
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryStore) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.data {
		if now.After(e.resetTime) {
			delete(s.data, key)
		}
	}
}
