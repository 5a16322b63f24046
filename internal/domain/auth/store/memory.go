package store

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	state     State
	touchedAt time.Time
}

type memoryStore struct {
	items       map[uint]memoryEntry
	mutex       sync.RWMutex
	ttl         time.Duration
	cleanupFreq time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewMemory builds an in-memory session state store.
func NewMemory(cfg Config) Store {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	cleanup := 5 * time.Minute
	if cfg.Memory != nil && cfg.Memory.GCInterval > 0 {
		cleanup = cfg.Memory.GCInterval
	}
	s := &memoryStore{
		items:       make(map[uint]memoryEntry),
		ttl:         ttl,
		cleanupFreq: cleanup,
		stop:        make(chan struct{}),
	}
	go s.gcLoop()
	return s
}

func (s *memoryStore) gcLoop() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cleanupExpired()
		case <-s.stop:
			return
		}
	}
}

func (s *memoryStore) cleanupExpired() {
	cutoff := time.Now().Add(-s.ttl)
	s.mutex.Lock()
	for id, entry := range s.items {
		if entry.touchedAt.Before(cutoff) {
			delete(s.items, id)
		}
	}
	s.mutex.Unlock()
}

func (s *memoryStore) Put(_ context.Context, state State) error {
	s.mutex.Lock()
	s.items[state.UserID] = memoryEntry{state: state, touchedAt: time.Now()}
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Get(_ context.Context, userID uint) (State, bool, error) {
	s.mutex.RLock()
	entry, ok := s.items[userID]
	s.mutex.RUnlock()
	if !ok {
		return State{}, false, nil
	}
	if time.Since(entry.touchedAt) > s.ttl {
		s.mutex.Lock()
		delete(s.items, userID)
		s.mutex.Unlock()
		return State{}, false, nil
	}
	return entry.state, true, nil
}

func (s *memoryStore) Remove(_ context.Context, userID uint) error {
	s.mutex.Lock()
	delete(s.items, userID)
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Count(_ context.Context) (int, error) {
	cutoff := time.Now().Add(-s.ttl)
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	active := 0
	for _, entry := range s.items {
		if entry.touchedAt.After(cutoff) {
			active++
		}
	}
	return active, nil
}

func (s *memoryStore) Close(_ context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	return nil
}
