// Package cache keeps checkout idempotency state so a retried submission with
// the same key never charges twice.
package cache

import (
	"context"
	"sync"
	"time"
)

// IdempotencyStore reserves a key for the duration of an operation and keeps
// the operation's result once it completes.
type IdempotencyStore interface {
	// Begin reserves key. It returns false when the key is already reserved or completed.
	Begin(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Complete stores the result for key, replacing the reservation.
	Complete(ctx context.Context, key string, result []byte, ttl time.Duration) error
	// Result returns the stored result; ok is false while the key is only reserved.
	Result(ctx context.Context, key string) ([]byte, bool, error)
	// Release drops the reservation so the key can be used again.
	Release(ctx context.Context, key string) error
}

type entry struct {
	result    []byte
	done      bool
	expiresAt time.Time
}

// InMemoryIdempotencyStore is suitable for a single instance and tests.
type InMemoryIdempotencyStore struct {
	mu        sync.Mutex
	entries   map[string]entry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewInMemoryIdempotencyStore(sweepInterval time.Duration) *InMemoryIdempotencyStore {
	if sweepInterval <= 0 {
		sweepInterval = 5 * time.Minute
	}
	s := &InMemoryIdempotencyStore{
		entries:  make(map[string]entry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.sweepLoop(sweepInterval)
	return s
}

func (s *InMemoryIdempotencyStore) Begin(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok && s.now().Before(e.expiresAt) {
		return false, nil
	}
	s.entries[key] = entry{expiresAt: s.now().Add(ttl)}
	return true, nil
}

func (s *InMemoryIdempotencyStore) Complete(_ context.Context, key string, result []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(result))
	copy(stored, result)
	s.entries[key] = entry{result: stored, done: true, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *InMemoryIdempotencyStore) Result(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !e.done || !s.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	return e.result, true, nil
}

func (s *InMemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Close stops the sweep goroutine. Safe to call more than once.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryIdempotencyStore) sweepLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *InMemoryIdempotencyStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}

// Size returns the number of live and expired-but-unswept entries.
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

var _ IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
