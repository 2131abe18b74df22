package sessionstate

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store using in-process maps. Entries expire after
// the configured TTL and are removed by a background sweep, mirroring the
// implicit lifetime of one login attempt.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
	ttl      time.Duration
	ticker   *time.Ticker
	done     chan struct{}
}

type memorySession struct {
	values    map[string]string
	expiresAt time.Time
}

// NewMemoryStore creates a new in-memory store. Entries expire after ttl; the
// sweep runs at cleanupInterval when it is positive.
func NewMemoryStore(ttl, cleanupInterval time.Duration) *MemoryStore {
	store := &MemoryStore{
		sessions: make(map[string]*memorySession),
		ttl:      ttl,
		done:     make(chan struct{}),
	}

	if cleanupInterval > 0 {
		store.ticker = time.NewTicker(cleanupInterval)
		go store.cleanupLoop()
	}

	return store
}

func (m *MemoryStore) Put(ctx context.Context, sid, key, value string) error {
	if sid == "" {
		return ErrEmptySessionID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sid]
	if !ok || sess.expired() {
		sess = &memorySession{values: make(map[string]string)}
		m.sessions[sid] = sess
	}
	sess.values[key] = value
	sess.expiresAt = time.Now().Add(m.ttl)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, sid, key string) (string, error) {
	if sid == "" {
		return "", ErrEmptySessionID
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[sid]
	if !ok || sess.expired() {
		return "", ErrKeyNotFound
	}
	value, ok := sess.values[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return value, nil
}

func (m *MemoryStore) Has(ctx context.Context, sid, key string) (bool, error) {
	_, err := m.Get(ctx, sid, key)
	if err == nil {
		return true, nil
	}
	if err == ErrKeyNotFound {
		return false, nil
	}
	return false, err
}

func (m *MemoryStore) Forget(ctx context.Context, sid string, keys ...string) error {
	if sid == "" {
		return ErrEmptySessionID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sid]
	if !ok {
		return nil
	}
	for _, key := range keys {
		delete(sess.values, key)
	}
	if len(sess.values) == 0 {
		delete(m.sessions, sid)
	}
	return nil
}

// Close stops the cleanup goroutine.
func (m *MemoryStore) Close() error {
	if m.ticker != nil {
		m.ticker.Stop()
		close(m.done)
	}
	return nil
}

func (m *MemoryStore) cleanupLoop() {
	for {
		select {
		case <-m.ticker.C:
			m.deleteExpired()
		case <-m.done:
			return
		}
	}
}

func (m *MemoryStore) deleteExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for sid, sess := range m.sessions {
		if sess.expired() {
			delete(m.sessions, sid)
		}
	}
}

func (s *memorySession) expired() bool {
	return time.Now().After(s.expiresAt)
}
