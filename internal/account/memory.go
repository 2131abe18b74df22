package account

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore implements Store with in-process maps. A single mutex covers
// lookup-then-write sequences, which gives the external-id uniqueness
// guarantee the resolver relies on.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*Account
	prefs    map[uuid.UUID]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[uuid.UUID]*Account),
		prefs:    make(map[uuid.UUID]map[string]string),
	}
}

func (m *MemoryStore) Create(ctx context.Context, acc *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.accounts {
		if strings.EqualFold(existing.Email, acc.Email) {
			return ErrEmailTaken
		}
	}

	cp := *acc
	m.accounts[acc.ID] = &cp
	return nil
}

func (m *MemoryStore) ByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *acc
	return &cp, nil
}

func (m *MemoryStore) ByEmail(ctx context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, acc := range m.accounts {
		if strings.EqualFold(acc.Email, email) {
			cp := *acc
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ByExternalID(ctx context.Context, externalID string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.findByExternalIDLocked(externalID)
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.accounts[id]
	return &cp, nil
}

func (m *MemoryStore) UpdateEmail(ctx context.Context, id uuid.UUID, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	acc.Email = email
	return nil
}

func (m *MemoryStore) SetPref(ctx context.Context, id uuid.UUID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[id]; !ok {
		return ErrNotFound
	}

	if key == PrefExternalID {
		if holder, ok := m.findByExternalIDLocked(value); ok && holder != id {
			return ErrExternalIDTaken
		}
	}

	prefs, ok := m.prefs[id]
	if !ok {
		prefs = make(map[string]string)
		m.prefs[id] = prefs
	}
	prefs[key] = value
	return nil
}

func (m *MemoryStore) Pref(ctx context.Context, id uuid.UUID, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[id]; !ok {
		return "", ErrNotFound
	}
	return m.prefs[id][key], nil
}

func (m *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[id]; !ok {
		return ErrNotFound
	}
	delete(m.accounts, id)
	delete(m.prefs, id)
	return nil
}

func (m *MemoryStore) Administrators(ctx context.Context) ([]*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var admins []*Account
	for _, acc := range m.accounts {
		if acc.IsAdmin {
			cp := *acc
			admins = append(admins, &cp)
		}
	}
	return admins, nil
}

func (m *MemoryStore) findByExternalIDLocked(externalID string) (uuid.UUID, bool) {
	for id, prefs := range m.prefs {
		if prefs[PrefExternalID] == externalID {
			return id, true
		}
	}
	return uuid.Nil, false
}

var _ Store = (*MemoryStore)(nil)
