package auth

import (
	"context"
	"sync"

	"github.com/danraniery/sgm/pkg/domain"
	"github.com/google/uuid"
)

// memStore is an in-memory AccountStore with version-checked saves.
type memStore struct {
	mu          sync.Mutex
	byID        map[uuid.UUID]*domain.Account
	authorities map[uuid.UUID][]string
	saves       int
	// conflicts forces the next N saves to fail with ErrConcurrentUpdate.
	conflicts int
}

func newMemStore() *memStore {
	return &memStore{
		byID:        make(map[uuid.UUID]*domain.Account),
		authorities: make(map[uuid.UUID][]string),
	}
}

func (m *memStore) put(acc *domain.Account, authorities ...string) *domain.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc.ID == uuid.Nil {
		acc.ID = uuid.New()
	}
	m.byID[acc.ID] = acc.Clone()
	m.authorities[acc.ID] = authorities
	return acc
}

func (m *memStore) get(id uuid.UUID) *domain.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id].Clone()
}

func (m *memStore) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, acc := range m.byID {
		if acc.Username == username {
			return acc.Clone(), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return acc.Clone(), nil
}

func (m *memStore) Authorities(_ context.Context, id uuid.UUID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.authorities[id]...), nil
}

func (m *memStore) Create(_ context.Context, acc *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Username == acc.Username {
			return domain.ErrUsernameTaken
		}
	}
	acc.Version = 1
	m.byID[acc.ID] = acc.Clone()
	return nil
}

func (m *memStore) Save(_ context.Context, acc *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.conflicts > 0 {
		m.conflicts--
		m.byID[acc.ID].Version++
		return domain.ErrConcurrentUpdate
	}
	current, ok := m.byID[acc.ID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if current.Version != acc.Version {
		return domain.ErrConcurrentUpdate
	}
	acc.Version++
	m.byID[acc.ID] = acc.Clone()
	return nil
}

func (m *memStore) List(_ context.Context, filter domain.AccountFilter) ([]*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Account
	for _, acc := range m.byID {
		if !acc.Privileged {
			out = append(out, acc.Clone())
		}
	}
	return out, nil
}
