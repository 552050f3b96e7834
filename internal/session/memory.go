package session

import (
	"context"
	"sync"
	"time"
)

type pendingCode struct {
	Verification
	purgeAt time.Time
}

type MemoryStore struct {
	mux     *sync.Mutex
	refresh map[string]RefreshRecord
	codes   map[string]*pendingCode
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mux:     &sync.Mutex{},
		refresh: make(map[string]RefreshRecord),
		codes:   make(map[string]*pendingCode),
	}
}

func (m *MemoryStore) SaveRefresh(_ context.Context, rec RefreshRecord) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.refresh[rec.ID] = rec
	return nil
}

func (m *MemoryStore) ConsumeRefresh(_ context.Context, id string) (*RefreshRecord, error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	rec, ok := m.refresh[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.refresh, id)
	return &rec, nil
}

func (m *MemoryStore) SaveVerification(_ context.Context, v Verification, retain time.Duration) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.codes[v.Email] = &pendingCode{Verification: v, purgeAt: v.ExpiresAt.Add(retain)}
	return nil
}

func (m *MemoryStore) GetVerification(_ context.Context, email string) (*Verification, error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	p, ok := m.codes[email]
	if !ok {
		return nil, ErrNotFound
	}
	v := p.Verification
	return &v, nil
}

func (m *MemoryStore) IncrementAttempts(_ context.Context, email string) (int, error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	p, ok := m.codes[email]
	if !ok {
		return 0, ErrNotFound
	}
	p.Attempts++
	return p.Attempts, nil
}

func (m *MemoryStore) DeleteVerification(_ context.Context, email string) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	if _, ok := m.codes[email]; !ok {
		return ErrNotFound
	}
	delete(m.codes, email)
	return nil
}

func (m *MemoryStore) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	m.mux.Lock()
	defer m.mux.Unlock()

	purged := 0
	for id, rec := range m.refresh {
		if !now.Before(rec.ExpiresAt) {
			delete(m.refresh, id)
			purged++
		}
	}
	for email, p := range m.codes {
		if !now.Before(p.purgeAt) {
			delete(m.codes, email)
			purged++
		}
	}
	return purged, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
