// Package memory keeps links and users in process memory. Nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rawen554/shortlinks/internal/models"
	"github.com/rawen554/shortlinks/internal/store"
)

type MemoryStorage struct {
	mux     *sync.RWMutex
	links   map[string]*models.Link
	linkIDs map[string]string
	users   map[string]*models.User
	emails  map[string]string
	hashes  map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		mux:     &sync.RWMutex{},
		links:   make(map[string]*models.Link),
		linkIDs: make(map[string]string),
		users:   make(map[string]*models.User),
		emails:  make(map[string]string),
		hashes:  make(map[string]string),
	}
}

func (s *MemoryStorage) CreateLink(_ context.Context, link *models.Link) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	if _, ok := s.links[link.ShortCode]; ok {
		return fmt.Errorf("code %q: %w", link.ShortCode, store.ErrCodeConflict)
	}
	stored := *link
	s.links[link.ShortCode] = &stored
	s.linkIDs[link.ID] = link.ShortCode
	return nil
}

func (s *MemoryStorage) GetLinkByCode(_ context.Context, code string) (*models.Link, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()

	link, ok := s.links[code]
	if !ok {
		return nil, store.ErrNotFound
	}
	ret := *link
	return &ret, nil
}

func (s *MemoryStorage) GetLinkByID(ctx context.Context, id string) (*models.Link, error) {
	s.mux.RLock()
	code, ok := s.linkIDs[id]
	s.mux.RUnlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.GetLinkByCode(ctx, code)
}

func (s *MemoryStorage) ListLinksByOwner(
	_ context.Context,
	owner models.Owner,
	limit, offset int,
) ([]models.Link, int, error) {
	s.mux.RLock()
	owned := make([]models.Link, 0)
	for _, link := range s.links {
		if owner.Owns(link) {
			owned = append(owned, *link)
		}
	}
	s.mux.RUnlock()

	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].CreatedAt.After(owned[j].CreatedAt)
		}
		return owned[i].ID > owned[j].ID
	})

	total := len(owned)
	if offset >= total {
		return []models.Link{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return owned[offset:end], total, nil
}

func (s *MemoryStorage) IncrementClicks(_ context.Context, code string) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	link, ok := s.links[code]
	if !ok {
		return store.ErrNotFound
	}
	link.ClickCount++
	return nil
}

func (s *MemoryStorage) DeleteLink(_ context.Context, id string) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	code, ok := s.linkIDs[id]
	if !ok {
		return store.ErrNotFound
	}
	delete(s.linkIDs, id)
	delete(s.links, code)
	return nil
}

func (s *MemoryStorage) CreateUser(_ context.Context, user *models.User, passwordHash string) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	if _, ok := s.emails[user.Email]; ok {
		return store.ErrEmailTaken
	}
	stored := *user
	s.users[user.ID] = &stored
	s.emails[user.Email] = user.ID
	s.hashes[user.ID] = passwordHash
	return nil
}

func (s *MemoryStorage) UpdatePendingUser(_ context.Context, user *models.User, passwordHash string) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	stored, ok := s.users[user.ID]
	if !ok || stored.Verified {
		return store.ErrNotFound
	}
	stored.Name = user.Name
	s.hashes[user.ID] = passwordHash
	return nil
}

func (s *MemoryStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mux.RLock()
	id, ok := s.emails[email]
	s.mux.RUnlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.GetUserByID(ctx, id)
}

func (s *MemoryStorage) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	ret := *user
	return &ret, nil
}

func (s *MemoryStorage) GetPasswordHash(_ context.Context, userID string) (string, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()

	hash, ok := s.hashes[userID]
	if !ok {
		return "", store.ErrNotFound
	}
	return hash, nil
}

func (s *MemoryStorage) MarkUserVerified(_ context.Context, userID string) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	user.Verified = true
	return nil
}

func (s *MemoryStorage) GetStats(_ context.Context) (*models.Stats, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()

	return &models.Stats{URLs: len(s.links), Users: len(s.users)}, nil
}

func (s *MemoryStorage) Ping(_ context.Context) error {
	return nil
}

func (s *MemoryStorage) Close() error {
	return nil
}
