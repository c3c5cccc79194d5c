package store

import (
	"context"
	"slices"
	"sync"

	"github.com/montanasport9-stack/maestriadotrader/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]*model.User // by id
	byEmail map[string]string      // email -> id
	trades  []model.Trade
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]*model.User),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := NormalizeEmail(u.Email)
	if _, ok := s.byEmail[email]; ok {
		return ErrEmailTaken
	}

	// Store a copy to avoid external mutation.
	copy := *u
	copy.Email = email
	s.users[u.ID] = &copy
	s.byEmail[email] = u.ID
	return nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *s.users[id]
	return &copy, nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *u
	return &copy, nil
}

func (s *MemoryStore) CreateTrade(_ context.Context, t *model.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades = append(s.trades, *t)
	return nil
}

func (s *MemoryStore) ListTradesByOwner(_ context.Context, ownerID string) ([]model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.Trade, 0)
	for _, t := range s.trades {
		if t.UserID == ownerID {
			result = append(result, t)
		}
	}
	slices.SortStableFunc(result, newestFirst)
	return result, nil
}

func (s *MemoryStore) DeleteTradeForOwner(_ context.Context, id, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades = slices.DeleteFunc(s.trades, func(t model.Trade) bool {
		return t.ID == id && t.UserID == ownerID
	})
	return nil
}
