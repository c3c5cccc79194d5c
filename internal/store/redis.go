package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/montanasport9-stack/maestriadotrader/internal/model"
)

// CachedStore wraps a primary Store with a Redis read-through cache of each
// owner's trade list. Writes go to the primary store and bump the owner's
// version counter; lists are cached under the version read before the
// primary was queried, so a snapshot raced by a write lands on a key no
// reader will ask for. Redis failures degrade to primary reads.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) CreateTrade(ctx context.Context, t *model.Trade) error {
	if err := s.primary.CreateTrade(ctx, t); err != nil {
		return err
	}
	s.invalidate(ctx, t.UserID)
	return nil
}

func (s *CachedStore) DeleteTradeForOwner(ctx context.Context, id, ownerID string) error {
	if err := s.primary.DeleteTradeForOwner(ctx, id, ownerID); err != nil {
		return err
	}
	s.invalidate(ctx, ownerID)
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) ListTradesByOwner(ctx context.Context, ownerID string) ([]model.Trade, error) {
	version, verErr := s.version(ctx, ownerID)
	if verErr == nil {
		data, err := s.rdb.Get(ctx, tradesKey(ownerID, version)).Bytes()
		if err == nil {
			var trades []model.Trade
			if json.Unmarshal(data, &trades) == nil && trades != nil {
				return trades, nil
			}
		}
	}

	// Cache miss.
	trades, err := s.primary.ListTradesByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if verErr == nil {
		if data, err := json.Marshal(trades); err == nil {
			s.rdb.Set(ctx, tradesKey(ownerID, version), data, s.ttl)
		}
	}
	return trades, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) CreateUser(ctx context.Context, u *model.User) error {
	return s.primary.CreateUser(ctx, u)
}

func (s *CachedStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.primary.GetUserByEmail(ctx, email)
}

func (s *CachedStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.primary.GetUser(ctx, id)
}

// --- Cache helpers ---

// version returns the owner's current list version; an unset counter is 0.
func (s *CachedStore) version(ctx context.Context, ownerID string) (int64, error) {
	v, err := s.rdb.Get(ctx, versionKey(ownerID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (s *CachedStore) invalidate(ctx context.Context, ownerID string) {
	if err := s.rdb.Incr(ctx, versionKey(ownerID)).Err(); err != nil {
		slog.Warn("trade cache invalidation failed", "owner", ownerID, "err", err)
	}
}

func versionKey(ownerID string) string { return fmt.Sprintf("trades:%s:version", ownerID) }

func tradesKey(ownerID string, version int64) string {
	return fmt.Sprintf("trades:%s:%d", ownerID, version)
}
