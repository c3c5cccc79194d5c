// Package store defines the persistence interface for the journal service.
// Implementations include PostgreSQL, SQLite (embedded default), Redis
// (read-through cache) and in-memory (for testing).
package store

import (
	"cmp"
	"context"
	"errors"
	"strings"

	"github.com/montanasport9-stack/maestriadotrader/internal/model"
)

var (
	// ErrNotFound is returned when a user lookup matches nothing.
	ErrNotFound = errors.New("store: not found")

	// ErrEmailTaken is returned when registering an email already in use.
	ErrEmailTaken = errors.New("store: email already exists")
)

// Store is the persistence interface. Every trade operation is scoped to
// an owner: no implementation may return or delete another owner's trade.
type Store interface {
	// --- Users ---

	// CreateUser persists a new account. Emails are unique.
	CreateUser(ctx context.Context, u *model.User) error

	// GetUserByEmail looks an account up by its normalised email.
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	// GetUser looks an account up by id.
	GetUser(ctx context.Context, id string) (*model.User, error)

	// --- Journal ---

	// CreateTrade appends a trade whose derived fields are already set.
	CreateTrade(ctx context.Context, t *model.Trade) error

	// ListTradesByOwner returns the owner's trades ordered by date
	// descending, then entry time descending.
	ListTradesByOwner(ctx context.Context, ownerID string) ([]model.Trade, error)

	// DeleteTradeForOwner removes a trade. Unknown ids and trades of other
	// owners are a silent no-op.
	DeleteTradeForOwner(ctx context.Context, id, ownerID string) error
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// newestFirst orders trades by date, entry time and insertion time, all
// descending.
func newestFirst(a, b model.Trade) int {
	if c := cmp.Compare(b.Date, a.Date); c != 0 {
		return c
	}
	if c := cmp.Compare(b.EntryTime, a.EntryTime); c != 0 {
		return c
	}
	return b.CreatedAt.Compare(a.CreatedAt)
}
