package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/montanasport9-stack/maestriadotrader/internal/model"
	"github.com/montanasport9-stack/maestriadotrader/internal/store"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func seedUser(t *testing.T, st store.Store, email string) *model.User {
	t.Helper()
	u := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := st.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return u
}

func newTrade(owner, date, entry string, cash float64, created time.Time) *model.Trade {
	c := d(cash)
	return &model.Trade{
		ID:         uuid.New().String(),
		UserID:     owner,
		Date:       date,
		EntryTime:  entry,
		Asset:      "WINJ25",
		Direction:  model.DirectionLong,
		EntryPrice: d(100),
		ExitPrice:  d(100).Add(c),
		RiskAmount: d(50),
		Lot:        d(1),
		ResultCash: c,
		ResultR:    model.ResultR(c, d(50)),
		Setup:      "Pullback",
		IsPlanned:  true,
		Emotion:    "Calmo",
		CreatedAt:  created.UTC().Truncate(time.Microsecond),
	}
}

// runStoreSuite exercises the behaviour every Store implementation must share.
func runStoreSuite(t *testing.T, st store.Store) {
	ctx := context.Background()
	suffix := uuid.New().String()[:8]

	t.Run("users", func(t *testing.T) {
		u := seedUser(t, st, "Trader."+suffix+"@Example.com ")

		got, err := st.GetUserByEmail(ctx, "trader."+suffix+"@example.com")
		if err != nil {
			t.Fatalf("lookup by email: %v", err)
		}
		if got.ID != u.ID || got.PasswordHash != "hash" {
			t.Errorf("unexpected user %+v", got)
		}

		byID, err := st.GetUser(ctx, u.ID)
		if err != nil || byID.Email != "trader."+suffix+"@example.com" {
			t.Errorf("lookup by id: %+v, %v", byID, err)
		}

		dup := &model.User{ID: uuid.New().String(), Email: u.Email, PasswordHash: "x", CreatedAt: time.Now()}
		if err := st.CreateUser(ctx, dup); !errors.Is(err, store.ErrEmailTaken) {
			t.Errorf("expected ErrEmailTaken, got %v", err)
		}

		if _, err := st.GetUserByEmail(ctx, "nobody-"+suffix+"@example.com"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := st.GetUser(ctx, uuid.New().String()); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("list orders newest first", func(t *testing.T) {
		owner := seedUser(t, st, "order-"+suffix+"@example.com")
		base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

		inserts := []*model.Trade{
			newTrade(owner.ID, "2025-03-10", "09:00", 10, base),
			newTrade(owner.ID, "2025-03-12", "10:30", -5, base.Add(time.Second)),
			newTrade(owner.ID, "2025-03-10", "14:15", 7, base.Add(2*time.Second)),
			newTrade(owner.ID, "2025-02-28", "16:00", 3, base.Add(3*time.Second)),
		}
		for _, tr := range inserts {
			if err := st.CreateTrade(ctx, tr); err != nil {
				t.Fatalf("create trade: %v", err)
			}
		}

		got, err := st.ListTradesByOwner(ctx, owner.ID)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		wantOrder := []string{inserts[1].ID, inserts[2].ID, inserts[0].ID, inserts[3].ID}
		if len(got) != len(wantOrder) {
			t.Fatalf("expected %d trades, got %d", len(wantOrder), len(got))
		}
		for i, id := range wantOrder {
			if got[i].ID != id {
				t.Errorf("position %d: expected %s, got %s (%s %s)", i, id, got[i].ID, got[i].Date, got[i].EntryTime)
			}
		}

		first := got[0]
		if !first.ResultCash.Equal(d(-5)) || !first.ResultR.Equal(d(-0.1)) {
			t.Errorf("derived fields not preserved: cash=%s r=%s", first.ResultCash, first.ResultR)
		}
		if first.Direction != model.DirectionLong || !first.IsPlanned || first.Emotion != "Calmo" {
			t.Errorf("fields not preserved: %+v", first)
		}
		if !first.CreatedAt.Equal(inserts[1].CreatedAt) {
			t.Errorf("created_at: expected %v, got %v", inserts[1].CreatedAt, first.CreatedAt)
		}
	})

	t.Run("unpadded entry times sort in clock order", func(t *testing.T) {
		owner := seedUser(t, st, "clock-"+suffix+"@example.com")
		for _, entry := range []string{"10:00", "9:05"} {
			tr, err := model.NewTrade(owner.ID, model.TradeInput{
				Date:       "2024-03-01",
				EntryTime:  entry,
				Asset:      "WINJ25",
				Direction:  "Compra",
				EntryPrice: model.Num(d(100)),
				ExitPrice:  model.Num(d(101)),
				RiskAmount: model.Num(d(50)),
				Lot:        model.Num(d(1)),
			}, time.Now())
			if err != nil {
				t.Fatalf("new trade %s: %v", entry, err)
			}
			if err := st.CreateTrade(ctx, tr); err != nil {
				t.Fatalf("create trade: %v", err)
			}
		}

		got, err := st.ListTradesByOwner(ctx, owner.ID)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 2 || got[0].EntryTime != "10:00" || got[1].EntryTime != "09:05" {
			t.Errorf("expected 10:00 then 09:05, got %+v", got)
		}
	})

	t.Run("owners are isolated", func(t *testing.T) {
		alice := seedUser(t, st, "alice-"+suffix+"@example.com")
		bob := seedUser(t, st, "bob-"+suffix+"@example.com")

		tr := newTrade(alice.ID, "2025-04-01", "09:00", 20, time.Now())
		if err := st.CreateTrade(ctx, tr); err != nil {
			t.Fatalf("create trade: %v", err)
		}

		bobs, err := st.ListTradesByOwner(ctx, bob.ID)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(bobs) != 0 {
			t.Errorf("bob should see no trades, got %d", len(bobs))
		}

		// Bob deleting Alice's trade is a silent no-op.
		if err := st.DeleteTradeForOwner(ctx, tr.ID, bob.ID); err != nil {
			t.Errorf("foreign delete should not error, got %v", err)
		}
		alices, _ := st.ListTradesByOwner(ctx, alice.ID)
		if len(alices) != 1 {
			t.Fatalf("alice's trade should survive foreign delete, got %d", len(alices))
		}

		// Unknown id is a no-op too.
		if err := st.DeleteTradeForOwner(ctx, uuid.New().String(), alice.ID); err != nil {
			t.Errorf("unknown delete should not error, got %v", err)
		}

		if err := st.DeleteTradeForOwner(ctx, tr.ID, alice.ID); err != nil {
			t.Fatalf("owner delete: %v", err)
		}
		alices, _ = st.ListTradesByOwner(ctx, alice.ID)
		if len(alices) != 0 {
			t.Errorf("expected trade removed, got %d", len(alices))
		}
	})

	t.Run("empty owner lists as empty slice", func(t *testing.T) {
		got, err := st.ListTradesByOwner(ctx, uuid.New().String())
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("expected empty non-nil slice, got %v", got)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, store.NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	runStoreSuite(t, st)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	st, err := store.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	u := seedUser(t, st, "persist@example.com")
	tr := newTrade(u.ID, "2025-05-05", "11:00", 12.5, time.Now())
	if err := st.CreateTrade(context.Background(), tr); err != nil {
		t.Fatalf("create trade: %v", err)
	}
	st.Close()

	st, err = store.OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen sqlite: %v", err)
	}
	defer st.Close()

	got, err := st.ListTradesByOwner(context.Background(), u.ID)
	if err != nil || len(got) != 1 {
		t.Fatalf("expected persisted trade, got %v, %v", got, err)
	}
	if !got[0].ResultCash.Equal(d(12.5)) {
		t.Errorf("expected 12.5, got %s", got[0].ResultCash)
	}
}

func TestCachedStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	runStoreSuite(t, store.NewCachedStore(store.NewMemoryStore(), rdb, time.Minute))
}

func TestCachedStore_ServesFromCacheAndInvalidates(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	primary := store.NewMemoryStore()
	cached := store.NewCachedStore(primary, rdb, time.Minute)
	u := seedUser(t, cached, "cache@example.com")

	if err := cached.CreateTrade(ctx, newTrade(u.ID, "2025-01-01", "09:00", 5, time.Now())); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := cached.ListTradesByOwner(ctx, u.ID); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !mr.Exists("trades:" + u.ID + ":1") {
		t.Fatalf("expected owner list cached under version 1, keys: %v", mr.Keys())
	}

	// A write that bypasses the cache is invisible until the key expires.
	if err := primary.CreateTrade(ctx, newTrade(u.ID, "2025-01-02", "09:00", 5, time.Now())); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, _ := cached.ListTradesByOwner(ctx, u.ID)
	if len(got) != 1 {
		t.Errorf("expected cached list of 1, got %d", len(got))
	}

	// Writes through the cache bump the owner's version.
	if err := cached.CreateTrade(ctx, newTrade(u.ID, "2025-01-03", "09:00", 5, time.Now())); err != nil {
		t.Fatalf("create: %v", err)
	}
	if v, _ := mr.Get("trades:" + u.ID + ":version"); v != "2" {
		t.Errorf("expected version 2, got %q", v)
	}
	got, _ = cached.ListTradesByOwner(ctx, u.ID)
	if len(got) != 3 {
		t.Errorf("expected fresh list of 3, got %d", len(got))
	}

	mr.FastForward(2 * time.Minute)
	if mr.Exists("trades:"+u.ID+":1") || mr.Exists("trades:"+u.ID+":2") {
		t.Error("expected cached lists to expire")
	}
}

// racingStore returns a snapshot taken before running onList once, the
// same interleaving as a delete landing while a cache miss reads the
// primary.
type racingStore struct {
	store.Store
	onList func()
}

func (r *racingStore) ListTradesByOwner(ctx context.Context, ownerID string) ([]model.Trade, error) {
	snapshot, err := r.Store.ListTradesByOwner(ctx, ownerID)
	if fn := r.onList; fn != nil {
		r.onList = nil
		fn()
	}
	return snapshot, err
}

func TestCachedStore_WriteDuringMissDoesNotCacheStaleList(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	primary := &racingStore{Store: store.NewMemoryStore()}
	cached := store.NewCachedStore(primary, rdb, time.Minute)
	u := seedUser(t, cached, "race@example.com")
	tr := newTrade(u.ID, "2025-01-01", "09:00", 5, time.Now())
	if err := primary.CreateTrade(ctx, tr); err != nil {
		t.Fatalf("create: %v", err)
	}

	primary.onList = func() {
		if err := cached.DeleteTradeForOwner(ctx, tr.ID, u.ID); err != nil {
			t.Errorf("delete: %v", err)
		}
	}
	if stale, _ := cached.ListTradesByOwner(ctx, u.ID); len(stale) != 1 {
		t.Fatalf("expected the in-flight read to see the old snapshot, got %d", len(stale))
	}

	got, err := cached.ListTradesByOwner(ctx, u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("deleted trade reappeared from cache: %+v", got)
	}
}

func TestCachedStore_RedisDownFallsBackToPrimary(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })

	primary := store.NewMemoryStore()
	cached := store.NewCachedStore(primary, rdb, time.Minute)
	u := seedUser(t, primary, "down@example.com")
	if err := primary.CreateTrade(ctx, newTrade(u.ID, "2025-01-01", "09:00", 5, time.Now())); err != nil {
		t.Fatalf("create: %v", err)
	}

	mr.Close()

	got, err := cached.ListTradesByOwner(ctx, u.ID)
	if err != nil {
		t.Fatalf("expected primary fallback, got %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 trade, got %d", len(got))
	}
	if err := cached.DeleteTradeForOwner(ctx, got[0].ID, u.ID); err != nil {
		t.Errorf("delete should succeed without redis, got %v", err)
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	st := store.NewPostgresStore(pool)
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	runStoreSuite(t, st)
}
