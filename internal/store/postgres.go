package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/montanasport9-stack/maestriadotrader/internal/model"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL UNIQUE,
	password   TEXT NOT NULL,
	is_pro     BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	date             TEXT NOT NULL,
	asset            TEXT NOT NULL,
	type             TEXT NOT NULL DEFAULT '',
	direction        TEXT NOT NULL,
	entry_time       TEXT NOT NULL DEFAULT '',
	entry_price      NUMERIC NOT NULL,
	stop_loss        NUMERIC NOT NULL DEFAULT 0,
	take_profit      NUMERIC NOT NULL DEFAULT 0,
	exit_time        TEXT NOT NULL DEFAULT '',
	exit_price       NUMERIC NOT NULL,
	risk_amount      NUMERIC NOT NULL,
	lot              NUMERIC NOT NULL,
	result_cash      NUMERIC NOT NULL,
	result_r         NUMERIC NOT NULL,
	setup            TEXT NOT NULL DEFAULT '',
	market_condition TEXT NOT NULL DEFAULT '',
	is_planned       BOOLEAN NOT NULL DEFAULT FALSE,
	emotion          TEXT NOT NULL DEFAULT '',
	followed_plan    BOOLEAN NOT NULL DEFAULT FALSE,
	discipline_note  INTEGER NOT NULL DEFAULT 0,
	what_did_right   TEXT NOT NULL DEFAULT '',
	what_did_wrong   TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_owner_date ON trades(user_id, date DESC, entry_time DESC);
`

// PostgresStore implements Store using PostgreSQL. Prices and results are
// stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("postgres schema migration: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *model.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, password, is_pro, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		u.ID, NormalizeEmail(u.Email), u.PasswordHash, u.IsPro, u.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrEmailTaken
	}
	return err
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUser(ctx, `SELECT id, email, password, is_pro, created_at FROM users WHERE email = $1`,
		NormalizeEmail(email))
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, `SELECT id, email, password, is_pro, created_at FROM users WHERE id = $1`, id)
}

func (s *PostgresStore) getUser(ctx context.Context, query, arg string) (*model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx, query, arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsPro, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", arg, err)
	}
	return &u, nil
}

func (s *PostgresStore) CreateTrade(ctx context.Context, t *model.Trade) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO trades (
			id, user_id, date, asset, type, direction, entry_time,
			entry_price, stop_loss, take_profit, exit_time, exit_price,
			risk_amount, lot, result_cash, result_r, setup, market_condition,
			is_planned, emotion, followed_plan, discipline_note,
			what_did_right, what_did_wrong, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8::NUMERIC, $9::NUMERIC, $10::NUMERIC, $11, $12::NUMERIC,
			$13::NUMERIC, $14::NUMERIC, $15::NUMERIC, $16::NUMERIC, $17, $18,
			$19, $20, $21, $22,
			$23, $24, $25
		)`,
		t.ID, t.UserID, t.Date, t.Asset, t.Type, string(t.Direction), t.EntryTime,
		t.EntryPrice.String(), t.StopLoss.String(), t.TakeProfit.String(), t.ExitTime, t.ExitPrice.String(),
		t.RiskAmount.String(), t.Lot.String(), t.ResultCash.String(), t.ResultR.String(), t.Setup, t.MarketCondition,
		t.IsPlanned, t.Emotion, t.FollowedPlan, t.DisciplineNote,
		t.WhatDidRight, t.WhatDidWrong, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert trade %s: %w", t.ID, err)
	}
	return nil
}

func (s *PostgresStore) ListTradesByOwner(ctx context.Context, ownerID string) ([]model.Trade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, date, asset, type, direction, entry_time,
		        entry_price::TEXT, stop_loss::TEXT, take_profit::TEXT, exit_time, exit_price::TEXT,
		        risk_amount::TEXT, lot::TEXT, result_cash::TEXT, result_r::TEXT, setup, market_condition,
		        is_planned, emotion, followed_plan, discipline_note,
		        what_did_right, what_did_wrong, created_at
		 FROM trades WHERE user_id = $1
		 ORDER BY date DESC, entry_time DESC, created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list trades for %s: %w", ownerID, err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

func (s *PostgresStore) DeleteTradeForOwner(ctx context.Context, id, ownerID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM trades WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete trade %s: %w", id, err)
	}
	return nil
}

// sqlRows is satisfied by both pgx.Rows and *sql.Rows.
type sqlRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanTrades reads rows selected in the column order of ListTradesByOwner.
func scanTrades(rows sqlRows) ([]model.Trade, error) {
	trades := make([]model.Trade, 0)
	for rows.Next() {
		t, err := scanTrade(rows, nil)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// scanTrade scans one row. createdAt, when non-nil, receives the
// created_at column instead of the trade's time.Time field, for drivers
// that store timestamps as text.
func scanTrade(rows sqlRows, createdAt any) (model.Trade, error) {
	var t model.Trade
	var direction string
	var entry, stop, take, exit, risk, lot, cash, r string

	if createdAt == nil {
		createdAt = &t.CreatedAt
	}
	if err := rows.Scan(&t.ID, &t.UserID, &t.Date, &t.Asset, &t.Type, &direction, &t.EntryTime,
		&entry, &stop, &take, &t.ExitTime, &exit,
		&risk, &lot, &cash, &r, &t.Setup, &t.MarketCondition,
		&t.IsPlanned, &t.Emotion, &t.FollowedPlan, &t.DisciplineNote,
		&t.WhatDidRight, &t.WhatDidWrong, createdAt); err != nil {
		return t, err
	}

	t.Direction = model.Direction(direction)
	t.EntryPrice, _ = decimal.NewFromString(entry)
	t.StopLoss, _ = decimal.NewFromString(stop)
	t.TakeProfit, _ = decimal.NewFromString(take)
	t.ExitPrice, _ = decimal.NewFromString(exit)
	t.RiskAmount, _ = decimal.NewFromString(risk)
	t.Lot, _ = decimal.NewFromString(lot)
	t.ResultCash, _ = decimal.NewFromString(cash)
	t.ResultR, _ = decimal.NewFromString(r)
	return t, nil
}
