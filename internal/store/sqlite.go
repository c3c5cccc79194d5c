package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/montanasport9-stack/maestriadotrader/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL UNIQUE,
	password   TEXT NOT NULL,
	is_pro     INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL REFERENCES users(id),
	date             TEXT NOT NULL,
	asset            TEXT NOT NULL,
	type             TEXT NOT NULL DEFAULT '',
	direction        TEXT NOT NULL,
	entry_time       TEXT NOT NULL DEFAULT '',
	entry_price      TEXT NOT NULL,
	stop_loss        TEXT NOT NULL DEFAULT '0',
	take_profit      TEXT NOT NULL DEFAULT '0',
	exit_time        TEXT NOT NULL DEFAULT '',
	exit_price       TEXT NOT NULL,
	risk_amount      TEXT NOT NULL,
	lot              TEXT NOT NULL,
	result_cash      TEXT NOT NULL,
	result_r         TEXT NOT NULL,
	setup            TEXT NOT NULL DEFAULT '',
	market_condition TEXT NOT NULL DEFAULT '',
	is_planned       INTEGER NOT NULL DEFAULT 0,
	emotion          TEXT NOT NULL DEFAULT '',
	followed_plan    INTEGER NOT NULL DEFAULT 0,
	discipline_note  INTEGER NOT NULL DEFAULT 0,
	what_did_right   TEXT NOT NULL DEFAULT '',
	what_did_wrong   TEXT NOT NULL DEFAULT '',
	created_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_owner_date ON trades(user_id, date, entry_time);
`

// sqliteTime is fixed-width so that text ordering matches time ordering.
const sqliteTime = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements Store on an embedded SQLite file. Decimals are
// kept as TEXT and booleans as 0/1.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	// WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema migration: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateUser(ctx context.Context, u *model.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password, is_pro, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, NormalizeEmail(u.Email), u.PasswordHash, u.IsPro, u.CreatedAt.UTC().Format(sqliteTime),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrEmailTaken
	}
	return err
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUser(ctx, `SELECT id, email, password, is_pro, created_at FROM users WHERE email = ?`,
		NormalizeEmail(email))
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, `SELECT id, email, password, is_pro, created_at FROM users WHERE id = ?`, id)
}

func (s *SQLiteStore) getUser(ctx context.Context, query, arg string) (*model.User, error) {
	var u model.User
	var created string
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsPro, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", arg, err)
	}
	u.CreatedAt, _ = time.Parse(sqliteTime, created)
	return &u, nil
}

func (s *SQLiteStore) CreateTrade(ctx context.Context, t *model.Trade) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (
			id, user_id, date, asset, type, direction, entry_time,
			entry_price, stop_loss, take_profit, exit_time, exit_price,
			risk_amount, lot, result_cash, result_r, setup, market_condition,
			is_planned, emotion, followed_plan, discipline_note,
			what_did_right, what_did_wrong, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Date, t.Asset, t.Type, string(t.Direction), t.EntryTime,
		t.EntryPrice.String(), t.StopLoss.String(), t.TakeProfit.String(), t.ExitTime, t.ExitPrice.String(),
		t.RiskAmount.String(), t.Lot.String(), t.ResultCash.String(), t.ResultR.String(), t.Setup, t.MarketCondition,
		t.IsPlanned, t.Emotion, t.FollowedPlan, t.DisciplineNote,
		t.WhatDidRight, t.WhatDidWrong, t.CreatedAt.UTC().Format(sqliteTime),
	)
	if err != nil {
		return fmt.Errorf("insert trade %s: %w", t.ID, err)
	}
	return nil
}

func (s *SQLiteStore) ListTradesByOwner(ctx context.Context, ownerID string) ([]model.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, date, asset, type, direction, entry_time,
		       entry_price, stop_loss, take_profit, exit_time, exit_price,
		       risk_amount, lot, result_cash, result_r, setup, market_condition,
		       is_planned, emotion, followed_plan, discipline_note,
		       what_did_right, what_did_wrong, created_at
		FROM trades WHERE user_id = ?
		ORDER BY date DESC, entry_time DESC, created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list trades for %s: %w", ownerID, err)
	}
	defer rows.Close()

	trades := make([]model.Trade, 0)
	for rows.Next() {
		var created string
		t, err := scanTrade(rows, &created)
		if err != nil {
			return nil, err
		}
		t.CreatedAt, _ = time.Parse(sqliteTime, created)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (s *SQLiteStore) DeleteTradeForOwner(ctx context.Context, id, ownerID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM trades WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete trade %s: %w", id, err)
	}
	return nil
}
