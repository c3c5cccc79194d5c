// Package model defines the core domain types shared across the journal
// service. Prices and monetary values use shopspring/decimal, never float64.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Prices, results and ratios travel as JSON numbers, which is what clients
// do arithmetic on. Decoding accepts both numbers and quoted strings.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Direction is the side of a journaled trade, stored with the Portuguese
// labels the web client shows ("Compra" / "Venda").
type Direction string

const (
	DirectionLong  Direction = "Compra"
	DirectionShort Direction = "Venda"
)

// Sign returns +1 for long trades and -1 for short trades.
func (d Direction) Sign() decimal.Decimal {
	if d == DirectionLong {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(-1)
}

// Trade is one journal entry. ResultCash and ResultR are computed once by
// NewTrade at insert time and are never recomputed on read.
type Trade struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	Date      string `json:"date" db:"date"`             // YYYY-MM-DD
	EntryTime string `json:"entry_time" db:"entry_time"` // local HH:MM
	ExitTime  string `json:"exit_time" db:"exit_time"`

	Asset     string    `json:"asset" db:"asset"`
	Type      string    `json:"type" db:"type"`
	Direction Direction `json:"direction" db:"direction"`

	EntryPrice decimal.Decimal `json:"entry_price" db:"entry_price"`
	StopLoss   decimal.Decimal `json:"stop_loss" db:"stop_loss"`
	TakeProfit decimal.Decimal `json:"take_profit" db:"take_profit"`
	ExitPrice  decimal.Decimal `json:"exit_price" db:"exit_price"`
	RiskAmount decimal.Decimal `json:"risk_amount" db:"risk_amount"`
	Lot        decimal.Decimal `json:"lot" db:"lot"`

	ResultCash decimal.Decimal `json:"result_cash" db:"result_cash"`
	ResultR    decimal.Decimal `json:"result_r" db:"result_r"`

	Setup           string `json:"setup" db:"setup"`
	MarketCondition string `json:"market_condition" db:"market_condition"`
	IsPlanned       bool   `json:"is_planned" db:"is_planned"`
	Emotion         string `json:"emotion" db:"emotion"`
	FollowedPlan    bool   `json:"followed_plan" db:"followed_plan"`
	DisciplineNote  int    `json:"discipline_note" db:"discipline_note"` // 0-10
	WhatDidRight    string `json:"what_did_right" db:"what_did_right"`
	WhatDidWrong    string `json:"what_did_wrong" db:"what_did_wrong"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsWin reports whether the trade closed with a strictly positive result.
// A flat trade counts as a non-winner.
func (t Trade) IsWin() bool {
	return t.ResultCash.IsPositive()
}

// ResultCash computes (exit - entry) * direction * lot.
func ResultCash(entry, exit decimal.Decimal, dir Direction, lot decimal.Decimal) decimal.Decimal {
	return exit.Sub(entry).Mul(dir.Sign()).Mul(lot)
}

// ResultR expresses cash as a multiple of the amount risked.
// Zero or negative risk yields 0.
func ResultR(cash, risk decimal.Decimal) decimal.Decimal {
	if !risk.IsPositive() {
		return decimal.Zero
	}
	return cash.Div(risk)
}

// User is an account owning journal entries.
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password"`
	IsPro        bool      `json:"is_pro" db:"is_pro"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
