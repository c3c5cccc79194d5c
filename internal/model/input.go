package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrInvalidTrade is matched by every ValidationError via errors.Is.
var ErrInvalidTrade = errors.New("model: invalid trade")

// FieldError describes one rejected field of a submission.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every problem found in a trade submission.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidTrade, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidTrade }

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

// Number is a numeric submission field. Decoding never fails: a value
// that is not a number is kept as Invalid so NewTrade can report it
// against its field instead of rejecting the whole body.
type Number struct {
	Value   decimal.Decimal
	Invalid bool
}

// Num wraps a valid value.
func Num(v decimal.Decimal) *Number {
	return &Number{Value: v}
}

func (n *Number) UnmarshalJSON(b []byte) error {
	if err := n.Value.UnmarshalJSON(b); err != nil {
		*n = Number{Invalid: true}
	}
	return nil
}

// TradeInput is the JSON body of a trade submission. Numeric fields are
// pointers so an absent value can be told apart from zero.
// Derived results are never accepted from the client.
type TradeInput struct {
	Date      string `json:"date"`
	EntryTime string `json:"entry_time"`
	ExitTime  string `json:"exit_time"`

	Asset     string `json:"asset"`
	Type      string `json:"type"`
	Direction string `json:"direction"`

	EntryPrice *Number `json:"entry_price"`
	StopLoss   *Number `json:"stop_loss"`
	TakeProfit *Number `json:"take_profit"`
	ExitPrice  *Number `json:"exit_price"`
	RiskAmount *Number `json:"risk_amount"`
	Lot        *Number `json:"lot"`

	Setup           string `json:"setup"`
	MarketCondition string `json:"market_condition"`
	IsPlanned       bool   `json:"is_planned"`
	Emotion         string `json:"emotion"`
	FollowedPlan    bool   `json:"followed_plan"`
	DisciplineNote  *Number `json:"discipline_note"`
	WhatDidRight    string `json:"what_did_right"`
	WhatDidWrong    string `json:"what_did_wrong"`
}

// ParseDirection accepts the stored labels and their English equivalents,
// case-insensitively.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "compra", "long", "buy":
		return DirectionLong, true
	case "venda", "short", "sell":
		return DirectionShort, true
	}
	return "", false
}

// ParseDate parses a journal calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}

// normalizeClock accepts HH:MM or HH:MM:SS, with or without a leading
// zero on the hour, and returns it zero-padded so that stored times sort
// as text in clock order.
func normalizeClock(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("15:04", s); err == nil {
		return t.Format("15:04"), true
	}
	if t, err := time.Parse(time.TimeOnly, s); err == nil {
		return t.Format(time.TimeOnly), true
	}
	return "", false
}

// NewTrade validates in and builds the immutable record owned by ownerID,
// computing ResultCash and ResultR.
func NewTrade(ownerID string, in TradeInput, now time.Time) (*Trade, error) {
	verr := &ValidationError{}

	if ownerID == "" {
		verr.add("user_id", "owner is required")
	}
	if strings.TrimSpace(in.Date) == "" {
		verr.add("date", "is required")
	} else if _, err := ParseDate(in.Date); err != nil {
		verr.add("date", "must be YYYY-MM-DD")
	}
	entryTime, ok := clockField(in.EntryTime)
	if !ok {
		verr.add("entry_time", "must be HH:MM")
	}
	exitTime, ok := clockField(in.ExitTime)
	if !ok {
		verr.add("exit_time", "must be HH:MM")
	}
	if strings.TrimSpace(in.Asset) == "" {
		verr.add("asset", "is required")
	}
	dir, ok := ParseDirection(in.Direction)
	if !ok {
		verr.add("direction", "must be Compra/Long or Venda/Short")
	}

	numbers := []struct {
		name     string
		v        *Number
		required bool
	}{
		{"entry_price", in.EntryPrice, true},
		{"stop_loss", in.StopLoss, false},
		{"take_profit", in.TakeProfit, false},
		{"exit_price", in.ExitPrice, true},
		{"risk_amount", in.RiskAmount, true},
		{"lot", in.Lot, true},
	}
	for _, n := range numbers {
		switch {
		case n.v == nil && n.required:
			verr.add(n.name, "is required")
		case n.v != nil && n.v.Invalid:
			verr.add(n.name, "must be a number")
		}
	}

	discipline := 0
	if n := in.DisciplineNote; n != nil {
		switch {
		case n.Invalid || !n.Value.IsInteger():
			verr.add("discipline_note", "must be a whole number")
		case n.Value.LessThan(decimal.Zero) || n.Value.GreaterThan(decimal.NewFromInt(10)):
			verr.add("discipline_note", "must be between 0 and 10")
		default:
			discipline = int(n.Value.IntPart())
		}
	}

	if len(verr.Fields) > 0 {
		return nil, verr
	}

	cash := ResultCash(in.EntryPrice.Value, in.ExitPrice.Value, dir, in.Lot.Value)

	return &Trade{
		ID:              uuid.New().String(),
		UserID:          ownerID,
		Date:            in.Date,
		EntryTime:       entryTime,
		ExitTime:        exitTime,
		Asset:           strings.TrimSpace(in.Asset),
		Type:            in.Type,
		Direction:       dir,
		EntryPrice:      in.EntryPrice.Value,
		StopLoss:        orZero(in.StopLoss),
		TakeProfit:      orZero(in.TakeProfit),
		ExitPrice:       in.ExitPrice.Value,
		RiskAmount:      in.RiskAmount.Value,
		Lot:             in.Lot.Value,
		ResultCash:      cash,
		ResultR:         ResultR(cash, in.RiskAmount.Value),
		Setup:           in.Setup,
		MarketCondition: in.MarketCondition,
		IsPlanned:       in.IsPlanned,
		Emotion:         in.Emotion,
		FollowedPlan:    in.FollowedPlan,
		DisciplineNote:  discipline,
		WhatDidRight:    in.WhatDidRight,
		WhatDidWrong:    in.WhatDidWrong,
		CreatedAt:       now.UTC(),
	}, nil
}

func orZero(v *Number) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return v.Value
}

// clockField normalises an optional clock value; "" stays "".
func clockField(s string) (string, bool) {
	if strings.TrimSpace(s) == "" {
		return "", true
	}
	return normalizeClock(s)
}
