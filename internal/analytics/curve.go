package analytics

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/montanasport9-stack/maestriadotrader/internal/model"
)

// CurvePoint is the running balance after the Index-th trade in
// chronological order.
type CurvePoint struct {
	Index   int             `json:"index"`
	Label   string          `json:"name"` // "T1", "T2", ...
	Balance decimal.Decimal `json:"balance"`
}

// CapitalCurve accumulates result_cash oldest to newest, one point per trade.
func CapitalCurve(trades []model.Trade) []CurvePoint {
	points := make([]CurvePoint, 0, len(trades))
	balance := decimal.Zero
	i := 0
	for j := len(trades) - 1; j >= 0; j-- {
		t := trades[j]
		i++
		balance = balance.Add(t.ResultCash)
		points = append(points, CurvePoint{
			Index:   i,
			Label:   fmt.Sprintf("T%d", i),
			Balance: balance,
		})
	}
	return points
}
