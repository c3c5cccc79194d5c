// Package analytics derives performance statistics from a trader's journal.
//
// Every function here is pure: it reads a slice of trades, allocates only
// locals and returns fresh values. Inputs are never mutated, so the same
// slice may be analysed concurrently from any number of goroutines.
//
// Trades are expected in store order (newest first). Order only matters for
// streaks and the capital curve, which walk the slice oldest to newest.
//
// All arithmetic uses shopspring/decimal. Any ratio with a zero denominator
// evaluates to 0 instead of failing or producing a non-finite value.
package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/montanasport9-stack/maestriadotrader/internal/model"
)

var one = decimal.NewFromInt(1)

// Metrics is the aggregate view over one owner's trades. It has no
// identity of its own and is recomputed on every read.
type Metrics struct {
	TotalTrades        int             `json:"totalTrades"`
	WinRate            decimal.Decimal `json:"winRate"`     // fraction of trades with result_cash > 0
	AvgGain            decimal.Decimal `json:"avgGain"`     // mean result over winners
	AvgLoss            decimal.Decimal `json:"avgLoss"`     // mean |result| over non-winners
	Payoff             decimal.Decimal `json:"payoff"`      // avgGain / avgLoss
	TotalProfit        decimal.Decimal `json:"totalProfit"` // Σ result_cash
	AvgR               decimal.Decimal `json:"avgR"`
	Expectancy         decimal.Decimal `json:"expectancy"`
	MaxConsecutiveGain int             `json:"maxConsecutiveGain"`
	MaxConsecutiveLoss int             `json:"maxConsecutiveLoss"`
}

// Compute aggregates trades into Metrics. An empty slice yields the zero
// Metrics value.
//
//	expectancy = winRate·avgGain − (1−winRate)·avgLoss
func Compute(trades []model.Trade) Metrics {
	if len(trades) == 0 {
		return Metrics{}
	}

	var wins int
	gainSum := decimal.Zero
	lossSum := decimal.Zero
	total := decimal.Zero
	rSum := decimal.Zero

	for _, t := range trades {
		total = total.Add(t.ResultCash)
		rSum = rSum.Add(t.ResultR)
		if t.IsWin() {
			wins++
			gainSum = gainSum.Add(t.ResultCash)
		} else {
			lossSum = lossSum.Add(t.ResultCash)
		}
	}

	n := decimal.NewFromInt(int64(len(trades)))
	winRate := ratio(decimal.NewFromInt(int64(wins)), n)
	avgGain := ratio(gainSum, decimal.NewFromInt(int64(wins)))
	avgLoss := ratio(lossSum, decimal.NewFromInt(int64(len(trades)-wins))).Abs()

	gainStreak, lossStreak := streaks(trades)

	return Metrics{
		TotalTrades:        len(trades),
		WinRate:            winRate,
		AvgGain:            avgGain,
		AvgLoss:            avgLoss,
		Payoff:             ratio(avgGain, avgLoss),
		TotalProfit:        total,
		AvgR:               ratio(rSum, n),
		Expectancy:         winRate.Mul(avgGain).Sub(one.Sub(winRate).Mul(avgLoss)),
		MaxConsecutiveGain: gainStreak,
		MaxConsecutiveLoss: lossStreak,
	}
}

// streaks returns the longest runs of winners and non-winners, walking
// from the oldest trade to the newest.
func streaks(trades []model.Trade) (maxGain, maxLoss int) {
	var gain, loss int
	for j := len(trades) - 1; j >= 0; j-- {
		t := trades[j]
		if t.IsWin() {
			gain++
			loss = 0
			maxGain = max(maxGain, gain)
		} else {
			loss++
			gain = 0
			maxLoss = max(maxLoss, loss)
		}
	}
	return maxGain, maxLoss
}

// ratio divides num by den, returning 0 when den is 0.
func ratio(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den)
}
