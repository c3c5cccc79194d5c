package analytics

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"github.com/montanasport9-stack/maestriadotrader/internal/model"
)

var setupNames = []string{"Breakout", "Pullback", "Reversal", ""}

// journalGen generates newest-first journals with cash results in cents
// between -500.00 and 500.00 and a risk of 50.
func journalGen() gopter.Gen {
	return gen.SliceOf(gen.Int64Range(-50000, 50000)).Map(func(cents []int64) []model.Trade {
		trades := make([]model.Trade, len(cents))
		for i, c := range cents {
			cash := decimal.New(c, -2)
			trades[i] = model.Trade{
				Date:       "2025-06-01",
				Setup:      setupNames[i%len(setupNames)],
				ResultCash: cash,
				ResultR:    model.ResultR(cash, decimal.NewFromInt(50)),
			}
		}
		return trades
	})
}

func TestProperty_Metrics(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("win rate is within [0, 1]", prop.ForAll(
		func(trades []model.Trade) bool {
			m := Compute(trades)
			return !m.WinRate.IsNegative() && m.WinRate.LessThanOrEqual(one)
		},
		journalGen(),
	))

	properties.Property("winners plus non-winners equals total", prop.ForAll(
		func(trades []model.Trade) bool {
			var wins, rest int
			for _, tr := range trades {
				if tr.IsWin() {
					wins++
				} else {
					rest++
				}
			}
			return Compute(trades).TotalTrades == wins+rest
		},
		journalGen(),
	))

	properties.Property("streaks never exceed total trades", prop.ForAll(
		func(trades []model.Trade) bool {
			m := Compute(trades)
			return m.MaxConsecutiveGain <= m.TotalTrades && m.MaxConsecutiveLoss <= m.TotalTrades
		},
		journalGen(),
	))

	properties.Property("compute is deterministic", prop.ForAll(
		func(trades []model.Trade) bool {
			return reflect.DeepEqual(Compute(trades), Compute(trades))
		},
		journalGen(),
	))

	properties.Property("capital curve ends at total profit", prop.ForAll(
		func(trades []model.Trade) bool {
			curve := CapitalCurve(trades)
			if len(curve) != len(trades) {
				return false
			}
			if len(curve) == 0 {
				return true
			}
			return curve[len(curve)-1].Balance.Equal(Compute(trades).TotalProfit)
		},
		journalGen(),
	))

	properties.TestingRun(t)
}

func TestProperty_Breakdowns(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("R buckets sum to total trades", prop.ForAll(
		func(trades []model.Trade) bool {
			sum := 0
			for _, b := range RDistribution(trades) {
				sum += b.Count
			}
			return sum == len(trades)
		},
		journalGen(),
	))

	properties.Property("setup totals sum to total profit", prop.ForAll(
		func(trades []model.Trade) bool {
			sum := decimal.Zero
			count := 0
			for _, s := range SetupPerformance(trades) {
				sum = sum.Add(s.TotalProfit)
				count += s.Count
			}
			return sum.Equal(Compute(trades).TotalProfit) && count == len(trades)
		},
		journalGen(),
	))

	properties.Property("setups are sorted by total profit descending", prop.ForAll(
		func(trades []model.Trade) bool {
			setups := SetupPerformance(trades)
			for i := 1; i < len(setups); i++ {
				if setups[i].TotalProfit.GreaterThan(setups[i-1].TotalProfit) {
					return false
				}
			}
			return true
		},
		journalGen(),
	))

	properties.Property("monthly profits sum to total profit", prop.ForAll(
		func(trades []model.Trade) bool {
			sum := decimal.Zero
			for _, m := range MonthlyPerformance(trades, LocalePtBR) {
				sum = sum.Add(m.Profit)
			}
			return sum.Equal(Compute(trades).TotalProfit)
		},
		journalGen(),
	))

	properties.TestingRun(t)
}
