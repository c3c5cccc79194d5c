package analytics

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/montanasport9-stack/maestriadotrader/internal/model"
)

// MonthlyProfit is the summed result of one month label.
type MonthlyProfit struct {
	Month  string          `json:"month"`
	Profit decimal.Decimal `json:"profit"`
}

// MonthlyPerformance sums result_cash per short month name. Labels carry no
// year, so the same month of different years shares one bucket. Output is
// in order of first occurrence.
func MonthlyPerformance(trades []model.Trade, loc Locale) []MonthlyProfit {
	out := make([]MonthlyProfit, 0)
	index := make(map[string]int)
	for _, t := range trades {
		label := MonthLabel(t.Date, loc)
		i, ok := index[label]
		if !ok {
			i = len(out)
			index[label] = i
			out = append(out, MonthlyProfit{Month: label, Profit: decimal.Zero})
		}
		out[i].Profit = out[i].Profit.Add(t.ResultCash)
	}
	return out
}

// RBucket counts trades whose R multiple falls in one fixed range.
type RBucket struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

// Bucket ranges are closed on the left and open on the right; the first
// and last are unbounded.
var (
	rLabels = [...]string{"<-2R", "-2R to -1R", "-1R to 0R", "0R to 1R", "1R to 2R", ">2R"}
	rBounds = [...]decimal.Decimal{
		decimal.NewFromInt(-2),
		decimal.NewFromInt(-1),
		decimal.Zero,
		decimal.NewFromInt(1),
		decimal.NewFromInt(2),
	}
)

// RDistribution histograms result_r into six fixed buckets, always emitted
// in ascending order even when empty.
func RDistribution(trades []model.Trade) []RBucket {
	var counts [len(rLabels)]int
	for _, t := range trades {
		counts[rBucket(t.ResultR)]++
	}
	out := make([]RBucket, len(rLabels))
	for i, label := range rLabels {
		out[i] = RBucket{Range: label, Count: counts[i]}
	}
	return out
}

func rBucket(r decimal.Decimal) int {
	for i, bound := range rBounds {
		if r.LessThan(bound) {
			return i
		}
	}
	return len(rBounds)
}

// SetupStats aggregates the trades tagged with one setup.
type SetupStats struct {
	Setup       string          `json:"setup"`
	Count       int             `json:"count"`
	WinRate     decimal.Decimal `json:"winRate"`
	TotalProfit decimal.Decimal `json:"totalProfit"`
	// BestTime is the entry time of the first trade seen for the setup,
	// not an optimised time of day.
	BestTime string `json:"bestTime"`
}

// SetupPerformance groups trades by exact setup string, sorted by total
// profit descending. Ties keep first-occurrence order.
func SetupPerformance(trades []model.Trade) []SetupStats {
	type agg struct {
		stats SetupStats
		wins  int
	}

	groups := make([]*agg, 0)
	index := make(map[string]*agg)
	for _, t := range trades {
		g, ok := index[t.Setup]
		if !ok {
			g = &agg{stats: SetupStats{Setup: t.Setup, TotalProfit: decimal.Zero, BestTime: t.EntryTime}}
			index[t.Setup] = g
			groups = append(groups, g)
		}
		g.stats.Count++
		if t.IsWin() {
			g.wins++
		}
		g.stats.TotalProfit = g.stats.TotalProfit.Add(t.ResultCash)
	}

	out := make([]SetupStats, 0, len(groups))
	for _, g := range groups {
		g.stats.WinRate = ratio(decimal.NewFromInt(int64(g.wins)), decimal.NewFromInt(int64(g.stats.Count)))
		out = append(out, g.stats)
	}

	slices.SortStableFunc(out, func(a, b SetupStats) int {
		return b.TotalProfit.Cmp(a.TotalProfit)
	})
	return out
}

// EmotionCount is the number of trades entered in one emotional state.
type EmotionCount struct {
	Emotion string `json:"emotion"`
	Count   int    `json:"count"`
}

// EmotionDistribution counts trades per emotion in order of first
// occurrence.
func EmotionDistribution(trades []model.Trade) []EmotionCount {
	out := make([]EmotionCount, 0)
	index := make(map[string]int)
	for _, t := range trades {
		i, ok := index[t.Emotion]
		if !ok {
			i = len(out)
			index[t.Emotion] = i
			out = append(out, EmotionCount{Emotion: t.Emotion})
		}
		out[i].Count++
	}
	return out
}

// DisciplineSummary contrasts planned and impulsive trading.
type DisciplineSummary struct {
	ImpulsiveTrades    int             `json:"impulsiveTrades"` // not planned
	ImpulsiveProfit    decimal.Decimal `json:"impulsiveProfit"`
	PlannedTrades      int             `json:"plannedTrades"`
	PlannedWinRate     decimal.Decimal `json:"plannedWinRate"`
	AvgDiscipline      decimal.Decimal `json:"avgDiscipline"`
	FollowedPlanProfit decimal.Decimal `json:"followedPlanProfit"`
	BrokePlanProfit    decimal.Decimal `json:"brokePlanProfit"`
}

// Discipline summarises plan adherence and the discipline notes.
func Discipline(trades []model.Trade) DisciplineSummary {
	s := DisciplineSummary{
		ImpulsiveProfit:    decimal.Zero,
		FollowedPlanProfit: decimal.Zero,
		BrokePlanProfit:    decimal.Zero,
	}
	var plannedWins, noteSum int64
	for _, t := range trades {
		if t.IsPlanned {
			s.PlannedTrades++
			if t.IsWin() {
				plannedWins++
			}
		} else {
			s.ImpulsiveTrades++
			s.ImpulsiveProfit = s.ImpulsiveProfit.Add(t.ResultCash)
		}
		if t.FollowedPlan {
			s.FollowedPlanProfit = s.FollowedPlanProfit.Add(t.ResultCash)
		} else {
			s.BrokePlanProfit = s.BrokePlanProfit.Add(t.ResultCash)
		}
		noteSum += int64(t.DisciplineNote)
	}
	s.PlannedWinRate = ratio(decimal.NewFromInt(plannedWins), decimal.NewFromInt(int64(s.PlannedTrades)))
	s.AvgDiscipline = ratio(decimal.NewFromInt(noteSum), decimal.NewFromInt(int64(len(trades))))
	return s
}
