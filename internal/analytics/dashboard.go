package analytics

import "github.com/montanasport9-stack/maestriadotrader/internal/model"

// Dashboard bundles every derived view served by the analytics endpoint.
type Dashboard struct {
	Metrics       Metrics           `json:"metrics"`
	CapitalCurve  []CurvePoint      `json:"capitalCurve"`
	Monthly       []MonthlyProfit   `json:"monthly"`
	RDistribution []RBucket         `json:"rDistribution"`
	Setups        []SetupStats      `json:"setups"`
	Emotions      []EmotionCount    `json:"emotions"`
	Discipline    DisciplineSummary `json:"discipline"`
}

// BuildDashboard computes all views over the same trade slice.
func BuildDashboard(trades []model.Trade, loc Locale) Dashboard {
	return Dashboard{
		Metrics:       Compute(trades),
		CapitalCurve:  CapitalCurve(trades),
		Monthly:       MonthlyPerformance(trades, loc),
		RDistribution: RDistribution(trades),
		Setups:        SetupPerformance(trades),
		Emotions:      EmotionDistribution(trades),
		Discipline:    Discipline(trades),
	}
}
