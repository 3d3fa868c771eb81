// Package recommender derives a buy/sell/hold signal from indicator values.
//
// The rules form a tagged-priority list evaluated in fixed order where the
// last matching rule wins. This is deliberately not a voting or scoring
// scheme; changing the mechanism would change observable behavior.
package recommender

import (
	"math"

	"github.com/lblaseygg/minty/internal/domain/models"
	"github.com/lblaseygg/minty/internal/indicator"
)

// Threshold constants for the rule cascade.
const (
	rsiOverbought = 70.0
	rsiOversold   = 30.0

	stochOverbought = 80.0
	stochOversold   = 20.0
)

type outcome struct {
	action     string
	confidence string
}

type rule struct {
	applies func(r *models.FeatureRow) bool
	result  outcome
}

// rules in evaluation order; a later match overwrites an earlier one.
var rules = []rule{
	{func(r *models.FeatureRow) bool { return r.RSI > rsiOverbought },
		outcome{models.ActionSell, models.ConfidenceHigh}},
	{func(r *models.FeatureRow) bool { return r.RSI < rsiOversold },
		outcome{models.ActionBuy, models.ConfidenceHigh}},
	{func(r *models.FeatureRow) bool { return r.MACD > r.MACDSignal },
		outcome{models.ActionBuy, models.ConfidenceHigh}},
	{func(r *models.FeatureRow) bool { return r.MACD < r.MACDSignal },
		outcome{models.ActionSell, models.ConfidenceHigh}},
	{func(r *models.FeatureRow) bool { return r.StochK > stochOverbought && r.StochD > stochOverbought },
		outcome{models.ActionSell, models.ConfidenceMedium}},
	{func(r *models.FeatureRow) bool { return r.StochK < stochOversold && r.StochD < stochOversold },
		outcome{models.ActionBuy, models.ConfidenceMedium}},
}

// Recommender applies the threshold cascade to the latest complete row.
type Recommender struct{}

// New creates a Recommender.
func New() *Recommender { return &Recommender{} }

// Recommend evaluates the cascade against the latest feature-complete row of
// rows. With no usable row it returns the sentinel triple instead of failing.
func (rc *Recommender) Recommend(symbol string, rows []models.FeatureRow) models.Recommendation {
	complete := indicator.CompleteRows(rows)
	if len(complete) == 0 {
		return models.Recommendation{
			Symbol:         symbol,
			Recommendation: models.NotEnoughData,
			Confidence:     models.NotEnoughData,
			Indicators:     map[string]float64{},
		}
	}
	return FromRow(symbol, &complete[len(complete)-1])
}

// FromRow evaluates the cascade against one row directly.
func FromRow(symbol string, row *models.FeatureRow) models.Recommendation {
	final := outcome{models.ActionHold, models.ConfidenceMedium}
	for _, r := range rules {
		if r.applies(row) {
			final = r.result
		}
	}
	return models.Recommendation{
		Symbol:         symbol,
		Recommendation: final.action,
		Confidence:     final.confidence,
		Indicators: map[string]float64{
			"rsi":          round2(row.RSI),
			"macd":         round2(row.MACD),
			"stochastic_k": round2(row.StochK),
			"stochastic_d": round2(row.StochD),
		},
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
