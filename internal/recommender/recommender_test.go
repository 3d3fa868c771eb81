package recommender

import (
	"reflect"
	"testing"

	"github.com/lblaseygg/minty/internal/domain/models"
)

func row(rsi, macd, signal, k, d float64) *models.FeatureRow {
	r := &models.FeatureRow{}
	r.RSI = rsi
	r.MACD = macd
	r.MACDSignal = signal
	r.StochK = k
	r.StochD = d
	return r
}

func TestRulePrecedence(t *testing.T) {
	tests := []struct {
		name       string
		row        *models.FeatureRow
		action     string
		confidence string
	}{
		{
			// Momentum says sell but the trend rule fires later and wins.
			name:       "macd overrides rsi",
			row:        row(75, 0.6, 0.3, 50, 50),
			action:     models.ActionBuy,
			confidence: models.ConfidenceHigh,
		},
		{
			name:       "rsi oversold alone",
			row:        row(25, 0.5, 0.5, 50, 50),
			action:     models.ActionBuy,
			confidence: models.ConfidenceHigh,
		},
		{
			name:       "stochastic overrides macd",
			row:        row(50, 0.6, 0.3, 85, 90),
			action:     models.ActionSell,
			confidence: models.ConfidenceMedium,
		},
		{
			name:       "bearish macd",
			row:        row(50, -0.2, 0.1, 50, 50),
			action:     models.ActionSell,
			confidence: models.ConfidenceHigh,
		},
		{
			name:       "no rule fires",
			row:        row(50, 0.5, 0.5, 50, 50),
			action:     models.ActionHold,
			confidence: models.ConfidenceMedium,
		},
		{
			name:       "stoch oversold both",
			row:        row(50, 0.5, 0.5, 15, 10),
			action:     models.ActionBuy,
			confidence: models.ConfidenceMedium,
		},
		{
			name:       "stoch needs both legs",
			row:        row(50, 0.5, 0.5, 85, 50),
			action:     models.ActionHold,
			confidence: models.ConfidenceMedium,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FromRow("TEST", tc.row)
			if got.Recommendation != tc.action || got.Confidence != tc.confidence {
				t.Fatalf("got (%s, %s), want (%s, %s)",
					got.Recommendation, got.Confidence, tc.action, tc.confidence)
			}
		})
	}
}

func TestIndicatorSnapshotRounded(t *testing.T) {
	got := FromRow("TEST", row(55.4567, 0.123456, 0.1, 81.987, 79.123))
	want := map[string]float64{
		"rsi":          55.46,
		"macd":         0.12,
		"stochastic_k": 81.99,
		"stochastic_d": 79.12,
	}
	if !reflect.DeepEqual(got.Indicators, want) {
		t.Fatalf("snapshot = %v, want %v", got.Indicators, want)
	}
}

func TestIdempotent(t *testing.T) {
	r := row(75, 0.6, 0.3, 50, 50)
	first := FromRow("TEST", r)
	second := FromRow("TEST", r)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same input produced different recommendations")
	}
}

func TestSentinelWithoutCompleteRows(t *testing.T) {
	rc := New()
	got := rc.Recommend("TEST", nil)
	if got.Recommendation != models.NotEnoughData || got.Confidence != models.NotEnoughData {
		t.Fatalf("expected sentinel, got %+v", got)
	}
	if len(got.Indicators) != 0 {
		t.Fatalf("expected empty snapshot, got %v", got.Indicators)
	}
}
