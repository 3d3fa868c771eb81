package models

import "time"

// Recommendation actions and confidence labels.
const (
	ActionBuy  = "buy"
	ActionSell = "sell"
	ActionHold = "hold"

	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"

	// NotEnoughData is the sentinel rendered when no feature-complete row
	// exists to recommend from.
	NotEnoughData = "Not enough data"
)

// Prediction is a next-period close forecast for a symbol.
// Available=false means "insufficient data", which is a degraded result for
// the caller to render, not an error.
type Prediction struct {
	Symbol         string    `json:"symbol"`
	PredictedPrice float64   `json:"predicted_price"`
	Available      bool      `json:"available"`
	TrainedAt      time.Time `json:"trained_at"`
}

// Recommendation is a discrete trading signal with a snapshot of the raw
// indicator values that produced it.
type Recommendation struct {
	Symbol         string             `json:"symbol"`
	Recommendation string             `json:"recommendation"`
	Confidence     string             `json:"confidence"`
	Indicators     map[string]float64 `json:"indicators"`
}
