package service

import (
	"context"

	"github.com/lblaseygg/minty/internal/domain/models"
)

// PricePredictor produces next-period close forecasts for a symbol from its
// bar history.
type PricePredictor interface {
	Predict(ctx context.Context, symbol string, bars []models.Bar) (models.Prediction, error)
}

// SignalRecommender derives a discrete buy/sell/hold action from the latest
// feature-complete indicator row.
type SignalRecommender interface {
	Recommend(symbol string, rows []models.FeatureRow) models.Recommendation
}

// NewsSource returns recent headlines for a symbol. Implementations degrade
// to a placeholder headline instead of failing.
type NewsSource interface {
	Headlines(ctx context.Context, symbol string) []string
}
