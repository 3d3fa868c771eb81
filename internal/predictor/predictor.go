// Package predictor trains and serves the next-period close-price model.
//
// A trained artifact is the model, its fitted scaler, and the ordered feature
// list; the three always travel together, and prediction refuses mismatched
// inputs rather than producing silently wrong numbers.
package predictor

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/lblaseygg/minty/internal/domain/models"
	"github.com/lblaseygg/minty/internal/indicator"
)

// ErrInsufficientData means too little feature-complete history remained to
// fit a model.
var ErrInsufficientData = errors.New("insufficient data to train model")

// tailBars is how much recent history prediction recomputes indicators over
// before falling back to the full series.
const tailBars = 50

// Artifact is one trained model with everything needed to use it.
type Artifact struct {
	Model     *GBRT
	Scaler    *MinMaxScaler
	Features  []string
	TrainedAt time.Time
}

// Engine fits and applies price models.
type Engine struct {
	cfg GBRTConfig
}

// New creates an Engine with the given hyperparameters.
func New(cfg GBRTConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Train fits a scaler and model over the feature-complete rows of the input.
// The target for each row is the next row's close; the last row is dropped
// since it has no successor.
func (e *Engine) Train(rows []models.FeatureRow) (*Artifact, error) {
	complete := indicator.CompleteRows(rows)
	if len(complete) < 2 {
		return nil, fmt.Errorf("%w: %d feature-complete rows", ErrInsufficientData, len(complete))
	}

	n := len(complete) - 1
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = complete[i].Features()
		y[i] = complete[i+1].Close
	}

	scaler := &MinMaxScaler{}
	if err := scaler.Fit(x); err != nil {
		return nil, fmt.Errorf("fit scaler: %w", err)
	}
	scaled, err := scaler.TransformAll(x)
	if err != nil {
		return nil, fmt.Errorf("scale training matrix: %w", err)
	}

	model := NewGBRT(e.cfg)
	if err := model.Fit(scaled, y); err != nil {
		return nil, fmt.Errorf("fit model: %w", err)
	}

	return &Artifact{
		Model:     model,
		Scaler:    scaler,
		Features:  append([]string(nil), models.FeatureColumns...),
		TrainedAt: time.Now(),
	}, nil
}

// TrainBars computes indicators over bars and trains on the result.
func (e *Engine) TrainBars(bars []models.Bar) (*Artifact, error) {
	return e.Train(indicator.Compute(bars))
}

// Predict returns the forecast for the latest feature-complete row derived
// from bars. Indicators are recomputed over the most recent tail first; if
// the tail has no complete row the full history is used. With no usable row
// anywhere the result is marked unavailable, which is not an error.
func (e *Engine) Predict(art *Artifact, symbol string, bars []models.Bar) (models.Prediction, error) {
	if art == nil || art.Model == nil || !art.Model.Fitted() || art.Scaler == nil {
		return models.Prediction{}, fmt.Errorf("predict %s: unusable artifact", symbol)
	}
	if len(art.Features) != len(models.FeatureColumns) {
		return models.Prediction{}, fmt.Errorf("predict %s: artifact has %d features, engine produces %d",
			symbol, len(art.Features), len(models.FeatureColumns))
	}

	row, ok := latestCompleteRow(bars)
	if !ok {
		return models.Prediction{Symbol: symbol, Available: false, TrainedAt: art.TrainedAt}, nil
	}

	scaled, err := art.Scaler.Transform(row.Features())
	if err != nil {
		return models.Prediction{}, fmt.Errorf("predict %s: %w", symbol, err)
	}

	price := art.Model.Predict(scaled)
	return models.Prediction{
		Symbol:         symbol,
		PredictedPrice: round2(price),
		Available:      true,
		TrainedAt:      art.TrainedAt,
	}, nil
}

func latestCompleteRow(bars []models.Bar) (models.FeatureRow, bool) {
	tail := bars
	if len(tail) > tailBars {
		tail = tail[len(tail)-tailBars:]
	}
	if rows := indicator.CompleteRows(indicator.Compute(tail)); len(rows) > 0 {
		return rows[len(rows)-1], true
	}
	if rows := indicator.CompleteRows(indicator.Compute(bars)); len(rows) > 0 {
		return rows[len(rows)-1], true
	}
	return models.FeatureRow{}, false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
