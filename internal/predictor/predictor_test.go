package predictor

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/lblaseygg/minty/internal/domain/models"
)

func syntheticBars(n int) []models.Bar {
	bars := make([]models.Bar, n)
	base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		// Gentle trend plus a deterministic wiggle.
		c := 100 + 0.3*float64(i) + 2*math.Sin(float64(i)/7)
		bars[i] = models.Bar{
			Timestamp: base.AddDate(0, 0, i),
			Open:      c - 0.4,
			High:      c + 1.2,
			Low:       c - 1.1,
			Close:     c,
			Volume:    50000 + 100*float64(i%13),
		}
	}
	return bars
}

func TestTrainRejectsShortHistory(t *testing.T) {
	e := New(DefaultGBRTConfig())
	_, err := e.TrainBars(syntheticBars(40))
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestTrainThenPredict(t *testing.T) {
	e := New(GBRTConfig{NEstimators: 30, MaxDepth: 3, LearningRate: 0.1})
	bars := syntheticBars(160)

	art, err := e.TrainBars(bars)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if art.Model == nil || art.Scaler == nil || len(art.Features) != len(models.FeatureColumns) {
		t.Fatalf("incomplete artifact")
	}

	p, err := e.Predict(art, "TEST", bars)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if !p.Available {
		t.Fatalf("expected an available prediction")
	}
	if math.IsNaN(p.PredictedPrice) || math.IsInf(p.PredictedPrice, 0) {
		t.Fatalf("prediction is not a number: %v", p.PredictedPrice)
	}
	// Rounded to 2 decimals.
	if p.PredictedPrice != math.Round(p.PredictedPrice*100)/100 {
		t.Fatalf("prediction not rounded: %v", p.PredictedPrice)
	}
	// Sanity band, not accuracy: within the broad range of the series.
	last := bars[len(bars)-1].Close
	if p.PredictedPrice < last*0.5 || p.PredictedPrice > last*1.5 {
		t.Fatalf("prediction wildly off the data range: %v vs close %v", p.PredictedPrice, last)
	}
}

func TestPredictUnavailableOnShortHistory(t *testing.T) {
	e := New(GBRTConfig{NEstimators: 20, MaxDepth: 3, LearningRate: 0.1})
	art, err := e.TrainBars(syntheticBars(160))
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	p, err := e.Predict(art, "TEST", syntheticBars(20))
	if err != nil {
		t.Fatalf("expected soft failure, got %v", err)
	}
	if p.Available {
		t.Fatalf("expected unavailable prediction for 20 bars")
	}
}

func TestPredictRejectsUnfittedArtifact(t *testing.T) {
	e := New(DefaultGBRTConfig())
	// A model that was constructed but never fitted must not forecast.
	art := &Artifact{
		Model:     NewGBRT(DefaultGBRTConfig()),
		Scaler:    &MinMaxScaler{},
		Features:  models.FeatureColumns,
		TrainedAt: time.Now(),
	}
	if _, err := e.Predict(art, "TEST", syntheticBars(160)); err == nil {
		t.Fatalf("expected error for unfitted model")
	}
}

func TestPredictReusableWithoutRefit(t *testing.T) {
	e := New(GBRTConfig{NEstimators: 20, MaxDepth: 3, LearningRate: 0.1})
	bars := syntheticBars(140)
	art, err := e.TrainBars(bars)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	p1, err := e.Predict(art, "TEST", bars)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	p2, err := e.Predict(art, "TEST", bars)
	if err != nil {
		t.Fatalf("predict again: %v", err)
	}
	if p1.PredictedPrice != p2.PredictedPrice {
		t.Fatalf("same artifact and input must give the same forecast: %v vs %v", p1.PredictedPrice, p2.PredictedPrice)
	}
}

func TestGBRTLearnsSimpleFunction(t *testing.T) {
	// y = x0, a single split per tree should carve this up quickly.
	var x [][]float64
	var y []float64
	for i := 0; i < 100; i++ {
		v := float64(i) / 100
		x = append(x, []float64{v, 0.5})
		y = append(y, v*10)
	}

	g := NewGBRT(GBRTConfig{NEstimators: 100, MaxDepth: 3, LearningRate: 0.2})
	if err := g.Fit(x, y); err != nil {
		t.Fatalf("fit: %v", err)
	}

	var sse float64
	for i := range x {
		d := g.Predict(x[i]) - y[i]
		sse += d * d
	}
	mse := sse / float64(len(x))
	if mse > 0.05 {
		t.Fatalf("ensemble failed to fit y=10*x0, mse=%v", mse)
	}
}

func TestScalerBounds(t *testing.T) {
	s := &MinMaxScaler{}
	x := [][]float64{{1, 10, -5}, {3, 10, 5}, {2, 10, 0}}
	if err := s.Fit(x); err != nil {
		t.Fatalf("fit: %v", err)
	}
	for _, row := range x {
		out, err := s.Transform(row)
		if err != nil {
			t.Fatalf("transform: %v", err)
		}
		for j, v := range out {
			if v < 0 || v > 1 {
				t.Fatalf("col %d scaled out of [0,1]: %v", j, v)
			}
		}
		// Constant column scales to zero.
		if out[1] != 0 {
			t.Fatalf("constant column should scale to 0, got %v", out[1])
		}
	}

	if _, err := s.Transform([]float64{1, 2}); err == nil {
		t.Fatalf("expected error on dimension mismatch")
	}
}
