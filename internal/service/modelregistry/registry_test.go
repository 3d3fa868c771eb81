package modelregistry

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/lblaseygg/minty/internal/domain/models"
	"github.com/lblaseygg/minty/internal/predictor"
)

func syntheticBars(n int) []models.Bar {
	bars := make([]models.Bar, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		px := 100 + 0.3*float64(i) + 4*math.Sin(float64(i)/7)
		bars[i] = models.Bar{
			Timestamp: base.AddDate(0, 0, i),
			Open:      px - 0.5,
			High:      px + 1,
			Low:       px - 1,
			Close:     px,
			Volume:    1e6 + 1e4*float64(i%13),
		}
	}
	return bars
}

type recordingRefresher struct {
	mu      sync.Mutex
	symbols []string
}

func (r *recordingRefresher) EnqueueRetrain(_ context.Context, symbol string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.symbols = append(r.symbols, symbol)
	return nil
}

func (r *recordingRefresher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.symbols)
}

func TestColdMissTrainsSynchronously(t *testing.T) {
	reg := New(predictor.New(predictor.DefaultGBRTConfig()), time.Hour)
	bars := syntheticBars(120)

	pred, err := reg.Predict(context.Background(), "NVDA", bars)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if !pred.Available {
		t.Fatalf("expected available prediction")
	}
	if _, ok := reg.Artifact("NVDA"); !ok {
		t.Fatalf("artifact not cached after cold miss")
	}
}

func TestColdMissWithShortHistoryIsUnavailable(t *testing.T) {
	reg := New(predictor.New(predictor.DefaultGBRTConfig()), time.Hour)

	// 30 bars leave no feature-complete row, so training cannot happen;
	// that must surface as an unavailable prediction, not an error.
	pred, err := reg.Predict(context.Background(), "NVDA", syntheticBars(30))
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if pred.Available {
		t.Fatalf("expected unavailable prediction")
	}
	if _, ok := reg.Artifact("NVDA"); ok {
		t.Fatalf("artifact cached despite failed training")
	}
}

func TestFreshArtifactIsReused(t *testing.T) {
	reg := New(predictor.New(predictor.DefaultGBRTConfig()), time.Hour)
	bars := syntheticBars(120)

	if _, err := reg.Predict(context.Background(), "NVDA", bars); err != nil {
		t.Fatalf("predict: %v", err)
	}
	art1, _ := reg.Artifact("NVDA")
	if _, err := reg.Predict(context.Background(), "NVDA", bars); err != nil {
		t.Fatalf("predict: %v", err)
	}
	art2, _ := reg.Artifact("NVDA")
	if art1 != art2 {
		t.Fatalf("fresh artifact was replaced")
	}
}

func TestStaleArtifactServesAndEnqueuesOnce(t *testing.T) {
	ref := &recordingRefresher{}
	reg := New(predictor.New(predictor.DefaultGBRTConfig()), time.Hour, WithRefresher(ref))
	bars := syntheticBars(120)

	if _, err := reg.Predict(context.Background(), "NVDA", bars); err != nil {
		t.Fatalf("predict: %v", err)
	}

	// Age the artifact past the TTL.
	reg.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	for i := 0; i < 3; i++ {
		pred, err := reg.Predict(context.Background(), "NVDA", bars)
		if err != nil {
			t.Fatalf("stale predict: %v", err)
		}
		if !pred.Available {
			t.Fatalf("stale artifact must keep serving")
		}
	}
	if got := ref.count(); got != 1 {
		t.Fatalf("retrain enqueued %d times, want 1", got)
	}
}

func TestRetrainClearsPending(t *testing.T) {
	ref := &recordingRefresher{}
	reg := New(predictor.New(predictor.DefaultGBRTConfig()), time.Hour, WithRefresher(ref))
	bars := syntheticBars(120)

	if _, err := reg.Predict(context.Background(), "NVDA", bars); err != nil {
		t.Fatalf("predict: %v", err)
	}
	reg.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := reg.Predict(context.Background(), "NVDA", bars); err != nil {
		t.Fatalf("stale predict: %v", err)
	}

	if err := reg.Retrain(context.Background(), "NVDA", bars); err != nil {
		t.Fatalf("retrain: %v", err)
	}
	// After the retrain lands, a stale artifact may be flagged again.
	reg.now = func() time.Time { return time.Now().Add(4 * time.Hour) }
	if _, err := reg.Predict(context.Background(), "NVDA", bars); err != nil {
		t.Fatalf("predict: %v", err)
	}
	if got := ref.count(); got != 2 {
		t.Fatalf("retrain enqueued %d times, want 2", got)
	}
}

func TestRetrainRejectsShortHistory(t *testing.T) {
	reg := New(predictor.New(predictor.DefaultGBRTConfig()), time.Hour)
	if err := reg.Retrain(context.Background(), "NVDA", syntheticBars(10)); err == nil {
		t.Fatalf("expected error for short history")
	}
}
