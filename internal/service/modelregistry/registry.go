package modelregistry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lblaseygg/minty/internal/domain/models"
	drepo "github.com/lblaseygg/minty/internal/domain/repository"
	"github.com/lblaseygg/minty/internal/predictor"
	applogger "github.com/lblaseygg/minty/pkg/logger"
)

// Refresher schedules a background retrain for a symbol.
type Refresher interface {
	EnqueueRetrain(ctx context.Context, symbol string) error
}

// Registry keeps one trained model artifact per symbol. A cold miss trains
// synchronously from the caller's bars; a stale artifact keeps serving while
// a background retrain is enqueued, so prediction latency never pays the
// training cost twice.
type Registry struct {
	engine    *predictor.Engine
	ttl       time.Duration
	refresher Refresher
	logger    *applogger.Logger
	metrics   drepo.Metrics
	now       func() time.Time

	mu        sync.RWMutex
	artifacts map[string]*predictor.Artifact
	pending   map[string]bool
}

type Option func(*Registry)

func WithRefresher(r Refresher) Option {
	return func(reg *Registry) { reg.refresher = r }
}

func WithLogger(lg *applogger.Logger) Option {
	return func(reg *Registry) { reg.logger = lg }
}

func WithMetrics(m drepo.Metrics) Option {
	return func(reg *Registry) { reg.metrics = m }
}

func New(engine *predictor.Engine, ttl time.Duration, opts ...Option) *Registry {
	reg := &Registry{
		engine:    engine,
		ttl:       ttl,
		now:       time.Now,
		artifacts: make(map[string]*predictor.Artifact),
		pending:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(reg)
	}
	return reg
}

// Predict forecasts the next close for symbol from bars, training a model on
// the spot when none exists yet. Too little history to train is not an
// error: the result is marked unavailable, same as a prediction with no
// usable feature row.
func (r *Registry) Predict(ctx context.Context, symbol string, bars []models.Bar) (models.Prediction, error) {
	art, ok := r.artifact(symbol)
	if !ok {
		trained, err := r.train(symbol, bars)
		if err != nil {
			if errors.Is(err, predictor.ErrInsufficientData) {
				if r.logger != nil {
					r.logger.Warn("prediction unavailable",
						applogger.String("symbol", symbol),
						applogger.Error(err))
				}
				return models.Prediction{Symbol: symbol, Available: false}, nil
			}
			return models.Prediction{}, err
		}
		art = trained
	} else if r.stale(art) {
		r.scheduleRefresh(ctx, symbol)
	}

	pred, err := r.engine.Predict(art, symbol, bars)
	if err != nil {
		return models.Prediction{}, err
	}
	if r.metrics != nil && pred.Available {
		r.metrics.RecordPrediction(symbol)
	}
	return pred, nil
}

// Retrain replaces the symbol's artifact with one trained on bars.
func (r *Registry) Retrain(_ context.Context, symbol string, bars []models.Bar) error {
	_, err := r.train(symbol, bars)
	return err
}

// Artifact returns the cached artifact for symbol, if any.
func (r *Registry) Artifact(symbol string) (*predictor.Artifact, bool) {
	return r.artifact(symbol)
}

func (r *Registry) artifact(symbol string) (*predictor.Artifact, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	art, ok := r.artifacts[symbol]
	return art, ok
}

func (r *Registry) stale(art *predictor.Artifact) bool {
	return r.ttl > 0 && r.now().Sub(art.TrainedAt) > r.ttl
}

func (r *Registry) train(symbol string, bars []models.Bar) (*predictor.Artifact, error) {
	start := r.now()
	art, err := r.engine.TrainBars(bars)
	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordError("train")
		}
		return nil, err
	}

	r.mu.Lock()
	r.artifacts[symbol] = art
	delete(r.pending, symbol)
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.Info("model trained",
			applogger.String("symbol", symbol),
			applogger.Duration("took", r.now().Sub(start)))
	}
	if r.metrics != nil {
		r.metrics.RecordLatency("train", r.now().Sub(start).Seconds())
	}
	return art, nil
}

// scheduleRefresh enqueues one background retrain per stale artifact; further
// stale hits are no-ops until the retrain lands.
func (r *Registry) scheduleRefresh(ctx context.Context, symbol string) {
	if r.refresher == nil {
		return
	}
	r.mu.Lock()
	if r.pending[symbol] {
		r.mu.Unlock()
		return
	}
	r.pending[symbol] = true
	r.mu.Unlock()

	if err := r.refresher.EnqueueRetrain(ctx, symbol); err != nil {
		r.mu.Lock()
		delete(r.pending, symbol)
		r.mu.Unlock()
		if r.logger != nil {
			r.logger.Warn("retrain enqueue failed",
				applogger.String("symbol", symbol),
				applogger.Error(err))
		}
	}
}
