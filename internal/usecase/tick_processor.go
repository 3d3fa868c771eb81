package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/lblaseygg/minty/internal/domain/models"
	drepo "github.com/lblaseygg/minty/internal/domain/repository"
	"github.com/lblaseygg/minty/pkg/cache"
)

const (
	liveTickKeyPrefix = "live:tick:"
	liveTickTTL       = 5 * time.Minute
)

// TickProcessor folds live trade prints into the quote cache so /live reads
// and price resolution see the newest print without hitting the upstream.
type TickProcessor struct {
	cache   cache.Service
	metrics drepo.Metrics
}

func NewTickProcessor(c cache.Service, metrics drepo.Metrics) *TickProcessor {
	return &TickProcessor{cache: c, metrics: metrics}
}

// Process stores the tick as the symbol's latest print.
func (p *TickProcessor) Process(ctx context.Context, t *models.Tick) error {
	if t == nil {
		return fmt.Errorf("tick is nil")
	}

	start := time.Now()
	if err := p.cache.Set(ctx, liveTickKeyPrefix+t.Symbol, t, liveTickTTL); err != nil {
		p.metrics.RecordError("tick_cache")
		return fmt.Errorf("cache tick: %w", err)
	}

	p.metrics.RecordLastPrice(t.Symbol, t.Price)
	p.metrics.RecordLatency("tick_process", time.Since(start).Seconds())
	return nil
}

// Latest returns the newest cached print for symbol, if any.
func (p *TickProcessor) Latest(ctx context.Context, symbol string) (*models.Tick, bool) {
	var t models.Tick
	if err := p.cache.Get(ctx, liveTickKeyPrefix+symbol, &t); err != nil {
		return nil, false
	}
	return &t, true
}
