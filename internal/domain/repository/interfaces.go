package repository

import (
	"context"

	"github.com/lblaseygg/minty/internal/domain/models"
)

// MarketStream is a live tick feed (WebSocket) for a set of symbols.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// MarketData is the historical/snapshot market-data source.
type MarketData interface {
	// History returns ascending, timestamp-deduplicated bars for the range.
	History(ctx context.Context, symbol string, rng ChartRange) ([]models.Bar, error)
	// Quote returns a current snapshot with missing fields already derived
	// from bar history where the upstream omitted them.
	Quote(ctx context.Context, symbol string) (models.Quote, error)
}

// FillPublisher publishes executed fills to the event stream.
type FillPublisher interface {
	Publish(ctx context.Context, f *models.Fill) error
	Close() error
}

// FillArchive is the append-only audit store for executed fills.
type FillArchive interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, f *models.Fill) error
	StoreBatch(ctx context.Context, fills []*models.Fill) error
	Health(ctx context.Context) error
	Close() error
}

// Metrics records domain-level observability signals.
type Metrics interface {
	RecordPrediction(symbol string)
	RecordTrade(side, status string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
