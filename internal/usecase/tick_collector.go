package usecase

import (
	"context"

	"github.com/lblaseygg/minty/internal/domain/models"
	drepo "github.com/lblaseygg/minty/internal/domain/repository"
	mid "github.com/lblaseygg/minty/internal/middleware"
)

// TickCollector pulls ticks from the market stream and feeds them through the
// realtime pipeline into the quote cache.
type TickCollector struct {
	stream  drepo.MarketStream
	proc    *TickProcessor
	metrics drepo.Metrics
	pipe    *mid.RealtimePipeline
}

func NewTickCollector(stream drepo.MarketStream, proc *TickProcessor, metrics drepo.Metrics, pipe *mid.RealtimePipeline) *TickCollector {
	return &TickCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the market stream is connected.
func (c *TickCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *TickCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	tickCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, tickCh, errCh)
	return nil
}

func (c *TickCollector) consume(ctx context.Context, tickCh <-chan *models.Tick, errCh <-chan error) {
	for {
		if !c.pump(ctx, tickCh, errCh) {
			return
		}
		var ok bool
		tickCh, errCh, ok = c.reconnectStream(ctx)
		if !ok {
			return
		}
	}
}

// pump forwards ticks until the stream reports a transport error or its
// channels close. Returns false only when ctx ends; true means the stream
// needs a reconnect and a fresh Read.
func (c *TickCollector) pump(ctx context.Context, tickCh <-chan *models.Tick, errCh <-chan error) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case err, open := <-errCh:
			if !open {
				return true
			}
			if err != nil {
				c.metrics.RecordError("stream")
				return true
			}
		case t, open := <-tickCh:
			if !open {
				return true
			}
			if t == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, t)
			} else {
				_ = c.proc.Process(ctx, t)
			}
		}
	}
}

// reconnectStream retries Reconnect until it succeeds, then restarts the
// read loop. The stream's own reconnect delay paces the retries.
func (c *TickCollector) reconnectStream(ctx context.Context) (<-chan *models.Tick, <-chan error, bool) {
	for {
		if ctx.Err() != nil {
			return nil, nil, false
		}
		if err := c.stream.Reconnect(ctx); err != nil {
			c.metrics.RecordError("stream")
			continue
		}
		tickCh, errCh := c.stream.Read(ctx)
		return tickCh, errCh, true
	}
}

// Shutdown stops the pipeline and closes the stream.
func (c *TickCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
