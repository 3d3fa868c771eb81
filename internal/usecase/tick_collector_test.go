package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lblaseygg/minty/internal/domain/models"
	"github.com/lblaseygg/minty/pkg/cache"
)

type nopMetrics struct{}

func (nopMetrics) RecordPrediction(string)         {}
func (nopMetrics) RecordTrade(string, string)      {}
func (nopMetrics) RecordError(string)              {}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) RecordLatency(string, float64)   {}

// flakyStream fails its first read session with a transport error and
// serves ticks only after a reconnect.
type flakyStream struct {
	mu         sync.Mutex
	reads      int
	reconnects int
	tick       *models.Tick
}

func (s *flakyStream) Connect(context.Context) error { return nil }

func (s *flakyStream) Subscribe(context.Context) error { return nil }

func (s *flakyStream) Close() error { return nil }

func (s *flakyStream) IsConnected() bool { return true }

func (s *flakyStream) Reconnect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnects++
	return nil
}

func (s *flakyStream) reconnectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconnects
}

func (s *flakyStream) Read(context.Context) (<-chan *models.Tick, <-chan error) {
	s.mu.Lock()
	s.reads++
	first := s.reads == 1
	s.mu.Unlock()

	ticks := make(chan *models.Tick, 1)
	errs := make(chan error, 1)
	if first {
		errs <- context.DeadlineExceeded
		close(ticks)
		close(errs)
	} else {
		ticks <- s.tick
	}
	return ticks, errs
}

func TestCollectorResumesReadingAfterStreamFailure(t *testing.T) {
	stream := &flakyStream{tick: &models.Tick{Symbol: "NVDA", Price: 131.5, Timestamp: 1700000000}}
	proc := NewTickProcessor(cache.NewMemoryCache(), nopMetrics{})
	collector := NewTickCollector(stream, proc, nopMetrics{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := collector.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if tick, ok := proc.Latest(ctx, "NVDA"); ok {
			if tick.Price != 131.5 {
				t.Fatalf("unexpected tick: %+v", tick)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no tick processed after stream failure and reconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if stream.reconnectCount() == 0 {
		t.Fatal("stream was never reconnected")
	}
}
