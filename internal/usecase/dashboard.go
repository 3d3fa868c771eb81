package usecase

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/lblaseygg/minty/internal/domain/models"
	domrepo "github.com/lblaseygg/minty/internal/domain/repository"
	domservice "github.com/lblaseygg/minty/internal/domain/service"
	"github.com/lblaseygg/minty/internal/indicator"
	"github.com/lblaseygg/minty/pkg/cache"
	applogger "github.com/lblaseygg/minty/pkg/logger"
)

const (
	trainingRange = domrepo.Range2Y

	barsCacheKeyPrefix = "bars:"
	barsCacheTTL       = 10 * time.Minute

	dateLayoutDaily    = "2006-01-02"
	dateLayoutIntraday = "2006-01-02 15:04"
)

// DashboardUseCase serves the analytics side of the dashboard: predictions,
// recommendations, chart history and live quotes.
type DashboardUseCase struct {
	market      domrepo.MarketData
	predictor   domservice.PricePredictor
	recommender domservice.SignalRecommender
	news        domservice.NewsSource
	ticks       *TickProcessor
	cache       cache.Service
	metrics     domrepo.Metrics
	logger      *applogger.Logger
	timeout     time.Duration
}

func NewDashboardUseCase(
	market domrepo.MarketData,
	predictor domservice.PricePredictor,
	recommender domservice.SignalRecommender,
	news domservice.NewsSource,
	ticks *TickProcessor,
	c cache.Service,
	metrics domrepo.Metrics,
	logger *applogger.Logger,
) *DashboardUseCase {
	return &DashboardUseCase{
		market:      market,
		predictor:   predictor,
		recommender: recommender,
		news:        news,
		ticks:       ticks,
		cache:       c,
		metrics:     metrics,
		logger:      logger,
		timeout:     30 * time.Second,
	}
}

// Predict forecasts the next close and pairs it with recent headlines. The
// forecast and the news fetch run concurrently; a missing forecast comes back
// as a null price, never an error, as long as history could be fetched.
func (uc *DashboardUseCase) Predict(ctx context.Context, symbol string) (*models.PredictResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	bars, err := uc.history(ctx, symbol, trainingRange)
	if err != nil {
		return nil, err
	}

	var (
		wg        sync.WaitGroup
		pred      models.Prediction
		predErr   error
		headlines []string
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		pred, predErr = uc.predictor.Predict(ctx, symbol, bars)
	}()
	go func() {
		defer wg.Done()
		headlines = uc.news.Headlines(ctx, symbol)
	}()
	wg.Wait()

	if predErr != nil {
		return nil, fmt.Errorf("predict %s: %w", symbol, predErr)
	}

	resp := &models.PredictResponse{News: headlines}
	if pred.Available {
		px := pred.PredictedPrice
		resp.PredictedPrice = &px
	}
	return resp, nil
}

// Recommend derives the rule-based trading signal from the latest
// feature-complete indicator row.
func (uc *DashboardUseCase) Recommend(ctx context.Context, symbol string) (models.Recommendation, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	bars, err := uc.history(ctx, symbol, trainingRange)
	if err != nil {
		return models.Recommendation{}, err
	}
	rows := indicator.Compute(bars)
	return uc.recommender.Recommend(symbol, rows), nil
}

// Historical returns chart series for the requested range: closes plus RSI
// and MACD, aligned by index with the date axis.
func (uc *DashboardUseCase) Historical(ctx context.Context, symbol string, rng domrepo.ChartRange) (*models.HistoricalData, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	bars, err := uc.history(ctx, symbol, rng)
	if err != nil {
		return nil, err
	}
	rows := indicator.Compute(bars)

	layout := dateLayoutDaily
	if rng.Intraday() {
		layout = dateLayoutIntraday
	}

	data := &models.HistoricalData{
		Dates:      make([]string, len(rows)),
		Prices:     make([]float64, len(rows)),
		RSI:        make([]*float64, len(rows)),
		MACD:       make([]*float64, len(rows)),
		MACDSignal: make([]*float64, len(rows)),
	}
	for i := range rows {
		data.Dates[i] = rows[i].Timestamp.Format(layout)
		data.Prices[i] = rows[i].Close
		data.RSI[i] = finite(rows[i].RSI)
		data.MACD[i] = finite(rows[i].MACD)
		data.MACDSignal[i] = finite(rows[i].MACDSignal)
	}
	return data, nil
}

// Live returns the current quote, preferring the streamed print over the
// upstream snapshot when one is cached.
func (uc *DashboardUseCase) Live(ctx context.Context, symbol string) (models.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	quote, err := uc.market.Quote(ctx, symbol)
	if err != nil {
		// Degrade to the streamed print when the upstream is down.
		if tick, ok := uc.latestTick(ctx, symbol); ok {
			uc.logger.Warn("live quote degraded to stream",
				applogger.String("symbol", symbol), applogger.Error(err))
			return models.Quote{
				Symbol:    symbol,
				Price:     tick.Price,
				Volume:    tick.Volume,
				Timestamp: time.Unix(tick.Timestamp, 0).UTC(),
			}, nil
		}
		return models.Quote{}, err
	}

	if tick, ok := uc.latestTick(ctx, symbol); ok && tick.Price > 0 {
		quote.Price = tick.Price
		if quote.PrevClose > 0 {
			quote.PriceChange = quote.Price - quote.PrevClose
			quote.PriceChangePct = quote.PriceChange / quote.PrevClose * 100
		}
	}
	return quote, nil
}

// Retrain forces a model rebuild from fresh history, bypassing the bar cache.
func (uc *DashboardUseCase) Retrain(ctx context.Context, symbol string) error {
	retrainer, ok := uc.predictor.(interface {
		Retrain(ctx context.Context, symbol string, bars []models.Bar) error
	})
	if !ok {
		return fmt.Errorf("predictor does not support retraining")
	}

	bars, err := uc.market.History(ctx, symbol, trainingRange)
	if err != nil {
		return fmt.Errorf("history %s: %w", symbol, err)
	}
	uc.cacheBars(ctx, symbol, trainingRange, bars)
	return retrainer.Retrain(ctx, symbol, bars)
}

func (uc *DashboardUseCase) history(ctx context.Context, symbol string, rng domrepo.ChartRange) ([]models.Bar, error) {
	key := barsCacheKeyPrefix + symbol + ":" + string(rng)
	if uc.cache != nil {
		var bars []models.Bar
		if err := uc.cache.Get(ctx, key, &bars); err == nil && len(bars) > 0 {
			return bars, nil
		}
	}

	bars, err := uc.market.History(ctx, symbol, rng)
	if err != nil {
		uc.metrics.RecordError("history_fetch")
		return nil, fmt.Errorf("history %s: %w", symbol, err)
	}
	uc.cacheBars(ctx, symbol, rng, bars)
	return bars, nil
}

func (uc *DashboardUseCase) cacheBars(ctx context.Context, symbol string, rng domrepo.ChartRange, bars []models.Bar) {
	if uc.cache == nil {
		return
	}
	key := barsCacheKeyPrefix + symbol + ":" + string(rng)
	if err := uc.cache.Set(ctx, key, bars, barsCacheTTL); err != nil {
		uc.logger.Warn("bar cache set failed", applogger.String("key", key), applogger.Error(err))
	}
}

func (uc *DashboardUseCase) latestTick(ctx context.Context, symbol string) (*models.Tick, bool) {
	if uc.ticks == nil {
		return nil, false
	}
	return uc.ticks.Latest(ctx, symbol)
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
