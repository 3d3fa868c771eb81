package marketdata

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/lblaseygg/minty/internal/domain/models"
	drepo "github.com/lblaseygg/minty/internal/domain/repository"
	pkghttp "github.com/lblaseygg/minty/pkg/http"
)

// Client fetches OHLCV history and quote snapshots from a Yahoo-style chart
// API. It implements repository.MarketData.
type Client struct {
	baseURL string
	http    *pkghttp.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    pkghttp.NewClient(pkghttp.WithTimeout(timeout)),
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				PreviousClose      float64 `json:"previousClose"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// History returns ascending, timestamp-deduplicated bars for the range.
// Rows where the upstream left the close null are skipped.
func (c *Client) History(ctx context.Context, symbol string, rng drepo.ChartRange) ([]models.Bar, error) {
	period, interval := rng.Params()

	var parsed chartResponse
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s/v8/finance/chart/%s", c.baseURL, symbol),
		QueryParams: map[string][]string{
			"range":    {period},
			"interval": {interval},
		},
		Headers: map[string]string{"User-Agent": "minty/1.0"},
	}, &parsed)
	if err != nil {
		return nil, fmt.Errorf("chart %s: %w", symbol, err)
	}

	if parsed.Chart.Error != nil {
		return nil, fmt.Errorf("chart %s: %s: %s", symbol, parsed.Chart.Error.Code, parsed.Chart.Error.Description)
	}
	if len(parsed.Chart.Result) == 0 {
		return nil, fmt.Errorf("chart %s: empty result", symbol)
	}
	res := parsed.Chart.Result[0]
	if len(res.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart %s: no quote block", symbol)
	}
	q := res.Indicators.Quote[0]

	seen := make(map[int64]int, len(res.Timestamp))
	bars := make([]models.Bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		closePx := deref(q.Close, i)
		if math.IsNaN(closePx) {
			continue
		}
		bar := models.Bar{
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      orElse(deref(q.Open, i), closePx),
			High:      orElse(deref(q.High, i), closePx),
			Low:       orElse(deref(q.Low, i), closePx),
			Close:     closePx,
			Volume:    orElse(deref(q.Volume, i), 0),
		}
		// Last write wins for duplicate timestamps.
		if j, ok := seen[ts]; ok {
			bars[j] = bar
			continue
		}
		seen[ts] = len(bars)
		bars = append(bars, bar)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })

	if len(bars) == 0 {
		return nil, fmt.Errorf("chart %s: no usable bars", symbol)
	}
	return bars, nil
}

// Quote returns a current snapshot, deriving any field the upstream omitted
// from the day's bar history.
func (c *Client) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	period, interval := drepo.Range1D.Params()

	var parsed chartResponse
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s/v8/finance/chart/%s", c.baseURL, symbol),
		QueryParams: map[string][]string{
			"range":    {period},
			"interval": {interval},
		},
		Headers: map[string]string{"User-Agent": "minty/1.0"},
	}, &parsed)
	if err != nil {
		return models.Quote{}, fmt.Errorf("quote %s: %w", symbol, err)
	}
	if parsed.Chart.Error != nil || len(parsed.Chart.Result) == 0 {
		return models.Quote{}, fmt.Errorf("quote %s: no data", symbol)
	}
	res := parsed.Chart.Result[0]

	quote := models.Quote{
		Symbol:    symbol,
		Price:     res.Meta.RegularMarketPrice,
		PrevClose: res.Meta.PreviousClose,
		Timestamp: time.Now().UTC(),
	}
	if quote.PrevClose == 0 {
		quote.PrevClose = res.Meta.ChartPreviousClose
	}

	if len(res.Indicators.Quote) > 0 {
		q := res.Indicators.Quote[0]
		lastClose := math.NaN()
		for i := range res.Timestamp {
			if o := deref(q.Open, i); quote.Open == 0 && !math.IsNaN(o) {
				quote.Open = o
			}
			if h := deref(q.High, i); !math.IsNaN(h) && h > quote.DayHigh {
				quote.DayHigh = h
			}
			if l := deref(q.Low, i); !math.IsNaN(l) && (quote.DayLow == 0 || l < quote.DayLow) {
				quote.DayLow = l
			}
			if v := deref(q.Volume, i); !math.IsNaN(v) {
				quote.Volume += v
			}
			if px := deref(q.Close, i); !math.IsNaN(px) {
				lastClose = px
			}
		}
		if quote.Price == 0 && !math.IsNaN(lastClose) {
			quote.Price = lastClose
		}
	}

	if quote.Price == 0 {
		return models.Quote{}, fmt.Errorf("quote %s: no price", symbol)
	}
	if quote.PrevClose > 0 {
		quote.PriceChange = quote.Price - quote.PrevClose
		quote.PriceChangePct = quote.PriceChange / quote.PrevClose * 100
	}
	return quote, nil
}

func deref(vals []*float64, i int) float64 {
	if i >= len(vals) || vals[i] == nil {
		return math.NaN()
	}
	return *vals[i]
}

func orElse(v, fallback float64) float64 {
	if math.IsNaN(v) {
		return fallback
	}
	return v
}
