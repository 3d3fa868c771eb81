package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	drepo "github.com/lblaseygg/minty/internal/domain/repository"
)

func chartBody(timestamps []int64, closes []string, price float64) string {
	return fmt.Sprintf(`{
		"chart": {
			"result": [{
				"meta": {"regularMarketPrice": %v, "previousClose": 100},
				"timestamp": [%s],
				"indicators": {"quote": [{
					"open":   [%s],
					"high":   [%s],
					"low":    [%s],
					"close":  [%s],
					"volume": [%s]
				}]}
			}],
			"error": null
		}
	}`,
		price,
		joinInts(timestamps),
		strings.Join(closes, ","),
		strings.Join(closes, ","),
		strings.Join(closes, ","),
		strings.Join(closes, ","),
		strings.Join(closes, ","))
}

func joinInts(vals []int64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ",")
}

func TestHistorySkipsNullAndDedupes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/v8/finance/chart/NVDA") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("range") != "1y" || r.URL.Query().Get("interval") != "1d" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		// duplicate second timestamp, null third close
		fmt.Fprint(w, chartBody(
			[]int64{1700000000, 1700086400, 1700086400, 1700172800},
			[]string{"101", "102", "103", "null"},
			104,
		))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	bars, err := c.History(context.Background(), "NVDA", drepo.Range1Y)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("want 2 bars after dedup and null skip, got %d", len(bars))
	}
	if bars[0].Close != 101 || bars[1].Close != 103 {
		t.Fatalf("wrong bars: %+v", bars)
	}
	if !bars[0].Timestamp.Before(bars[1].Timestamp) {
		t.Fatalf("bars not ascending")
	}
}

func TestHistoryUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	if _, err := c.History(context.Background(), "NOPE", drepo.Range1Y); err == nil {
		t.Fatalf("expected error on upstream error payload")
	}
}

func TestQuoteDerivesMissingFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// no regularMarketPrice: price falls back to the latest close
		fmt.Fprint(w, `{
			"chart": {
				"result": [{
					"meta": {"previousClose": 100},
					"timestamp": [1700000000, 1700000060, 1700000120],
					"indicators": {"quote": [{
						"open":   [101, 102, 103],
						"high":   [105, 110, 104],
						"low":    [99, 98, 100],
						"close":  [101, 106, 108],
						"volume": [10, 20, 30]
					}]}
				}],
				"error": null
			}
		}`)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	q, err := c.Quote(context.Background(), "NVDA")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if q.Price != 108 {
		t.Fatalf("price = %v, want latest close 108", q.Price)
	}
	if q.Open != 101 || q.DayHigh != 110 || q.DayLow != 98 || q.Volume != 60 {
		t.Fatalf("derived fields wrong: %+v", q)
	}
	if q.PriceChange != 8 || q.PriceChangePct != 8 {
		t.Fatalf("change = %v (%v%%), want 8 (8%%)", q.PriceChange, q.PriceChangePct)
	}
}

func TestHeadlinesTopFive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") != "NVDA" || r.URL.Query().Get("token") != "k" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, `[
			{"headline": "one"}, {"headline": "two"}, {"headline": ""},
			{"headline": "three"}, {"headline": "four"}, {"headline": "five"},
			{"headline": "six"}
		]`)
	}))
	defer srv.Close()

	c := NewNewsClient(srv.URL, "k", time.Second)
	got := c.Headlines(context.Background(), "NVDA")
	want := []string{"one", "two", "three", "four", "five"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("headline %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestHeadlinesFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewNewsClient(srv.URL, "k", time.Second)
	got := c.Headlines(context.Background(), "NVDA")
	if len(got) != 1 || got[0] != "No news available." {
		t.Fatalf("got %v, want fallback", got)
	}

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer empty.Close()

	c = NewNewsClient(empty.URL, "k", time.Second)
	got = c.Headlines(context.Background(), "NVDA")
	if len(got) != 1 || got[0] != "No news available." {
		t.Fatalf("got %v, want fallback on empty feed", got)
	}
}
