package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"time"

	pkghttp "github.com/lblaseygg/minty/pkg/http"
)

const (
	newsLookback  = 7 * 24 * time.Hour
	maxHeadlines  = 5
	noNewsMessage = "No news available."
)

// NewsClient fetches recent company headlines from the Finnhub REST API.
type NewsClient struct {
	baseURL string
	apiKey  string
	http    *pkghttp.Client
	now     func() time.Time
}

func NewNewsClient(baseURL, apiKey string, timeout time.Duration) *NewsClient {
	return &NewsClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    pkghttp.NewClient(pkghttp.WithTimeout(timeout)),
		now:     time.Now,
	}
}

type newsItem struct {
	Headline string `json:"headline"`
	Datetime int64  `json:"datetime"`
	Source   string `json:"source"`
	URL      string `json:"url"`
}

// Headlines returns up to five recent headlines for the symbol. An upstream
// failure or an empty feed degrades to a single placeholder headline so the
// prediction response never fails on news alone.
func (c *NewsClient) Headlines(ctx context.Context, symbol string) []string {
	now := c.now()
	from := now.Add(-newsLookback)

	var items []newsItem
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s/api/v1/company-news", c.baseURL),
		QueryParams: map[string][]string{
			"symbol": {symbol},
			"from":   {from.Format("2006-01-02")},
			"to":     {now.Format("2006-01-02")},
			"token":  {c.apiKey},
		},
	}, &items)
	if err != nil {
		return []string{noNewsMessage}
	}

	headlines := make([]string, 0, maxHeadlines)
	for _, it := range items {
		if it.Headline == "" {
			continue
		}
		headlines = append(headlines, it.Headline)
		if len(headlines) == maxHeadlines {
			break
		}
	}
	if len(headlines) == 0 {
		return []string{noNewsMessage}
	}
	return headlines
}
