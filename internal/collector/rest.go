package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"StockAnalyzer/internal/model"
)

// RESTFetcher implements Fetcher on a generic bars REST API:
// GET {base}/api/v1/bars/daily?symbol=X&limit=N returning a JSON array of bars.
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	client  *Client
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey string, opts ClientOptions) *RESTFetcher {
	return &RESTFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		client:  NewClient("rest", opts),
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restBar is the expected JSON shape from the bars API.
type restBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

func (f *RESTFetcher) FetchDailySeries(ctx context.Context, symbol string, days int) (model.PriceSeries, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("limit", fmt.Sprint(days))
	endpoint := fmt.Sprintf("%s/api/v1/bars/daily?%s", f.BaseURL, q.Encode())

	var header http.Header
	if f.APIKey != "" {
		header = http.Header{"Authorization": []string{"Bearer " + f.APIKey}}
	}
	var raw []restBar
	if err := f.client.GetJSON(ctx, endpoint, header, &raw); err != nil {
		return model.PriceSeries{}, fmt.Errorf("fetch bars: %w", err)
	}

	bars := make([]model.OHLCV, len(raw))
	for i, b := range raw {
		bars[i] = model.OHLCV{
			Time:   time.Unix(b.Timestamp, 0).UTC(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}
	return barsToSeries(symbol, bars, days)
}
