package collector

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"StockAnalyzer/internal/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher, DividendSource and ChainSource on the
// Yahoo Finance public API.
type YahooFetcher struct {
	BaseURL   string
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
	client    *Client
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(opts ClientOptions) *YahooFetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0"
	}
	return &YahooFetcher{
		BaseURL: yahooBaseURL,
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
		client: NewClient("yahoo", opts),
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp []int64 `json:"timestamp"`
			Events    struct {
				Dividends map[string]struct {
					Amount float64 `json:"amount"`
					Date   int64   `json:"date"`
				} `json:"dividends"`
			} `json:"events"`
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

func at(vs []*float64, i int) float64 {
	if i >= len(vs) || vs[i] == nil {
		return 0
	}
	return *vs[i]
}

func (f *YahooFetcher) fetchChart(ctx context.Context, symbol, rng, events string) (*yahooChart, error) {
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("range", rng)
	if events != "" {
		q.Set("events", events)
	}
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)), q.Encode())

	var chart yahooChart
	if err := f.client.GetJSON(ctx, u, nil, &chart); err != nil {
		return nil, err
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w: no result", symbol, model.ErrInsufficientData)
	}
	return &chart, nil
}

// chartRange picks the smallest Yahoo range covering the requested sessions.
func chartRange(days int) string {
	switch {
	case days <= 20:
		return "1mo"
	case days <= 60:
		return "3mo"
	case days <= 120:
		return "6mo"
	case days <= 250:
		return "1y"
	case days <= 500:
		return "2y"
	default:
		return "5y"
	}
}

func (f *YahooFetcher) FetchDailySeries(ctx context.Context, symbol string, days int) (model.PriceSeries, error) {
	chart, err := f.fetchChart(ctx, symbol, chartRange(days), "")
	if err != nil {
		return model.PriceSeries{}, err
	}

	result := chart.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return model.PriceSeries{}, fmt.Errorf("yahoo %s: %w: no bars", symbol, model.ErrInsufficientData)
	}
	quote := result.Indicators.Quote[0]
	bars := make([]model.OHLCV, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		c := at(quote.Close, i)
		if c == 0 {
			continue // null bars (holidays, halted sessions)
		}
		bars = append(bars, model.OHLCV{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   at(quote.Open, i),
			High:   at(quote.High, i),
			Low:    at(quote.Low, i),
			Close:  c,
			Volume: at(quote.Volume, i),
		})
	}
	return barsToSeries(symbol, bars, days)
}

// FetchDividends returns the dividend history of the last five years, oldest first.
func (f *YahooFetcher) FetchDividends(ctx context.Context, symbol string) ([]model.Dividend, error) {
	chart, err := f.fetchChart(ctx, symbol, "5y", "div")
	if err != nil {
		return nil, err
	}
	raw := chart.Chart.Result[0].Events.Dividends
	out := make([]model.Dividend, 0, len(raw))
	for _, d := range raw {
		out = append(out, model.Dividend{ExDate: time.Unix(d.Date, 0).UTC(), Amount: d.Amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExDate.Before(out[j].ExDate) })
	return out, nil
}

type yahooContract struct {
	ContractSymbol    string   `json:"contractSymbol"`
	Strike            float64  `json:"strike"`
	LastPrice         float64  `json:"lastPrice"`
	ImpliedVolatility *float64 `json:"impliedVolatility"`
	Delta             *float64 `json:"delta"`
	Expiration        int64    `json:"expiration"`
}

type yahooOptions struct {
	OptionChain struct {
		Result []struct {
			ExpirationDates []int64 `json:"expirationDates"`
			Options         []struct {
				ExpirationDate int64           `json:"expirationDate"`
				Calls          []yahooContract `json:"calls"`
				Puts           []yahooContract `json:"puts"`
			} `json:"options"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"optionChain"`
}

func (f *YahooFetcher) fetchOptions(ctx context.Context, symbol string, expiry time.Time) (*yahooOptions, error) {
	u := fmt.Sprintf("%s/v7/finance/options/%s", f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)))
	if !expiry.IsZero() {
		u += "?date=" + fmt.Sprint(expiry.Unix())
	}
	var resp yahooOptions
	if err := f.client.GetJSON(ctx, u, nil, &resp); err != nil {
		return nil, err
	}
	if resp.OptionChain.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", resp.OptionChain.Error.Description)
	}
	if len(resp.OptionChain.Result) == 0 {
		return nil, fmt.Errorf("yahoo options %s: %w: no result", symbol, model.ErrInsufficientData)
	}
	return &resp, nil
}

// Expiries lists the option expiration dates in ascending order.
func (f *YahooFetcher) Expiries(ctx context.Context, symbol string) ([]time.Time, error) {
	resp, err := f.fetchOptions(ctx, symbol, time.Time{})
	if err != nil {
		return nil, err
	}
	dates := resp.OptionChain.Result[0].ExpirationDates
	out := make([]time.Time, len(dates))
	for i, d := range dates {
		out[i] = time.Unix(d, 0).UTC()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// Chain returns the calls and puts for expiry, each sorted by strike.
func (f *YahooFetcher) Chain(ctx context.Context, symbol string, expiry time.Time) (*model.OptionChain, error) {
	resp, err := f.fetchOptions(ctx, symbol, expiry)
	if err != nil {
		return nil, err
	}
	chain := &model.OptionChain{Symbol: symbol, Expiry: expiry}
	for _, o := range resp.OptionChain.Result[0].Options {
		chain.Calls = append(chain.Calls, convertContracts(o.Calls, model.OptionCall)...)
		chain.Puts = append(chain.Puts, convertContracts(o.Puts, model.OptionPut)...)
	}
	return chain, nil
}

func convertContracts(in []yahooContract, typ model.OptionType) []model.OptionContract {
	out := make([]model.OptionContract, len(in))
	for i, c := range in {
		out[i] = model.OptionContract{
			ContractSymbol:    c.ContractSymbol,
			Type:              typ,
			Strike:            c.Strike,
			Expiry:            time.Unix(c.Expiration, 0).UTC(),
			LastPrice:         c.LastPrice,
			Delta:             c.Delta,
			ImpliedVolatility: c.ImpliedVolatility,
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Strike < out[j].Strike })
	return out
}

// barsToSeries orders bars, drops duplicate sessions and keeps the last days of them.
func barsToSeries(symbol string, bars []model.OHLCV, days int) (model.PriceSeries, error) {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	dedup := bars[:0]
	for _, b := range bars {
		if n := len(dedup); n > 0 && !b.Time.After(dedup[n-1].Time) {
			dedup[n-1] = b
			continue
		}
		dedup = append(dedup, b)
	}
	if len(dedup) == 0 {
		return model.PriceSeries{}, fmt.Errorf("%s: %w: no bars", symbol, model.ErrInsufficientData)
	}
	if days > 0 && len(dedup) > days {
		dedup = dedup[len(dedup)-days:]
	}
	return model.SeriesFromBars(symbol, dedup)
}
