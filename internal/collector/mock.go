package collector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"StockAnalyzer/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// It implements Fetcher, DividendSource and ChainSource.
type MockFetcher struct {
	Price     float64
	End       time.Time // last session; zero means today
	DailyData map[string][]model.OHLCV
	Dividends []model.Dividend
	Chains    map[time.Time]*model.OptionChain
	Err       error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailySeries(_ context.Context, symbol string, days int) (model.PriceSeries, error) {
	if m.Err != nil {
		return model.PriceSeries{}, m.Err
	}
	if bars, ok := m.DailyData[symbol]; ok {
		return barsToSeries(symbol, append([]model.OHLCV(nil), bars...), days)
	}
	return barsToSeries(symbol, generateMockBars(m.Price, days, m.end()), days)
}

func (m *MockFetcher) FetchDividends(_ context.Context, _ string) ([]model.Dividend, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Dividends, nil
}

func (m *MockFetcher) Expiries(_ context.Context, _ string) ([]time.Time, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]time.Time, 0, len(m.Chains))
	for exp := range m.Chains {
		out = append(out, exp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (m *MockFetcher) Chain(_ context.Context, symbol string, expiry time.Time) (*model.OptionChain, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	c, ok := m.Chains[expiry]
	if !ok {
		return nil, fmt.Errorf("mock %s: %w: no chain for %s", symbol, model.ErrInsufficientData, expiry.Format("2006-01-02"))
	}
	return c, nil
}

func (m *MockFetcher) end() time.Time {
	if !m.End.IsZero() {
		return m.End
	}
	y, mo, d := time.Now().UTC().Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

// generateMockBars produces count weekday bars ending at end, drifting gently
// around basePrice.
func generateMockBars(basePrice float64, count int, end time.Time) []model.OHLCV {
	if basePrice <= 0 {
		basePrice = 100
	}
	bars := make([]model.OHLCV, count)
	d := end
	for i := count - 1; i >= 0; i-- {
		for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			d = d.AddDate(0, 0, -1)
		}
		x := float64(i - count/2)
		p := basePrice * (1 + x*0.001 + 0.01*math.Sin(x/4))
		bars[i] = model.OHLCV{
			Time:   d,
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
		d = d.AddDate(0, 0, -1)
	}
	return bars
}
