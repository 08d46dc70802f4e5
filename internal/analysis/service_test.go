package analysis

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockAnalyzer/internal/collector"
	"StockAnalyzer/internal/model"
	"StockAnalyzer/internal/recorder"
	"StockAnalyzer/internal/scanner"
	"StockAnalyzer/internal/sentiment"
)

var end = time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC)

type memRecorder struct {
	recorder.NoopRecorder
	signals []recorder.SignalEvent
	arbs    []recorder.ArbitrageEvent
	scans   []*scanner.Report
}

func (m *memRecorder) RecordSignal(e *recorder.SignalEvent) error {
	m.signals = append(m.signals, *e)
	return nil
}

func (m *memRecorder) RecordArbitrage(e *recorder.ArbitrageEvent) error {
	m.arbs = append(m.arbs, *e)
	return nil
}

func (m *memRecorder) RecordScan(r *scanner.Report) error {
	m.scans = append(m.scans, r)
	return nil
}

type failingNews struct{}

func (failingNews) Headlines(context.Context, string, time.Time, time.Time) ([]string, error) {
	return nil, errors.New("rate limited")
}

type fixedNews []string

func (f fixedNews) Headlines(context.Context, string, time.Time, time.Time) ([]string, error) {
	return f, nil
}

// bars lays closes on consecutive weekdays ending at end.
func bars(closes ...float64) []model.OHLCV {
	out := make([]model.OHLCV, len(closes))
	d := end
	for i := len(closes) - 1; i >= 0; i-- {
		for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			d = d.AddDate(0, 0, -1)
		}
		out[i] = model.OHLCV{Time: d, Close: closes[i]}
		d = d.AddDate(0, 0, -1)
	}
	return out
}

func newService(f collector.Fetcher) (*Service, *memRecorder) {
	rec := &memRecorder{}
	s := NewService(f, rec, 120)
	s.Now = func() time.Time { return end }
	return s, rec
}

func TestAnalyzeSymbol(t *testing.T) {
	delta, iv := 0.5, 0.25
	mock := &collector.MockFetcher{
		Price: 100,
		End:   end,
		Dividends: []model.Dividend{
			{ExDate: end.AddDate(0, -9, 0), Amount: 0.5},
			{ExDate: end.AddDate(0, -6, 0), Amount: 0.5},
			{ExDate: end.AddDate(0, -3, 0), Amount: 0.5},
		},
		Chains: map[time.Time]*model.OptionChain{
			end.AddDate(0, 0, 30): {
				Calls: []model.OptionContract{{Strike: 10000, Delta: &delta, ImpliedVolatility: &iv}},
				Puts:  []model.OptionContract{{Strike: 1, Delta: &delta, ImpliedVolatility: &iv}},
			},
		},
	}
	s, rec := newService(mock)
	s.Chains = mock
	s.Dividends = mock

	res, err := s.AnalyzeSymbol(context.Background(), " aapl ", 5, model.RiskNeutral)
	require.NoError(t, err)

	assert.Equal(t, "AAPL", res.Symbol)
	assert.Equal(t, end, res.AsOf)
	assert.Contains(t, res.Models, BaseModel)
	assert.Equal(t, res.CurrentPrice, res.Levels.Entry)
	assert.InDelta(t, res.Levels.Entry*0.95, res.Levels.StopLoss, 1e-9)
	require.Len(t, res.Trajectory, 5)
	assert.True(t, res.Trajectory[0].Date.After(end))
	assert.Contains(t, res.Notes, "Sentiment source not configured, using neutral 0")

	require.NotNil(t, res.Option)
	assert.Equal(t, end.AddDate(0, 0, 30), res.Option.Expiry)
	require.NotNil(t, res.Dividend)
	assert.Greater(t, res.Dividend.YieldPct, 0.0)

	require.Len(t, rec.signals, 1)
	assert.Equal(t, string(res.Signal.Action), rec.signals[0].Action)
	assert.Equal(t, res.Signal.FinalPriceTarget, rec.signals[0].TargetPrice)
}

func TestAnalyzeSymbol_ShortHistoryHolds(t *testing.T) {
	mock := &collector.MockFetcher{DailyData: map[string][]model.OHLCV{
		"NEW": bars(10, 11, 12, 11, 12),
	}}
	s, _ := newService(mock)

	res, err := s.AnalyzeSymbol(context.Background(), "NEW", 5, model.RiskNeutral)
	require.NoError(t, err)
	assert.NotContains(t, res.Models, TrendModel)
	assert.Equal(t, 12.0, res.Signal.FinalPriceTarget)
	assert.Equal(t, model.ActionHold, res.Signal.Action)
	assert.Equal(t, 0.5, res.Signal.Confidence)
	for _, p := range res.Trajectory {
		assert.Equal(t, 12.0, p.Price)
	}
	assert.Contains(t, res.Notes, "History too short for gradient_boost, using last close")
	assert.Equal(t, 12.0, res.Indicators.RangeHigh)
	assert.Equal(t, 10.0, res.Indicators.RangeLow)
	assert.Equal(t, 5, res.Indicators.RangeSessions)
}

func TestAnalyzeSymbol_SentimentFallsBackToNeutral(t *testing.T) {
	s, _ := newService(&collector.MockFetcher{Price: 50, End: end})
	s.Sentiment = sentiment.NewAnalyzer(failingNews{}, sentiment.NewVaderScorer(), 7)

	res, err := s.AnalyzeSymbol(context.Background(), "MSFT", 5, model.RiskNeutral)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Sentiment)
	assert.Contains(t, res.Notes, "Sentiment unavailable, using neutral 0")
}

func TestAnalyzeSymbol_SentimentScalesTarget(t *testing.T) {
	mock := &collector.MockFetcher{DailyData: map[string][]model.OHLCV{"X": bars(20, 20, 20)}}
	s, _ := newService(mock)
	s.Sentiment = sentiment.NewAnalyzer(fixedNews{"great strong growth", "excellent gains"}, sentiment.NewVaderScorer(), 7)

	res, err := s.AnalyzeSymbol(context.Background(), "X", 1, model.RiskNeutral)
	require.NoError(t, err)
	assert.Greater(t, res.Sentiment, 0.0)
	assert.Equal(t, 2, res.Headlines)
	assert.InDelta(t, 20*(1+res.Sentiment*0.05), res.Signal.FinalPriceTarget, 1e-9)
}

func TestAnalyzeSymbol_InvalidInput(t *testing.T) {
	s, _ := newService(&collector.MockFetcher{End: end})
	ctx := context.Background()

	_, err := s.AnalyzeSymbol(ctx, " ", 5, model.RiskNeutral)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = s.AnalyzeSymbol(ctx, "A", 0, model.RiskNeutral)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = s.AnalyzeSymbol(ctx, "A", 5, 11)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestAnalyzeSymbol_FetchError(t *testing.T) {
	s, rec := newService(&collector.MockFetcher{Err: model.ErrInsufficientData})
	_, err := s.AnalyzeSymbol(context.Background(), "A", 5, model.RiskNeutral)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
	assert.Empty(t, rec.signals)
}

func pairData(lastB float64) map[string][]model.OHLCV {
	a := make([]float64, 20)
	b := make([]float64, 20)
	for i := range a {
		a[i] = 100 + float64(i)
		b[i] = a[i] - 1
	}
	b[19] = lastB
	return map[string][]model.OHLCV{"KO": bars(a...), "PEP": bars(b...)}
}

func TestAnalyzePair_ShortSignal(t *testing.T) {
	s, rec := newService(&collector.MockFetcher{DailyData: pairData(109)})

	res, err := s.AnalyzePair(context.Background(), "ko", "PEP")
	require.NoError(t, err)
	assert.Equal(t, 20, res.Points)
	require.NotNil(t, res.LatestZ)
	assert.Greater(t, *res.LatestZ, 2.0)
	assert.Equal(t, model.ZShort, res.Signal)
	assert.Contains(t, res.Alert, "Consider Short KO / Long PEP")
	require.NotNil(t, res.Correlation)
	assert.False(t, math.IsNaN(*res.Correlation))

	require.Len(t, rec.arbs, 1)
	assert.Equal(t, string(model.ZShort), rec.arbs[0].Signal)
}

func TestAnalyzePair_FlatSpread(t *testing.T) {
	s, _ := newService(&collector.MockFetcher{DailyData: pairData(118)})

	res, err := s.AnalyzePair(context.Background(), "KO", "PEP")
	require.NoError(t, err)
	assert.True(t, res.Degenerate)
	assert.Nil(t, res.LatestZ)
	assert.Equal(t, model.ZNone, res.Signal)
	assert.Equal(t, "No significant signal", res.Alert)
	require.NotNil(t, res.Correlation)
	assert.InDelta(t, 1.0, *res.Correlation, 1e-9)
}

func TestAnalyzePair_InvalidPair(t *testing.T) {
	s, _ := newService(&collector.MockFetcher{End: end})
	_, err := s.AnalyzePair(context.Background(), "KO", "ko")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestAlertText(t *testing.T) {
	z := -2.5
	p := &PairAnalysis{SymbolA: "A", SymbolB: "B", LatestZ: &z, Signal: model.ZLong}
	assert.Equal(t, "Z-score -2.50 < -2: Consider Long A / Short B", AlertText(p))
}

func TestScan_UsesWatchlistAndRecords(t *testing.T) {
	mock := &collector.MockFetcher{Price: 100, End: end}
	s, rec := newService(mock)
	s.Scanner = scanner.New(mock, nil, 2, 120)
	s.Scanner.Now = s.Now
	s.Watchlist = []string{"AAA", "BBB"}

	rep, err := s.Scan(context.Background(), nil, scanner.FilterAll)
	require.NoError(t, err)
	assert.Len(t, rep.Rows, 2)
	require.Len(t, rec.scans, 1)
	assert.Equal(t, rep.RunID, rec.scans[0].RunID)
}

func TestScan_NoSymbols(t *testing.T) {
	mock := &collector.MockFetcher{End: end}
	s, _ := newService(mock)
	s.Scanner = scanner.New(mock, nil, 2, 120)
	_, err := s.Scan(context.Background(), nil, scanner.FilterAll)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestParseHorizon(t *testing.T) {
	cases := map[string]int{"1d": 1, "1W": 5, " month ": 22, "1y": 252, "10": 10}
	for in, want := range cases {
		got, err := ParseHorizon(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "0", "253", "fortnight"} {
		_, err := ParseHorizon(bad)
		assert.ErrorIs(t, err, model.ErrInvalidInput, bad)
	}
}

func TestParseRisk(t *testing.T) {
	r, err := ParseRisk("")
	require.NoError(t, err)
	assert.Equal(t, model.RiskNeutral, r)
	r, err = ParseRisk("8")
	require.NoError(t, err)
	assert.Equal(t, model.RiskCoefficient(8), r)
	_, err = ParseRisk("0")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}
