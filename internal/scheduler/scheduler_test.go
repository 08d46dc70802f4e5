package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockAnalyzer/internal/analysis"
	"StockAnalyzer/internal/collector"
	"StockAnalyzer/internal/config"
	"StockAnalyzer/internal/model"
	"StockAnalyzer/internal/scanner"
)

var end = time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC)

type captureSender struct {
	mu   sync.Mutex
	sent []string
}

func (c *captureSender) SendWithRetry(_ context.Context, text string, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, text)
	return nil
}

func pairBars(lastB float64) map[string][]model.OHLCV {
	a := make([]model.OHLCV, 20)
	b := make([]model.OHLCV, 20)
	for i := range a {
		d := end.AddDate(0, 0, i-19)
		a[i] = model.OHLCV{Time: d, Close: 100 + float64(i)}
		b[i] = model.OHLCV{Time: d, Close: 99 + float64(i)}
	}
	b[19].Close = lastB
	return map[string][]model.OHLCV{"KO": a, "PEP": b, "AAA": a, "BBB": b}
}

func newScheduler(t *testing.T, data map[string][]model.OHLCV, pairs []config.Pair) (*Scheduler, *captureSender) {
	t.Helper()
	mock := &collector.MockFetcher{Price: 100, End: end, DailyData: data}
	svc := analysis.NewService(mock, nil, 120)
	svc.Now = func() time.Time { return end }
	svc.Scanner = scanner.New(mock, nil, 2, 120)
	svc.Watchlist = []string{"MSFT", "GOOG"}

	out := &captureSender{}
	return NewScheduler(context.Background(), svc, out, pairs), out
}

func TestPairTask_AlertsOnlyOnSignal(t *testing.T) {
	s, out := newScheduler(t, pairBars(109), []config.Pair{{A: "KO", B: "PEP"}, {A: "AAA", B: "BBB"}})
	s.pairTask()
	require.Len(t, out.sent, 2)
	assert.Contains(t, out.sent[0], "Consider Short KO / Long PEP")

	quiet, out2 := newScheduler(t, pairBars(118), []config.Pair{{A: "KO", B: "PEP"}})
	quiet.pairTask()
	assert.Empty(t, out2.sent)
}

func TestScanTask_SendsReport(t *testing.T) {
	s, out := newScheduler(t, nil, nil)
	s.scanTask()
	require.Len(t, out.sent, 1)
	assert.Contains(t, out.sent[0], "<b>Scan</b>")
	assert.Contains(t, out.sent[0], "GOOG")
	assert.Contains(t, out.sent[0], "MSFT")
}

func TestRegisterAll(t *testing.T) {
	s, _ := newScheduler(t, nil, []config.Pair{{A: "KO", B: "PEP"}})
	require.NoError(t, s.RegisterAll("0 30 16 * * 1-5", "0 */15 9-16 * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 2)

	s2, _ := newScheduler(t, nil, nil)
	require.NoError(t, s2.RegisterAll("", "0 0 * * * *"))
	assert.Empty(t, s2.Cron.Entries())

	assert.Error(t, s2.RegisterAll("not a cron", ""))
}

func TestHandleCommand(t *testing.T) {
	s, _ := newScheduler(t, pairBars(109), nil)

	assert.Contains(t, s.HandleCommand("/analyze msft 1d 7"), "<b>MSFT</b>")
	assert.Contains(t, s.HandleCommand("/analyze MSFT decade"), "❌")
	assert.Contains(t, s.HandleCommand("/analyze"), "Usage: /analyze")
	assert.Contains(t, s.HandleCommand("/arb@StockBot KO PEP"), "Consider Short KO / Long PEP")
	assert.Contains(t, s.HandleCommand("/arb KO"), "Usage: /arb")
	assert.Contains(t, s.HandleCommand("/scan buy"), "filter BUY")
	assert.Contains(t, s.HandleCommand("/scan sell"), "❌")
	assert.Contains(t, s.HandleCommand("/history AAPL"), "No recorded signals for AAPL")
	assert.Contains(t, s.HandleCommand("hello"), "Available commands")
}
