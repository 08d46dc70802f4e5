package api

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockAnalyzer/internal/analysis"
	"StockAnalyzer/internal/cache"
	"StockAnalyzer/internal/collector"
	"StockAnalyzer/internal/model"
	"StockAnalyzer/internal/scanner"
)

var end = time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, f collector.Fetcher) (http.Handler, *cache.TTLCache) {
	t.Helper()
	svc := analysis.NewService(f, nil, 120)
	svc.Now = func() time.Time { return end }
	svc.Scanner = scanner.New(f, nil, 2, 120)
	svc.Scanner.Now = svc.Now
	svc.Watchlist = []string{"AAA", "BBB"}

	c := cache.NewTTLCache()
	h := NewHandler(svc, c, time.Minute, 10*time.Second)
	return NewServer(h, ServerConfig{CORS: true}).Handler(), c
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestAnalyzeEndpoint(t *testing.T) {
	h, c := newTestServer(t, &collector.MockFetcher{Price: 100, End: end})

	rec, env := do(t, h, http.MethodGet, "/api/v1/analyze?symbol=aapl&horizon=1d&risk=7", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusOK, env.Status)

	var res analysis.SymbolAnalysis
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "AAPL", res.Symbol)
	assert.Equal(t, 1, res.HorizonDays)
	assert.Equal(t, model.RiskCoefficient(7), res.Risk)
	assert.Equal(t, 1, c.Len())

	// second call is served from cache
	rec2, env2 := do(t, h, http.MethodGet, "/api/v1/analyze?symbol=AAPL&horizon=1d&risk=7", "")
	require.Equal(t, http.StatusOK, rec2.Code)
	assert.JSONEq(t, string(env.Data), string(env2.Data))
}

func TestAnalyzeEndpoint_Validation(t *testing.T) {
	h, _ := newTestServer(t, &collector.MockFetcher{Price: 100, End: end})

	rec, env := do(t, h, http.MethodGet, "/api/v1/analyze?risk=3", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var errs []ValidationError
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_REQUIRED", errs[0].Code)
	assert.Equal(t, "Symbol", errs[0].Field)

	for _, risk := range []string{"0", "11", "high"} {
		rec, env = do(t, h, http.MethodGet, "/api/v1/analyze?symbol=A&risk="+risk, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, risk)
		assert.Contains(t, string(env.Data), "ERR_INVALID_INPUT", risk)
	}

	// omitted risk is neutral
	rec, env = do(t, h, http.MethodGet, "/api/v1/analyze?symbol=A", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res analysis.SymbolAnalysis
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, model.RiskNeutral, res.Risk)

	rec, env = do(t, h, http.MethodGet, "/api/v1/analyze?symbol=A&horizon=decade", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var appErrs []AppError
	require.NoError(t, json.Unmarshal(env.Data, &appErrs))
	assert.Equal(t, "ERR_INVALID_INPUT", appErrs[0].Code)
}

func TestAnalyzeEndpoint_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("yahoo: %w: no bars", model.ErrInsufficientData), http.StatusUnprocessableEntity},
		{fmt.Errorf("yahoo: %w", collector.ErrCircuitOpen), http.StatusServiceUnavailable},
		{errors.New("connection refused"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		h, _ := newTestServer(t, &collector.MockFetcher{Err: tc.err})
		rec, _ := do(t, h, http.MethodGet, "/api/v1/analyze?symbol=A", "")
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
	}
}

func TestArbitrageEndpoint(t *testing.T) {
	h, _ := newTestServer(t, &collector.MockFetcher{Price: 100, End: end})

	rec, env := do(t, h, http.MethodGet, "/api/v1/arbitrage?a=KO&b=PEP", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res analysis.PairAnalysis
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "KO", res.SymbolA)
	assert.Equal(t, 120, res.Points)
	assert.NotEmpty(t, res.Alert)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/arbitrage?a=KO&b=KO", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestArbitrageEndpoint_NullCorrelation(t *testing.T) {
	flat := make([]model.OHLCV, 5)
	moving := make([]model.OHLCV, 5)
	for i := range flat {
		d := end.AddDate(0, 0, i-4)
		flat[i] = model.OHLCV{Time: d, Close: 10}
		moving[i] = model.OHLCV{Time: d, Close: 10 + float64(i)}
	}
	h, _ := newTestServer(t, &collector.MockFetcher{DailyData: map[string][]model.OHLCV{"A": moving, "B": flat}})

	rec, env := do(t, h, http.MethodGet, "/api/v1/arbitrage?a=A&b=B", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var raw map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &raw))
	assert.Contains(t, raw, "correlation")
	assert.Nil(t, raw["correlation"])
}

func TestScanEndpoint(t *testing.T) {
	h, _ := newTestServer(t, &collector.MockFetcher{Price: 100, End: end})

	rec, env := do(t, h, http.MethodPost, "/api/v1/scan", `{"symbols":["AAA","BBB","CCC"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rep scanner.Report
	require.NoError(t, json.Unmarshal(env.Data, &rep))
	assert.Len(t, rep.Rows, 3)
	assert.Equal(t, scanner.FilterAll, rep.Filter)

	rec, _ = do(t, h, http.MethodPost, "/api/v1/scan", `{"filter":"SELL"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScanEndpoint_CSV(t *testing.T) {
	h, _ := newTestServer(t, &collector.MockFetcher{Price: 100, End: end})

	rec, _ := do(t, h, http.MethodPost, "/api/v1/scan?format=csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	recs, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, recs, 3) // header plus the two watchlist symbols
	assert.Equal(t, "Symbol", recs[0][0])
}

func TestHealthAndMetrics(t *testing.T) {
	h, _ := newTestServer(t, &collector.MockFetcher{})

	rec, env := do(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","source":"mock"}`, string(env.Data))

	rec, _ = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignalsEndpoint_NoopRecorder(t *testing.T) {
	h, _ := newTestServer(t, &collector.MockFetcher{})
	rec, env := do(t, h, http.MethodGet, "/api/v1/signals?symbol=AAPL", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestSignalsEndpoint_LimitRange(t *testing.T) {
	h, _ := newTestServer(t, &collector.MockFetcher{})
	for _, limit := range []string{"0", "-3", "501", "ten"} {
		rec, _ := do(t, h, http.MethodGet, "/api/v1/signals?limit="+limit, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, limit)
	}
	rec, _ := do(t, h, http.MethodGet, "/api/v1/signals?limit=500", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestServer(t, &collector.MockFetcher{})
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/analyze", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
