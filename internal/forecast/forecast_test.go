package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockAnalyzer/internal/model"
)

// friday so that the first forecast step has to skip a weekend
var start = time.Date(2024, 1, 5, 21, 0, 0, 0, time.UTC)

func dailySeries(t *testing.T, closes []float64) model.PriceSeries {
	t.Helper()
	pts := make([]model.PricePoint, len(closes))
	for i, c := range closes {
		pts[i] = model.PricePoint{Time: start.AddDate(0, 0, i-len(closes)+1), Close: c}
	}
	s, err := model.NewPriceSeries("TEST", pts)
	require.NoError(t, err)
	return s
}

func wave(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 0.3*float64(i) + 4*math.Sin(float64(i)/3)
	}
	return out
}

func TestPredictPrice_ShortSeriesFallsBack(t *testing.T) {
	s := dailySeries(t, []float64{10, 11, 12, 13, 12, 14})
	p, err := PredictPrice(s, 5)
	require.NoError(t, err)
	assert.Equal(t, 14.0, p.Price)
	assert.Equal(t, 0.5, p.Confidence)
	assert.True(t, p.Fallback)
}

func TestPredictPrice_HorizonTooLongForHistory(t *testing.T) {
	// 40 points with horizon 25 leaves 6 samples
	s := dailySeries(t, wave(40))
	p, err := PredictPrice(s, 25)
	require.NoError(t, err)
	assert.True(t, p.Fallback)
	assert.Equal(t, 0.5, p.Confidence)
}

func TestPredictPrice_EmptySeries(t *testing.T) {
	_, err := PredictPrice(dailySeries(t, nil), 1)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func TestPredictPrice_Fit(t *testing.T) {
	s := dailySeries(t, wave(120))
	p, err := PredictPrice(s, 5)
	require.NoError(t, err)

	assert.False(t, p.Fallback)
	assert.GreaterOrEqual(t, p.Confidence, 0.0)
	assert.LessOrEqual(t, p.Confidence, 1.0)
	assert.Greater(t, p.Confidence, 0.5, "in-sample fit of a smooth wave should be high")
	last, _ := s.LastClose()
	assert.InEpsilon(t, last, p.Price, 0.2)
}

func TestPredictPrice_Deterministic(t *testing.T) {
	s := dailySeries(t, wave(90))
	first, err := PredictPrice(s, 3)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		p, err := PredictPrice(s, 3)
		require.NoError(t, err)
		assert.Equal(t, first, p)
	}
}

func TestPredictPrice_NonPositiveClosesFallBack(t *testing.T) {
	closes := wave(60)
	closes[10] = 0
	p, err := PredictPrice(dailySeries(t, closes), 1)
	require.NoError(t, err)
	assert.True(t, p.Fallback)
}

func TestGradientBoosting_FitsStep(t *testing.T) {
	X := make([][]float64, 40)
	y := make([]float64, 40)
	for i := range X {
		X[i] = []float64{float64(i)}
		if i >= 20 {
			y[i] = 10
		}
	}
	gb := NewGradientBoosting()
	require.NoError(t, gb.Fit(X, y))
	assert.InDelta(t, 0, gb.Predict([]float64{3}), 0.05)
	assert.InDelta(t, 10, gb.Predict([]float64{35}), 0.05)
}

func TestGradientBoosting_RejectsBadShapes(t *testing.T) {
	gb := NewGradientBoosting()
	assert.Error(t, gb.Fit(nil, nil))
	assert.Error(t, gb.Fit([][]float64{{1}, {2, 3}}, []float64{1, 2}))
	assert.Error(t, gb.Fit([][]float64{{1}}, []float64{1, 2}))
}

func TestForecastPrices_ShortSeriesRepeatsLastClose(t *testing.T) {
	s := dailySeries(t, []float64{3, 4, 5})
	out := ForecastPrices(s, 4)
	require.Len(t, out, 4)
	for _, p := range out {
		assert.Equal(t, 5.0, p.Price)
	}
}

func TestForecastPrices_BusinessDays(t *testing.T) {
	out := ForecastPrices(dailySeries(t, wave(60)), 6)
	require.Len(t, out, 6)

	want := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Monday}
	for i, p := range out {
		assert.Equal(t, want[i], p.Date.Weekday(), "step %d", i)
		assert.True(t, p.Date.After(start))
		assert.False(t, math.IsNaN(p.Price))
	}
}

func TestForecastPrices_NonPositiveDays(t *testing.T) {
	s := dailySeries(t, wave(60))
	assert.Empty(t, ForecastPrices(s, 0))
	assert.Empty(t, ForecastPrices(s, -3))
}

func TestFitTrend(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 20 + 2*float64(i)
	}
	tr, err := FitTrend(dailySeries(t, closes))
	require.NoError(t, err)
	assert.InDelta(t, 2, tr.Slope, 1e-9)
	assert.InDelta(t, 20, tr.Intercept, 1e-9)
	assert.InDelta(t, 1, tr.R2, 1e-9)
	assert.InDelta(t, 120, tr.At(50), 1e-6)

	_, err = FitTrend(dailySeries(t, closes[:10]))
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func TestForecastWithTrend(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 20 + 2*float64(i)
	}
	out, tr := ForecastWithTrend(dailySeries(t, closes), 3)
	require.NotNil(t, tr)
	require.Len(t, out, 3)
	for i, p := range out {
		assert.InDelta(t, tr.At(50+i), p.Price, 1e-12)
	}
	assert.InDelta(t, 120, out[0].Price, 1e-6)

	short, tr := ForecastWithTrend(dailySeries(t, closes[:10]), 3)
	assert.Nil(t, tr)
	require.Len(t, short, 3)
	assert.Equal(t, 38.0, short[2].Price)
}

func TestBusinessDaysAfter(t *testing.T) {
	sat := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	days := BusinessDaysAfter(sat, 2)
	require.Len(t, days, 2)
	assert.Equal(t, time.Monday, days[0].Weekday())
	assert.Equal(t, time.Tuesday, days[1].Weekday())
}
