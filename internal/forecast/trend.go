package forecast

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"StockAnalyzer/internal/model"
)

// Trend is a least-squares line over the time index plus a boosted residual model.
type Trend struct {
	Intercept float64
	Slope     float64
	// R2 is the in-sample fit of line plus residual model.
	R2 float64

	n     int
	resid *GradientBoosting
}

// FitTrend fits a Trend over the whole series. It needs MinHistory points.
func FitTrend(series model.PriceSeries) (*Trend, error) {
	n := series.Len()
	if n < MinHistory {
		return nil, fmt.Errorf("fit trend: %w: %d points, need %d", model.ErrInsufficientData, n, MinHistory)
	}
	closes := series.Closes()
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	alpha, beta := stat.LinearRegression(xs, closes, nil, false)

	X := make([][]float64, n)
	r := make([]float64, n)
	for i := range xs {
		X[i] = []float64{xs[i]}
		r[i] = closes[i] - (alpha + beta*xs[i])
	}
	gb := NewGradientBoosting()
	if err := gb.Fit(X, r); err != nil {
		return nil, fmt.Errorf("fit trend residuals: %w", err)
	}

	t := &Trend{Intercept: alpha, Slope: beta, n: n, resid: gb}
	fitted := make([]float64, n)
	for i := range xs {
		fitted[i] = t.At(i)
	}
	t.R2 = clamp01(rSquared(closes, fitted))
	return t, nil
}

// At evaluates the trend at time index i. Indices past the history continue the
// line; the residual model holds its right-most value there.
func (t *Trend) At(i int) float64 {
	x := float64(i)
	return t.Intercept + t.Slope*x + t.resid.Predict([]float64{x})
}

// ForecastPrices returns days business-day spaced forecasts after the last
// timestamp of series, all taken from one trend fit. With less than MinHistory
// points it repeats the last close.
func ForecastPrices(series model.PriceSeries, days int) []model.ForecastPoint {
	out, _ := ForecastWithTrend(series, days)
	return out
}

// ForecastWithTrend is ForecastPrices that also returns the fitted trend, or
// nil when nothing was fitted (short series or days <= 0).
func ForecastWithTrend(series model.PriceSeries, days int) ([]model.ForecastPoint, *Trend) {
	lastPoint, ok := series.Last()
	if !ok || days <= 0 {
		return []model.ForecastPoint{}, nil
	}
	trend, err := FitTrend(series)
	if err != nil {
		trend = nil
	}
	dates := BusinessDaysAfter(lastPoint.Time, days)
	out := make([]model.ForecastPoint, days)
	if trend == nil {
		for i := range out {
			out[i] = model.ForecastPoint{Date: dates[i], Price: lastPoint.Close}
		}
		return out, nil
	}
	return trend.Forecast(series.Len(), dates), trend
}

// Forecast evaluates the trend on dates, which continue a history of n points.
func (t *Trend) Forecast(n int, dates []time.Time) []model.ForecastPoint {
	out := make([]model.ForecastPoint, len(dates))
	for i, d := range dates {
		out[i] = model.ForecastPoint{Date: d, Price: t.At(n + i)}
	}
	return out
}

// BusinessDaysAfter returns the next n weekdays strictly after t, at t's time of day.
func BusinessDaysAfter(t time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	d := t
	for len(out) < n {
		d = d.AddDate(0, 0, 1)
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		out = append(out, d)
	}
	return out
}
