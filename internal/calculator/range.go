package calculator

import (
	"errors"
	"math"

	"StockAnalyzer/internal/model"
)

// YearSessions is the trading-day span of a 52-week range.
const YearSessions = 252

// TrailingRange returns the highest and lowest close over the last window
// sessions of series, or over all of it when shorter.
func TrailingRange(series model.PriceSeries, window int) (high, low float64, err error) {
	if series.Len() == 0 {
		return 0, 0, errors.New("empty series")
	}
	if window <= 0 {
		return 0, 0, errors.New("window must be positive")
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	tail := series.Tail(window)
	for i := 0; i < tail.Len(); i++ {
		c := tail.At(i).Close
		high = math.Max(high, c)
		low = math.Min(low, c)
	}
	return high, low, nil
}

// RangePosition returns where current sits within [low, high], clamped to 0..1.
// A flat range reports the midpoint.
func RangePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	return math.Min(1, math.Max(0, pos)), nil
}

// ComputeIndicators summarises momentum and range context for series.
func ComputeIndicators(series model.PriceSeries) (model.Indicators, error) {
	current, ok := series.LastClose()
	if !ok {
		return model.Indicators{}, errors.New("empty series")
	}
	rsi, err := SeriesRSI(series)
	if err != nil {
		return model.Indicators{}, err
	}
	high, low, err := TrailingRange(series, YearSessions)
	if err != nil {
		return model.Indicators{}, err
	}
	pos, err := RangePosition(current, high, low)
	if err != nil {
		return model.Indicators{}, err
	}
	return model.Indicators{
		RSI:           rsi,
		RangeHigh:     high,
		RangeLow:      low,
		RangePosition: pos,
		RangeSessions: min(series.Len(), YearSessions),
	}, nil
}
