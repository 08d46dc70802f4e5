package calculator

import (
	"errors"

	"StockAnalyzer/internal/model"
)

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// TrailingSMA returns the simple moving average of the last period closes of series.
func TrailingSMA(series model.PriceSeries, period int) (float64, error) {
	return CalculateSMA(series.Closes(), period)
}
