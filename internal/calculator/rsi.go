package calculator

import (
	"errors"

	"StockAnalyzer/internal/model"
)

// RSIPeriod is the lookback used for the reported RSI.
const RSIPeriod = 14

// CalculateRSI computes the Wilder-smoothed RSI of closes over period.
// Requires at least period+1 closes. Returns 50.0 if data is insufficient.
func CalculateRSI(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(closes) < period+1 {
		return 50.0, nil
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50.0, nil
		}
		return 100.0, nil
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs), nil
}

// SeriesRSI returns the RSIPeriod RSI of series.
func SeriesRSI(series model.PriceSeries) (float64, error) {
	return CalculateRSI(series.Closes(), RSIPeriod)
}
