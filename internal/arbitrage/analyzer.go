// Package arbitrage computes pairs-trading statistics between two close series.
package arbitrage

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"StockAnalyzer/internal/model"
)

// ZThreshold is the absolute z-score beyond which a spread is considered stretched.
const ZThreshold = 2.0

// Analyze aligns a and b on their common timestamps and computes the spread
// a-b, the Pearson correlation of the aligned closes and the z-scored spread.
//
// Correlation is NaN when fewer than two points align or either side is flat.
// A flat spread yields an all-zero z-score with ZScoreDegenerate set.
func Analyze(a, b model.PriceSeries) (*model.ArbitrageResult, error) {
	ts, xa, xb := align(a, b)
	if len(ts) == 0 {
		return nil, fmt.Errorf("analyze %s/%s: %w: no overlapping timestamps",
			a.Symbol, b.Symbol, model.ErrInsufficientData)
	}

	spread := make([]float64, len(ts))
	for i := range ts {
		spread[i] = xa[i] - xb[i]
	}

	z, degenerate := zScores(spread)
	return &model.ArbitrageResult{
		Timestamps:       ts,
		Spread:           spread,
		Correlation:      correlation(xa, xb),
		ZScore:           z,
		ZScoreDegenerate: degenerate,
	}, nil
}

// ClassifyZ maps a z-score to a pairs signal. NaN is NONE.
func ClassifyZ(z float64) model.ZSignal {
	switch {
	case z > ZThreshold:
		return model.ZShort
	case z < -ZThreshold:
		return model.ZLong
	default:
		return model.ZNone
	}
}

// align is a two-pointer inner join on timestamps. Both series are strictly increasing.
func align(a, b model.PriceSeries) ([]time.Time, []float64, []float64) {
	n := min(a.Len(), b.Len())
	ts := make([]time.Time, 0, n)
	xa := make([]float64, 0, n)
	xb := make([]float64, 0, n)

	i, j := 0, 0
	for i < a.Len() && j < b.Len() {
		pa, pb := a.At(i), b.At(j)
		switch {
		case pa.Time.Equal(pb.Time):
			ts = append(ts, pa.Time)
			xa = append(xa, pa.Close)
			xb = append(xb, pb.Close)
			i++
			j++
		case pa.Time.Before(pb.Time):
			i++
		default:
			j++
		}
	}
	return ts, xa, xb
}

func correlation(x, y []float64) float64 {
	if len(x) < 2 || stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}

// zScores standardises spread with the sample standard deviation.
// flatSpreadTolerance is the relative sd below which a spread is constant.
const flatSpreadTolerance = 1e-9

func zScores(spread []float64) ([]float64, bool) {
	z := make([]float64, len(spread))
	if len(spread) < 2 {
		return z, true
	}
	mean, sd := stat.MeanStdDev(spread, nil)
	// rounding noise on a constant spread counts as flat
	if math.IsNaN(sd) || sd <= flatSpreadTolerance*math.Max(1, math.Abs(mean)) {
		return z, true
	}
	for i, s := range spread {
		z[i] = (s - mean) / sd
	}
	return z, false
}
