package strategy

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"StockAnalyzer/internal/calculator"
	"StockAnalyzer/internal/model"
)

const (
	// SMAWindow is the moving-average window the buy level is anchored to.
	SMAWindow = 20

	buyDiscount   = 0.98
	stopLossRatio = 0.95
	riskStep      = 0.05
)

// CalculateTradeLevels derives buy, entry and stop-loss levels from series.
// Entry is the latest close. target is accepted for callers that have one but
// does not move the levels.
func CalculateTradeLevels(series model.PriceSeries, target float64) (model.TradeLevels, error) {
	entry, ok := series.LastClose()
	if !ok {
		return model.TradeLevels{}, fmt.Errorf("trade levels: %w: empty series", model.ErrInsufficientData)
	}

	sma, err := calculator.TrailingSMA(series, SMAWindow)
	if err != nil {
		log.Warn().Err(err).Str("symbol", series.Symbol).Int("points", series.Len()).
			Msg("SMA unavailable, anchoring buy level to entry")
		sma = entry
	}

	return model.TradeLevels{
		Buy:      sma * buyDiscount,
		Entry:    entry,
		StopLoss: entry * stopLossRatio,
	}, nil
}

// AdjustLevelsForRisk widens (risk > 5) or tightens (risk < 5) the buy and
// stop-loss levels. Entry is left unchanged and risk 5 is the identity.
func AdjustLevelsForRisk(levels model.TradeLevels, risk model.RiskCoefficient) (model.TradeLevels, error) {
	if !risk.Valid() {
		return model.TradeLevels{}, fmt.Errorf("adjust levels: %w: risk %d outside [%d,%d]",
			model.ErrInvalidInput, risk, model.RiskMin, model.RiskMax)
	}
	if risk == model.RiskNeutral {
		return levels, nil
	}
	m := 1 + float64(risk-model.RiskNeutral)*riskStep
	return model.TradeLevels{
		Buy:      levels.Buy * m,
		Entry:    levels.Entry,
		StopLoss: levels.StopLoss / m,
	}, nil
}
