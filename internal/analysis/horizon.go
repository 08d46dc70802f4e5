package analysis

import (
	"fmt"
	"strconv"
	"strings"

	"StockAnalyzer/internal/model"
)

// MaxHorizon is the longest horizon accepted, one trading year.
const MaxHorizon = 252

var horizonPresets = map[string]int{
	"1d": 1, "day": 1,
	"1w": 5, "week": 5,
	"1m": 22, "month": 22,
	"1y": 252, "year": 252,
}

// ParseHorizon accepts a preset (1d, 1w, 1m, 1y or day, week, month, year)
// or a plain number of sessions in [1, MaxHorizon].
func ParseHorizon(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if d, ok := horizonPresets[s]; ok {
		return d, nil
	}
	d, err := strconv.Atoi(s)
	if err != nil || d < 1 || d > MaxHorizon {
		return 0, fmt.Errorf("%w: horizon %q is not 1d, 1w, 1m, 1y or 1..%d sessions", model.ErrInvalidInput, s, MaxHorizon)
	}
	return d, nil
}

// ParseRisk parses a risk coefficient in [1,10]. Empty is neutral.
func ParseRisk(s string) (model.RiskCoefficient, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.RiskNeutral, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || !model.RiskCoefficient(v).Valid() {
		return 0, fmt.Errorf("%w: risk %q outside [%d,%d]", model.ErrInvalidInput, s, model.RiskMin, model.RiskMax)
	}
	return model.RiskCoefficient(v), nil
}
