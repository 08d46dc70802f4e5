// Package options picks a single option contract to express a price view.
package options

import (
	"context"
	"fmt"
	"math"
	"time"

	"StockAnalyzer/internal/collector"
	"StockAnalyzer/internal/model"
)

// Suggestion is the contract picked for a directional view.
type Suggestion struct {
	Symbol     string               `json:"symbol"`
	Type       model.OptionType     `json:"type"`
	Expiry     time.Time            `json:"expiry"`
	Contract   model.OptionContract `json:"contract"`
	GreekScore float64              `json:"greek_score"`
}

// Bias returns CALL when target is above current, PUT otherwise.
func Bias(current, target float64) model.OptionType {
	if target > current {
		return model.OptionCall
	}
	return model.OptionPut
}

// SelectExpiry returns the first expiry strictly after now+horizonDays, or the
// first listed expiry when none is that far out. ok is false for an empty list.
func SelectExpiry(expiries []time.Time, now time.Time, horizonDays int) (time.Time, bool) {
	if len(expiries) == 0 {
		return time.Time{}, false
	}
	cutoff := dateOf(now).AddDate(0, 0, horizonDays)
	for _, e := range expiries {
		if dateOf(e).After(cutoff) {
			return e, true
		}
	}
	return expiries[0], true
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SelectContract picks the lowest call strike at or above target, or the highest
// put strike at or below it.
func SelectContract(chain *model.OptionChain, bias model.OptionType, target float64) (model.OptionContract, bool) {
	if chain == nil {
		return model.OptionContract{}, false
	}
	var best model.OptionContract
	found := false
	if bias == model.OptionCall {
		for _, c := range chain.Calls {
			if c.Strike >= target && (!found || c.Strike < best.Strike) {
				best, found = c, true
			}
		}
		return best, found
	}
	for _, c := range chain.Puts {
		if c.Strike <= target && (!found || c.Strike > best.Strike) {
			best, found = c, true
		}
	}
	return best, found
}

// GreekScore rewards a delta near 0.5 and penalises implied volatility (capped
// at 1). Contracts without a quoted delta or IV score 0.
func GreekScore(c model.OptionContract) float64 {
	if c.Delta == nil || c.ImpliedVolatility == nil || *c.Delta == 0 || *c.ImpliedVolatility == 0 {
		return 0
	}
	deltaScore := 1 - math.Abs(0.5-*c.Delta)*2
	ivPenalty := math.Min(*c.ImpliedVolatility, 1)
	return deltaScore*0.7 - ivPenalty*0.3
}

// Suggest looks up the chain for symbol and returns the contract matching the
// view from current to target over horizonDays. A nil suggestion with a nil
// error means no contract fits.
func Suggest(ctx context.Context, source collector.ChainSource, symbol string, current, target float64, horizonDays int, now time.Time) (*Suggestion, error) {
	expiries, err := source.Expiries(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("option expiries %s: %w", symbol, err)
	}
	expiry, ok := SelectExpiry(expiries, now, horizonDays)
	if !ok {
		return nil, nil
	}
	chain, err := source.Chain(ctx, symbol, expiry)
	if err != nil {
		return nil, fmt.Errorf("option chain %s %s: %w", symbol, expiry.Format("2006-01-02"), err)
	}

	bias := Bias(current, target)
	contract, ok := SelectContract(chain, bias, target)
	if !ok {
		return nil, nil
	}
	return &Suggestion{
		Symbol:     symbol,
		Type:       bias,
		Expiry:     expiry,
		Contract:   contract,
		GreekScore: GreekScore(contract),
	}, nil
}
