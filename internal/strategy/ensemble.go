package strategy

import (
	"fmt"
	"math"

	"StockAnalyzer/internal/model"
)

const (
	// SentimentWeight scales the sentiment score into a price multiplier.
	SentimentWeight = 0.05
	// ActionThreshold is the fraction of the base price the fused target must move to leave HOLD.
	ActionThreshold = 0.03
)

// mapAction maps the fused delta against the base price to an action.
func mapAction(delta, base float64) model.Action {
	switch {
	case delta > base*ActionThreshold:
		return model.ActionBuy
	case delta < -base*ActionThreshold:
		return model.ActionSell
	default:
		return model.ActionHold
	}
}

// GenerateFinalSignal fuses the model outputs and a sentiment score in [-1,1]
// into one price target and action.
//
// The target is the confidence-weighted mean price scaled by the sentiment
// factor. The reported confidence is the plain mean of the model confidences.
func GenerateFinalSignal(outputs model.ModelForecast, sentiment float64) (*model.FusedSignal, error) {
	if outputs.Len() == 0 {
		return nil, fmt.Errorf("generate signal: %w: no model outputs", model.ErrInvalidInput)
	}
	if math.IsNaN(sentiment) || sentiment < -1 || sentiment > 1 {
		return nil, fmt.Errorf("generate signal: %w: sentiment %v outside [-1,1]", model.ErrInvalidInput, sentiment)
	}

	var totalWeight, weightedSum float64
	for _, id := range outputs.IDs() {
		o, _ := outputs.Get(id)
		totalWeight += o.Confidence
		weightedSum += o.Price * o.Confidence
	}
	if totalWeight <= 0 {
		return nil, fmt.Errorf("generate signal: %w: total confidence is zero", model.ErrInvalidInput)
	}

	weighted := weightedSum / totalWeight
	adjusted := weighted * (1 + sentiment*SentimentWeight)

	baseID := outputs.Base()
	base, ok := outputs.Get(baseID)
	if !ok {
		return nil, fmt.Errorf("generate signal: %w: base model %q missing", model.ErrInvalidInput, baseID)
	}
	delta := adjusted - base.Price

	return &model.FusedSignal{
		FinalPriceTarget: adjusted,
		Action:           mapAction(delta, base.Price),
		Confidence:       totalWeight / float64(outputs.Len()),
		Reasons: []string{
			fmt.Sprintf("Model avg target: $%.2f", weighted),
			fmt.Sprintf("Sentiment factor applied: %+.2f", sentiment),
			fmt.Sprintf("Delta from base (%s): $%.2f", baseID, delta),
		},
	}, nil
}
