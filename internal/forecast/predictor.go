// Package forecast fits short-horizon regressors over a close series.
//
// Confidence values reported here are in-sample fit scores (coefficient of
// determination against the training set). They are optimistic by construction
// and say nothing about out-of-sample accuracy.
package forecast

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"StockAnalyzer/internal/model"
)

const (
	// MinHistory is the minimum number of closes needed to fit any model.
	MinHistory = 30
	// Lookback is the feature window width of the price regressor.
	Lookback = 10

	minTrainingSamples = 10
	fallbackConfidence = 0.5
)

// PredictPrice forecasts the close horizon steps past the end of series.
//
// Each training sample takes one Lookback window of closes, normalised to the
// window's last close, and is labelled with the relative change to the close
// horizon steps later. With too little history it returns the last close with
// confidence 0.5 and Fallback set. Only an empty series is an error.
func PredictPrice(series model.PriceSeries, horizon int) (model.Prediction, error) {
	last, ok := series.LastClose()
	if !ok {
		return model.Prediction{}, fmt.Errorf("predict price: %w: empty series", model.ErrInsufficientData)
	}
	if horizon < 1 {
		horizon = 1
	}
	fallback := model.Prediction{Price: last, Confidence: fallbackConfidence, Fallback: true}

	closes := series.Closes()
	n := len(closes)
	samples := n - Lookback - horizon + 1
	if n < MinHistory || samples < minTrainingSamples {
		log.Debug().Str("symbol", series.Symbol).Int("points", n).Int("horizon", horizon).
			Msg("history too short for regression, using last close")
		return fallback, nil
	}

	for _, c := range closes {
		if c <= 0 {
			log.Warn().Str("symbol", series.Symbol).Msg("non-positive close in history, using last close")
			return fallback, nil
		}
	}

	X := make([][]float64, samples)
	y := make([]float64, samples)
	anchors := make([]float64, samples)
	actual := make([]float64, samples)
	for i := 0; i < samples; i++ {
		anchor := closes[i+Lookback-1]
		X[i] = windowFeatures(closes[i:i+Lookback], anchor)
		anchors[i] = anchor
		actual[i] = closes[i+Lookback-1+horizon]
		y[i] = actual[i]/anchor - 1
	}

	gb := NewGradientBoosting()
	if err := gb.Fit(X, y); err != nil {
		log.Warn().Err(err).Str("symbol", series.Symbol).Msg("regression fit failed, using last close")
		return fallback, nil
	}

	fitted := make([]float64, samples)
	for i := range X {
		fitted[i] = anchors[i] * (1 + gb.Predict(X[i]))
	}
	conf := clamp01(rSquared(actual, fitted))

	change := gb.Predict(windowFeatures(closes[n-Lookback:], last))
	return model.Prediction{Price: last * (1 + change), Confidence: conf}, nil
}

func windowFeatures(window []float64, anchor float64) []float64 {
	f := make([]float64, len(window))
	for i, c := range window {
		f[i] = c/anchor - 1
	}
	return f
}

func clamp01(v float64) float64 {
	switch {
	case v != v:
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
