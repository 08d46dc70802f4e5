package model

import (
	"fmt"
	"math"
	"time"
)

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PricePoint is one close observation.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Close float64   `json:"close"`
}

// PriceSeries is a chronologically ordered, immutable close series for one symbol.
// Timestamps are strictly increasing and closes are finite.
type PriceSeries struct {
	Symbol string
	points []PricePoint
}

// NewPriceSeries validates and copies points into a PriceSeries.
func NewPriceSeries(symbol string, points []PricePoint) (PriceSeries, error) {
	cp := make([]PricePoint, len(points))
	for i, p := range points {
		if math.IsNaN(p.Close) || math.IsInf(p.Close, 0) {
			return PriceSeries{}, fmt.Errorf("%w: non-finite close at index %d", ErrInvalidInput, i)
		}
		if i > 0 && !p.Time.After(points[i-1].Time) {
			return PriceSeries{}, fmt.Errorf("%w: timestamps not strictly increasing at index %d", ErrInvalidInput, i)
		}
		cp[i] = p
	}
	return PriceSeries{Symbol: symbol, points: cp}, nil
}

// SeriesFromBars builds a close series from bars, skipping bars with a zero close.
func SeriesFromBars(symbol string, bars []OHLCV) (PriceSeries, error) {
	points := make([]PricePoint, 0, len(bars))
	for _, b := range bars {
		if b.Close == 0 {
			continue
		}
		points = append(points, PricePoint{Time: b.Time, Close: b.Close})
	}
	return NewPriceSeries(symbol, points)
}

// Len returns the number of points.
func (s PriceSeries) Len() int { return len(s.points) }

// At returns the i-th point.
func (s PriceSeries) At(i int) PricePoint { return s.points[i] }

// Points returns a copy of the underlying points.
func (s PriceSeries) Points() []PricePoint {
	cp := make([]PricePoint, len(s.points))
	copy(cp, s.points)
	return cp
}

// Closes returns the close prices in order.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.points))
	for i, p := range s.points {
		closes[i] = p.Close
	}
	return closes
}

// Last returns the latest point. ok is false for an empty series.
func (s PriceSeries) Last() (p PricePoint, ok bool) {
	if len(s.points) == 0 {
		return PricePoint{}, false
	}
	return s.points[len(s.points)-1], true
}

// LastClose returns the latest close. ok is false for an empty series.
func (s PriceSeries) LastClose() (float64, bool) {
	p, ok := s.Last()
	return p.Close, ok
}

// Tail returns a series holding the last n points (or all of them).
func (s PriceSeries) Tail(n int) PriceSeries {
	if n >= len(s.points) {
		return s
	}
	if n < 0 {
		n = 0
	}
	return PriceSeries{Symbol: s.Symbol, points: s.points[len(s.points)-n:]}
}
