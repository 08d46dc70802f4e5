package model

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// ModelOutput is one model's price estimate with its self-reported confidence.
type ModelOutput struct {
	Price      float64 `json:"price"`
	Confidence float64 `json:"confidence"`
}

// ModelForecast is a validated set of named model outputs with one designated base model.
type ModelForecast struct {
	base    string
	outputs map[string]ModelOutput
}

// NewModelForecast validates outputs and copies them into a ModelForecast.
func NewModelForecast(base string, outputs map[string]ModelOutput) (ModelForecast, error) {
	if len(outputs) == 0 {
		return ModelForecast{}, fmt.Errorf("%w: no model outputs", ErrInvalidInput)
	}
	if _, ok := outputs[base]; !ok {
		return ModelForecast{}, fmt.Errorf("%w: base model %q not in outputs", ErrInvalidInput, base)
	}
	cp := make(map[string]ModelOutput, len(outputs))
	total := 0.0
	for id, o := range outputs {
		if id == "" {
			return ModelForecast{}, fmt.Errorf("%w: empty model id", ErrInvalidInput)
		}
		if math.IsNaN(o.Price) || math.IsInf(o.Price, 0) || o.Price <= 0 {
			return ModelForecast{}, fmt.Errorf("%w: model %q price %v", ErrInvalidInput, id, o.Price)
		}
		if math.IsNaN(o.Confidence) || o.Confidence < 0 || o.Confidence > 1 {
			return ModelForecast{}, fmt.Errorf("%w: model %q confidence %v outside [0,1]", ErrInvalidInput, id, o.Confidence)
		}
		total += o.Confidence
		cp[id] = o
	}
	if total <= 0 {
		return ModelForecast{}, fmt.Errorf("%w: total confidence is zero", ErrInvalidInput)
	}
	return ModelForecast{base: base, outputs: cp}, nil
}

// Base returns the base model id.
func (f ModelForecast) Base() string { return f.base }

// Len returns the number of models.
func (f ModelForecast) Len() int { return len(f.outputs) }

// Get returns the output of model id.
func (f ModelForecast) Get(id string) (ModelOutput, bool) {
	o, ok := f.outputs[id]
	return o, ok
}

// IDs returns the model ids in sorted order.
func (f ModelForecast) IDs() []string {
	ids := make([]string, 0, len(f.outputs))
	for id := range f.outputs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Prediction is the regression forecaster's output.
type Prediction struct {
	Price      float64 `json:"price"`
	Confidence float64 `json:"confidence"`
	// Fallback is set when history was too short to fit and Price is the last close.
	Fallback bool `json:"fallback"`
}

// ForecastPoint is one step of a forward trajectory.
type ForecastPoint struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}
