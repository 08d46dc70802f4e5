package model

import "errors"

var (
	// ErrInvalidInput marks input the core refuses to compute on.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInsufficientData marks input with nothing to compute on, e.g. an empty series
	// or two series without overlapping timestamps.
	ErrInsufficientData = errors.New("insufficient data")
)
