package model

import "time"

// ZSignal classifies a spread z-score.
type ZSignal string

const (
	// ZLong: long the first leg, short the second.
	ZLong ZSignal = "LONG_SIGNAL"
	// ZShort: short the first leg, long the second.
	ZShort ZSignal = "SHORT_SIGNAL"
	ZNone  ZSignal = "NONE"
)

// ArbitrageResult holds the aligned spread statistics of two series.
type ArbitrageResult struct {
	Timestamps []time.Time `json:"timestamps"`
	Spread     []float64   `json:"spread"`
	// Correlation is NaN when either aligned series has zero variance or fewer than two points.
	Correlation float64   `json:"correlation"`
	ZScore      []float64 `json:"z_score"`
	// ZScoreDegenerate is set when the spread has no variance; ZScore is then all zeros.
	ZScoreDegenerate bool `json:"z_score_degenerate"`
}

// LatestZ returns the last z-score. ok is false for an empty result.
func (r *ArbitrageResult) LatestZ() (float64, bool) {
	if r == nil || len(r.ZScore) == 0 {
		return 0, false
	}
	return r.ZScore[len(r.ZScore)-1], true
}
