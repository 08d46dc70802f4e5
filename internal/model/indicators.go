package model

// Indicators holds technical context reported next to a forecast.
// The range covers up to 252 sessions of available closes.
type Indicators struct {
	RSI           float64 `json:"rsi_14"`
	RangeHigh     float64 `json:"range_high"`
	RangeLow      float64 `json:"range_low"`
	RangePosition float64 `json:"range_position"` // 0.0 ~ 1.0
	RangeSessions int     `json:"range_sessions"`
}
