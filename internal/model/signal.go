package model

// Action is the fused recommendation.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// FusedSignal is the ensemble fusion result.
type FusedSignal struct {
	FinalPriceTarget float64  `json:"final_price_target"`
	Action           Action   `json:"action"`
	Confidence       float64  `json:"confidence"`
	Reasons          []string `json:"reasons"`
}

// TradeLevels holds derived price levels. Entry is always the latest close.
type TradeLevels struct {
	Buy      float64 `json:"buy"`
	Entry    float64 `json:"entry"`
	StopLoss float64 `json:"stop_loss"`
}

// RiskCoefficient is a user dial from 1 (tight) to 10 (wide). 5 is neutral.
type RiskCoefficient int

const (
	RiskMin     RiskCoefficient = 1
	RiskNeutral RiskCoefficient = 5
	RiskMax     RiskCoefficient = 10
)

// Valid reports whether r is within [1,10].
func (r RiskCoefficient) Valid() bool { return r >= RiskMin && r <= RiskMax }
