package model

import "time"

// OptionType is CALL or PUT.
type OptionType string

const (
	OptionCall OptionType = "CALL"
	OptionPut  OptionType = "PUT"
)

// OptionContract is one listed contract. Delta and ImpliedVolatility are nil
// when the source does not quote them.
type OptionContract struct {
	ContractSymbol    string     `json:"contract_symbol"`
	Type              OptionType `json:"type"`
	Strike            float64    `json:"strike"`
	Expiry            time.Time  `json:"expiry"`
	LastPrice         float64    `json:"last_price"`
	Delta             *float64   `json:"delta,omitempty"`
	ImpliedVolatility *float64   `json:"implied_volatility,omitempty"`
}

// OptionChain holds the calls and puts of one expiry.
type OptionChain struct {
	Symbol string           `json:"symbol"`
	Expiry time.Time        `json:"expiry"`
	Calls  []OptionContract `json:"calls"`
	Puts   []OptionContract `json:"puts"`
}

// Dividend is one cash payout on its ex-date.
type Dividend struct {
	ExDate time.Time `json:"ex_date"`
	Amount float64   `json:"amount"`
}
