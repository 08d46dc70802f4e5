package recorder

import (
	"time"

	"StockAnalyzer/internal/scanner"
)

// SignalEvent holds one single-symbol analysis.
type SignalEvent struct {
	Symbol       string    `json:"symbol"`
	HorizonDays  int       `json:"horizon_days"`
	Risk         int       `json:"risk"`
	CurrentPrice float64   `json:"current_price"`
	TargetPrice  float64   `json:"target_price"`
	Action       string    `json:"action"` // "BUY", "SELL" or "HOLD"
	Confidence   float64   `json:"confidence"`
	Sentiment    float64   `json:"sentiment"`
	Entry        float64   `json:"entry"`
	StopLoss     float64   `json:"stop_loss"`
	TakeProfit   float64   `json:"take_profit"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// ArbitrageEvent holds one pair check. Correlation and ZScore are nil when
// undefined.
type ArbitrageEvent struct {
	SymbolA     string
	SymbolB     string
	Points      int
	Correlation *float64
	ZScore      *float64
	Signal      string
	RecordedAt  time.Time
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordSignal(evt *SignalEvent) error
	RecordArbitrage(evt *ArbitrageEvent) error
	RecordScan(rep *scanner.Report) error
	RecentSignals(symbol string, limit int) ([]SignalEvent, error)
	Close() error
}
