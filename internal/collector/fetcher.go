package collector

import (
	"context"
	"time"

	"StockAnalyzer/internal/model"
)

// Fetcher supplies daily close history.
type Fetcher interface {
	// FetchDailySeries returns up to days daily closes ending at the latest session.
	// An empty response is reported as model.ErrInsufficientData.
	FetchDailySeries(ctx context.Context, symbol string, days int) (model.PriceSeries, error)
	Name() string
}

// DividendSource supplies the cash dividend history of a symbol.
type DividendSource interface {
	FetchDividends(ctx context.Context, symbol string) ([]model.Dividend, error)
}

// ChainSource supplies listed option expiries and chains.
type ChainSource interface {
	Expiries(ctx context.Context, symbol string) ([]time.Time, error)
	Chain(ctx context.Context, symbol string, expiry time.Time) (*model.OptionChain, error)
}
