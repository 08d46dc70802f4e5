// Package dividend projects an annual dividend yield from payout history.
package dividend

import (
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"StockAnalyzer/internal/model"
)

// Window is the number of calendar months averaged into the estimate.
const Window = 12

// Estimate is a forward dividend projection.
type Estimate struct {
	YieldPct       float64   `json:"yield_pct"`
	AnnualDividend float64   `json:"annual_dividend"`
	RecentDividend float64   `json:"recent_dividend"`
	LastExDate     time.Time `json:"last_ex_date"`
}

// Project sums payouts per calendar month, averages the last Window months
// ending at the latest payout and annualises the mean against price.
// Payouts after now are ignored. ok is false without payouts or a positive price.
func Project(payouts []model.Dividend, price float64, now time.Time) (Estimate, bool) {
	if price <= 0 {
		return Estimate{}, false
	}
	var paid []model.Dividend
	for _, p := range payouts {
		if !p.ExDate.After(now) {
			paid = append(paid, p)
		}
	}
	if len(paid) == 0 {
		return Estimate{}, false
	}

	first, last := paid[0], paid[0]
	for _, p := range paid[1:] {
		if p.ExDate.Before(first.ExDate) {
			first = p
		}
		if !p.ExDate.Before(last.ExDate) {
			last = p
		}
	}

	lastMonth := monthIndex(last.ExDate)
	startMonth := max(monthIndex(first.ExDate), lastMonth-Window+1)
	monthly := make([]float64, lastMonth-startMonth+1)
	for _, p := range paid {
		if m := monthIndex(p.ExDate); m >= startMonth {
			monthly[m-startMonth] += p.Amount
		}
	}

	annual := stat.Mean(monthly, nil) * 12
	return Estimate{
		YieldPct:       round2(annual / price * 100),
		AnnualDividend: round2(annual),
		RecentDividend: round2(last.Amount),
		LastExDate:     last.ExDate,
	}, true
}

func monthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
