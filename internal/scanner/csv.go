package scanner

import (
	"encoding/csv"
	"io"

	"github.com/shopspring/decimal"
)

var csvHeader = []string{
	"Symbol", "Current Price", "Predicted Price", "Delta %", "Signal",
	"Strike", "Expiry", "Option Type", "Delta", "IV", "Greek Score", "Signal Strength",
}

// WriteCSV writes rows in order with a header line. Missing option fields are "-".
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		strike, expiry, typ, delta, iv := "-", "-", "-", "-", "-"
		if o := r.Option; o != nil {
			strike = fixed(o.Contract.Strike)
			expiry = o.Expiry.Format("2006-01-02")
			typ = string(o.Type)
			if o.Contract.Delta != nil && *o.Contract.Delta != 0 {
				delta = fixed(*o.Contract.Delta)
			}
			if o.Contract.ImpliedVolatility != nil && *o.Contract.ImpliedVolatility != 0 {
				iv = fixed(*o.Contract.ImpliedVolatility * 100)
			}
		}
		greek := "-"
		if r.GreekScore != 0 {
			greek = fixed(r.GreekScore)
		}
		rec := []string{
			r.Symbol, fixed(r.CurrentPrice), fixed(r.PredictedPrice), fixed(r.DeltaPct), string(r.Signal),
			strike, expiry, typ, delta, iv, greek, fixed(r.Strength),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func fixed(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
