package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"StockAnalyzer/internal/scanner"
)

var (
	scanFilter string
	scanCSV    string
	scanFormat string
)

var scanCmd = &cobra.Command{
	Use:   "scan [SYMBOL...]",
	Short: "Rank symbols by forecast strength",
	Long: `Forecast every symbol (or the configured watchlist when none are given)
concurrently and rank them by signal strength.

Example usage:
  analyzer scan                          # scan the watchlist
  analyzer scan AAPL MSFT NVDA --filter BUY
  analyzer scan --csv scan.csv`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanFilter, "filter", "", "ALL, BUY or WATCH (default from config)")
	scanCmd.Flags().StringVar(&scanCSV, "csv", "", "also write rows to this CSV file")
	scanCmd.Flags().StringVar(&scanFormat, "format", "text", "output format: text or json")
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := checkFormat(scanFormat); err != nil {
		return err
	}
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	fs := scanFilter
	if fs == "" {
		fs = a.cfg.Analysis.ScanFilter
	}
	filter, err := scanner.ParseFilter(fs)
	if err != nil {
		return err
	}

	rep, err := a.svc.Scan(cmd.Context(), args, filter)
	if err != nil {
		return err
	}

	if scanCSV != "" {
		if err := writeCSVFile(scanCSV, rep.Rows); err != nil {
			return err
		}
	}
	if scanFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), rep)
	}
	printScan(cmd.OutOrStdout(), rep)
	return nil
}

func writeCSVFile(path string, rows []scanner.Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	if err := scanner.WriteCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printScan(out io.Writer, rep *scanner.Report) {
	fmt.Fprintf(out, "Scan %s  filter %s  %d rows  %d skipped  took %s\n\n",
		rep.RunID, rep.Filter, len(rep.Rows), len(rep.Skipped), rep.FinishedAt.Sub(rep.StartedAt).Round(time.Millisecond))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSYMBOL\tPRICE\tTARGET\tDELTA%\tSIGNAL\tOPTION\tSTRENGTH")
	for i, r := range rep.Rows {
		opt := "-"
		if r.Option != nil {
			opt = fmt.Sprintf("%s %.2f %s", r.Option.Type, r.Option.Contract.Strike, r.Option.Expiry.Format("2006-01-02"))
		}
		fmt.Fprintf(w, "%d\t%s\t%.2f\t%.2f\t%+.2f\t%s\t%s\t%.2f\n",
			i+1, r.Symbol, r.CurrentPrice, r.PredictedPrice, r.DeltaPct, r.Signal, opt, r.Strength)
	}
	w.Flush()

	for _, s := range rep.Skipped {
		fmt.Fprintf(out, "skipped %s (%s): %s\n", s.Symbol, s.Kind, s.Reason)
	}
}
