package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"StockAnalyzer/internal/analysis"
)

var arbitrageFormat string

var arbitrageCmd = &cobra.Command{
	Use:   "arbitrage SYMBOL_A SYMBOL_B",
	Short: "Check a pair's spread z-score",
	Long: `Align the daily closes of two symbols, compute the spread and its
z-score and report whether the latest value is stretched past ±2.

Example usage:
  analyzer arbitrage KO PEP
  analyzer arbitrage XOM CVX --format json`,
	Args: cobra.ExactArgs(2),
	RunE: runArbitrage,
}

func init() {
	arbitrageCmd.Flags().StringVar(&arbitrageFormat, "format", "text", "output format: text or json")
}

func runArbitrage(cmd *cobra.Command, args []string) error {
	if err := checkFormat(arbitrageFormat); err != nil {
		return err
	}
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.svc.AnalyzePair(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	if arbitrageFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	printPair(cmd.OutOrStdout(), res)
	return nil
}

func printPair(out io.Writer, res *analysis.PairAnalysis) {
	fmt.Fprintf(out, "%s / %s  %d aligned points\n", res.SymbolA, res.SymbolB, res.Points)
	if res.Correlation != nil {
		fmt.Fprintf(out, "Correlation: %.3f\n", *res.Correlation)
	} else {
		fmt.Fprintln(out, "Correlation: n/a")
	}
	if res.LatestZ != nil {
		fmt.Fprintf(out, "Latest z-score: %+.2f\n", *res.LatestZ)
	} else {
		fmt.Fprintln(out, "Latest z-score: n/a (flat spread)")
	}
	fmt.Fprintln(out, res.Alert)
}
