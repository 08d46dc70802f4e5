package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"StockAnalyzer/internal/analysis"
)

var (
	analyzeHorizon string
	analyzeRisk    string
	analyzeFormat  string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze SYMBOL",
	Short: "Forecast a symbol and print the fused signal",
	Long: `Forecast SYMBOL over the given horizon and print the fused signal,
trade levels scaled by risk, the projected path and optional option and
dividend views.

Example usage:
  analyzer analyze AAPL                     # one week, neutral risk
  analyzer analyze MSFT --horizon 1m --risk 8
  analyzer analyze NVDA --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeHorizon, "horizon", "", "forecast horizon: 1d, 1w, 1m, 1y or trading days (default from config)")
	analyzeCmd.Flags().StringVar(&analyzeRisk, "risk", "", "risk coefficient 1-10 (default from config)")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "text", "output format: text or json")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if err := checkFormat(analyzeFormat); err != nil {
		return err
	}
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	hs := analyzeHorizon
	if hs == "" {
		hs = a.cfg.Analysis.Horizon
	}
	horizon, err := analysis.ParseHorizon(hs)
	if err != nil {
		return err
	}
	rs := analyzeRisk
	if rs == "" {
		rs = fmt.Sprint(a.cfg.Analysis.Risk)
	}
	risk, err := analysis.ParseRisk(rs)
	if err != nil {
		return err
	}

	res, err := a.svc.AnalyzeSymbol(cmd.Context(), args[0], horizon, risk)
	if err != nil {
		return err
	}
	if analyzeFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	printAnalysis(cmd.OutOrStdout(), res)
	return nil
}

func printAnalysis(out io.Writer, res *analysis.SymbolAnalysis) {
	fmt.Fprintf(out, "%s  %d-day horizon  risk %d  as of %s\n\n",
		res.Symbol, res.HorizonDays, res.Risk, res.AsOf.Format("2006-01-02"))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Current\t%.2f\n", res.CurrentPrice)
	fmt.Fprintf(w, "Action\t%s\n", res.Signal.Action)
	fmt.Fprintf(w, "Target\t%.2f\n", res.Signal.FinalPriceTarget)
	fmt.Fprintf(w, "Confidence\t%.0f%%\n", res.Signal.Confidence*100)
	fmt.Fprintf(w, "Buy\t%.2f\n", res.Levels.Buy)
	fmt.Fprintf(w, "Entry\t%.2f\n", res.Levels.Entry)
	fmt.Fprintf(w, "Stop loss\t%.2f\n", res.Levels.StopLoss)
	fmt.Fprintf(w, "RSI(14)\t%.1f\n", res.Indicators.RSI)
	fmt.Fprintf(w, "Range\t%.2f - %.2f (%.0f%% over %d sessions)\n",
		res.Indicators.RangeLow, res.Indicators.RangeHigh, res.Indicators.RangePosition*100, res.Indicators.RangeSessions)
	fmt.Fprintf(w, "Sentiment\t%+.2f (%d headlines)\n", res.Sentiment, res.Headlines)
	if res.Option != nil {
		fmt.Fprintf(w, "Option\t%s %.2f exp %s\n", res.Option.Type, res.Option.Contract.Strike, res.Option.Expiry.Format("2006-01-02"))
	}
	if res.Dividend != nil {
		fmt.Fprintf(w, "Dividend yield\t%.2f%%\n", res.Dividend.YieldPct)
	}
	w.Flush()

	names := make([]string, 0, len(res.Models))
	for name := range res.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(out, "\nModels:")
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, name := range names {
		m := res.Models[name]
		fmt.Fprintf(w, "  %s\t%.2f\t%.2f\n", name, m.Price, m.Confidence)
	}
	w.Flush()

	if len(res.Trajectory) > 0 {
		fmt.Fprintln(out, "\nTrajectory:")
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, p := range res.Trajectory {
			fmt.Fprintf(w, "  %s\t%.2f\n", p.Date.Format("2006-01-02"), p.Price)
		}
		w.Flush()
	}

	if len(res.Signal.Reasons) > 0 {
		fmt.Fprintf(out, "\nReasons: %s\n", strings.Join(res.Signal.Reasons, "; "))
	}
	for _, n := range res.Notes {
		fmt.Fprintf(out, "Note: %s\n", n)
	}
}
