package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"StockAnalyzer/internal/analysis"
	"StockAnalyzer/internal/model"
	"StockAnalyzer/internal/recorder"
	"StockAnalyzer/internal/scanner"
)

// FormatAnalysis formats a single-symbol analysis into a Telegram message.
func FormatAnalysis(a *analysis.SymbolAnalysis) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 <b>%s</b> | %d-session outlook | %s\n\n",
		html.EscapeString(a.Symbol), a.HorizonDays, a.AsOf.Format("2006-01-02"))
	fmt.Fprintf(&b, "Current price: %.2f\n", a.CurrentPrice)
	fmt.Fprintf(&b, "%s <b>%s</b> → target %.2f (%+.2f%%)\n",
		actionIcon(a.Signal.Action), a.Signal.Action, a.Signal.FinalPriceTarget,
		pctChange(a.CurrentPrice, a.Signal.FinalPriceTarget))
	fmt.Fprintf(&b, "Confidence: %.0f%% | Sentiment: %+.2f (%d headlines)\n\n",
		a.Signal.Confidence*100, a.Sentiment, a.Headlines)

	b.WriteString("🎯 <b>Levels</b>")
	if a.Risk != model.RiskNeutral {
		fmt.Fprintf(&b, " (risk %d)", a.Risk)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Buy: %.2f | Entry: %.2f | Stop: %.2f\n", a.Levels.Buy, a.Levels.Entry, a.Levels.StopLoss)
	if ind := a.Indicators; ind.RangeSessions > 0 {
		fmt.Fprintf(&b, "  RSI(14): %.1f | Range %.2f–%.2f (%.0f%%, %d sessions)\n",
			ind.RSI, ind.RangeLow, ind.RangeHigh, ind.RangePosition*100, ind.RangeSessions)
	}

	if a.Option != nil {
		c := a.Option.Contract
		fmt.Fprintf(&b, "\n🧾 <b>Option</b>: %s %.2f exp %s", a.Option.Type, c.Strike, a.Option.Expiry.Format("2006-01-02"))
		if c.Delta != nil && c.ImpliedVolatility != nil {
			fmt.Fprintf(&b, " | Δ %.2f IV %.0f%% | greek %.2f", *c.Delta, *c.ImpliedVolatility*100, a.Option.GreekScore)
		}
		b.WriteString("\n")
	}
	if a.Dividend != nil {
		fmt.Fprintf(&b, "💵 Dividend yield: %.2f%% (%.2f/yr, last %.2f on %s)\n",
			a.Dividend.YieldPct, a.Dividend.AnnualDividend, a.Dividend.RecentDividend,
			a.Dividend.LastExDate.Format("2006-01-02"))
	}

	b.WriteString("\n")
	for _, r := range a.Signal.Reasons {
		fmt.Fprintf(&b, "• %s\n", html.EscapeString(r))
	}
	for _, n := range a.Notes {
		fmt.Fprintf(&b, "<i>%s</i>\n", html.EscapeString(n))
	}
	return b.String()
}

// FormatPair formats a pair check.
func FormatPair(p *analysis.PairAnalysis) string {
	var b strings.Builder
	icon := "⚖️"
	if p.Signal != model.ZNone {
		icon = "🚨"
	}
	fmt.Fprintf(&b, "%s <b>%s / %s</b> spread\n\n", icon, html.EscapeString(p.SymbolA), html.EscapeString(p.SymbolB))
	fmt.Fprintf(&b, "Aligned sessions: %d\n", p.Points)
	if p.Correlation != nil {
		fmt.Fprintf(&b, "Correlation: %.3f\n", *p.Correlation)
	} else {
		b.WriteString("Correlation: n/a\n")
	}
	switch {
	case p.LatestZ != nil:
		fmt.Fprintf(&b, "Latest z-score: %+.2f\n", *p.LatestZ)
	case p.Degenerate:
		b.WriteString("Latest z-score: n/a (flat spread)\n")
	}
	fmt.Fprintf(&b, "\n%s", html.EscapeString(p.Alert))
	return b.String()
}

// FormatScan formats the top limit rows of a scan report.
func FormatScan(rep *scanner.Report, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔎 <b>Scan</b> | %s | filter %s\n\n", rep.StartedAt.Format("2006-01-02 15:04"), rep.Filter)
	if len(rep.Rows) == 0 {
		b.WriteString("No symbols matched.\n")
	}
	for i, r := range rep.Rows {
		if limit > 0 && i >= limit {
			fmt.Fprintf(&b, "… and %d more\n", len(rep.Rows)-limit)
			break
		}
		fmt.Fprintf(&b, "%d. <b>%s</b> %.2f → %.2f (%+.2f%%) %s strength %.2f",
			i+1, html.EscapeString(r.Symbol), r.CurrentPrice, r.PredictedPrice, r.DeltaPct, r.Signal, r.Strength)
		if r.Option != nil {
			fmt.Fprintf(&b, " | %s %.2f %s", r.Option.Type, r.Option.Contract.Strike, r.Option.Expiry.Format("01-02"))
		}
		b.WriteString("\n")
	}
	if n := len(rep.Skipped); n > 0 {
		syms := make([]string, 0, n)
		for _, s := range rep.Skipped {
			syms = append(syms, fmt.Sprintf("%s (%s)", s.Symbol, s.Kind))
		}
		fmt.Fprintf(&b, "\n<i>Skipped: %s</i>\n", html.EscapeString(strings.Join(syms, ", ")))
	}
	fmt.Fprintf(&b, "\nTook %s", rep.FinishedAt.Sub(rep.StartedAt).Round(time.Millisecond))
	return b.String()
}

// FormatHistory formats recorded signals, newest first.
func FormatHistory(symbol string, events []recorder.SignalEvent) string {
	if len(events) == 0 {
		return fmt.Sprintf("No recorded signals for %s.", html.EscapeString(symbol))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🗂 <b>%s</b> recent signals\n\n", html.EscapeString(symbol))
	for _, e := range events {
		fmt.Fprintf(&b, "%s %s %.2f → %.2f (%dd, conf %.0f%%)\n",
			e.RecordedAt.Format("01-02 15:04"), e.Action, e.CurrentPrice, e.TargetPrice, e.HorizonDays, e.Confidence*100)
	}
	return b.String()
}

// HelpText lists the bot commands.
func HelpText() string {
	return "Available commands:\n" +
		"• /analyze SYMBOL [1d|1w|1m|1y] [risk 1-10]\n" +
		"• /arb SYMBOL_A SYMBOL_B\n" +
		"• /scan [ALL|BUY|WATCH]\n" +
		"• /history SYMBOL"
}

func actionIcon(a model.Action) string {
	switch a {
	case model.ActionBuy:
		return "🟢"
	case model.ActionSell:
		return "🔴"
	default:
		return "⚪"
	}
}

func pctChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from * 100
}
