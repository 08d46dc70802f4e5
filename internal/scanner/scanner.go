// Package scanner ranks a list of symbols by short-horizon forecast strength.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"StockAnalyzer/internal/collector"
	"StockAnalyzer/internal/forecast"
	"StockAnalyzer/internal/metrics"
	"StockAnalyzer/internal/model"
	"StockAnalyzer/internal/options"
)

const (
	// Horizon is the forecast horizon in sessions used by the scan.
	Horizon = 5
	// BuyStrength is the strength above which a row is a BUY.
	BuyStrength = 5.0
)

type Signal string

const (
	SignalBuy   Signal = "BUY"
	SignalWatch Signal = "WATCH"
)

// Filter selects which rows a scan keeps.
type Filter string

const (
	FilterAll   Filter = "ALL"
	FilterBuy   Filter = "BUY"
	FilterWatch Filter = "WATCH"
)

// ParseFilter parses ALL, BUY or WATCH case-insensitively. Empty is ALL.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToUpper(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterBuy, FilterWatch:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown scan filter %q", model.ErrInvalidInput, s)
	}
}

func (f Filter) keep(s Signal) bool {
	return f == FilterAll || string(f) == string(s)
}

// SkipKind tells a legitimate lack of data apart from a failure.
type SkipKind string

const (
	SkipNoData SkipKind = "no_data"
	SkipFailed SkipKind = "failed"
)

// Skip is a symbol that produced no row.
type Skip struct {
	Symbol string   `json:"symbol"`
	Kind   SkipKind `json:"kind"`
	Reason string   `json:"reason"`
}

// Row is one ranked symbol. Prices and scores are rounded to two decimals.
type Row struct {
	Symbol         string              `json:"symbol"`
	CurrentPrice   float64             `json:"current_price"`
	PredictedPrice float64             `json:"predicted_price"`
	DeltaPct       float64             `json:"delta_pct"`
	Confidence     float64             `json:"confidence"`
	Signal         Signal              `json:"signal"`
	Option         *options.Suggestion `json:"option,omitempty"`
	GreekScore     float64             `json:"greek_score"`
	Strength       float64             `json:"strength"`
}

// Report is the outcome of one scan.
type Report struct {
	RunID      string    `json:"run_id"`
	Filter     Filter    `json:"filter"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Rows       []Row     `json:"rows"`
	Skipped    []Skip    `json:"skipped"`
}

// Scanner fans symbols out over a bounded worker pool.
type Scanner struct {
	Fetcher     collector.Fetcher
	Chains      collector.ChainSource // nil disables option lookups
	Workers     int
	HistoryDays int
	Now         func() time.Time
}

// New returns a Scanner with workers goroutines.
func New(fetcher collector.Fetcher, chains collector.ChainSource, workers, historyDays int) *Scanner {
	return &Scanner{
		Fetcher:     fetcher,
		Chains:      chains,
		Workers:     workers,
		HistoryDays: historyDays,
		Now:         time.Now,
	}
}

type outcome struct {
	row  *Row
	skip *Skip
}

// Scan evaluates every symbol and returns the kept rows sorted by strength,
// strongest first, plus every skipped symbol with its reason. A failing symbol
// never aborts the scan; only ctx cancellation does.
func (s *Scanner) Scan(ctx context.Context, symbols []string, filter Filter) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		Filter:    filter,
		StartedAt: s.Now(),
		Rows:      []Row{},
		Skipped:   []Skip{},
	}
	symbols = dedupe(symbols)

	in := make(chan string)
	out := make(chan outcome)
	var wg sync.WaitGroup

	workers := max(1, min(s.Workers, len(symbols)))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx, in, out)
		}()
	}

	go func() {
		defer close(in)
		for _, sym := range symbols {
			select {
			case in <- sym:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	for o := range out {
		switch {
		case o.row != nil && filter.keep(o.row.Signal):
			report.Rows = append(report.Rows, *o.row)
		case o.skip != nil:
			metrics.ScanSkips.WithLabelValues(string(o.skip.Kind)).Inc()
			report.Skipped = append(report.Skipped, *o.skip)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(report.Rows, func(i, j int) bool {
		if report.Rows[i].Strength != report.Rows[j].Strength {
			return report.Rows[i].Strength > report.Rows[j].Strength
		}
		return report.Rows[i].Symbol < report.Rows[j].Symbol
	})
	sort.Slice(report.Skipped, func(i, j int) bool { return report.Skipped[i].Symbol < report.Skipped[j].Symbol })
	report.FinishedAt = s.Now()

	log.Info().Str("run_id", report.RunID).Int("symbols", len(symbols)).
		Int("rows", len(report.Rows)).Int("skipped", len(report.Skipped)).Msg("scan finished")
	return report, nil
}

func (s *Scanner) worker(ctx context.Context, in <-chan string, out chan<- outcome) {
	for {
		select {
		case <-ctx.Done():
			return
		case sym, ok := <-in:
			if !ok {
				return
			}
			row, skip := s.evaluate(ctx, sym)
			select {
			case out <- outcome{row: row, skip: skip}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// evaluate scores one symbol. A panic is recovered into a failed skip.
func (s *Scanner) evaluate(ctx context.Context, symbol string) (row *Row, skip *Skip) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("symbol", symbol).Interface("panic", r).Msg("scan worker recovered from panic")
			row, skip = nil, &Skip{Symbol: symbol, Kind: SkipFailed, Reason: fmt.Sprintf("panic: %v", r)}
		}
	}()

	series, err := s.Fetcher.FetchDailySeries(ctx, symbol, s.HistoryDays)
	if err != nil {
		if errors.Is(err, model.ErrInsufficientData) {
			return nil, &Skip{Symbol: symbol, Kind: SkipNoData, Reason: err.Error()}
		}
		log.Warn().Err(err).Str("symbol", symbol).Msg("scan fetch failed")
		return nil, &Skip{Symbol: symbol, Kind: SkipFailed, Reason: err.Error()}
	}
	if series.Len() < forecast.MinHistory {
		return nil, &Skip{
			Symbol: symbol,
			Kind:   SkipNoData,
			Reason: fmt.Sprintf("%d sessions of history, need %d", series.Len(), forecast.MinHistory),
		}
	}

	current, _ := series.LastClose()
	if current <= 0 {
		return nil, &Skip{Symbol: symbol, Kind: SkipFailed, Reason: fmt.Sprintf("non-positive last close %v", current)}
	}
	pred, err := forecast.PredictPrice(series, Horizon)
	if err != nil {
		return nil, &Skip{Symbol: symbol, Kind: SkipFailed, Reason: err.Error()}
	}
	deltaPct := (pred.Price - current) / current * 100

	var sugg *options.Suggestion
	if s.Chains != nil {
		sugg, err = options.Suggest(ctx, s.Chains, symbol, current, pred.Price, Horizon, s.Now())
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("option lookup failed, scoring without greeks")
			sugg = nil
		}
	}
	greek := 0.0
	if sugg != nil {
		greek = sugg.GreekScore
	}
	strength := deltaPct + greek*100

	signal := SignalWatch
	if strength > BuyStrength {
		signal = SignalBuy
	}
	return &Row{
		Symbol:         symbol,
		CurrentPrice:   round2(current),
		PredictedPrice: round2(pred.Price),
		DeltaPct:       round2(deltaPct),
		Confidence:     round2(pred.Confidence),
		Signal:         signal,
		Option:         sugg,
		GreekScore:     round2(greek),
		Strength:       round2(strength),
	}, nil
}

func dedupe(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
