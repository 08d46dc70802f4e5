// Package analysis wires data sources, forecasting and strategy into the
// operations exposed by the CLI, HTTP API, Telegram bot and scheduler.
package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"StockAnalyzer/internal/arbitrage"
	"StockAnalyzer/internal/calculator"
	"StockAnalyzer/internal/collector"
	"StockAnalyzer/internal/dividend"
	"StockAnalyzer/internal/forecast"
	"StockAnalyzer/internal/metrics"
	"StockAnalyzer/internal/model"
	"StockAnalyzer/internal/options"
	"StockAnalyzer/internal/recorder"
	"StockAnalyzer/internal/scanner"
	"StockAnalyzer/internal/sentiment"
	"StockAnalyzer/internal/strategy"
)

const (
	// BaseModel is the ensemble member whose price anchors the action.
	BaseModel  = "gradient_boost"
	TrendModel = "trend"

	// minBaseConfidence keeps the ensemble defined when the regression reports no fit.
	minBaseConfidence = 0.01
)

// Service runs analyses. Dividends, Chains, Sentiment and Scanner may be nil.
type Service struct {
	Fetcher     collector.Fetcher
	Dividends   collector.DividendSource
	Chains      collector.ChainSource
	Sentiment   *sentiment.Analyzer
	Scanner     *scanner.Scanner
	Recorder    recorder.Recorder
	Watchlist   []string
	HistoryDays int
	Now         func() time.Time
}

// SymbolAnalysis is the full single-symbol result.
type SymbolAnalysis struct {
	Symbol       string                       `json:"symbol"`
	HorizonDays  int                          `json:"horizon_days"`
	Risk         model.RiskCoefficient        `json:"risk"`
	AsOf         time.Time                    `json:"as_of"`
	CurrentPrice float64                      `json:"current_price"`
	Models       map[string]model.ModelOutput `json:"models"`
	Signal       *model.FusedSignal           `json:"signal"`
	Levels       model.TradeLevels            `json:"levels"`
	Indicators   model.Indicators             `json:"indicators"`
	Sentiment    float64                      `json:"sentiment"`
	Headlines    int                          `json:"headlines"`
	Trajectory   []model.ForecastPoint        `json:"trajectory"`
	Option       *options.Suggestion          `json:"option,omitempty"`
	Dividend     *dividend.Estimate           `json:"dividend,omitempty"`
	Notes        []string                     `json:"notes,omitempty"`
}

// PairAnalysis is a pair check. Correlation and LatestZ are nil when undefined.
type PairAnalysis struct {
	SymbolA     string        `json:"symbol_a"`
	SymbolB     string        `json:"symbol_b"`
	Points      int           `json:"points"`
	Correlation *float64      `json:"correlation"`
	LatestZ     *float64      `json:"latest_z"`
	Degenerate  bool          `json:"z_score_degenerate"`
	Signal      model.ZSignal `json:"signal"`
	Alert       string        `json:"alert"`
	Timestamps  []time.Time   `json:"timestamps"`
	Spread      []float64     `json:"spread"`
	ZScore      []float64     `json:"z_score"`
}

// NewService returns a Service recording to rec. A nil rec records nothing.
func NewService(fetcher collector.Fetcher, rec recorder.Recorder, historyDays int) *Service {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Service{
		Fetcher:     fetcher,
		Recorder:    rec,
		HistoryDays: historyDays,
		Now:         time.Now,
	}
}

func (s *Service) historyFor(horizon int) int {
	return max(s.HistoryDays, 2*horizon+forecast.MinHistory)
}

// AnalyzeSymbol forecasts symbol over horizon sessions and derives the fused
// signal, risk-adjusted levels and the optional option and dividend views.
func (s *Service) AnalyzeSymbol(ctx context.Context, symbol string, horizon int, risk model.RiskCoefficient) (res *SymbolAnalysis, err error) {
	defer observe("analyze", time.Now(), &err)

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", model.ErrInvalidInput)
	}
	if horizon < 1 || horizon > MaxHorizon {
		return nil, fmt.Errorf("%w: horizon %d outside [1,%d]", model.ErrInvalidInput, horizon, MaxHorizon)
	}
	if !risk.Valid() {
		return nil, fmt.Errorf("%w: risk %d outside [%d,%d]", model.ErrInvalidInput, risk, model.RiskMin, model.RiskMax)
	}

	series, err := s.Fetcher.FetchDailySeries(ctx, symbol, s.historyFor(horizon))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	current, ok := series.LastClose()
	if !ok {
		return nil, fmt.Errorf("%s: %w: empty series", symbol, model.ErrInsufficientData)
	}
	res = &SymbolAnalysis{
		Symbol:       symbol,
		HorizonDays:  horizon,
		Risk:         risk,
		CurrentPrice: current,
	}
	if last, ok := series.Last(); ok {
		res.AsOf = last.Time
	}

	if res.Indicators, err = calculator.ComputeIndicators(series); err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}

	res.Sentiment, res.Headlines = s.sentiment(ctx, symbol, res)

	outputs, err := s.ensemble(series, horizon, res)
	if err != nil {
		return nil, err
	}
	res.Models = outputs
	members, err := model.NewModelForecast(BaseModel, outputs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}
	res.Signal, err = strategy.GenerateFinalSignal(members, res.Sentiment)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}
	metrics.Signals.WithLabelValues(string(res.Signal.Action)).Inc()

	levels, err := strategy.CalculateTradeLevels(series, res.Signal.FinalPriceTarget)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}
	if res.Levels, err = strategy.AdjustLevelsForRisk(levels, risk); err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}

	if s.Chains != nil {
		sugg, err := options.Suggest(ctx, s.Chains, symbol, current, res.Signal.FinalPriceTarget, horizon, s.Now())
		switch {
		case err != nil:
			log.Warn().Err(err).Str("symbol", symbol).Msg("option suggestion unavailable")
			res.Notes = append(res.Notes, "Option suggestion unavailable")
		case sugg == nil:
			res.Notes = append(res.Notes, "No option contract matches the target")
		default:
			res.Option = sugg
		}
	}

	if s.Dividends != nil {
		payouts, err := s.Dividends.FetchDividends(ctx, symbol)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("dividend history unavailable")
		} else if est, ok := dividend.Project(payouts, current, s.Now()); ok {
			res.Dividend = &est
		}
	}

	if err := s.Recorder.RecordSignal(&recorder.SignalEvent{
		Symbol:       symbol,
		HorizonDays:  horizon,
		Risk:         int(risk),
		CurrentPrice: current,
		TargetPrice:  res.Signal.FinalPriceTarget,
		Action:       string(res.Signal.Action),
		Confidence:   res.Signal.Confidence,
		Sentiment:    res.Sentiment,
		Entry:        res.Levels.Entry,
		StopLoss:     res.Levels.StopLoss,
		TakeProfit:   res.Signal.FinalPriceTarget,
		RecordedAt:   s.Now(),
	}); err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("failed to record signal")
	}

	log.Info().Str("symbol", symbol).Int("horizon", horizon).Str("action", string(res.Signal.Action)).
		Float64("target", res.Signal.FinalPriceTarget).Float64("confidence", res.Signal.Confidence).
		Msg("analysis complete")
	return res, nil
}

// sentiment returns a neutral score with a note when no source is configured
// or the source fails.
func (s *Service) sentiment(ctx context.Context, symbol string, res *SymbolAnalysis) (float64, int) {
	if s.Sentiment == nil {
		res.Notes = append(res.Notes, "Sentiment source not configured, using neutral 0")
		return 0, 0
	}
	score, n, err := s.Sentiment.Score(ctx, symbol)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("sentiment unavailable, using neutral 0")
		res.Notes = append(res.Notes, "Sentiment unavailable, using neutral 0")
		return 0, 0
	}
	return score, n
}

// ensemble runs the member models and fills the trajectory.
func (s *Service) ensemble(series model.PriceSeries, horizon int, res *SymbolAnalysis) (map[string]model.ModelOutput, error) {
	pred, err := forecast.PredictPrice(series, horizon)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", series.Symbol, err)
	}
	if pred.Fallback {
		res.Notes = append(res.Notes, fmt.Sprintf("History too short for %s, using last close", BaseModel))
	}
	base := model.ModelOutput{Price: pred.Price, Confidence: pred.Confidence}
	if base.Confidence < minBaseConfidence {
		base.Confidence = minBaseConfidence
	}
	outputs := map[string]model.ModelOutput{BaseModel: base}

	var trend *forecast.Trend
	res.Trajectory, trend = forecast.ForecastWithTrend(series, horizon)
	if trend == nil {
		log.Debug().Str("symbol", series.Symbol).Msg("trend model skipped")
		return outputs, nil
	}
	if n := len(res.Trajectory); n > 0 && trend.R2 > 0 {
		if p := res.Trajectory[n-1].Price; p > 0 && !math.IsInf(p, 0) {
			outputs[TrendModel] = model.ModelOutput{Price: p, Confidence: trend.R2}
		}
	}
	return outputs, nil
}

// AnalyzePair aligns both series and classifies the latest spread z-score.
func (s *Service) AnalyzePair(ctx context.Context, a, b string) (res *PairAnalysis, err error) {
	defer observe("arbitrage", time.Now(), &err)

	a, b = strings.ToUpper(strings.TrimSpace(a)), strings.ToUpper(strings.TrimSpace(b))
	if a == "" || b == "" || a == b {
		return nil, fmt.Errorf("%w: pair needs two distinct symbols, got %q and %q", model.ErrInvalidInput, a, b)
	}
	sa, err := s.Fetcher.FetchDailySeries(ctx, a, s.HistoryDays)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", a, err)
	}
	sb, err := s.Fetcher.FetchDailySeries(ctx, b, s.HistoryDays)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", b, err)
	}
	r, err := arbitrage.Analyze(sa, sb)
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", a, b, err)
	}

	res = &PairAnalysis{
		SymbolA:    a,
		SymbolB:    b,
		Points:     len(r.Spread),
		Degenerate: r.ZScoreDegenerate,
		Signal:     model.ZNone,
		Timestamps: r.Timestamps,
		Spread:     r.Spread,
		ZScore:     r.ZScore,
	}
	if !math.IsNaN(r.Correlation) {
		c := r.Correlation
		res.Correlation = &c
	}
	if z, ok := r.LatestZ(); ok && !r.ZScoreDegenerate {
		res.LatestZ = &z
		res.Signal = arbitrage.ClassifyZ(z)
	}
	res.Alert = AlertText(res)

	if err := s.Recorder.RecordArbitrage(&recorder.ArbitrageEvent{
		SymbolA:     a,
		SymbolB:     b,
		Points:      res.Points,
		Correlation: res.Correlation,
		ZScore:      res.LatestZ,
		Signal:      string(res.Signal),
		RecordedAt:  s.Now(),
	}); err != nil {
		log.Error().Err(err).Str("pair", a+"/"+b).Msg("failed to record arbitrage check")
	}
	return res, nil
}

// AlertText describes the trade suggested by the latest z-score.
func AlertText(p *PairAnalysis) string {
	if p.LatestZ == nil {
		return "No significant signal"
	}
	z := *p.LatestZ
	switch p.Signal {
	case model.ZShort:
		return fmt.Sprintf("Z-score %.2f > %g: Consider Short %s / Long %s", z, arbitrage.ZThreshold, p.SymbolA, p.SymbolB)
	case model.ZLong:
		return fmt.Sprintf("Z-score %.2f < -%g: Consider Long %s / Short %s", z, arbitrage.ZThreshold, p.SymbolA, p.SymbolB)
	default:
		return "No significant signal"
	}
}

// Scan ranks symbols, or the watchlist when symbols is empty, and records the run.
func (s *Service) Scan(ctx context.Context, symbols []string, filter scanner.Filter) (rep *scanner.Report, err error) {
	defer observe("scan", time.Now(), &err)

	if s.Scanner == nil {
		return nil, fmt.Errorf("scanner not configured")
	}
	if len(symbols) == 0 {
		symbols = s.Watchlist
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: no symbols to scan", model.ErrInvalidInput)
	}
	rep, err = s.Scanner.Scan(ctx, symbols, filter)
	if err != nil {
		return nil, err
	}
	if err := s.Recorder.RecordScan(rep); err != nil {
		log.Error().Err(err).Str("run_id", rep.RunID).Msg("failed to record scan")
	}
	return rep, nil
}

// History returns recently recorded signals for symbol, newest first.
func (s *Service) History(symbol string, limit int) ([]recorder.SignalEvent, error) {
	return s.Recorder.RecentSignals(strings.ToUpper(strings.TrimSpace(symbol)), limit)
}

func observe(op string, start time.Time, err *error) {
	metrics.AnalysisLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if *err != nil {
		metrics.AnalysisErrors.WithLabelValues(op).Inc()
	}
}
