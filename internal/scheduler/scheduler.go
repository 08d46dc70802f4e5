package scheduler

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"StockAnalyzer/internal/analysis"
	"StockAnalyzer/internal/config"
	"StockAnalyzer/internal/model"
	"StockAnalyzer/internal/notifier"
	"StockAnalyzer/internal/scanner"
)

// scanReportRows caps the rows included in a scan message.
const scanReportRows = 10

// Sender delivers a formatted message.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages all cron tasks and answers bot commands.
type Scheduler struct {
	Cron       *cron.Cron
	Service    *analysis.Service
	Notifier   Sender // nil logs messages instead of sending
	Pairs      []config.Pair
	ScanFilter scanner.Filter
	Horizon    int
	Risk       model.RiskCoefficient
	Timeout    time.Duration
	Ctx        context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, svc *analysis.Service, sender Sender, pairs []config.Pair) *Scheduler {
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds()),
		Service:    svc,
		Notifier:   sender,
		Pairs:      pairs,
		ScanFilter: scanner.FilterAll,
		Horizon:    5,
		Risk:       model.RiskNeutral,
		Timeout:    2 * time.Minute,
		Ctx:        ctx,
	}
}

// RegisterAll registers the watchlist scan and the pair check. An empty spec
// disables that task.
func (s *Scheduler) RegisterAll(scanCron, pairCron string) error {
	if scanCron != "" {
		if _, err := s.Cron.AddFunc(scanCron, s.scanTask); err != nil {
			return fmt.Errorf("register scan task: %w", err)
		}
	}
	if pairCron != "" && len(s.Pairs) > 0 {
		if _, err := s.Cron.AddFunc(pairCron, s.pairTask); err != nil {
			return fmt.Errorf("register pair task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunScanNow executes the scan task immediately (for RUN_ON_START).
func (s *Scheduler) RunScanNow() {
	s.scanTask()
}

func (s *Scheduler) taskContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(s.Ctx, s.Timeout)
}

func (s *Scheduler) scanTask() {
	log.Info().Msg("running watchlist scan")
	ctx, cancel := s.taskContext()
	defer cancel()

	rep, err := s.Service.Scan(ctx, nil, s.ScanFilter)
	if err != nil {
		log.Error().Err(err).Msg("watchlist scan failed")
		s.trySend("❌ Watchlist scan failed: " + html.EscapeString(err.Error()))
		return
	}
	s.trySend(notifier.FormatScan(rep, scanReportRows))
}

// pairTask checks every configured pair and alerts on stretched spreads only.
func (s *Scheduler) pairTask() {
	log.Info().Int("pairs", len(s.Pairs)).Msg("running pair checks")
	ctx, cancel := s.taskContext()
	defer cancel()

	for _, p := range s.Pairs {
		res, err := s.Service.AnalyzePair(ctx, p.A, p.B)
		if err != nil {
			log.Error().Err(err).Str("pair", p.String()).Msg("pair check failed")
			continue
		}
		if res.Signal == model.ZNone {
			continue
		}
		s.trySend(notifier.FormatPair(res))
	}
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.HelpText()
	}
	name := strings.ToLower(fields[0])
	if i := strings.IndexByte(name, '@'); i > 0 {
		name = name[:i]
	}
	args := fields[1:]

	ctx, cancel := s.taskContext()
	defer cancel()

	switch name {
	case "/analyze":
		return s.analyzeCommand(ctx, args)
	case "/arb":
		if len(args) != 2 {
			return "Usage: /arb SYMBOL_A SYMBOL_B"
		}
		res, err := s.Service.AnalyzePair(ctx, args[0], args[1])
		if err != nil {
			return errReply(err)
		}
		return notifier.FormatPair(res)
	case "/scan":
		filter := s.ScanFilter
		if len(args) > 0 {
			f, err := scanner.ParseFilter(args[0])
			if err != nil {
				return errReply(err)
			}
			filter = f
		}
		rep, err := s.Service.Scan(ctx, nil, filter)
		if err != nil {
			return errReply(err)
		}
		return notifier.FormatScan(rep, scanReportRows)
	case "/history":
		if len(args) != 1 {
			return "Usage: /history SYMBOL"
		}
		sym := strings.ToUpper(args[0])
		events, err := s.Service.History(sym, 10)
		if err != nil {
			return errReply(err)
		}
		return notifier.FormatHistory(sym, events)
	default:
		return notifier.HelpText()
	}
}

func (s *Scheduler) analyzeCommand(ctx context.Context, args []string) string {
	if len(args) < 1 || len(args) > 3 {
		return "Usage: /analyze SYMBOL [1d|1w|1m|1y] [risk 1-10]"
	}
	horizon, risk := s.Horizon, s.Risk
	if len(args) > 1 {
		h, err := analysis.ParseHorizon(args[1])
		if err != nil {
			return errReply(err)
		}
		horizon = h
	}
	if len(args) > 2 {
		r, err := analysis.ParseRisk(args[2])
		if err != nil {
			return errReply(err)
		}
		risk = r
	}
	res, err := s.Service.AnalyzeSymbol(ctx, args[0], horizon, risk)
	if err != nil {
		return errReply(err)
	}
	return notifier.FormatAnalysis(res)
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		log.Info().Str("message", text).Msg("notification (telegram disabled)")
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Error().Err(err).Msg("send notification failed")
	}
}

func errReply(err error) string {
	return "❌ " + html.EscapeString(err.Error())
}
