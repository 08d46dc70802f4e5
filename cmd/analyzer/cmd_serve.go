package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"StockAnalyzer/internal/analysis"
	"StockAnalyzer/internal/api"
	"StockAnalyzer/internal/cache"
	"StockAnalyzer/internal/notifier"
	"StockAnalyzer/internal/scanner"
	"StockAnalyzer/internal/scheduler"
)

var serveNoSchedule bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, scheduled scans and the Telegram bot",
	Long: `Serve the JSON API and Prometheus metrics, run the watchlist scan and
pair checks on their cron schedules and answer Telegram commands when the
bot is enabled. Set RUN_ON_START=true to scan once at startup.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoSchedule, "no-schedule", false, "serve the API without cron tasks")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()
	log.Info().Msg("StockAnalyzer starting")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sender scheduler.Sender
	var tn *notifier.TelegramNotifier
	if cfg.Telegram.Enabled {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		sender = tn
	}

	sched := scheduler.NewScheduler(ctx, a.svc, sender, cfg.Pairs)
	if sched.Horizon, err = analysis.ParseHorizon(cfg.Analysis.Horizon); err != nil {
		return err
	}
	if sched.Risk, err = analysis.ParseRisk(fmt.Sprint(cfg.Analysis.Risk)); err != nil {
		return err
	}
	if sched.ScanFilter, err = scanner.ParseFilter(cfg.Analysis.ScanFilter); err != nil {
		return err
	}

	if !serveNoSchedule {
		if err := sched.RegisterAll(cfg.Schedule.ScanCron, cfg.Schedule.PairCron); err != nil {
			return fmt.Errorf("register cron tasks: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, executing watchlist scan now")
		go sched.RunScanNow()
	}

	if tc, ok := a.cache.(*cache.TTLCache); ok {
		go tc.RunSweeper(ctx, cfg.Cache.TTL)
	}

	handler := api.NewHandler(a.svc, a.cache, cfg.Cache.TTL, cfg.Server.WriteTimeout)
	srv := api.NewServer(handler, api.ServerConfig{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		CORS:            true,
	})
	err = srv.Run(ctx)
	if ctx.Err() != nil {
		log.Info().Msg("shutdown signal received, stopping")
	}
	return err
}
