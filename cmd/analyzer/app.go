package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"StockAnalyzer/internal/analysis"
	"StockAnalyzer/internal/cache"
	"StockAnalyzer/internal/collector"
	"StockAnalyzer/internal/config"
	"StockAnalyzer/internal/logger"
	"StockAnalyzer/internal/metrics"
	"StockAnalyzer/internal/recorder"
	"StockAnalyzer/internal/scanner"
	"StockAnalyzer/internal/sentiment"
)

// app holds the wired dependencies shared by every subcommand.
type app struct {
	cfg     *config.Config
	svc     *analysis.Service
	cache   cache.BytesCache
	closers []io.Closer
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = "configs/config.yaml"
		if v := os.Getenv("CONFIG_PATH"); v != "" {
			path = v
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// newApp builds the service graph from cfg. withCache enables the response cache.
func newApp(cfg *config.Config, withCache bool) (*app, error) {
	a := &app{cfg: cfg}
	logCloser, err := logger.Setup(cfg.Log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, logCloser)
	metrics.Register()

	opts := collector.ClientOptions{
		Proxy:         cfg.Proxy,
		Timeout:       cfg.DataSource.Timeout,
		RatePerSecond: cfg.DataSource.RatePerSecond,
	}

	var fetcher collector.Fetcher
	var dividends collector.DividendSource
	var chains collector.ChainSource
	switch cfg.DataSource.Provider {
	case "rest":
		fetcher = collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, opts)
		// dividends and option chains always come from Yahoo
		yf := collector.NewYahooFetcher(opts)
		dividends, chains = yf, yf
	case "mock":
		m := &collector.MockFetcher{Price: 100}
		fetcher, dividends, chains = m, m, m
	default:
		yf := collector.NewYahooFetcher(opts)
		fetcher, dividends, chains = yf, yf, yf
	}
	log.Info().Str("source", fetcher.Name()).Msg("data source ready")

	rec := a.openRecorder()
	a.svc = analysis.NewService(fetcher, rec, cfg.DataSource.HistoryDays)
	a.svc.Dividends = dividends
	if cfg.Analysis.Options {
		a.svc.Chains = chains
	}
	a.svc.Watchlist = cfg.Watchlist

	var scanChains collector.ChainSource
	if cfg.Analysis.Options {
		scanChains = chains
	}
	a.svc.Scanner = scanner.New(fetcher, scanChains, cfg.Analysis.ScanWorkers, cfg.DataSource.HistoryDays)

	if cfg.Finnhub.APIKey != "" {
		news := sentiment.NewFinnhubNews(cfg.Finnhub.BaseURL, cfg.Finnhub.APIKey, collector.ClientOptions{
			Proxy:         cfg.Proxy,
			Timeout:       cfg.DataSource.Timeout,
			RatePerSecond: cfg.Finnhub.RatePerSecond,
		})
		scorer := sentiment.NewVaderScorer()
		a.svc.Sentiment = sentiment.NewAnalyzer(news, scorer, cfg.Finnhub.LookbackDays)
	} else {
		log.Warn().Msg("FINNHUB_API_KEY not set, sentiment disabled")
	}

	if withCache {
		a.cache = a.openCache()
	}
	return a, nil
}

func (a *app) openRecorder() recorder.Recorder {
	path := a.cfg.Database.SQLitePath
	if path == "" {
		return recorder.NewNoopRecorder()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Warn().Err(err).Msg("create database directory failed, using noop recorder")
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(path)
	if err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, using noop recorder")
		return recorder.NewNoopRecorder()
	}
	a.closers = append(a.closers, sr)
	return sr
}

func (a *app) openCache() cache.BytesCache {
	switch a.cfg.Cache.Backend {
	case "none":
		return nil
	case "redis":
		rc := cache.NewRedisCache(cache.RedisConfig{
			Addr:     a.cfg.Cache.Redis.Addr,
			Password: a.cfg.Cache.Redis.Password,
			DB:       a.cfg.Cache.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rc.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", a.cfg.Cache.Redis.Addr).Msg("redis unreachable, using in-memory cache")
			rc.Close()
			return cache.NewTTLCache()
		}
		a.closers = append(a.closers, rc)
		log.Info().Str("addr", a.cfg.Cache.Redis.Addr).Msg("redis cache connected")
		return rc
	default:
		return cache.NewTTLCache()
	}
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}
