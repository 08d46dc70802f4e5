package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"StockAnalyzer/internal/analysis"
	"StockAnalyzer/internal/cache"
	"StockAnalyzer/internal/model"
	"StockAnalyzer/internal/recorder"
	"StockAnalyzer/internal/scanner"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// Risk and Limit stay strings so an explicit 0 is rejected rather than
// replaced by a default.
type analyzeRequest struct {
	Symbol  string `query:"symbol" validate:"required,max=16"`
	Horizon string `query:"horizon" default:"1w"`
	Risk    string `query:"risk"`
}

type arbitrageRequest struct {
	A string `query:"a" validate:"required,max=16"`
	B string `query:"b" validate:"required,max=16,nefield=A"`
}

type scanRequest struct {
	Symbols []string `json:"symbols" validate:"max=500,dive,required,max=16"`
	Filter  string   `json:"filter" default:"ALL" validate:"oneof=ALL BUY WATCH all buy watch"`
}

type historyRequest struct {
	Symbol string `query:"symbol" validate:"max=16"`
	Limit  string `query:"limit"`
}

// Handler serves the analysis endpoints.
type Handler struct {
	svc      *analysis.Service
	cache    cache.BytesCache
	cacheTTL time.Duration
	timeout  time.Duration
}

// NewHandler returns a Handler. A nil cache disables response caching.
func NewHandler(svc *analysis.Service, c cache.BytesCache, cacheTTL, timeout time.Duration) *Handler {
	return &Handler{svc: svc, cache: c, cacheTTL: cacheTTL, timeout: timeout}
}

// RegisterRoutes mounts the API on e.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.health)
	v1 := e.Group("/api/v1")
	v1.GET("/analyze", h.analyze)
	v1.GET("/arbitrage", h.arbitrage)
	v1.POST("/scan", h.scan)
	v1.GET("/signals", h.history)
}

func (h *Handler) requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.Request().Context())
	}
	return context.WithTimeout(c.Request().Context(), h.timeout)
}

func (h *Handler) health(c echo.Context) error {
	return SuccessResponse(c, map[string]string{"status": "ok", "source": h.svc.Fetcher.Name()})
}

func (h *Handler) analyze(c echo.Context) error {
	var req analyzeRequest
	if errs := ReadAndValidateRequest(c, &req); errs != nil {
		return BadRequestResponse(c, errs)
	}
	horizon, err := analysis.ParseHorizon(req.Horizon)
	if err != nil {
		return AppErrorResponse(c, err)
	}
	risk, err := analysis.ParseRisk(req.Risk)
	if err != nil {
		return AppErrorResponse(c, err)
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	ctx, cancel := h.requestContext(c)
	defer cancel()

	key := cache.Key("analyze", symbol, horizon, int(risk))
	var cached analysis.SymbolAnalysis
	if ok, err := cache.GetJSON(ctx, h.cache, key, &cached); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	} else if ok {
		return SuccessResponse(c, &cached)
	}

	res, err := h.svc.AnalyzeSymbol(ctx, symbol, horizon, risk)
	if err != nil {
		return AppErrorResponse(c, err)
	}
	h.store(ctx, key, res)
	return SuccessResponse(c, res)
}

func (h *Handler) arbitrage(c echo.Context) error {
	var req arbitrageRequest
	if errs := ReadAndValidateRequest(c, &req); errs != nil {
		return BadRequestResponse(c, errs)
	}
	a, b := strings.ToUpper(strings.TrimSpace(req.A)), strings.ToUpper(strings.TrimSpace(req.B))
	ctx, cancel := h.requestContext(c)
	defer cancel()

	key := cache.Key("arbitrage", a, b)
	var cached analysis.PairAnalysis
	if ok, err := cache.GetJSON(ctx, h.cache, key, &cached); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	} else if ok {
		return SuccessResponse(c, &cached)
	}

	res, err := h.svc.AnalyzePair(ctx, a, b)
	if err != nil {
		return AppErrorResponse(c, err)
	}
	h.store(ctx, key, res)
	return SuccessResponse(c, res)
}

// scan runs a batch scan. ?format=csv returns the rows as CSV.
func (h *Handler) scan(c echo.Context) error {
	var req scanRequest
	if errs := ReadAndValidateRequest(c, &req); errs != nil {
		return BadRequestResponse(c, errs)
	}
	filter, err := scanner.ParseFilter(req.Filter)
	if err != nil {
		return AppErrorResponse(c, err)
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	rep, err := h.svc.Scan(ctx, req.Symbols, filter)
	if err != nil {
		return AppErrorResponse(c, err)
	}
	if strings.EqualFold(c.QueryParam("format"), "csv") {
		c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="scan-`+rep.RunID+`.csv"`)
		c.Response().WriteHeader(http.StatusOK)
		return scanner.WriteCSV(c.Response(), rep.Rows)
	}
	return SuccessResponse(c, rep)
}

func (h *Handler) history(c echo.Context) error {
	var req historyRequest
	if errs := ReadAndValidateRequest(c, &req); errs != nil {
		return BadRequestResponse(c, errs)
	}
	limit, err := parseLimit(req.Limit)
	if err != nil {
		return AppErrorResponse(c, err)
	}
	rows, err := h.svc.History(req.Symbol, limit)
	if err != nil {
		return AppErrorResponse(c, err)
	}
	if rows == nil {
		rows = []recorder.SignalEvent{}
	}
	return SuccessResponse(c, rows)
}

// parseLimit reads a history page size. Empty means defaultHistoryLimit.
func parseLimit(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultHistoryLimit, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > maxHistoryLimit {
		return 0, fmt.Errorf("%w: limit %q outside [1,%d]", model.ErrInvalidInput, s, maxHistoryLimit)
	}
	return n, nil
}

func (h *Handler) store(ctx context.Context, key string, v any) {
	if err := cache.SetJSON(ctx, h.cache, key, v, h.cacheTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}
