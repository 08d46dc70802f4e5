package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"StockAnalyzer/internal/metrics"
)

// ErrCircuitOpen is returned while a source's breaker is open.
var ErrCircuitOpen = errors.New("upstream circuit open")

// ClientOptions configures a Client.
type ClientOptions struct {
	Proxy         string
	Timeout       time.Duration
	RatePerSecond float64
	UserAgent     string
}

// Client is a rate-limited HTTP client guarded by a circuit breaker.
// One Client serves one upstream source.
type Client struct {
	name      string
	http      *http.Client
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	userAgent string
}

// NewClient creates a client for the named source with optional proxy support.
func NewClient(name string, opts ClientOptions) *Client {
	transport := &http.Transport{}
	if opts.Proxy != "" {
		if u, err := url.Parse(opts.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	limit := rate.Inf
	burst := 1
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
		burst = max(1, int(opts.RatePerSecond))
	}

	st := gobreaker.Settings{Name: name, Interval: 60 * time.Second, Timeout: 30 * time.Second}
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 3
	}
	st.IsSuccessful = func(err error) bool {
		var se *statusError
		if errors.As(err, &se) {
			return se.Code < 500
		}
		return err == nil || errors.Is(err, context.Canceled)
	}

	return &Client{
		name:      name,
		http:      &http.Client{Timeout: opts.Timeout, Transport: transport},
		limiter:   rate.NewLimiter(limit, burst),
		breaker:   gobreaker.NewCircuitBreaker(st),
		userAgent: opts.UserAgent,
	}
}

// statusError is a non-2xx upstream response.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d, body: %s", e.Code, e.Body)
}

// GetJSON issues a GET to rawURL and decodes the JSON body into out.
// Client errors (4xx) are returned without counting against the breaker.
func (c *Client) GetJSON(ctx context.Context, rawURL string, header http.Header, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	start := time.Now()
	body, err := c.breaker.Execute(func() (any, error) {
		return c.get(ctx, rawURL, header)
	})
	metrics.UpstreamLatency.WithLabelValues(c.name).Observe(time.Since(start).Seconds())

	var se *statusError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.UpstreamRequests.WithLabelValues(c.name, "circuit_open").Inc()
		return fmt.Errorf("%s: %w", c.name, ErrCircuitOpen)
	case errors.As(err, &se) && se.Code < 500:
		metrics.UpstreamRequests.WithLabelValues(c.name, "client_error").Inc()
		return fmt.Errorf("%s: %w", c.name, err)
	case err != nil:
		metrics.UpstreamRequests.WithLabelValues(c.name, "error").Inc()
		return fmt.Errorf("%s: %w", c.name, err)
	}
	metrics.UpstreamRequests.WithLabelValues(c.name, "ok").Inc()

	if err := json.Unmarshal(body.([]byte), out); err != nil {
		return fmt.Errorf("%s decode: %w", c.name, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{Code: resp.StatusCode, Body: truncate(string(body), 256)}
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
