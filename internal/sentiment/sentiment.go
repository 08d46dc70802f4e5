// Package sentiment scores recent company news headlines into [-1,1].
package sentiment

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"StockAnalyzer/internal/collector"
)

// MaxHeadlines is the number of most recent headlines averaged into a score.
const MaxHeadlines = 10

// NewsSource supplies headlines for a symbol, newest first.
type NewsSource interface {
	Headlines(ctx context.Context, symbol string, from, to time.Time) ([]string, error)
}

// Scorer scores one piece of text into [-1,1].
type Scorer interface {
	Score(text string) float64
}

// Analyzer averages headline scores.
type Analyzer struct {
	Source   NewsSource
	Scorer   Scorer
	Lookback time.Duration
	Now      func() time.Time
}

// NewAnalyzer returns an Analyzer over source and scorer looking back lookbackDays.
func NewAnalyzer(source NewsSource, scorer Scorer, lookbackDays int) *Analyzer {
	return &Analyzer{
		Source:   source,
		Scorer:   scorer,
		Lookback: time.Duration(lookbackDays) * 24 * time.Hour,
		Now:      time.Now,
	}
}

// Score returns the mean score of the latest MaxHeadlines headlines and how
// many were used. No headlines is a neutral 0. Source errors are returned.
func (a *Analyzer) Score(ctx context.Context, symbol string) (float64, int, error) {
	now := a.Now()
	headlines, err := a.Source.Headlines(ctx, symbol, now.Add(-a.Lookback), now)
	if err != nil {
		return 0, 0, fmt.Errorf("sentiment %s: %w", symbol, err)
	}
	if len(headlines) > MaxHeadlines {
		headlines = headlines[:MaxHeadlines]
	}
	if len(headlines) == 0 {
		return 0, 0, nil
	}
	sum := 0.0
	for _, h := range headlines {
		sum += a.Scorer.Score(h)
	}
	return sum / float64(len(headlines)), len(headlines), nil
}

// FinnhubNews reads company news from the Finnhub REST API.
type FinnhubNews struct {
	BaseURL string
	APIKey  string
	client  *collector.Client
}

// NewFinnhubNews creates a Finnhub news client.
func NewFinnhubNews(baseURL, apiKey string, opts collector.ClientOptions) *FinnhubNews {
	return &FinnhubNews{
		BaseURL: baseURL,
		APIKey:  apiKey,
		client:  collector.NewClient("finnhub", opts),
	}
}

type finnhubArticle struct {
	Headline string `json:"headline"`
	Datetime int64  `json:"datetime"`
}

// Headlines returns non-empty company-news headlines published between from
// and to, newest first.
func (f *FinnhubNews) Headlines(ctx context.Context, symbol string, from, to time.Time) ([]string, error) {
	if f.APIKey == "" {
		return nil, fmt.Errorf("finnhub: api key not configured")
	}
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("from", from.Format("2006-01-02"))
	q.Set("to", to.Format("2006-01-02"))
	q.Set("token", f.APIKey)

	var articles []finnhubArticle
	if err := f.client.GetJSON(ctx, f.BaseURL+"/company-news?"+q.Encode(), nil, &articles); err != nil {
		return nil, err
	}
	sort.SliceStable(articles, func(i, j int) bool { return articles[i].Datetime > articles[j].Datetime })
	out := make([]string, 0, len(articles))
	for _, a := range articles {
		if a.Headline != "" {
			out = append(out, a.Headline)
		}
	}
	return out, nil
}
