package sentiment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockAnalyzer/internal/collector"
)

type stubSource struct {
	headlines []string
	err       error
	from, to  time.Time
}

func (s *stubSource) Headlines(_ context.Context, _ string, from, to time.Time) ([]string, error) {
	s.from, s.to = from, to
	return s.headlines, s.err
}

type constScorer map[string]float64

func (c constScorer) Score(text string) float64 { return c[text] }

func TestVaderScorer(t *testing.T) {
	s := NewVaderScorer()

	assert.Equal(t, 0.0, s.Score("Company schedules annual meeting"))

	pos := s.Score("Company reports excellent growth and great profits")
	neg := s.Score("Shares crash after terrible fraud scandal")
	assert.Greater(t, pos, 0.5)
	assert.Less(t, neg, -0.5)

	assert.Less(t, s.Score("Results were not good"), 0.0)
	assert.Greater(t, s.Score("very good quarter"), s.Score("good quarter"))

	huge := s.Score("great great great great great great great great great great")
	assert.LessOrEqual(t, huge, 1.0)
	assert.Greater(t, huge, 0.95)
}

func TestAnalyzer_Score(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	hs := make([]string, 0, 12)
	scores := constScorer{}
	for i := 0; i < 12; i++ {
		h := fmt.Sprintf("h%d", i)
		hs = append(hs, h)
		scores[h] = 0.5
	}
	// beyond the first ten, ignored
	scores["h10"], scores["h11"] = -1, -1

	src := &stubSource{headlines: hs}
	a := NewAnalyzer(src, scores, 7)
	a.Now = func() time.Time { return now }

	score, n, err := a.Score(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.InDelta(t, 0.5, score, 1e-12)
	assert.Equal(t, now.AddDate(0, 0, -7), src.from)
}

func TestAnalyzer_NoHeadlinesIsNeutral(t *testing.T) {
	a := NewAnalyzer(&stubSource{}, constScorer{}, 7)
	score, n, err := a.Score(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0.0, score)
}

func TestAnalyzer_SourceErrorReturned(t *testing.T) {
	boom := errors.New("boom")
	a := NewAnalyzer(&stubSource{err: boom}, constScorer{}, 7)
	_, _, err := a.Score(context.Background(), "AAPL")
	assert.ErrorIs(t, err, boom)
}

func TestFinnhubNews(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/company-news", r.URL.Path)
		assert.Equal(t, "key", r.URL.Query().Get("token"))
		assert.Equal(t, "2024-05-03", r.URL.Query().Get("from"))
		fmt.Fprint(w, `[{"headline":"older","datetime":100},{"headline":"newer","datetime":200},{"headline":"","datetime":300}]`)
	}))
	defer srv.Close()

	f := NewFinnhubNews(srv.URL, "key", collector.ClientOptions{})
	to := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	hs, err := f.Headlines(context.Background(), "AAPL", to.AddDate(0, 0, -7), to)
	require.NoError(t, err)
	assert.Equal(t, []string{"newer", "older"}, hs)
}

func TestFinnhubNews_NoKey(t *testing.T) {
	f := NewFinnhubNews("http://unused", "", collector.ClientOptions{})
	_, err := f.Headlines(context.Background(), "AAPL", time.Now(), time.Now())
	assert.Error(t, err)
}
