package sentiment

import (
	"math"

	"github.com/jonreiter/govader"
)

// VaderScorer scores text with the VADER compound score.
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVaderScorer loads the VADER lexicon.
func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Score returns the compound polarity of text in [-1,1].
func (v *VaderScorer) Score(text string) float64 {
	c := v.analyzer.PolarityScores(text).Compound
	if math.IsNaN(c) {
		return 0
	}
	return math.Max(-1, math.Min(1, c))
}
