package strategy

import (
	"errors"
	"math"
	"testing"
	"time"

	"StockAnalyzer/internal/model"
)

func makeSeries(t *testing.T, closes ...float64) model.PriceSeries {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]model.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = model.PricePoint{Time: start.AddDate(0, 0, i), Close: c}
	}
	s, err := model.NewPriceSeries("TEST", points)
	if err != nil {
		t.Fatalf("build series: %v", err)
	}
	return s
}

func makeForecast(t *testing.T, base string, outputs map[string]model.ModelOutput) model.ModelForecast {
	t.Helper()
	f, err := model.NewModelForecast(base, outputs)
	if err != nil {
		t.Fatalf("build forecast: %v", err)
	}
	return f
}

func TestGenerateFinalSignal_SingleModel(t *testing.T) {
	f := makeForecast(t, "m1", map[string]model.ModelOutput{"m1": {Price: 100, Confidence: 1}})
	sig, err := GenerateFinalSignal(f, 0)
	if err != nil {
		t.Fatal(err)
	}
	if sig.FinalPriceTarget != 100 {
		t.Errorf("target = %v, want 100", sig.FinalPriceTarget)
	}
	if sig.Confidence != 1 {
		t.Errorf("confidence = %v, want 1", sig.Confidence)
	}
	if sig.Action != model.ActionHold {
		t.Errorf("action = %s, want HOLD", sig.Action)
	}
	if len(sig.Reasons) != 3 {
		t.Fatalf("expected 3 reasons, got %d", len(sig.Reasons))
	}
	if sig.Reasons[0] != "Model avg target: $100.00" {
		t.Errorf("unexpected first reason %q", sig.Reasons[0])
	}
	if sig.Reasons[1] != "Sentiment factor applied: +0.00" {
		t.Errorf("unexpected second reason %q", sig.Reasons[1])
	}
}

func TestGenerateFinalSignal_EqualModelsHold(t *testing.T) {
	f := makeForecast(t, "gradient_boost", map[string]model.ModelOutput{
		"gradient_boost": {Price: 250, Confidence: 0.6},
		"trend":          {Price: 250, Confidence: 0.6},
		"other":          {Price: 250, Confidence: 0.6},
	})
	sig, err := GenerateFinalSignal(f, 0)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(sig.FinalPriceTarget-250) > 1e-9 {
		t.Errorf("target = %v, want 250", sig.FinalPriceTarget)
	}
	if sig.Action != model.ActionHold {
		t.Errorf("action = %s, want HOLD", sig.Action)
	}
}

func TestGenerateFinalSignal_ConfidenceIsUnweightedMean(t *testing.T) {
	f := makeForecast(t, "a", map[string]model.ModelOutput{
		"a": {Price: 100, Confidence: 0.2},
		"b": {Price: 120, Confidence: 0.8},
	})
	sig, err := GenerateFinalSignal(f, 0)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(sig.Confidence-0.5) > 1e-12 {
		t.Errorf("confidence = %v, want 0.5", sig.Confidence)
	}
	// weighted: (100*0.2 + 120*0.8) / 1.0 = 116
	if math.Abs(sig.FinalPriceTarget-116) > 1e-9 {
		t.Errorf("target = %v, want 116", sig.FinalPriceTarget)
	}
	// delta 16 > 0.03*100
	if sig.Action != model.ActionBuy {
		t.Errorf("action = %s, want BUY", sig.Action)
	}
}

func TestGenerateFinalSignal_Actions(t *testing.T) {
	tests := []struct {
		name      string
		other     float64
		sentiment float64
		want      model.Action
	}{
		{"strong upside", 120, 0, model.ActionBuy},
		{"strong downside", 80, 0, model.ActionSell},
		{"inside band", 104, 0, model.ActionHold},
		{"sentiment pushes over", 105, 1, model.ActionBuy},
		{"sentiment pulls under", 96, -1, model.ActionSell},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := makeForecast(t, "base", map[string]model.ModelOutput{
				"base":  {Price: 100, Confidence: 0.5},
				"other": {Price: tt.other, Confidence: 0.5},
			})
			sig, err := GenerateFinalSignal(f, tt.sentiment)
			if err != nil {
				t.Fatal(err)
			}
			if sig.Action != tt.want {
				t.Errorf("action = %s (target %.4f), want %s", sig.Action, sig.FinalPriceTarget, tt.want)
			}
		})
	}
}

func TestGenerateFinalSignal_SentimentScalesTarget(t *testing.T) {
	f := makeForecast(t, "m", map[string]model.ModelOutput{"m": {Price: 200, Confidence: 0.9}})
	sig, err := GenerateFinalSignal(f, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(sig.FinalPriceTarget-205) > 1e-9 {
		t.Errorf("target = %v, want 205", sig.FinalPriceTarget)
	}
}

func TestGenerateFinalSignal_InvalidInput(t *testing.T) {
	f := makeForecast(t, "m", map[string]model.ModelOutput{"m": {Price: 100, Confidence: 1}})
	for _, s := range []float64{1.01, -1.5, math.NaN(), math.Inf(1)} {
		if _, err := GenerateFinalSignal(f, s); !errors.Is(err, model.ErrInvalidInput) {
			t.Errorf("sentiment %v: expected ErrInvalidInput, got %v", s, err)
		}
	}
	if _, err := GenerateFinalSignal(model.ModelForecast{}, 0); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("empty forecast: expected ErrInvalidInput, got %v", err)
	}
}

func TestGenerateFinalSignal_Deterministic(t *testing.T) {
	outputs := map[string]model.ModelOutput{
		"gradient_boost": {Price: 101.37, Confidence: 0.71},
		"trend":          {Price: 99.13, Confidence: 0.33},
		"x":              {Price: 103.9, Confidence: 0.1},
		"y":              {Price: 97.2, Confidence: 0.47},
	}
	first, err := GenerateFinalSignal(makeForecast(t, "gradient_boost", outputs), 0.2)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		sig, _ := GenerateFinalSignal(makeForecast(t, "gradient_boost", outputs), 0.2)
		if sig.FinalPriceTarget != first.FinalPriceTarget || sig.Confidence != first.Confidence {
			t.Fatalf("run %d differs: %v vs %v", i, sig, first)
		}
	}
}

func TestCalculateTradeLevels_EntryIsLastClose(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 50 + float64(i)
	}
	s := makeSeries(t, closes...)
	for _, target := range []float64{0, 1, 89, 1e6} {
		lv, err := CalculateTradeLevels(s, target)
		if err != nil {
			t.Fatal(err)
		}
		if lv.Entry != 89 {
			t.Errorf("target %v: entry = %v, want 89", target, lv.Entry)
		}
	}
}

func TestCalculateTradeLevels_Values(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 100
	}
	closes[24] = 110
	lv, err := CalculateTradeLevels(makeSeries(t, closes...), 120)
	if err != nil {
		t.Fatal(err)
	}
	// SMA of last 20 = (19*100 + 110)/20 = 100.5
	if math.Abs(lv.Buy-100.5*0.98) > 1e-9 {
		t.Errorf("buy = %v, want %v", lv.Buy, 100.5*0.98)
	}
	if math.Abs(lv.StopLoss-110*0.95) > 1e-9 {
		t.Errorf("stop = %v, want %v", lv.StopLoss, 110*0.95)
	}
}

func TestCalculateTradeLevels_ShortHistoryFallsBackToEntry(t *testing.T) {
	lv, err := CalculateTradeLevels(makeSeries(t, 10, 11, 12), 15)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(lv.Buy-12*0.98) > 1e-9 {
		t.Errorf("buy = %v, want %v", lv.Buy, 12*0.98)
	}
}

func TestCalculateTradeLevels_EmptySeries(t *testing.T) {
	_, err := CalculateTradeLevels(makeSeries(t), 100)
	if !errors.Is(err, model.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestAdjustLevelsForRisk(t *testing.T) {
	in := model.TradeLevels{Buy: 98, Entry: 100, StopLoss: 95}

	out, err := AdjustLevelsForRisk(in, model.RiskNeutral)
	if err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Errorf("risk 5 changed levels: %+v", out)
	}

	out, err = AdjustLevelsForRisk(in, 10)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(out.Buy-98*1.25) > 1e-9 || math.Abs(out.StopLoss-95/1.25) > 1e-9 || out.Entry != 100 {
		t.Errorf("risk 10: %+v", out)
	}

	out, err = AdjustLevelsForRisk(in, 1)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(out.Buy-98*0.8) > 1e-9 || math.Abs(out.StopLoss-95/0.8) > 1e-9 || out.Entry != 100 {
		t.Errorf("risk 1: %+v", out)
	}

	for _, r := range []model.RiskCoefficient{0, 11, -3} {
		if _, err := AdjustLevelsForRisk(in, r); !errors.Is(err, model.ErrInvalidInput) {
			t.Errorf("risk %d: expected ErrInvalidInput, got %v", r, err)
		}
	}
}
