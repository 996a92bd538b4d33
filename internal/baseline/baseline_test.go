package baseline

import (
	"testing"

	"commentwatch/internal/model"
)

func uniformRecord(total, authors int, length, sentiment, sentimentVar, avgGap, gapVar float64) model.WindowMetricRecord {
	return model.WindowMetricRecord{
		TotalComments:     total,
		UniqueAuthors:     authors,
		AvgLength:         length,
		AvgSentiment:      sentiment,
		SentimentVariance: sentimentVar,
		AvgGap:            avgGap,
		GapVariance:       gapVar,
	}
}

// S1 — warmup suppression.
func TestWarmupSuppression(t *testing.T) {
	b := New(Options{Warmup: 10})
	rec := uniformRecord(10, 5, 50, 0, 0.05, 30, 10)
	for i := 0; i < 9; i++ {
		b.Update(rec)
	}
	if _, ok := b.Evaluate(rec); ok {
		t.Fatalf("expected warmup suppression at 9 windows of history")
	}
	b.Update(rec) // 10th
	if _, ok := b.Evaluate(rec); !ok {
		t.Fatalf("expected a z-vector once history reaches warmup size")
	}
}

// S2 — robotic cadence.
func TestRoboticCadenceSuppressesGapVariance(t *testing.T) {
	b := New(Options{Warmup: 10})
	for i := 0; i < 20; i++ {
		b.Update(uniformRecord(30, 20, 60, 0, 0.05, 30, 900))
	}
	z, ok := b.Evaluate(uniformRecord(30, 20, 60, 0, 0.05, 30, 0))
	if !ok {
		t.Fatalf("expected evaluation after warmup")
	}
	if z.GapVarZ >= -1.5 {
		t.Fatalf("expected gap_var_z < -1.5 for perfectly regular cadence, got %f", z.GapVarZ)
	}
}

// S3 — bot flood.
func TestBotFloodZVector(t *testing.T) {
	b := New(Options{Warmup: 10})
	for i := 0; i < 15; i++ {
		b.Update(uniformRecord(20, 18, 60, 0, 0.05, 30, 10))
	}
	z, ok := b.Evaluate(uniformRecord(200, 19, 60, 0, 0.05, 30, 10))
	if !ok {
		t.Fatalf("expected evaluation after warmup")
	}
	if z.CountZ <= 2.0 {
		t.Fatalf("expected count_z > 2.0, got %f", z.CountZ)
	}
	if z.AuthorZ >= 1.0 {
		t.Fatalf("expected author_z < 1.0, got %f", z.AuthorZ)
	}
}

// S4 — scripted narrative.
func TestScriptedNarrativeZVector(t *testing.T) {
	b := New(Options{Warmup: 10})
	sentiments := []float64{-0.2, -0.17, -0.14, -0.1, -0.07, -0.03, 0, 0.03, 0.07, 0.1, 0.14, 0.17, 0.2, -0.05, 0.05}
	for _, s := range sentiments {
		b.Update(uniformRecord(30, 20, 60, s, 0.06, 30, 10))
	}
	z, ok := b.Evaluate(uniformRecord(30, 20, 60, 0.9, 0, 30, 10))
	if !ok {
		t.Fatalf("expected evaluation after warmup")
	}
	if abs(z.SentimentZ) <= 2.0 {
		t.Fatalf("expected |sentiment_z| > 2.0, got %f", z.SentimentZ)
	}
	if z.SentimentVarZ >= -1.0 {
		t.Fatalf("expected sentiment_var_z < -1.0, got %f", z.SentimentVarZ)
	}
}

// S5 — interaction density.
func TestInteractionDensityZVector(t *testing.T) {
	b := New(Options{Warmup: 10})
	for i := 0; i < 15; i++ {
		b.Update(uniformRecord(21, 20, 60, 0, 0.05, 30, 10)) // concentration 1.05
	}
	z, ok := b.Evaluate(uniformRecord(50, 5, 60, 0, 0.05, 30, 10)) // concentration 10.0
	if !ok {
		t.Fatalf("expected evaluation after warmup")
	}
	if z.ConcentrationZ <= 2.5 {
		t.Fatalf("expected concentration_z > 2.5, got %f", z.ConcentrationZ)
	}
}

// Property 5 — ordering: Evaluate must not see the record being evaluated.
func TestEvaluateDoesNotSeeItself(t *testing.T) {
	b := New(Options{Warmup: 3})
	for i := 0; i < 3; i++ {
		b.Update(uniformRecord(10, 5, 50, 0, 0.05, 30, 10))
	}
	lenBefore := b.Len()
	if _, ok := b.Evaluate(uniformRecord(1000, 1, 1, 1, 1, 1, 1)); !ok {
		t.Fatalf("expected evaluation after warmup")
	}
	if b.Len() != lenBefore {
		t.Fatalf("Evaluate must not mutate history: len changed from %d to %d", lenBefore, b.Len())
	}
}

// Property 6 — robust z clamp.
func TestRobustZClamp(t *testing.T) {
	series := []float64{1, 1, 1, 1, 1}
	for _, extreme := range []float64{1e9, -1e9, 0, 1} {
		z := robustZ(extreme, series, 0.01)
		if z > 20 || z < -20 {
			t.Fatalf("robustZ(%v) = %v, want |z| <= 20", extreme, z)
		}
	}
}

// Property 7 — score monotonicity in dampened |z|.
func TestScoreMonotonicity(t *testing.T) {
	b := New(Options{})
	low := b.CoordinationScore(ZScores{ConcentrationZ: 1.0})
	high := b.CoordinationScore(ZScores{ConcentrationZ: 3.0})
	if high < low {
		t.Fatalf("expected score to be non-decreasing in concentration_z: low=%f high=%f", low, high)
	}

	lowCount := b.CoordinationScore(ZScores{CountZ: 1.0})
	highCount := b.CoordinationScore(ZScores{CountZ: 3.0})
	if highCount < lowCount {
		t.Fatalf("expected score to be non-decreasing in count_z: low=%f high=%f", lowCount, highCount)
	}

	lowSentVar := b.CoordinationScore(ZScores{SentimentVarZ: 1.0})
	highSentVar := b.CoordinationScore(ZScores{SentimentVarZ: 3.0})
	if highSentVar < lowSentVar {
		t.Fatalf("expected score to be non-decreasing in sentiment_var_z: low=%f high=%f", lowSentVar, highSentVar)
	}

	// gap_var_z at or above the robotic threshold: score still non-decreasing in |z|.
	lowGap := b.CoordinationScore(ZScores{GapVarZ: -1.0})
	highGap := b.CoordinationScore(ZScores{GapVarZ: -1.4})
	if highGap < lowGap {
		t.Fatalf("expected score to be non-decreasing in |gap_var_z| above robotic threshold: low=%f high=%f", lowGap, highGap)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
