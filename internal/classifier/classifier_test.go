package classifier

import (
	"testing"

	"commentwatch/internal/baseline"
	"commentwatch/internal/model"
)

func record(total int) model.WindowMetricRecord {
	return model.WindowMetricRecord{VideoID: "v1", TotalComments: total, UniqueAuthors: 3}
}

func TestClassifyVolumeGuard(t *testing.T) {
	z := baseline.ZScores{GapVarZ: -5, SentimentZ: 5, SentimentVarZ: -5, CountZ: 10, AuthorZ: 10, ConcentrationZ: 10}
	alerts := Classify(z, record(4))
	if len(alerts) != 0 {
		t.Fatalf("expected no alerts below volume guard, got %v", alerts)
	}
}

func TestClassifyRhythmicPulse(t *testing.T) {
	z := baseline.ZScores{GapVarZ: -2.0}
	alerts := Classify(z, record(10))
	if !contains(alerts, RhythmicPulse) {
		t.Fatalf("expected rhythmic_pulse, got %v", alerts)
	}
}

func TestClassifyScriptedNarrative(t *testing.T) {
	z := baseline.ZScores{SentimentZ: 2.5, SentimentVarZ: -1.2}
	alerts := Classify(z, record(10))
	if !contains(alerts, ScriptedNarrative) {
		t.Fatalf("expected scripted_narrative, got %v", alerts)
	}
}

func TestClassifyBotFlood(t *testing.T) {
	z := baseline.ZScores{CountZ: 2.5, AuthorZ: 0.5}
	alerts := Classify(z, record(10))
	if !contains(alerts, BotFlood) {
		t.Fatalf("expected bot_flood, got %v", alerts)
	}
}

func TestClassifyBrigadeOrganicSpike(t *testing.T) {
	z := baseline.ZScores{CountZ: 3.5, AuthorZ: 3.5}
	alerts := Classify(z, record(10))
	if !contains(alerts, BrigadeOrganicSpike) {
		t.Fatalf("expected brigade_organic_spike, got %v", alerts)
	}
}

func TestClassifyInteractionDensity(t *testing.T) {
	z := baseline.ZScores{ConcentrationZ: 3.0}
	alerts := Classify(z, record(10))
	if !contains(alerts, InteractionDensity) {
		t.Fatalf("expected interaction_density, got %v", alerts)
	}
}

func TestClassifyNoFalsePositiveOnUniformTraffic(t *testing.T) {
	z := baseline.ZScores{}
	alerts := Classify(z, record(10))
	if len(alerts) != 0 {
		t.Fatalf("expected no alerts for a zero z-vector, got %v", alerts)
	}
}

func contains(alerts []Alert, target Alert) bool {
	for _, a := range alerts {
		if a == target {
			return true
		}
	}
	return false
}
