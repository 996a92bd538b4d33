// Package classifier maps a z-score vector and a window's raw metrics to a
// set of categorical alerts, per spec.md §4.C.
package classifier

import (
	"commentwatch/internal/baseline"
	"commentwatch/internal/model"
)

// Alert is one categorical pattern the classifier can raise.
type Alert string

const (
	RhythmicPulse      Alert = "rhythmic_pulse"
	ScriptedNarrative  Alert = "scripted_narrative"
	BotFlood           Alert = "bot_flood"
	BrigadeOrganicSpike Alert = "brigade_organic_spike"
	InteractionDensity Alert = "interaction_density"
)

// volumeGuard is the minimum total_comments below which z-scores are
// considered unreliable, per spec.md §4.C.
const volumeGuard = 5

// Classify evaluates the independent predicates from spec.md §4.C against
// z and record, returning every alert whose predicate holds. It returns an
// empty (non-nil) set for windows with fewer than 5 comments.
func Classify(z baseline.ZScores, record model.WindowMetricRecord) []Alert {
	alerts := []Alert{}
	if record.TotalComments < volumeGuard {
		return alerts
	}

	if z.GapVarZ < -1.5 {
		alerts = append(alerts, RhythmicPulse)
	}
	if absf(z.SentimentZ) > 2.0 && z.SentimentVarZ < -1.0 {
		alerts = append(alerts, ScriptedNarrative)
	}
	if z.CountZ > 2.0 && z.AuthorZ < 1.0 {
		alerts = append(alerts, BotFlood)
	}
	if z.CountZ > 3.0 && z.AuthorZ > 3.0 {
		alerts = append(alerts, BrigadeOrganicSpike)
	}
	if z.ConcentrationZ > 2.5 {
		alerts = append(alerts, InteractionDensity)
	}
	return alerts
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
