package classifier

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"commentwatch/internal/baseline"
	"commentwatch/internal/model"
	"commentwatch/internal/store"
)

// Evidence holds the forensic detail attached to a triggering window's
// report, per spec.md §6's "Operator-visible output".
type Evidence struct {
	RepeatAuthors []store.AuthorRepeat // populated for Interaction Density
	Timeline      []model.Comment      // populated otherwise
}

// Report is the fully-built operator-visible output for one triggering
// window.
type Report struct {
	VideoID           string
	WindowStart       time.Time
	Alerts            []Alert
	Evidence          Evidence
	CoordinationScore float64
	Z                 baseline.ZScores
}

// poll-period default used when computing the evidence window end; callers
// that know the real period should use BuildReport's period parameter.
const defaultPeriod = 600 * time.Second

// BuildReport queries the store for evidence and assembles the report for
// a window that triggered at least one alert. For Interaction Density it
// fetches the top repeat authors inside [window_start, window_start+P]; for
// every other category it fetches the window's earliest comments,
// per spec.md §4.C.
func BuildReport(ctx context.Context, st store.Store, period time.Duration, record model.WindowMetricRecord, z baseline.ZScores, alerts []Alert) (Report, error) {
	if period <= 0 {
		period = defaultPeriod
	}
	rep := Report{
		VideoID:     record.VideoID,
		WindowStart: record.WindowStart,
		Alerts:      alerts,
		Z:           z,
	}
	if record.CoordinationScore != nil {
		rep.CoordinationScore = *record.CoordinationScore
	}

	if containsAlert(alerts, InteractionDensity) {
		authors, err := st.TopRepeatAuthors(ctx, record.VideoID, record.WindowStart, record.WindowStart.Add(period), 5)
		if err != nil {
			return Report{}, fmt.Errorf("classifier: evidence: %w", err)
		}
		rep.Evidence.RepeatAuthors = authors
		return rep, nil
	}

	timeline, err := st.FirstComments(ctx, record.VideoID, record.WindowStart, 10)
	if err != nil {
		return Report{}, fmt.Errorf("classifier: evidence: %w", err)
	}
	rep.Evidence.Timeline = timeline
	return rep, nil
}

func containsAlert(alerts []Alert, target Alert) bool {
	for _, a := range alerts {
		if a == target {
			return true
		}
	}
	return false
}

// salientZ returns the up-to-three largest-magnitude z-scores by name, for
// the report's "Technical Metrics" footer (spec.md §6).
func (r Report) salientZ() []struct {
	Name string
	Z    float64
} {
	named := []struct {
		Name string
		Z    float64
	}{
		{"count", r.Z.CountZ},
		{"author", r.Z.AuthorZ},
		{"length", r.Z.LengthZ},
		{"sentiment", r.Z.SentimentZ},
		{"concentration", r.Z.ConcentrationZ},
		{"sentiment_var", r.Z.SentimentVarZ},
		{"gap", r.Z.GapZ},
		{"gap_var", r.Z.GapVarZ},
	}
	sort.Slice(named, func(i, j int) bool { return absf(named[i].Z) > absf(named[j].Z) })
	if len(named) > 3 {
		named = named[:3]
	}
	return named
}

// WriteTo writes the human-readable report in the format spec.md §6
// describes: header, alert lines, an evidence section, and a technical
// metrics footer.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	var n int
	write := func(format string, a ...any) {
		c, _ := fmt.Fprintf(w, format, a...)
		n += c
	}

	write("[ALERT – %s] @ %s\n", r.VideoID, r.WindowStart.Format(time.RFC3339))
	for _, a := range r.Alerts {
		write("  - %s\n", a)
	}

	if len(r.Evidence.RepeatAuthors) > 0 {
		write("\n  --- Forensic Evidence: Top Repeat Commenters ---\n")
		for _, ar := range r.Evidence.RepeatAuthors {
			write("    %s (count=%d)\n", truncate(ar.AuthorID, 8), ar.Count)
			for _, s := range ar.SampleTexts {
				write("      - %s\n", truncate(s, 70))
			}
		}
	} else if len(r.Evidence.Timeline) > 0 {
		write("\n  --- Forensic Evidence: Window Timeline ---\n")
		for _, c := range r.Evidence.Timeline {
			write("    [%s] %s: %s\n", c.PublishedAt.Format(time.RFC3339), truncate(c.AuthorID, 8), truncate(c.Text, 80))
		}
	}

	write("\n  --- Technical Metrics ---\n")
	write("  Coordination Score: %.4f\n", r.CoordinationScore)
	write("  Top Z-Scores:")
	for _, z := range r.salientZ() {
		write(" %s=%.2f", z.Name, z.Z)
	}
	write("\n")
	return int64(n), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
