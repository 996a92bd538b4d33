// Package replay implements the Replay Engine described in spec.md §4.D:
// bulk re-aggregation of a video's already-persisted comment log into
// window metrics, baseline evaluation, classification, and persistence, in
// one idempotent pass. It is grounded on the teacher's
// services/mape/internal/analyze batch-recompute loop, generalized from
// zone sensor windows to comment windows.
package replay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"commentwatch/internal/aggregator"
	"commentwatch/internal/baseline"
	"commentwatch/internal/classifier"
	"commentwatch/internal/model"
	"commentwatch/internal/store"
)

// Options configures a replay run. Period is the poll-period windows are
// bucketed on; BaselineOpts is forwarded to baseline.New for every video
// encountered. Sink receives rendered reports for triggering windows; a nil
// Sink discards them. From and To optionally bound the replay to a time
// range (both zero means the full comment log); both bounds are inclusive,
// matching store.CommentsInRange.
type Options struct {
	Period       time.Duration
	BaselineOpts baseline.Options
	Sink         io.Writer
	From         time.Time
	To           time.Time
}

// Result summarizes one replay run for the caller (cmd/replaytool and the
// orchestrator's startup sequence both inspect it). Baselines holds the
// warmed-up Baseline for each video touched by the run, keyed by video ID,
// so the orchestrator can hand a single-video run's Baseline straight to
// its live poller instead of recomputing history a second time.
type Result struct {
	WindowsProcessed int
	WindowsSkipped   int
	AlertsRaised     int
	Baselines        map[string]*baseline.Baseline
}

// Run re-aggregates every comment already in st for videoID (or every video
// if videoID is empty and neither From nor To is set; a bounded run reads
// only videoID's comments, so an empty videoID with a bound yields no
// windows) into windows, evaluates, scores, classifies, and
// upserts each one, in strict window_start order per video. Empty or
// zero-volume windows are skipped entirely: spec.md §4.D says "a window
// with zero comments is not assessed and does not advance any baseline."
// Because it always derives windows fresh from the stored comment log and
// the Store's upsert is conflict-replacing on (video_id, window_start), Run
// is safe to call repeatedly over the same range (spec.md invariant 4).
func Run(ctx context.Context, st store.Store, lg *slog.Logger, videoID string, opts Options) (Result, error) {
	if opts.Period <= 0 {
		return Result{}, fmt.Errorf("replay: period must be positive")
	}

	var comments []model.Comment
	var err error
	if !opts.From.IsZero() || !opts.To.IsZero() {
		to := opts.To
		if to.IsZero() {
			to = time.Now().UTC()
		}
		comments, err = st.CommentsInRange(ctx, videoID, opts.From, to)
	} else {
		comments, err = st.AllComments(ctx, videoID)
	}
	if err != nil {
		return Result{}, fmt.Errorf("replay: load comments: %w", err)
	}
	windows := aggregator.BucketAndAggregate(comments, opts.Period, videoID)

	res := Result{Baselines: map[string]*baseline.Baseline{}}
	baselines := res.Baselines

	for _, w := range windows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if w.TotalComments == 0 {
			res.WindowsSkipped++
			continue
		}

		b, ok := baselines[w.VideoID]
		if !ok {
			b = baseline.New(opts.BaselineOpts)
			baselines[w.VideoID] = b
		}

		record := w
		z, ready := b.Evaluate(record)
		var alerts []classifier.Alert
		if ready {
			score := b.CoordinationScore(z)
			record.CoordinationScore = &score
			alerts = classifier.Classify(z, record)
		}

		if err := st.UpsertWindowMetrics(ctx, record); err != nil {
			return res, fmt.Errorf("replay: upsert window metrics: %w", err)
		}
		b.Update(w)
		res.WindowsProcessed++

		if len(alerts) > 0 {
			res.AlertsRaised += len(alerts)
			lg.Warn("pattern_detected", "video_id", record.VideoID, "window_start", record.WindowStart, "alerts", alerts)
			if opts.Sink != nil {
				rep, err := classifier.BuildReport(ctx, st, opts.Period, record, z, alerts)
				if err != nil {
					lg.Error("report_build_failed", "video_id", record.VideoID, "error", err)
					continue
				}
				if _, err := rep.WriteTo(opts.Sink); err != nil {
					lg.Error("report_write_failed", "video_id", record.VideoID, "error", err)
				}
			}
		}
	}

	lg.Info("replay_complete", "video_id", videoID, "windows_processed", res.WindowsProcessed,
		"windows_skipped", res.WindowsSkipped, "alerts_raised", res.AlertsRaised)
	return res, nil
}
