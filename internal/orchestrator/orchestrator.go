// Package orchestrator implements the Live Poller / Orchestrator described
// in spec.md §4.E: one sequential control loop per video, coordinating
// fetch, sentiment scoring, persistence, aggregation, evaluation, scoring,
// classification, and upsert, with cooperative cancellation between ticks.
// It is grounded on the per-zone control-loop shape of
// services/mape's monitor/analyze/plan/execute split, generalized to a
// single per-video goroutine that runs all four phases per tick.
package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"commentwatch/internal/aggregator"
	"commentwatch/internal/baseline"
	"commentwatch/internal/classifier"
	"commentwatch/internal/httpapi"
	"commentwatch/internal/model"
	"commentwatch/internal/replay"
	"commentwatch/internal/sentiment"
	"commentwatch/internal/store"
)

// CommentSource fetches new comments for a video since a cursor id. It is
// satisfied by *source.Client; tests substitute a fake.
type CommentSource interface {
	FetchSince(ctx context.Context, videoID, latestSeenID string) ([]model.Comment, error)
}

// CursorCache records and recalls a video's last-seen comment id,
// best-effort. It is satisfied by *cursorcache.Cache.
type CursorCache interface {
	Get(ctx context.Context, videoID string) string
	Set(ctx context.Context, videoID, commentID string)
}

// AlertPublisher receives one event per triggering window, so the operator
// HTTP API can fan it out to WebSocket clients. A nil AlertPublisher
// disables publishing.
type AlertPublisher interface {
	PublishAlert(e httpapi.AlertEvent)
}

// Deps bundles the collaborators every video's loop shares. Only Store is
// genuinely shared mutable state (spec.md §5); everything else is either
// stateless or, for Cache, best-effort.
type Deps struct {
	Source    CommentSource
	Sentiment sentiment.Scorer
	Store     store.Store
	Cache     CursorCache
	Publisher AlertPublisher
	Sink      io.Writer
	Logger    *slog.Logger
}

// VideoLoop is one video's exclusively-owned control loop state, per
// spec.md §5's per-video ownership rule: latestSeenID, lastWindowStart, and
// the Baseline are never touched by any other goroutine.
type VideoLoop struct {
	videoID         string
	period          time.Duration
	baselineOpts    baseline.Options
	deps            Deps
	latestSeenID    string
	lastWindowStart time.Time
	baseline        *baseline.Baseline
}

// New builds a VideoLoop for videoID. Start must be called once before Run.
func New(videoID string, period time.Duration, baselineOpts baseline.Options, deps Deps) *VideoLoop {
	return &VideoLoop{videoID: videoID, period: period, baselineOpts: baselineOpts, deps: deps}
}

// Start performs spec.md §4.E's startup sequence: fetch history (only the
// comments newer than the cached cursor when the cache holds one, the full
// history otherwise), persist with sentiment, then replay the stored
// comment log to warm the baseline. Live ticking
// must not begin before Start returns successfully.
func (v *VideoLoop) Start(ctx context.Context) error {
	lg := v.deps.Logger
	var latestCached string
	if v.deps.Cache != nil {
		latestCached = v.deps.Cache.Get(ctx, v.videoID)
	}

	comments, err := v.deps.Source.FetchSince(ctx, v.videoID, latestCached)
	if err != nil {
		lg.Error("startup_fetch_failed", "video_id", v.videoID, "error", err.Error())
		return err
	}
	for i := range comments {
		comments[i].Source = model.SourceHistorical
	}
	if err := v.scoreAndPersist(ctx, comments); err != nil {
		return err
	}
	if len(comments) > 0 {
		v.latestSeenID = newestID(comments)
		if v.deps.Cache != nil {
			v.deps.Cache.Set(ctx, v.videoID, v.latestSeenID)
		}
	} else {
		v.latestSeenID = latestCached
	}

	res, err := replay.Run(ctx, v.deps.Store, lg, v.videoID, replay.Options{
		Period:       v.period,
		BaselineOpts: v.baselineOpts,
		Sink:         v.deps.Sink,
	})
	if err != nil {
		lg.Error("startup_replay_failed", "video_id", v.videoID, "error", err.Error())
		return err
	}
	v.baseline = res.Baselines[v.videoID]
	if v.baseline == nil {
		v.baseline = baseline.New(v.baselineOpts)
	}
	v.lastWindowStart = time.Now().UTC()
	lg.Info("startup_complete", "video_id", v.videoID, "windows_replayed", res.WindowsProcessed)
	return nil
}

// Run ticks every v.period until ctx is canceled, completing any in-flight
// tick before exiting, per spec.md §4.E step 7 and §5's cancellation rule.
func (v *VideoLoop) Run(ctx context.Context) error {
	ticker := time.NewTicker(v.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := v.tick(ctx); err != nil {
				v.deps.Logger.Error("video_loop_terminated", "video_id", v.videoID, "error", err.Error())
				return err
			}
		}
	}
}

// tick runs one poll cycle (spec.md §4.E steps 1-6). Fetch and sentiment
// failures are absorbed (logged, tick skipped or degraded); only a
// persistent persistence failure is returned to the caller, terminating
// the loop.
func (v *VideoLoop) tick(ctx context.Context) error {
	tickID := uuid.New().String()
	lg := v.deps.Logger.With("tick_id", tickID)
	now := time.Now().UTC()

	fetched, err := v.deps.Source.FetchSince(ctx, v.videoID, v.latestSeenID)
	if err != nil {
		lg.Warn("tick_fetch_failed", "video_id", v.videoID, "error", err.Error())
		return nil
	}
	for i := range fetched {
		fetched[i].Source = model.SourceLive
	}

	if err := v.scoreAndPersist(ctx, fetched); err != nil {
		return err
	}
	if len(fetched) > 0 {
		v.latestSeenID = newestID(fetched)
		if v.deps.Cache != nil {
			v.deps.Cache.Set(ctx, v.videoID, v.latestSeenID)
		}
	}

	windowComments, err := v.deps.Store.CommentsInRange(ctx, v.videoID, v.lastWindowStart, now)
	if err != nil {
		lg.Warn("tick_window_read_failed", "video_id", v.videoID, "error", err.Error())
		v.lastWindowStart = now
		return nil
	}
	record := aggregator.FromComments(v.videoID, model.BucketStart(v.lastWindowStart, v.period), windowComments)

	if record.TotalComments > 0 {
		z, ready := v.baseline.Evaluate(record)
		var alerts []classifier.Alert
		if ready {
			score := v.baseline.CoordinationScore(z)
			record.CoordinationScore = &score
			alerts = classifier.Classify(z, record)
		}
		if err := v.deps.Store.UpsertWindowMetrics(ctx, record); err != nil {
			lg.Error("persistent_persistence_failure", "video_id", v.videoID, "error", err.Error())
			return err
		}
		v.baseline.Update(record)

		if len(alerts) > 0 {
			lg.Warn("pattern_detected", "video_id", v.videoID, "window_start", record.WindowStart, "alerts", alerts)
			v.emitAlert(ctx, record, z, alerts)
		}
	}

	v.lastWindowStart = now
	return nil
}

func (v *VideoLoop) emitAlert(ctx context.Context, record model.WindowMetricRecord, z baseline.ZScores, alerts []classifier.Alert) {
	lg := v.deps.Logger
	if v.deps.Sink != nil {
		rep, err := classifier.BuildReport(ctx, v.deps.Store, v.period, record, z, alerts)
		if err != nil {
			lg.Error("report_build_failed", "video_id", v.videoID, "error", err.Error())
		} else if _, err := rep.WriteTo(v.deps.Sink); err != nil {
			lg.Error("report_write_failed", "video_id", v.videoID, "error", err.Error())
		}
	}
	if v.deps.Publisher != nil {
		score := 0.0
		if record.CoordinationScore != nil {
			score = *record.CoordinationScore
		}
		v.deps.Publisher.PublishAlert(httpapi.AlertEvent{
			VideoID:           record.VideoID,
			WindowStart:       record.WindowStart,
			Alerts:            alerts,
			CoordinationScore: score,
			Z:                 z,
		})
	}
}

// scoreAndPersist batches sentiment for comments with non-empty text
// (spec.md §4.E step 2), defaulting empty/whitespace text and any sentiment
// failure to 0.0, then bulk-inserts with duplicate-id tolerance.
func (v *VideoLoop) scoreAndPersist(ctx context.Context, comments []model.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	texts := make([]string, len(comments))
	for i, c := range comments {
		texts[i] = c.Text
	}
	scores, err := v.deps.Sentiment.Batch(ctx, texts)
	if err != nil {
		v.deps.Logger.Warn("sentiment_batch_degraded", "video_id", v.videoID, "error", err.Error())
	}
	for i := range comments {
		s := 0.0
		if i < len(scores) {
			s = scores[i]
		}
		comments[i].Sentiment = &s
		comments[i].FetchedAt = time.Now().UTC()
	}
	if err := v.deps.Store.InsertComments(ctx, comments); err != nil {
		v.deps.Logger.Error("persistent_persistence_failure", "video_id", v.videoID, "error", err.Error())
		return err
	}
	return nil
}

func newestID(comments []model.Comment) string {
	newest := comments[0]
	for _, c := range comments[1:] {
		if c.PublishedAt.After(newest.PublishedAt) {
			newest = c
		}
	}
	return newest.CommentID
}
