package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"commentwatch/internal/baseline"
)

// Manager launches and supervises one VideoLoop per configured video,
// satisfying spec.md §5's "N parallel long-running tasks, one per video"
// scheduling model.
type Manager struct {
	period       time.Duration
	baselineOpts baseline.Options
	deps         Deps
	lg           *slog.Logger
}

// NewManager builds a Manager sharing deps across every video's loop. Only
// deps.Store and deps.Cache are genuinely shared; Source and Sentiment are
// stateless clients safe for concurrent use.
func NewManager(period time.Duration, baselineOpts baseline.Options, deps Deps) *Manager {
	return &Manager{period: period, baselineOpts: baselineOpts, deps: deps, lg: deps.Logger}
}

// Run starts one goroutine per video in videoIDs, each performing its
// startup sequence before entering its poll loop, and blocks until ctx is
// canceled and every loop has exited.
func (m *Manager) Run(ctx context.Context, videoIDs []string) {
	var wg sync.WaitGroup
	for _, id := range videoIDs {
		wg.Add(1)
		go func(videoID string) {
			defer wg.Done()
			loop := New(videoID, m.period, m.baselineOpts, m.deps)
			if err := loop.Start(ctx); err != nil {
				m.lg.Error("video_startup_failed", "video_id", videoID, "error", err.Error())
				return
			}
			if err := loop.Run(ctx); err != nil {
				m.lg.Error("video_loop_exited", "video_id", videoID, "error", err.Error())
			}
		}(id)
	}
	wg.Wait()
}
