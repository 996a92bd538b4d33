// Package store defines the persistence contract described in spec.md
// §4.F and §6: an append-only comments log and an upsertable
// window_metrics table.
package store

import (
	"context"
	"time"

	"commentwatch/internal/model"
)

// AuthorRepeat is one row of the "top repeat authors" forensic evidence
// query the classifier uses for the Interaction Density category
// (spec.md §4.C).
type AuthorRepeat struct {
	AuthorID    string
	Count       int
	SampleTexts []string
}

// Store is the persistence contract every component that touches the
// database depends on. Implementations must make comment inserts
// idempotent on comment_id and window metric upserts idempotent on
// (video_id, window_start), per spec.md §3 and §4.F.
type Store interface {
	// InsertComments bulk-inserts comments, silently ignoring rows whose
	// comment_id already exists.
	InsertComments(ctx context.Context, comments []model.Comment) error

	// CommentsInRange returns comments for videoID with published_at in
	// [start, end] inclusive, per spec.md §4.A's single-window form.
	CommentsInRange(ctx context.Context, videoID string, start, end time.Time) ([]model.Comment, error)

	// AllComments returns every comment for videoID (or every video, if
	// videoID is empty) ordered by published_at ascending, for the
	// Replay Engine's bulk aggregation pass.
	AllComments(ctx context.Context, videoID string) ([]model.Comment, error)

	// UpsertWindowMetrics writes a window metric record, replacing all
	// derived fields on conflict with the existing (video_id,
	// window_start) row.
	UpsertWindowMetrics(ctx context.Context, record model.WindowMetricRecord) error

	// TopRepeatAuthors returns authors who posted more than once inside
	// [windowStart, windowEnd], ordered by descending comment count, for
	// Interaction Density evidence (spec.md §4.C).
	TopRepeatAuthors(ctx context.Context, videoID string, windowStart, windowEnd time.Time, limit int) ([]AuthorRepeat, error)

	// FirstComments returns the chronologically first comments at or
	// after windowStart for videoID, for the non-Interaction-Density
	// evidence timeline (spec.md §4.C).
	FirstComments(ctx context.Context, videoID string, windowStart time.Time, limit int) ([]model.Comment, error)

	Close()
}
