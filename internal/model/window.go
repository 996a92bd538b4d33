package model

import "time"

// WindowKey identifies the (video_id, window_start) pair every comment in
// that video's window belongs to, per spec.md §3.
type WindowKey struct {
	VideoID     string
	WindowStart time.Time
}

// BucketStart floors t to the poll-period boundary: bucket(t,P) =
// floor(epoch(t)/P)*P, returned at second precision UTC.
func BucketStart(t time.Time, period time.Duration) time.Time {
	secs := int64(period / time.Second)
	if secs <= 0 {
		secs = 1
	}
	epoch := t.UTC().Unix()
	bucket := (epoch / secs) * secs
	return time.Unix(bucket, 0).UTC()
}

// WindowMetricRecord is the per-window behavioral summary described in
// spec.md §3. CoordinationScore is nil until the baseline has enough
// history to evaluate the window (warmup, spec.md §4.B).
type WindowMetricRecord struct {
	VideoID            string
	WindowStart        time.Time
	TotalComments      int
	UniqueAuthors      int
	AvgLength          float64
	AvgSentiment       float64
	SentimentVariance  float64
	AvgGap             float64
	GapVariance        float64
	CoordinationScore  *float64
}

// Concentration is total_comments / unique_authors, guarding against a
// zero-author division (spec.md glossary: "Concentration").
func (r WindowMetricRecord) Concentration() float64 {
	authors := r.UniqueAuthors
	if authors < 1 {
		authors = 1
	}
	return float64(r.TotalComments) / float64(authors)
}
