// Package aggregator computes window metric records from a video's
// comment log, per spec.md §4.A.
package aggregator

import (
	"sort"
	"time"

	"commentwatch/internal/model"
)

// FromComments computes the single-window metric record for an unordered
// slice of comments already filtered to one (video_id, window) range. When
// comments is empty, all derived fields are zero and a record is still
// returned, per spec.md §4.A.
//
// Comments are expected to carry a non-nil Sentiment; callers (the live
// poller and the replay engine) attach sentiment before comments reach
// storage, so by the time they are aggregated every comment has been
// scored.
func FromComments(videoID string, windowStart time.Time, comments []model.Comment) model.WindowMetricRecord {
	rec := model.WindowMetricRecord{VideoID: videoID, WindowStart: windowStart}
	n := len(comments)
	if n == 0 {
		return rec
	}

	sorted := make([]model.Comment, n)
	copy(sorted, comments)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PublishedAt.Before(sorted[j].PublishedAt) })

	authors := make(map[string]struct{}, n)
	var lengthSum float64
	var sentSum, sentSqSum float64
	var gapSum, gapSqSum float64
	var gapCount int

	for i, c := range sorted {
		authors[c.AuthorID] = struct{}{}
		lengthSum += float64(len([]rune(c.Text)))
		s := 0.0
		if c.Sentiment != nil {
			s = *c.Sentiment
		}
		sentSum += s
		sentSqSum += s * s
		if i > 0 {
			gap := sorted[i].PublishedAt.Sub(sorted[i-1].PublishedAt).Seconds()
			if gap < 0 {
				gap = 0
			}
			gapSum += gap
			gapSqSum += gap * gap
			gapCount++
		}
	}

	rec.TotalComments = n
	rec.UniqueAuthors = len(authors)
	rec.AvgLength = lengthSum / float64(n)
	rec.AvgSentiment = sentSum / float64(n)
	rec.SentimentVariance = clampNonNegative(sentSqSum/float64(n) - (sentSum/float64(n))*(sentSum/float64(n)))
	if gapCount > 0 {
		avgGap := gapSum / float64(gapCount)
		rec.AvgGap = avgGap
		rec.GapVariance = clampNonNegative(gapSqSum/float64(gapCount) - avgGap*avgGap)
	}
	return rec
}

// BucketAndAggregate groups comments by (video_id, bucket(published_at, P))
// and returns one WindowMetricRecord per bucket, ordered ascending by
// window_start, per spec.md §4.A's bulk form. videoFilter, if non-empty,
// restricts the output to a single video.
func BucketAndAggregate(comments []model.Comment, period time.Duration, videoFilter string) []model.WindowMetricRecord {
	type bucketKey struct {
		video string
		start time.Time
	}
	buckets := map[bucketKey][]model.Comment{}
	for _, c := range comments {
		if videoFilter != "" && c.VideoID != videoFilter {
			continue
		}
		key := bucketKey{video: c.VideoID, start: model.BucketStart(c.PublishedAt, period)}
		buckets[key] = append(buckets[key], c)
	}

	out := make([]model.WindowMetricRecord, 0, len(buckets))
	for key, group := range buckets {
		out = append(out, FromComments(key.video, key.start, group))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].VideoID != out[j].VideoID {
			return out[i].VideoID < out[j].VideoID
		}
		return out[i].WindowStart.Before(out[j].WindowStart)
	})
	return out
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
