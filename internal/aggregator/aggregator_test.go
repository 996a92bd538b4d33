package aggregator

import (
	"testing"
	"time"

	"commentwatch/internal/model"
)

func sentiment(v float64) *float64 { return &v }

func TestFromCommentsEmptyWindow(t *testing.T) {
	rec := FromComments("v1", time.Unix(0, 0), nil)
	if rec.TotalComments != 0 || rec.UniqueAuthors != 0 || rec.AvgLength != 0 ||
		rec.AvgSentiment != 0 || rec.SentimentVariance != 0 || rec.AvgGap != 0 || rec.GapVariance != 0 {
		t.Fatalf("expected all-zero record for empty window, got %+v", rec)
	}
}

func TestFromCommentsInvariants(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	comments := []model.Comment{
		{AuthorID: "a", Text: "hello", Sentiment: sentiment(0.5), PublishedAt: base},
		{AuthorID: "a", Text: "world!!", Sentiment: sentiment(-0.2), PublishedAt: base.Add(10 * time.Second)},
		{AuthorID: "b", Text: "", Sentiment: sentiment(0.0), PublishedAt: base.Add(25 * time.Second)},
	}
	rec := FromComments("v1", base, comments)

	if rec.TotalComments != 3 {
		t.Fatalf("expected 3 comments, got %d", rec.TotalComments)
	}
	if rec.UniqueAuthors < 0 || rec.UniqueAuthors > rec.TotalComments {
		t.Fatalf("unique_authors %d out of [0, total_comments] for total %d", rec.UniqueAuthors, rec.TotalComments)
	}
	if rec.UniqueAuthors != 2 {
		t.Fatalf("expected 2 unique authors, got %d", rec.UniqueAuthors)
	}
	if rec.SentimentVariance < 0 {
		t.Fatalf("sentiment_variance must be >= 0, got %f", rec.SentimentVariance)
	}
	if rec.GapVariance < 0 {
		t.Fatalf("gap_variance must be >= 0, got %f", rec.GapVariance)
	}
	// avg_length: "hello"=5, "world!!"=7, ""=0 -> mean 4
	if rec.AvgLength != 4 {
		t.Fatalf("expected avg_length 4, got %f", rec.AvgLength)
	}
	// gaps: 10s, 15s -> mean 12.5
	if rec.AvgGap != 12.5 {
		t.Fatalf("expected avg_gap 12.5, got %f", rec.AvgGap)
	}
}

func TestBucketAndAggregateOrdering(t *testing.T) {
	period := 600 * time.Second
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	comments := []model.Comment{
		{VideoID: "v1", AuthorID: "a", Text: "x", Sentiment: sentiment(0), PublishedAt: base.Add(1900 * time.Second)},
		{VideoID: "v1", AuthorID: "b", Text: "y", Sentiment: sentiment(0), PublishedAt: base},
		{VideoID: "v2", AuthorID: "c", Text: "z", Sentiment: sentiment(0), PublishedAt: base},
	}
	recs := BucketAndAggregate(comments, period, "v1")
	if len(recs) != 2 {
		t.Fatalf("expected 2 windows for v1, got %d", len(recs))
	}
	if !recs[0].WindowStart.Before(recs[1].WindowStart) {
		t.Fatalf("expected ascending window_start ordering, got %v then %v", recs[0].WindowStart, recs[1].WindowStart)
	}
	for _, r := range recs {
		if r.VideoID != "v1" {
			t.Fatalf("expected only v1 records, got %s", r.VideoID)
		}
	}
}

func TestRoundTripInsertThenAggregate(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := model.Comment{VideoID: "v1", CommentID: "c1", AuthorID: "a", Text: "hi", Sentiment: sentiment(0.1), PublishedAt: base}
	rec := FromComments("v1", base, []model.Comment{c})
	if rec.TotalComments < 1 {
		t.Fatalf("expected total_comments >= 1 after inserting a comment, got %d", rec.TotalComments)
	}
}
