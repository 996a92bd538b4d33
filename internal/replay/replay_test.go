package replay

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"commentwatch/internal/model"
	"commentwatch/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sentiment(v float64) *float64 { return &v }

func seedComments(t *testing.T, st *store.Memory, videoID string, base time.Time, windows, perWindow int, period time.Duration) {
	t.Helper()
	var comments []model.Comment
	n := 0
	for w := 0; w < windows; w++ {
		start := base.Add(time.Duration(w) * period)
		for i := 0; i < perWindow; i++ {
			n++
			comments = append(comments, model.Comment{
				CommentID:   time.Duration(n).String(),
				VideoID:     videoID,
				AuthorID:    "author-" + time.Duration(i).String(),
				Text:        "hello world this is a comment",
				Sentiment:   sentiment(0.1),
				PublishedAt: start.Add(time.Duration(i) * time.Second),
				FetchedAt:   start,
			})
		}
	}
	if err := st.InsertComments(context.Background(), comments); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestRunSkipsEmptyWindows(t *testing.T) {
	st := store.NewMemory()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	// Comments land every other minute, so the 1m and 3m buckets are silent
	// and must not be processed.
	seedComments(t, st, "v1", base, 3, 4, 2*time.Minute)

	res, err := Run(context.Background(), st, discardLogger(), "v1", Options{Period: time.Minute})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.WindowsProcessed != 3 {
		t.Fatalf("expected 3 processed windows, got %d", res.WindowsProcessed)
	}
	if res.WindowsSkipped != 0 {
		t.Fatalf("expected 0 skipped windows, got %d", res.WindowsSkipped)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	st := store.NewMemory()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seedComments(t, st, "v1", base, 12, 6, time.Minute)

	lg := discardLogger()
	first, err := Run(context.Background(), st, lg, "v1", Options{Period: time.Minute})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	firstRows := st.WindowMetrics("v1")

	second, err := Run(context.Background(), st, lg, "v1", Options{Period: time.Minute})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	secondRows := st.WindowMetrics("v1")

	if first.WindowsProcessed != second.WindowsProcessed {
		t.Fatalf("processed count changed across runs: %d vs %d", first.WindowsProcessed, second.WindowsProcessed)
	}
	if len(firstRows) != len(secondRows) {
		t.Fatalf("row count changed across runs: %d vs %d", len(firstRows), len(secondRows))
	}
	for i := range firstRows {
		if firstRows[i].TotalComments != secondRows[i].TotalComments {
			t.Fatalf("row %d total_comments changed: %d vs %d", i, firstRows[i].TotalComments, secondRows[i].TotalComments)
		}
		if (firstRows[i].CoordinationScore == nil) != (secondRows[i].CoordinationScore == nil) {
			t.Fatalf("row %d coordination score presence changed", i)
		}
	}
}

func TestRunWarmupGate(t *testing.T) {
	st := store.NewMemory()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seedComments(t, st, "v1", base, 5, 4, time.Minute)

	res, err := Run(context.Background(), st, discardLogger(), "v1", Options{Period: time.Minute})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	rows := st.WindowMetrics("v1")
	for i, r := range rows {
		if i < 10 && r.CoordinationScore != nil {
			t.Fatalf("row %d: expected no coordination score before warmup, got %v", i, *r.CoordinationScore)
		}
	}
	if res.AlertsRaised != 0 {
		t.Fatalf("expected no alerts from uniform traffic, got %d", res.AlertsRaised)
	}
}
