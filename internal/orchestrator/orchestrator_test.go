package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"commentwatch/internal/baseline"
	"commentwatch/internal/model"
	"commentwatch/internal/store"
)

type fakeSource struct {
	batches [][]model.Comment
	calls   int
}

func (f *fakeSource) FetchSince(_ context.Context, videoID, _ string) ([]model.Comment, error) {
	if f.calls >= len(f.batches) {
		return nil, nil
	}
	b := f.batches[f.calls]
	f.calls++
	return b, nil
}

type fakeSentiment struct{}

func (fakeSentiment) Batch(_ context.Context, texts []string) ([]float64, error) {
	out := make([]float64, len(texts))
	return out, nil
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestStartupPersistsAndReplays(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var history []model.Comment
	for i := 0; i < 30; i++ {
		history = append(history, model.Comment{
			CommentID:   "c" + time.Duration(i).String(),
			VideoID:     "v1",
			AuthorID:    "a" + time.Duration(i%4).String(),
			Text:        "normal comment text here",
			PublishedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	st := store.NewMemory()
	loop := New("v1", time.Minute, baseline.Options{Warmup: 3, MaxWindows: 20}, Deps{
		Source:    &fakeSource{batches: [][]model.Comment{history}},
		Sentiment: fakeSentiment{},
		Store:     st,
		Logger:    discardLogger(),
	})

	if err := loop.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	all, err := st.AllComments(context.Background(), "v1")
	if err != nil {
		t.Fatalf("AllComments: %v", err)
	}
	if len(all) != len(history) {
		t.Fatalf("expected %d persisted comments, got %d", len(history), len(all))
	}
	for _, c := range all {
		if c.Sentiment == nil {
			t.Fatalf("comment %s missing sentiment after startup", c.CommentID)
		}
	}
	if loop.baseline == nil {
		t.Fatalf("expected a warmed baseline after startup")
	}
}
