package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"commentwatch/internal/model"
)

// Memory is an in-process Store used by tests. It implements the same idempotence contract as Postgres:
// duplicate comment_id inserts are no-ops and window metric upserts
// replace the existing row.
type Memory struct {
	mu       sync.RWMutex
	comments map[string]model.Comment
	windows  map[model.WindowKey]model.WindowMetricRecord
}

// NewMemory returns an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{
		comments: map[string]model.Comment{},
		windows:  map[model.WindowKey]model.WindowMetricRecord{},
	}
}

func (m *Memory) Close() {}

func (m *Memory) InsertComments(_ context.Context, comments []model.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range comments {
		if _, exists := m.comments[c.CommentID]; exists {
			continue
		}
		c.NormalizeTimestamps()
		m.comments[c.CommentID] = c
	}
	return nil
}

func (m *Memory) CommentsInRange(_ context.Context, videoID string, start, end time.Time) ([]model.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Comment
	for _, c := range m.comments {
		if c.VideoID != videoID {
			continue
		}
		if c.PublishedAt.Before(start) || c.PublishedAt.After(end) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.Before(out[j].PublishedAt) })
	return out, nil
}

func (m *Memory) AllComments(_ context.Context, videoID string) ([]model.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Comment
	for _, c := range m.comments {
		if videoID != "" && c.VideoID != videoID {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].VideoID != out[j].VideoID {
			return out[i].VideoID < out[j].VideoID
		}
		return out[i].PublishedAt.Before(out[j].PublishedAt)
	})
	return out, nil
}

func (m *Memory) UpsertWindowMetrics(_ context.Context, r model.WindowMetricRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := model.WindowKey{VideoID: r.VideoID, WindowStart: r.WindowStart.UTC().Truncate(time.Second)}
	m.windows[key] = r
	return nil
}

// WindowMetrics exposes the upserted rows for assertions in tests.
func (m *Memory) WindowMetrics(videoID string) []model.WindowMetricRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.WindowMetricRecord
	for k, r := range m.windows {
		if k.VideoID == videoID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WindowStart.Before(out[j].WindowStart) })
	return out
}

func (m *Memory) TopRepeatAuthors(_ context.Context, videoID string, windowStart, windowEnd time.Time, limit int) ([]AuthorRepeat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := map[string]*AuthorRepeat{}
	for _, c := range m.comments {
		if c.VideoID != videoID || c.PublishedAt.Before(windowStart) || c.PublishedAt.After(windowEnd) {
			continue
		}
		ar, ok := counts[c.AuthorID]
		if !ok {
			ar = &AuthorRepeat{AuthorID: c.AuthorID}
			counts[c.AuthorID] = ar
		}
		ar.Count++
		if len(ar.SampleTexts) < 3 {
			ar.SampleTexts = append(ar.SampleTexts, c.Text)
		}
	}
	var out []AuthorRepeat
	for _, ar := range counts {
		if ar.Count > 1 {
			out = append(out, *ar)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) FirstComments(_ context.Context, videoID string, windowStart time.Time, limit int) ([]model.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Comment
	for _, c := range m.comments {
		if c.VideoID != videoID || c.PublishedAt.Before(windowStart) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.Before(out[j].PublishedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
