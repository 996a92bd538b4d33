package source

import "testing"

func TestToCommentRejectsMissingFields(t *testing.T) {
	cases := []rawItem{
		{CommentID: "", AuthorID: "a", Text: "hi", PublishedAt: "2026-01-01T00:00:00Z"},
		{CommentID: "c1", AuthorID: "", Text: "hi", PublishedAt: "2026-01-01T00:00:00Z"},
		{CommentID: "c1", AuthorID: "a", Text: "hi", PublishedAt: ""},
	}
	for _, item := range cases {
		if _, ok := toComment("v1", item); ok {
			t.Fatalf("expected rejection for %+v", item)
		}
	}
}

func TestToCommentAcceptsEmptyText(t *testing.T) {
	item := rawItem{CommentID: "c1", AuthorID: "a1", Text: "", PublishedAt: "2026-01-01T00:00:00Z"}
	c, ok := toComment("v1", item)
	if !ok {
		t.Fatalf("expected empty-text comment to be accepted")
	}
	if c.Text != "" {
		t.Fatalf("unexpected text: %q", c.Text)
	}
}

func TestToCommentAcceptsWellFormedItem(t *testing.T) {
	item := rawItem{CommentID: "c1", AuthorID: "a1", Text: "hello", PublishedAt: "2026-01-01T00:00:00Z"}
	c, ok := toComment("v1", item)
	if !ok {
		t.Fatalf("expected acceptance")
	}
	if c.CommentID != "c1" || c.VideoID != "v1" || c.AuthorID != "a1" || c.Text != "hello" {
		t.Fatalf("unexpected comment: %+v", c)
	}
}

func TestParseTimestampUnixFallback(t *testing.T) {
	ts, err := parseTimestamp("1735689600")
	if err != nil {
		t.Fatalf("parseTimestamp: %v", err)
	}
	if ts.Unix() != 1735689600 {
		t.Fatalf("unexpected unix time: %v", ts.Unix())
	}
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	if _, err := parseTimestamp("not-a-timestamp"); err == nil {
		t.Fatalf("expected error for malformed timestamp")
	}
}
