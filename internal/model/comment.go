// Package model holds the data types shared across the ingestion,
// aggregation, baseline, and persistence layers.
package model

import "time"

// Source records which path a Comment entered the system through. It is
// forensic metadata only; it plays no part in window keys or scoring.
type Source string

const (
	SourceHistorical Source = "historical"
	SourceLive       Source = "live"
)

// Comment is a single user comment attached to a video. CommentID is
// globally unique and immutable; Sentiment is nil until the sentiment
// client has scored the comment, and is written at most once thereafter.
type Comment struct {
	CommentID   string
	VideoID     string
	AuthorID    string
	Text        string
	Sentiment   *float64
	PublishedAt time.Time
	FetchedAt   time.Time
	Source      Source
}

// NormalizeTimestamps truncates PublishedAt and FetchedAt to second
// precision UTC, matching the wire/storage format required by spec.md §3.
func (c *Comment) NormalizeTimestamps() {
	c.PublishedAt = c.PublishedAt.UTC().Truncate(time.Second)
	c.FetchedAt = c.FetchedAt.UTC().Truncate(time.Second)
}
