// Package source implements the Comment Source Client described in
// spec.md §4.G: a paginated HTTP reader over an upstream comment feed,
// wrapped in a circuit breaker so a flaky upstream degrades a tick rather
// than hanging it. It is grounded on internal/breaker/httpclient.go for the
// resilience wrapper and on the paging-and-batching shape of
// services/mape/internal/kafkaio's consume loop, generalized from a Kafka
// partition read to an HTTP page read.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"commentwatch/internal/breaker"
	"commentwatch/internal/model"
)

// rawItem is the upstream JSON shape for one comment. Any item missing a
// required field is skipped rather than failing the whole page, per
// spec.md §4.G's malformed-item handling.
type rawItem struct {
	CommentID   string `json:"comment_id"`
	AuthorID    string `json:"author_id"`
	Text        string `json:"text"`
	PublishedAt string `json:"published_at"`
}

type page struct {
	Items    []rawItem `json:"items"`
	NextPage string    `json:"next_page"`
}

// Client fetches comments for a video from the configured upstream feed.
type Client struct {
	baseURL string
	http    *breaker.HTTPClient
	lg      *slog.Logger
}

// New builds a Client against baseURL (e.g. http://comments.internal),
// wrapping every request in a breaker named after the video feed.
func New(baseURL string, cfg breaker.Config, lg *slog.Logger) *Client {
	hc := breaker.NewHTTPClient("comment_source", cfg, lg, baseURL+"/healthz", nil)
	return &Client{baseURL: baseURL, http: hc, lg: lg}
}

// FetchSince pages newest-first through videoID's comment feed, stopping at
// either an empty next-page marker or the first item whose CommentID
// equals latestSeenID (exclusive), per spec.md §4.G. Passing an empty
// latestSeenID fetches the full available history. Items that fail to
// parse a required field are skipped and logged, not fatal to the page.
func (c *Client) FetchSince(ctx context.Context, videoID, latestSeenID string) ([]model.Comment, error) {
	var out []model.Comment
	cursor := ""
	for {
		pg, err := c.fetchPage(ctx, videoID, cursor)
		if err != nil {
			return out, fmt.Errorf("source: fetch page: %w", err)
		}
		if len(pg.Items) == 0 {
			break
		}

		stop := false
		for _, item := range pg.Items {
			if latestSeenID != "" && item.CommentID == latestSeenID {
				stop = true
				break
			}
			comment, ok := toComment(videoID, item)
			if !ok {
				c.lg.Warn("source_malformed_item", "video_id", videoID, "comment_id", item.CommentID)
				continue
			}
			out = append(out, comment)
		}
		if stop || pg.NextPage == "" {
			break
		}
		cursor = pg.NextPage
	}
	return out, nil
}

func (c *Client) fetchPage(ctx context.Context, videoID, cursor string) (page, error) {
	u, err := url.Parse(c.baseURL + "/videos/" + url.PathEscape(videoID) + "/comments")
	if err != nil {
		return page{}, err
	}
	q := u.Query()
	if cursor != "" {
		q.Set("page", cursor)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return page{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return page{}, err
	}
	defer resp.Body.Close()

	var pg page
	if err := json.NewDecoder(resp.Body).Decode(&pg); err != nil {
		return page{}, fmt.Errorf("decode page: %w", err)
	}
	return pg, nil
}

// State exposes the underlying breaker state for the status API.
func (c *Client) State() breaker.State { return c.http.State() }

// toComment rejects an item only for missing identity or timestamp fields.
// Empty text is valid input (spec.md §3: empty-text comments still count
// toward total_comments), so it is not part of the malformed check; the
// original ingestion.py keeps empty textDisplay the same way. Source is left
// unset here — the caller (orchestrator) tags it historical or live
// depending on which phase of the loop fetched it.
func toComment(videoID string, item rawItem) (model.Comment, bool) {
	if item.CommentID == "" || item.AuthorID == "" || item.PublishedAt == "" {
		return model.Comment{}, false
	}
	ts, err := parseTimestamp(item.PublishedAt)
	if err != nil {
		return model.Comment{}, false
	}
	c := model.Comment{
		CommentID:   item.CommentID,
		VideoID:     videoID,
		AuthorID:    item.AuthorID,
		Text:        item.Text,
		PublishedAt: ts,
		FetchedAt:   ts,
	}
	return c, true
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(n, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
