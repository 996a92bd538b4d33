// Package sentiment implements the Sentiment Client described in
// spec.md §4.H: a batch HTTP call to an external sentiment classifier,
// converting its POSITIVE/NEGATIVE label and confidence into the [-1, 1]
// scale the rest of the pipeline scores on. It is grounded on
// circuit_breaker/httpcb.go for the breaker-wrapped HTTP shape and on
// original_source/src/analysis/sentiment.py for the label/confidence
// conversion.
package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"commentwatch/internal/breaker"
)

// Scorer turns comment texts into sentiment scores in [-1, 1].
type Scorer interface {
	Batch(ctx context.Context, texts []string) ([]float64, error)
}

// Client calls an external sentiment classification endpoint.
type Client struct {
	url  string
	http *breaker.HTTPClient
	lg   *slog.Logger
}

// New builds a Client against url (e.g. http://sentiment.internal/batch).
func New(url string, cfg breaker.Config, lg *slog.Logger) *Client {
	hc := breaker.NewHTTPClient("sentiment", cfg, lg, "", nil)
	return &Client{url: url, http: hc, lg: lg}
}

type batchRequest struct {
	Texts []string `json:"texts"`
}

type labeled struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type batchResponse struct {
	Results []labeled `json:"results"`
}

// Batch scores texts in one upstream call, per spec.md §4.H. Empty or
// whitespace-only texts are scored 0.0 without being sent upstream. On a
// breaker-open or upstream failure, Batch degrades every remaining text to
// 0.0 and returns the error so the caller can log it — comments are never
// dropped for a sentiment failure (spec.md §7).
func (c *Client) Batch(ctx context.Context, texts []string) ([]float64, error) {
	scores := make([]float64, len(texts))
	var toSend []string
	var indices []int
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		toSend = append(toSend, t)
		indices = append(indices, i)
	}
	if len(toSend) == 0 {
		return scores, nil
	}

	body, err := json.Marshal(batchRequest{Texts: toSend})
	if err != nil {
		return scores, fmt.Errorf("sentiment: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return scores, fmt.Errorf("sentiment: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.lg.Warn("sentiment_degraded_to_zero", "count", len(toSend), "error", err.Error())
		return scores, err
	}
	defer resp.Body.Close()

	var parsed batchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.lg.Warn("sentiment_degraded_to_zero", "count", len(toSend), "error", err.Error())
		return scores, fmt.Errorf("sentiment: decode response: %w", err)
	}
	if len(parsed.Results) != len(toSend) {
		return scores, fmt.Errorf("sentiment: expected %d results, got %d", len(toSend), len(parsed.Results))
	}
	for j, r := range parsed.Results {
		scores[indices[j]] = toScore(r)
	}
	return scores, nil
}

// toScore converts a {label, score} pair, with score in [0.5, 1], to a
// continuous value in [-1, 1]: val = score if POSITIVE else (1 - score),
// then (val - 0.5) * 2. 0 means ambiguous; an unrecognized label scores 0.0.
func toScore(r labeled) float64 {
	var val float64
	switch strings.ToUpper(r.Label) {
	case "POSITIVE":
		val = r.Score
	case "NEGATIVE":
		val = 1 - r.Score
	default:
		return 0.0
	}
	return (val - 0.5) * 2
}

// State exposes the underlying breaker state for the status API.
func (c *Client) State() breaker.State { return c.http.State() }
