// v0
// postgres.go
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"commentwatch/internal/model"
)

// schema matches spec.md §6's persisted schema: an append-only comments
// table indexed by (video_id, published_at), and a window_metrics table
// keyed by (video_id, window_start).
const schema = `
CREATE TABLE IF NOT EXISTS comments (
	comment_id   TEXT PRIMARY KEY,
	video_id     TEXT NOT NULL,
	author_id    TEXT NOT NULL,
	text         TEXT NOT NULL,
	sentiment    DOUBLE PRECISION,
	published_at TIMESTAMPTZ NOT NULL,
	fetched_at   TIMESTAMPTZ NOT NULL,
	source       TEXT NOT NULL DEFAULT 'live'
);
CREATE INDEX IF NOT EXISTS comments_video_published_idx ON comments (video_id, published_at);

CREATE TABLE IF NOT EXISTS window_metrics (
	video_id            TEXT NOT NULL,
	window_start        TIMESTAMPTZ NOT NULL,
	total_comments      INTEGER NOT NULL,
	unique_authors      INTEGER NOT NULL,
	avg_length          DOUBLE PRECISION NOT NULL,
	avg_sentiment       DOUBLE PRECISION NOT NULL,
	sentiment_variance  DOUBLE PRECISION NOT NULL,
	avg_gap             DOUBLE PRECISION NOT NULL,
	gap_variance        DOUBLE PRECISION NOT NULL,
	coordination_score  DOUBLE PRECISION,
	PRIMARY KEY (video_id, window_start)
);
`

// Postgres is the production Store, backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
	lg   *slog.Logger
}

// Open connects to databaseURL and ensures the schema exists.
func Open(ctx context.Context, databaseURL string, lg *slog.Logger) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	lg.Info("store_connected")
	return &Postgres{pool: pool, lg: lg}, nil
}

func (p *Postgres) Close() { p.pool.Close() }

// InsertComments bulk-inserts comments in one round trip, ignoring rows
// whose comment_id already exists (spec.md §3's duplicate-insertion
// invariant).
func (p *Postgres) InsertComments(ctx context.Context, comments []model.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, c := range comments {
		c.NormalizeTimestamps()
		source := string(c.Source)
		if source == "" {
			source = string(model.SourceLive)
		}
		batch.Queue(`
			INSERT INTO comments (comment_id, video_id, author_id, text, sentiment, published_at, fetched_at, source)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (comment_id) DO NOTHING
		`, c.CommentID, c.VideoID, c.AuthorID, c.Text, c.Sentiment, c.PublishedAt, c.FetchedAt, source)
	}
	br := p.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range comments {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("store: insert comment: %w", err)
		}
	}
	return nil
}

func (p *Postgres) CommentsInRange(ctx context.Context, videoID string, start, end time.Time) ([]model.Comment, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT comment_id, video_id, author_id, text, sentiment, published_at, fetched_at, source
		FROM comments
		WHERE video_id = $1 AND published_at BETWEEN $2 AND $3
		ORDER BY published_at ASC
	`, videoID, start, end)
	if err != nil {
		return nil, fmt.Errorf("store: comments in range: %w", err)
	}
	defer rows.Close()
	return scanComments(rows)
}

func (p *Postgres) AllComments(ctx context.Context, videoID string) ([]model.Comment, error) {
	var rows pgx.Rows
	var err error
	if videoID == "" {
		rows, err = p.pool.Query(ctx, `
			SELECT comment_id, video_id, author_id, text, sentiment, published_at, fetched_at, source
			FROM comments ORDER BY video_id, published_at ASC
		`)
	} else {
		rows, err = p.pool.Query(ctx, `
			SELECT comment_id, video_id, author_id, text, sentiment, published_at, fetched_at, source
			FROM comments WHERE video_id = $1 ORDER BY published_at ASC
		`, videoID)
	}
	if err != nil {
		return nil, fmt.Errorf("store: all comments: %w", err)
	}
	defer rows.Close()
	return scanComments(rows)
}

func scanComments(rows pgx.Rows) ([]model.Comment, error) {
	var out []model.Comment
	for rows.Next() {
		var c model.Comment
		var source string
		if err := rows.Scan(&c.CommentID, &c.VideoID, &c.AuthorID, &c.Text, &c.Sentiment, &c.PublishedAt, &c.FetchedAt, &source); err != nil {
			return nil, fmt.Errorf("store: scan comment: %w", err)
		}
		c.Source = model.Source(source)
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertWindowMetrics replaces all derived fields on (video_id,
// window_start) conflict, per spec.md §4.F.
func (p *Postgres) UpsertWindowMetrics(ctx context.Context, r model.WindowMetricRecord) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO window_metrics (
			video_id, window_start, total_comments, unique_authors, avg_length,
			avg_sentiment, sentiment_variance, avg_gap, gap_variance, coordination_score
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (video_id, window_start) DO UPDATE SET
			total_comments = excluded.total_comments,
			unique_authors = excluded.unique_authors,
			avg_length = excluded.avg_length,
			avg_sentiment = excluded.avg_sentiment,
			sentiment_variance = excluded.sentiment_variance,
			avg_gap = excluded.avg_gap,
			gap_variance = excluded.gap_variance,
			coordination_score = excluded.coordination_score
	`, r.VideoID, r.WindowStart.UTC().Truncate(time.Second), r.TotalComments, r.UniqueAuthors, r.AvgLength,
		r.AvgSentiment, r.SentimentVariance, r.AvgGap, r.GapVariance, r.CoordinationScore)
	if err != nil {
		return fmt.Errorf("store: upsert window metrics: %w", err)
	}
	return nil
}

// TopRepeatAuthors mirrors original_source/src/analysis/abnormal_patterns.py's
// get_spammer_context: authors who commented more than once inside the
// window, descending by count, with up to three truncated sample texts
// each for the operator report.
func (p *Postgres) TopRepeatAuthors(ctx context.Context, videoID string, windowStart, windowEnd time.Time, limit int) ([]AuthorRepeat, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT author_id, COUNT(*) AS n, array_agg(text ORDER BY published_at)
		FROM comments
		WHERE video_id = $1 AND published_at BETWEEN $2 AND $3
		GROUP BY author_id
		HAVING COUNT(*) > 1
		ORDER BY n DESC
		LIMIT $4
	`, videoID, windowStart, windowEnd, limit)
	if err != nil {
		return nil, fmt.Errorf("store: top repeat authors: %w", err)
	}
	defer rows.Close()

	var out []AuthorRepeat
	for rows.Next() {
		var ar AuthorRepeat
		var texts []string
		if err := rows.Scan(&ar.AuthorID, &ar.Count, &texts); err != nil {
			return nil, fmt.Errorf("store: scan repeat author: %w", err)
		}
		if len(texts) > 3 {
			texts = texts[:3]
		}
		ar.SampleTexts = texts
		out = append(out, ar)
	}
	return out, rows.Err()
}

// FirstComments returns the chronologically earliest comments at or after
// windowStart, for the timeline evidence spec.md §4.C uses for every
// alert category besides Interaction Density.
func (p *Postgres) FirstComments(ctx context.Context, videoID string, windowStart time.Time, limit int) ([]model.Comment, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT comment_id, video_id, author_id, text, sentiment, published_at, fetched_at, source
		FROM comments
		WHERE video_id = $1 AND published_at >= $2
		ORDER BY published_at ASC
		LIMIT $3
	`, videoID, windowStart, limit)
	if err != nil {
		return nil, fmt.Errorf("store: first comments: %w", err)
	}
	defer rows.Close()
	return scanComments(rows)
}
