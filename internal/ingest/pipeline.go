// Package ingest orchestrates one fetch → classify → persist run.
package ingest

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/aniketdhankar/tweetscope/internal/models"
	"github.com/aniketdhankar/tweetscope/internal/sentiment"
	"github.com/aniketdhankar/tweetscope/internal/store"
	"github.com/aniketdhankar/tweetscope/internal/twitter"
)

// Fetcher retrieves recent posts for a topic.
type Fetcher interface {
	SearchRecent(ctx context.Context, accessToken, topic string, count int) ([]twitter.RawTweet, error)
}

// Classifier labels a single text. It is total: every input gets a label.
type Classifier interface {
	Classify(ctx context.Context, text string) sentiment.Label
}

// Pipeline wires the fetcher, classifier and store together.
type Pipeline struct {
	fetcher     Fetcher
	classifier  Classifier
	tweets      *store.TweetStore
	snapshotDir string
}

func New(fetcher Fetcher, classifier Classifier, tweets *store.TweetStore, snapshotDir string) *Pipeline {
	return &Pipeline{
		fetcher:     fetcher,
		classifier:  classifier,
		tweets:      tweets,
		snapshotDir: snapshotDir,
	}
}

// Ingest runs one ingestion for a topic. Every tweet in the batch shares a
// single ingestedAt instant so a run can be identified later. Duplicate
// tweet ids are silently skipped by the store; repeating a run never
// rewrites a stored record's sentiment. A fetch failure aborts the run with
// no partial batch; a snapshot failure does not, since the snapshot is a
// derived view.
func (p *Pipeline) Ingest(ctx context.Context, topic, accessToken string, count int) (models.IngestionReport, error) {
	report := models.IngestionReport{Topic: topic}

	raw, err := p.fetcher.SearchRecent(ctx, accessToken, topic, count)
	if err != nil {
		return report, err
	}
	report.Fetched = len(raw)

	now := time.Now().UTC()
	batch := make([]models.Tweet, 0, len(raw))
	for _, t := range raw {
		label := p.classifier.Classify(ctx, t.Text)
		batch = append(batch, models.Tweet{
			TweetID:    t.ID,
			UserID:     t.AuthorID,
			Timestamp:  t.CreatedAt,
			Text:       t.Text,
			Sentiment:  string(label),
			Topic:      topic,
			Lang:       t.Lang,
			IngestedAt: now,
		})
	}

	inserted, err := p.tweets.InsertBatch(ctx, batch)
	if err != nil {
		return report, err
	}
	report.Inserted = int(inserted)

	path := SnapshotPath(p.snapshotDir, topic)
	if err := p.tweets.WriteSnapshot(ctx, topic, path); err != nil {
		slog.Warn("ingest: snapshot regeneration failed", "topic", topic, "path", path, "err", err)
	}

	slog.Info("ingest: run complete", "topic", topic, "fetched", report.Fetched, "inserted", report.Inserted)
	return report, nil
}

// SnapshotPath is the per-topic snapshot location. Scoping the file by
// topic keeps concurrent ingestions of different topics from clobbering
// each other's snapshot.
func SnapshotPath(dir, topic string) string {
	return filepath.Join(dir, "sentiment_"+sanitizeTopic(topic)+".csv")
}

func sanitizeTopic(topic string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, topic)
}
