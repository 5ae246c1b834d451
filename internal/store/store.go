// Package store is the persistence layer for ingested tweets. Dedup is the
// database's job: the unique index on tweet_id, not application logic, is
// what makes ingestion idempotent.
package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aniketdhankar/tweetscope/internal/models"
)

// Pagination bounds for listing queries.
const (
	MinPageSize = 1
	MaxPageSize = 100
)

// TweetStore wraps the shared DB handle. It is opened once at startup and
// passed into the pipeline and the HTTP layer.
type TweetStore struct {
	db *gorm.DB
}

func New(db *gorm.DB) *TweetStore {
	return &TweetStore{db: db}
}

// InsertBatch persists a batch of tweets, inserting each only if its
// tweet_id is not already present. Existing rows are left untouched, and a
// conflict on one row never aborts the rest. Returns the number of rows
// actually inserted.
func (s *TweetStore) InsertBatch(ctx context.Context, tweets []models.Tweet) (int64, error) {
	if len(tweets) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tweet_id"}},
			DoNothing: true,
		}).
		CreateInBatches(&tweets, 100)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// SentimentCounts always carries all three labels, zero-valued when no
// record matches.
type SentimentCounts struct {
	Positive int64 `json:"positive"`
	Negative int64 `json:"negative"`
	Neutral  int64 `json:"neutral"`
}

// Total is the number of records the counts cover.
func (c SentimentCounts) Total() int64 {
	return c.Positive + c.Negative + c.Neutral
}

// CountBySentiment aggregates label counts for a topic, or for the whole
// store when topic is empty.
func (s *TweetStore) CountBySentiment(ctx context.Context, topic string) (SentimentCounts, error) {
	var rows []struct {
		Sentiment string
		N         int64
	}
	q := s.db.WithContext(ctx).Model(&models.Tweet{}).
		Select("sentiment, count(*) as n").
		Group("sentiment")
	if topic != "" {
		q = q.Where("topic = ?", topic)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return SentimentCounts{}, err
	}

	var counts SentimentCounts
	for _, r := range rows {
		switch r.Sentiment {
		case "positive":
			counts.Positive = r.N
		case "negative":
			counts.Negative = r.N
		case "neutral":
			counts.Neutral = r.N
		}
	}
	return counts, nil
}

// TweetListItem is the listing projection: id, label, text and time only.
type TweetListItem struct {
	TweetID   int64     `json:"tweetId"`
	Sentiment string    `json:"sentiment"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ListTweets returns one page of tweets, most recent first. Ties on
// timestamp are broken by tweet_id descending so the order is total and
// pages never overlap. page is floored at 1 and pageSize clamped to
// [MinPageSize, MaxPageSize]; the clamped values are returned so the caller
// can echo them.
func (s *TweetStore) ListTweets(ctx context.Context, topic, sentiment string, page, pageSize int) ([]TweetListItem, int, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < MinPageSize {
		pageSize = MinPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	q := s.db.WithContext(ctx).Model(&models.Tweet{})
	if topic != "" {
		q = q.Where("topic = ?", topic)
	}
	if sentiment == "positive" || sentiment == "negative" || sentiment == "neutral" {
		q = q.Where("sentiment = ?", sentiment)
	}

	items := make([]TweetListItem, 0, pageSize)
	err := q.Select("tweet_id, sentiment, text, timestamp").
		Order("timestamp DESC").
		Order("tweet_id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Scan(&items).Error
	if err != nil {
		return nil, page, pageSize, err
	}
	return items, page, pageSize, nil
}
