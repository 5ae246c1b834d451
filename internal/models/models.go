package models

import (
	"time"
)

// Tweet is a single ingested tweet with its frozen sentiment label.
//
// TweetID is the provider's identifier and is unique across the whole store;
// a tweet is inserted at most once and never updated afterwards, so the
// sentiment assigned at first insert sticks even if the classifier would
// label the same text differently on a later run.
type Tweet struct {
	ID         uint      `gorm:"primarykey" json:"-"`
	TweetID    int64     `gorm:"not null;uniqueIndex" json:"tweetId"`
	UserID     *string   `json:"userId,omitempty"`
	Timestamp  time.Time `gorm:"not null;index:idx_tweets_timestamp,sort:desc" json:"timestamp"`
	Text       string    `gorm:"not null" json:"text"`
	Sentiment  string    `gorm:"not null;index" json:"sentiment"`
	Topic      string    `gorm:"not null;index" json:"topic"`
	Lang       *string   `json:"lang,omitempty"`
	IngestedAt time.Time `gorm:"not null" json:"ingestedAt"`
}

// IngestionReport summarizes one fetch+classify+persist run.
type IngestionReport struct {
	Topic    string `json:"topic"`
	Fetched  int    `json:"fetched"`
	Inserted int    `json:"inserted"`
}
