// Package twitter is a minimal client for the v2 recent-search endpoint.
package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// maxPageSize is the provider's hard cap on results per request.
const maxPageSize = 100

// FetchError is any transport or authorization failure while searching.
// StatusCode is zero when the request never got a response.
type FetchError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch tweets: %v", e.Err)
	}
	return fmt.Sprintf("fetch tweets: %d %s", e.StatusCode, e.Body)
}

func (e *FetchError) Unwrap() error { return e.Err }

// RawTweet is one post as returned by the search endpoint, before
// classification.
type RawTweet struct {
	ID        int64
	AuthorID  *string
	CreatedAt time.Time
	Text      string
	Lang      *string
}

// Client queries the recent-search endpoint with a bearer token obtained
// from the PKCE flow.
type Client struct {
	searchURL  string
	httpClient *http.Client
}

// NewClient creates a search client for the given endpoint URL.
func NewClient(searchURL string) *Client {
	return &Client{
		searchURL: searchURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SearchRecent fetches up to count recent tweets matching topic, excluding
// retweets and restricted to English. An empty result set is not an error.
// There is no retry: a failed call surfaces as *FetchError and the caller
// decides what to do.
func (c *Client) SearchRecent(ctx context.Context, accessToken, topic string, count int) ([]RawTweet, error) {
	if count > maxPageSize {
		count = maxPageSize
	}

	params := url.Values{}
	params.Set("query", fmt.Sprintf("%s -is:retweet lang:en", topic))
	params.Set("max_results", strconv.Itoa(count))
	params.Set("tweet.fields", "created_at,text,author_id,lang")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var payload searchResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &FetchError{Err: fmt.Errorf("decode search response: %w", err)}
	}

	tweets := make([]RawTweet, 0, len(payload.Data))
	for _, d := range payload.Data {
		id, err := strconv.ParseInt(d.ID, 10, 64)
		if err != nil {
			return nil, &FetchError{Err: fmt.Errorf("tweet id %q not numeric: %w", d.ID, err)}
		}
		raw := RawTweet{
			ID:        id,
			CreatedAt: d.CreatedAt,
			Text:      d.Text,
		}
		if d.AuthorID != "" {
			authorID := d.AuthorID
			raw.AuthorID = &authorID
		}
		if d.Lang != "" {
			lang := d.Lang
			raw.Lang = &lang
		}
		tweets = append(tweets, raw)
	}
	return tweets, nil
}

type searchResponse struct {
	Data []struct {
		ID        string    `json:"id"`
		Text      string    `json:"text"`
		AuthorID  string    `json:"author_id"`
		CreatedAt time.Time `json:"created_at"`
		Lang      string    `json:"lang"`
	} `json:"data"`
}
