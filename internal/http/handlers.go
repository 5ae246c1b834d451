package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/aniketdhankar/tweetscope/internal/auth"
	"github.com/aniketdhankar/tweetscope/internal/ingest"
	"github.com/aniketdhankar/tweetscope/internal/session"
	"github.com/aniketdhankar/tweetscope/internal/store"
	"github.com/aniketdhankar/tweetscope/internal/twitter"
	"github.com/aniketdhankar/tweetscope/internal/ws"
)

// --- Configuration Constants ---
const (
	sessionCookie     = "tweetscope_session"
	defaultTweetCount = 50
	defaultPageSize   = 20
	rateLimitRPS      = 1.0 // authorize attempts per second per IP
	rateLimitBurst    = 3
)

// WsMessage is the JSON envelope pushed to dashboard clients.
type WsMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// --- Rate Limiter ---
type IPRateLimiter struct {
	visitors map[string]*rate.Limiter
	mu       sync.RWMutex
	rps      rate.Limit
	burst    int
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		visitors: make(map[string]*rate.Limiter),
		rps:      r,
		burst:    b,
	}
}

func (rl *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	limiter, exists := rl.visitors[ip]
	if !exists {
		limiter = rate.NewLimiter(rl.rps, rl.burst)
		rl.visitors[ip] = limiter
	}
	return limiter
}

func RateLimitMiddleware(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiter.GetLimiter(ip).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please wait."})
			return
		}
		c.Next()
	}
}

// --- Handlers ---

// Env holds the request-scoped dependencies: the store handle is opened once
// at startup and passed in here, never reached through globals.
type Env struct {
	Tweets     *store.TweetStore
	Sessions   session.Store
	Authorizer *auth.Authorizer
	Pipeline   *ingest.Pipeline
	Hub        *ws.Hub
}

// Authorize starts the PKCE flow: validates the form, stashes the session
// and sends the operator to the provider.
func (e *Env) Authorize(c *gin.Context) {
	topic := c.PostForm("topic")
	count := defaultTweetCount
	if v := c.PostForm("tweet_count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tweet_count must be a number"})
			return
		}
		count = n
	}

	redirectURL, sess, err := e.Authorizer.BeginAuthorization(topic, count)
	if err != nil {
		var vErr *auth.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Reason})
			return
		}
		log.Printf("Error starting authorization: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start authorization"})
		return
	}

	id, err := e.Sessions.Put(c.Request.Context(), sess)
	if err != nil {
		log.Printf("Error saving session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save session"})
		return
	}
	c.SetCookie(sessionCookie, id, 0, "/", "", false, true)
	c.Redirect(http.StatusSeeOther, redirectURL)
}

// Callback is the provider redirect target. It checks state, exchanges the
// code and sends the operator on to the ingestion step.
func (e *Env) Callback(c *gin.Context) {
	id, sess, ok := e.session(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No active authorization session"})
		return
	}

	if state := c.Query("state"); state == "" || state != sess.State {
		c.JSON(http.StatusBadRequest, gin.H{"error": "State mismatch"})
		return
	}

	_, err := e.Authorizer.CompleteAuthorization(c.Request.Context(), sess, c.Query("code"))
	if err != nil {
		if errors.Is(err, auth.ErrMissingCode) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing code"})
			return
		}
		var exErr *auth.TokenExchangeError
		if errors.As(err, &exErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Token exchange failed: %d %s", exErr.StatusCode, exErr.Body)})
			return
		}
		log.Printf("Error exchanging code: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Token exchange failed"})
		return
	}

	if err := e.Sessions.Update(c.Request.Context(), id, sess); err != nil {
		log.Printf("Error updating session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save session"})
		return
	}
	c.Redirect(http.StatusSeeOther, "/fetch_tweets")
}

// FetchTweets runs one ingestion for the session's topic and broadcasts the
// report to dashboard clients.
func (e *Env) FetchTweets(c *gin.Context) {
	_, sess, ok := e.session(c)
	if !ok || sess.Topic == "" || sess.AccessToken == "" {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	report, err := e.Pipeline.Ingest(c.Request.Context(), sess.Topic, sess.AccessToken, sess.TweetCount)
	if err != nil {
		var fErr *twitter.FetchError
		if errors.As(err, &fErr) {
			c.JSON(http.StatusBadGateway, gin.H{"error": fErr.Error()})
			return
		}
		log.Printf("Error ingesting tweets: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ingestion failed"})
		return
	}

	e.broadcastMessage(WsMessage{Type: "ingestion", Data: report})
	c.Redirect(http.StatusSeeOther, "/results")
}

// SentimentCounts returns the three-key aggregate for the session topic, or
// for all stored tweets when no session topic is set.
func (e *Env) SentimentCounts(c *gin.Context) {
	counts, err := e.Tweets.CountBySentiment(c.Request.Context(), e.sessionTopic(c))
	if err != nil {
		log.Printf("Error counting sentiments: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch counts"})
		return
	}
	c.JSON(http.StatusOK, counts)
}

// ListTweets returns one page of tweets for the session topic, optionally
// filtered by sentiment.
func (e *Env) ListTweets(c *gin.Context) {
	page := 1
	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a number"})
			return
		}
		page = n
	}
	pageSize := defaultPageSize
	if v := c.Query("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "page_size must be a number"})
			return
		}
		pageSize = n
	}

	items, page, pageSize, err := e.Tweets.ListTweets(c.Request.Context(), e.sessionTopic(c), c.Query("sentiment"), page, pageSize)
	if err != nil {
		log.Printf("Error listing tweets: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tweets"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":     items,
		"page":      page,
		"page_size": pageSize,
	})
}

// Export streams all matching records as a CSV attachment. No matching
// records means an empty body, not an error.
func (e *Env) Export(c *gin.Context) {
	topic := e.sessionTopic(c)
	name := "all"
	if topic != "" {
		name = strings.ReplaceAll(topic, " ", "_")
	}
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=tweets_%s.csv", name))
	c.Status(http.StatusOK)

	if err := e.Tweets.ExportCSV(c.Request.Context(), topic, c.Writer); err != nil {
		// Headers are gone already; all we can do is log and cut the stream.
		log.Printf("Error exporting CSV: %v", err)
	}
}

// session loads the operator session referenced by the request cookie.
func (e *Env) session(c *gin.Context) (string, *auth.Session, bool) {
	id, err := c.Cookie(sessionCookie)
	if err != nil {
		return "", nil, false
	}
	sess, err := e.Sessions.Get(c.Request.Context(), id)
	if err != nil {
		return "", nil, false
	}
	return id, sess, true
}

// sessionTopic is the topic of the current session, or "" when there is no
// session (queries then cover the whole store).
func (e *Env) sessionTopic(c *gin.Context) string {
	if _, sess, ok := e.session(c); ok {
		return sess.Topic
	}
	return ""
}

func (e *Env) broadcastMessage(msg WsMessage) {
	if e.Hub == nil {
		return
	}
	jsonMsg, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshalling WS message: %v", err)
		return
	}
	e.Hub.Broadcast <- jsonMsg
}
