package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Tweet-count bounds enforced before the authorization flow starts.
const (
	MinTweetCount = 10
	MaxTweetCount = 100
)

// scopes requested from the provider: read posts, read profile, refresh.
const scopes = "tweet.read users.read offline.access"

// ErrMissingCode is returned when the provider redirected back without an
// authorization code.
var ErrMissingCode = errors.New("authorization code missing from callback")

// ValidationError rejects bad operator input before any external call.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// TokenExchangeError is a non-success response from the token endpoint. The
// provider rejects the exchange itself when the verifier does not match the
// challenge, so a failed PKCE binding surfaces here.
type TokenExchangeError struct {
	StatusCode int
	Body       string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed: %d %s", e.StatusCode, e.Body)
}

// Session holds the transient state of one operator authorization attempt.
// It lives in the session store between the authorize and callback requests
// and is discarded when the interaction ends.
type Session struct {
	Topic        string `json:"topic"`
	TweetCount   int    `json:"tweet_count"`
	CodeVerifier string `json:"code_verifier"`
	State        string `json:"state"`
	AccessToken  string `json:"access_token,omitempty"`
}

// Config identifies this app to the OAuth2 provider.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
}

// Authorizer implements the Authorization-Code-with-PKCE flow.
type Authorizer struct {
	cfg        Config
	httpClient *http.Client
}

func New(cfg Config) *Authorizer {
	return &Authorizer{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// BeginAuthorization validates the operator input, generates a fresh
// verifier/challenge pair and builds the provider redirect URL. The returned
// session binds the verifier to this single attempt; it must not be reused.
func (a *Authorizer) BeginAuthorization(topic string, tweetCount int) (string, *Session, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", nil, &ValidationError{Reason: "topic is required"}
	}
	if tweetCount < MinTweetCount {
		tweetCount = MinTweetCount
	}
	if tweetCount > MaxTweetCount {
		tweetCount = MaxTweetCount
	}

	verifier, err := randomToken(64)
	if err != nil {
		return "", nil, fmt.Errorf("generate code verifier: %w", err)
	}
	state, err := randomToken(16)
	if err != nil {
		return "", nil, fmt.Errorf("generate state: %w", err)
	}

	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", a.cfg.ClientID)
	params.Set("redirect_uri", a.cfg.RedirectURI)
	params.Set("scope", scopes)
	params.Set("state", state)
	params.Set("code_challenge", codeChallenge(verifier))
	params.Set("code_challenge_method", "S256")

	sess := &Session{
		Topic:        topic,
		TweetCount:   tweetCount,
		CodeVerifier: verifier,
		State:        state,
	}
	return a.cfg.AuthURL + "?" + params.Encode(), sess, nil
}

// CompleteAuthorization exchanges the authorization code for an access token,
// submitting the session's original verifier. On success the token is stored
// in the session.
func (a *Authorizer) CompleteAuthorization(ctx context.Context, sess *Session, code string) (string, error) {
	if code == "" {
		return "", ErrMissingCode
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", a.cfg.RedirectURI)
	form.Set("client_id", a.cfg.ClientID)
	form.Set("code_verifier", sess.CodeVerifier)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(a.cfg.ClientID, a.cfg.ClientSecret)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &TokenExchangeError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", &TokenExchangeError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	sess.AccessToken = payload.AccessToken
	return payload.AccessToken, nil
}

// codeChallenge derives the S256 challenge: base64url(sha256(verifier)),
// padding stripped.
func codeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// randomToken returns n bytes of crypto randomness, base64url-encoded
// without padding.
func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
