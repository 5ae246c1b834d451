package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func testAuthorizer(tokenURL string) *Authorizer {
	return New(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://127.0.0.1:8080/callback",
		AuthURL:      "https://provider.example/authorize",
		TokenURL:     tokenURL,
	})
}

func TestBeginAuthorizationBuildsRedirect(t *testing.T) {
	a := testAuthorizer("https://provider.example/token")

	redirect, sess, err := a.BeginAuthorization("  rust  ", 50)
	if err != nil {
		t.Fatalf("BeginAuthorization error: %v", err)
	}
	if sess.Topic != "rust" {
		t.Errorf("topic not trimmed: %q", sess.Topic)
	}
	if sess.TweetCount != 50 {
		t.Errorf("tweet count = %d, want 50", sess.TweetCount)
	}

	u, err := url.Parse(redirect)
	if err != nil {
		t.Fatalf("redirect not a URL: %v", err)
	}
	q := u.Query()
	if got := q.Get("response_type"); got != "code" {
		t.Errorf("response_type = %q", got)
	}
	if got := q.Get("client_id"); got != "client-id" {
		t.Errorf("client_id = %q", got)
	}
	if got := q.Get("scope"); got != "tweet.read users.read offline.access" {
		t.Errorf("scope = %q", got)
	}
	if got := q.Get("code_challenge_method"); got != "S256" {
		t.Errorf("code_challenge_method = %q", got)
	}
	if q.Get("state") == "" || q.Get("state") != sess.State {
		t.Errorf("state %q does not match session %q", q.Get("state"), sess.State)
	}

	// The challenge must be the hash of the verifier, never the verifier
	// itself or anything the verifier can be recovered from.
	sum := sha256.Sum256([]byte(sess.CodeVerifier))
	want := base64.RawURLEncoding.EncodeToString(sum[:])
	if got := q.Get("code_challenge"); got != want {
		t.Errorf("code_challenge = %q, want %q", got, want)
	}
	if strings.Contains(redirect, sess.CodeVerifier) {
		t.Error("redirect URL leaks the code verifier")
	}
}

func TestBeginAuthorizationClampsCount(t *testing.T) {
	a := testAuthorizer("https://provider.example/token")

	cases := []struct {
		in, want int
	}{
		{0, 10},
		{9, 10},
		{10, 10},
		{55, 55},
		{100, 100},
		{5000, 100},
	}
	for _, tc := range cases {
		_, sess, err := a.BeginAuthorization("golang", tc.in)
		if err != nil {
			t.Fatalf("BeginAuthorization(%d) error: %v", tc.in, err)
		}
		if sess.TweetCount != tc.want {
			t.Errorf("BeginAuthorization(%d) count = %d, want %d", tc.in, sess.TweetCount, tc.want)
		}
	}
}

func TestBeginAuthorizationRejectsEmptyTopic(t *testing.T) {
	a := testAuthorizer("https://provider.example/token")

	var vErr *ValidationError
	if _, _, err := a.BeginAuthorization("   ", 50); !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestBeginAuthorizationFreshVerifierPerAttempt(t *testing.T) {
	a := testAuthorizer("https://provider.example/token")

	_, s1, err := a.BeginAuthorization("rust", 50)
	if err != nil {
		t.Fatal(err)
	}
	_, s2, err := a.BeginAuthorization("rust", 50)
	if err != nil {
		t.Fatal(err)
	}
	if s1.CodeVerifier == s2.CodeVerifier {
		t.Error("verifier reused across attempts")
	}
	if s1.State == s2.State {
		t.Error("state reused across attempts")
	}
	// 64 random bytes base64url-encoded: well above the 256-bit floor.
	if len(s1.CodeVerifier) < 43 {
		t.Errorf("verifier too short: %d chars", len(s1.CodeVerifier))
	}
}

func TestCompleteAuthorizationExchangesCode(t *testing.T) {
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-id" || pass != "client-secret" {
			t.Errorf("bad basic auth: %q %q", user, pass)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-123","token_type":"bearer"}`))
	}))
	defer srv.Close()

	a := testAuthorizer(srv.URL)
	_, sess, err := a.BeginAuthorization("rust", 50)
	if err != nil {
		t.Fatal(err)
	}

	token, err := a.CompleteAuthorization(context.Background(), sess, "auth-code")
	if err != nil {
		t.Fatalf("CompleteAuthorization error: %v", err)
	}
	if token != "tok-123" {
		t.Errorf("token = %q", token)
	}
	if sess.AccessToken != "tok-123" {
		t.Errorf("session token = %q", sess.AccessToken)
	}

	if got := gotForm.Get("grant_type"); got != "authorization_code" {
		t.Errorf("grant_type = %q", got)
	}
	if got := gotForm.Get("code"); got != "auth-code" {
		t.Errorf("code = %q", got)
	}
	if got := gotForm.Get("code_verifier"); got != sess.CodeVerifier {
		t.Errorf("code_verifier = %q, want session verifier", got)
	}
}

func TestCompleteAuthorizationMissingCode(t *testing.T) {
	a := testAuthorizer("https://provider.example/token")
	sess := &Session{Topic: "rust", CodeVerifier: "v"}

	if _, err := a.CompleteAuthorization(context.Background(), sess, ""); !errors.Is(err, ErrMissingCode) {
		t.Fatalf("expected ErrMissingCode, got %v", err)
	}
	if sess.AccessToken != "" {
		t.Error("token set despite missing code")
	}
}

func TestCompleteAuthorizationProviderRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	a := testAuthorizer(srv.URL)
	sess := &Session{Topic: "rust", CodeVerifier: "wrong-verifier"}

	_, err := a.CompleteAuthorization(context.Background(), sess, "auth-code")
	var exErr *TokenExchangeError
	if !errors.As(err, &exErr) {
		t.Fatalf("expected TokenExchangeError, got %v", err)
	}
	if exErr.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", exErr.StatusCode)
	}
	if !strings.Contains(exErr.Body, "invalid_grant") {
		t.Errorf("body = %q", exErr.Body)
	}
	if sess.AccessToken != "" {
		t.Error("token set despite failed exchange")
	}
}
