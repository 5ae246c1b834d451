package store

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aniketdhankar/tweetscope/internal/models"
)

func TestExportCSVEmpty(t *testing.T) {
	s := newTestStore(t)
	var buf bytes.Buffer
	if err := s.ExportCSV(context.Background(), "rust", &buf); err != nil {
		t.Fatalf("ExportCSV error: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected zero bytes, got %q", buf.String())
	}
}

func TestExportCSVSingleRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	if _, err := s.InsertBatch(ctx, []models.Tweet{testTweet(1, "positive", ts)}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := s.ExportCSV(ctx, "rust", &buf); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want header + 1 row:\n%s", len(lines), buf.String())
	}
	if lines[0] != "tweetId,userId,timestamp,text,sentiment,topic,lang,ingestedAt" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], `"1"`) || !strings.Contains(lines[1], `"positive"`) {
		t.Errorf("row = %q", lines[1])
	}
	if !strings.HasSuffix(buf.String(), "\n") || strings.HasSuffix(buf.String(), "\n\n") {
		t.Errorf("row must end with exactly one newline: %q", buf.String())
	}
}

func TestExportCSVQuoting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ts := time.Now().UTC()

	tw := testTweet(1, "neutral", ts)
	tw.Text = "line one\nline two \"quoted\"\r\nend"
	if _, err := s.InsertBatch(ctx, []models.Tweet{tw}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := s.ExportCSV(ctx, "rust", &buf); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("embedded newlines leaked into output: %d lines", len(lines))
	}
	if !strings.Contains(lines[1], `"line one line two ""quoted""  end"`) {
		t.Errorf("quoting wrong: %q", lines[1])
	}
}

func TestExportCSVHeaderFromFirstRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ts := time.Now().UTC()

	// First record has no userId and no lang; the whole export drops those
	// columns even though the second record carries them.
	first := testTweet(1, "neutral", ts)
	first.UserID = nil
	first.Lang = nil
	second := testTweet(2, "positive", ts)

	if _, err := s.InsertBatch(ctx, []models.Tweet{first, second}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := s.ExportCSV(ctx, "rust", &buf); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 rows", len(lines))
	}
	if lines[0] != "tweetId,timestamp,text,sentiment,topic,ingestedAt" {
		t.Errorf("header = %q", lines[0])
	}
	if strings.Contains(lines[2], "user-2") {
		t.Errorf("dropped column value leaked into row: %q", lines[2])
	}
	cols := strings.Count(lines[2], ",")
	if cols != strings.Count(lines[0], ",") {
		t.Errorf("row has %d separators, header has %d", cols, strings.Count(lines[0], ","))
	}
}

func TestExportCSVAllTopics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ts := time.Now().UTC()

	tw := testTweet(1, "neutral", ts)
	other := testTweet(2, "positive", ts)
	other.Topic = "golang"
	if _, err := s.InsertBatch(ctx, []models.Tweet{tw, other}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := s.ExportCSV(ctx, "", &buf); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Errorf("empty topic should export everything, got %d lines", len(lines))
	}
}

func TestWriteSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ts := time.Now().UTC()

	batch := []models.Tweet{
		testTweet(1, "positive", ts),
		testTweet(2, "negative", ts),
	}
	other := testTweet(3, "neutral", ts)
	other.Topic = "golang"
	if _, err := s.InsertBatch(ctx, append(batch, other)); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "snapshot.csv")
	if err := s.WriteSnapshot(ctx, "rust", path); err != nil {
		t.Fatalf("WriteSnapshot error: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("snapshot has %d lines, want header + 2 rows:\n%s", len(lines), b)
	}
	if lines[0] != "sentiment,tweet" {
		t.Errorf("snapshot header = %q", lines[0])
	}
	if strings.Contains(string(b), "golang") || strings.Contains(string(b), "tweet 3") {
		t.Errorf("snapshot leaked another topic:\n%s", b)
	}
}
