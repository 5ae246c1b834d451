package store

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aniketdhankar/tweetscope/internal/models"
)

// ExportCSV streams every stored field of every matching record to w, one
// line per record. The header is derived from the fields present on the
// first record encountered; later records supply values for exactly those
// columns. A topic whose first record omits an optional field therefore
// drops that column for the whole export. Known quirk, kept on purpose.
//
// Field values are quoted, embedded quotes doubled, and newlines collapsed
// to spaces. No matching records means zero bytes written, not an error.
func (s *TweetStore) ExportCSV(ctx context.Context, topic string, w io.Writer) error {
	q := s.db.WithContext(ctx).Model(&models.Tweet{})
	if topic != "" {
		q = q.Where("topic = ?", topic)
	}
	rows, err := q.Order("id ASC").Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	var header []string
	for rows.Next() {
		var t models.Tweet
		if err := s.db.ScanRows(rows, &t); err != nil {
			return err
		}
		fields := exportFields(&t)

		if header == nil {
			header = make([]string, len(fields))
			for i, f := range fields {
				header[i] = f.name
			}
			if _, err := io.WriteString(w, strings.Join(header, ",")+"\n"); err != nil {
				return err
			}
		}

		byName := make(map[string]string, len(fields))
		for _, f := range fields {
			byName[f.name] = f.value
		}
		values := make([]string, len(header))
		for i, name := range header {
			values[i] = quoteField(byName[name])
		}
		if _, err := io.WriteString(w, strings.Join(values, ",")+"\n"); err != nil {
			return err
		}
	}
	return rows.Err()
}

// WriteSnapshot regenerates the denormalized sentiment/tweet CSV for a
// topic at path. The file is a derived, disposable view and is overwritten
// whole on every call.
func (s *TweetStore) WriteSnapshot(ctx context.Context, topic, path string) error {
	var rows []struct {
		Sentiment string
		Text      string
	}
	err := s.db.WithContext(ctx).Model(&models.Tweet{}).
		Select("sentiment, text").
		Where("topic = ?", topic).
		Order("id ASC").
		Scan(&rows).Error
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"sentiment", "tweet"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Sentiment, r.Text}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type csvField struct {
	name  string
	value string
}

// exportFields lists a record's fields in storage order, skipping optional
// fields that are absent.
func exportFields(t *models.Tweet) []csvField {
	fields := []csvField{
		{"tweetId", strconv.FormatInt(t.TweetID, 10)},
	}
	if t.UserID != nil {
		fields = append(fields, csvField{"userId", *t.UserID})
	}
	fields = append(fields,
		csvField{"timestamp", t.Timestamp.UTC().Format(time.RFC3339)},
		csvField{"text", t.Text},
		csvField{"sentiment", t.Sentiment},
		csvField{"topic", t.Topic},
	)
	if t.Lang != nil {
		fields = append(fields, csvField{"lang", *t.Lang})
	}
	fields = append(fields, csvField{"ingestedAt", t.IngestedAt.UTC().Format(time.RFC3339)})
	return fields
}

func quoteField(v string) string {
	v = strings.ReplaceAll(v, "\n", " ")
	v = strings.ReplaceAll(v, "\r", " ")
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}
