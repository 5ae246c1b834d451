// Package sentiment assigns one of three labels to a piece of text.
package sentiment

import (
	"context"
	"log/slog"
	"strings"
)

// Label is a normalized sentiment value.
type Label string

const (
	Positive Label = "positive"
	Negative Label = "negative"
	Neutral  Label = "neutral"
)

// NormalizeLabel maps a raw model label onto exactly one of the three
// labels. Matching is case-insensitive substring matching; anything
// unrecognized (LABEL_0, garbage, empty) falls back to neutral. Downstream
// aggregation assumes every stored record carries one of the three labels,
// so this must stay total.
func NormalizeLabel(raw string) Label {
	l := strings.ToLower(raw)
	switch {
	case strings.Contains(l, "pos"):
		return Positive
	case strings.Contains(l, "neg"):
		return Negative
	case strings.Contains(l, "neutral"):
		return Neutral
	default:
		return Neutral
	}
}

// LabelProvider is the opaque classification capability. It returns the
// model's raw label, which Classifier normalizes.
type LabelProvider interface {
	RawLabel(ctx context.Context, text string) (string, error)
}

// Classifier wraps a LabelProvider and guarantees a usable label for every
// input: provider failures degrade to neutral instead of aborting an
// ingestion run.
type Classifier struct {
	provider LabelProvider
}

func NewClassifier(provider LabelProvider) *Classifier {
	return &Classifier{provider: provider}
}

// Classify labels a single text synchronously.
func (c *Classifier) Classify(ctx context.Context, text string) Label {
	raw, err := c.provider.RawLabel(ctx, text)
	if err != nil {
		slog.Warn("sentiment: provider error, defaulting to neutral", "err", err)
		return Neutral
	}
	return NormalizeLabel(raw)
}
