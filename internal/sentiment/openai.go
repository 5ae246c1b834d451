package sentiment

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const labelPrompt = "You are a sentiment classifier. Reply with exactly one word: POSITIVE, NEGATIVE or NEUTRAL."

// OpenAIProvider implements LabelProvider using the Chat Completions API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string // optional
}

func NewOpenAI(cfg OpenAIConfig) *OpenAIProvider {
	var c *openai.Client
	if cfg.BaseURL != "" {
		cc := openai.DefaultConfig(cfg.APIKey)
		cc.BaseURL = cfg.BaseURL
		c = openai.NewClientWithConfig(cc)
	} else {
		c = openai.NewClient(cfg.APIKey)
	}
	if cfg.Model == "" {
		panic("OpenAI model must be specified")
	}
	return &OpenAIProvider{client: c, model: cfg.Model}
}

func (o *OpenAIProvider) RawLabel(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Trim inputs to keep tokens reasonable; tweets are short anyway.
	text = strings.TrimSpace(text)
	if len([]rune(text)) > 1000 {
		text = string([]rune(text)[:1000])
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: labelPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("openai: classify: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// KeywordProvider is a deterministic offline fallback used when no API key
// is configured. It scores text against small positive/negative word lists.
type KeywordProvider struct{}

var (
	positiveWords = []string{"love", "great", "awesome", "amazing", "good", "excellent", "happy", "best", "nice", "wonderful"}
	negativeWords = []string{"hate", "terrible", "awful", "bad", "worst", "broken", "sad", "angry", "horrible", "disappointing"}
)

func (KeywordProvider) RawLabel(ctx context.Context, text string) (string, error) {
	l := strings.ToLower(text)
	score := 0
	for _, w := range positiveWords {
		if strings.Contains(l, w) {
			score++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(l, w) {
			score--
		}
	}
	switch {
	case score > 0:
		return "POSITIVE", nil
	case score < 0:
		return "NEGATIVE", nil
	default:
		return "NEUTRAL", nil
	}
}
