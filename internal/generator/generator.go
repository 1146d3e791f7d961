package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ErrEmptyGeneration is returned when the model produced no usable captions.
// Callers must treat it as a generation failure; nothing reaches storage.
var ErrEmptyGeneration = errors.New("generation returned no captions")

// CaptionGenerator produces candidate captions for a topic/tone/platform
// triple. Implementations must honor ctx cancellation.
type CaptionGenerator interface {
	Generate(ctx context.Context, topic, tone, platform string) ([]string, error)
}

const (
	defaultVariants   = 3
	requestTimeout    = 60 * time.Second
	defaultChatModel  = openai.GPT4oMini
	generationRetries = 2
)

// OpenAIGenerator asks a chat model for caption variants formatted as a JSON
// array of strings.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

func NewOpenAIGenerator(apiKey string) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	cfg.HTTPClient = &http.Client{Timeout: requestTimeout}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(cfg),
		model:  defaultChatModel,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, topic, tone, platform string) ([]string, error) {
	prompt := fmt.Sprintf(
		`Generate %d distinct social media posts. Each post should be for the platform '%s' with a '%s' tone, about the topic '%s'. Format the output as a JSON array of strings, like this: ["Post 1 text...", "Post 2 text...", "Post 3 text..."]. Do not include any other text or markdown formatting outside of this JSON array.`,
		defaultVariants, platform, tone, topic,
	)

	var lastErr error
	for attempt := 0; attempt <= generationRetries; attempt++ {
		resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: g.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = ErrEmptyGeneration
			continue
		}
		captions, err := ParseCaptionArray(resp.Choices[0].Message.Content)
		if err != nil {
			lastErr = err
			continue
		}
		return captions, nil
	}
	return nil, lastErr
}

// ParseCaptionArray extracts a JSON string array from raw model output.
// Models sometimes wrap the array in ```json fences; strip those first.
func ParseCaptionArray(raw string) ([]string, error) {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var captions []string
	if err := json.Unmarshal([]byte(cleaned), &captions); err != nil {
		return nil, fmt.Errorf("malformed generation output: %w", err)
	}

	out := make([]string, 0, len(captions))
	for _, c := range captions {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, ErrEmptyGeneration
	}
	return out, nil
}
