// Package anthropic implements ai.Generator on top of the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/spigell/job-seeker/internal/ai"
	"github.com/spigell/job-seeker/internal/utils"
)

const (
	// Provider is the provider name used in configuration and logs.
	Provider = "anthropic"

	defaultModel        = "claude-sonnet-4-5"
	defaultMaxTokens    = 4096
	defaultMaxLogLength = 200
)

type messagesAPI interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Generator sends requests to Claude models.
type Generator struct {
	messages  messagesAPI
	model     string
	maxLogLen int
	logger    *zap.Logger
}

var _ ai.Generator = (*Generator)(nil)

// NewGenerator creates a Generator. Retries are delegated to the SDK and
// maxRetries counts total attempts, as for the Gemini provider.
func NewGenerator(apiKey, model string, maxRetries, maxLogLength int, logger *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("anthropic api key is required")
	}

	retries := maxRetries - 1
	if retries < 0 {
		retries = 0
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(retries),
	)

	return newGenerator(&client.Messages, model, maxLogLength, logger), nil
}

func newGenerator(messages messagesAPI, model string, maxLogLength int, logger *zap.Logger) *Generator {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{messages: messages, model: model, maxLogLen: maxLogLength, logger: logger}
}

// Generate sends the request as a single user message.
func (g *Generator) Generate(ctx context.Context, req ai.Request) (string, error) {
	if g == nil || g.messages == nil {
		return "", errors.New("anthropic generator is not initialized")
	}

	input := strings.TrimSpace(req.Input)
	if input == "" {
		return "", errors.New("input must not be empty")
	}

	maxTokens := int64(req.MaxOutputTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(g.model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(float64(req.Temperature)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(input)),
		},
	}

	if system := systemPrompt(req); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	g.logger.Debug("anthropic messages request",
		zap.Int("input_length", utf8.RuneCountInString(input)),
		zap.String("input_preview", utils.TruncateForLog(input, g.maxLogLen)),
	)

	msg, err := g.messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("create message: %w", err)
	}

	var builder strings.Builder
	for _, block := range msg.Content {
		if block.Type != "text" {
			continue
		}
		text := strings.TrimSpace(block.Text)
		if text == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(text)
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("anthropic api returned empty response")
	}

	g.logger.Debug("anthropic messages response",
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", utils.TruncateForLog(output, g.maxLogLen)),
	)

	return output, nil
}

// The Messages API has no response schema parameter, so the schema is appended
// to the system prompt.
func systemPrompt(req ai.Request) string {
	system := strings.TrimSpace(req.Instructions)
	if req.Schema == nil {
		return system
	}

	var b strings.Builder
	b.WriteString(system)
	if b.Len() > 0 {
		b.WriteString("\n\n")
	}
	b.WriteString("Respond with a single JSON object and nothing else. It must validate against this JSON Schema:\n")
	b.WriteString(req.Schema.String())
	return b.String()
}

// Provider returns the provider name.
func (g *Generator) Provider() string { return Provider }

// Model returns the configured model name.
func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}
