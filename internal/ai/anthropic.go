package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient вызывает Messages API через официальный SDK.
type AnthropicClient struct {
	apiKey    string
	model     string
	maxTokens int
	client    anthropic.Client
}

// NewAnthropicClient создает клиент Anthropic с заданными параметрами.
func NewAnthropicClient(apiKey, baseURL, model string, timeout time.Duration, maxTokens int) *AnthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(0),
	}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &AnthropicClient{
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		client:    anthropic.NewClient(opts...),
	}
}

// Chat отправляет сообщения в Anthropic и возвращает текст ответа и сырой ответ API.
func (c *AnthropicClient) Chat(ctx context.Context, chat ChatRequest) (string, []byte, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", nil, fmt.Errorf("anthropic api key is missing: %w", ErrUnavailable)
	}

	system, rest := splitSystem(chat.Messages)
	if chat.JSON {
		system = strings.TrimSpace(system + "\nRespond with a single JSON object and nothing else.")
	}

	messages := make([]anthropic.MessageParam, 0, len(rest))
	for _, message := range rest {
		text := strings.TrimSpace(message.Content)
		if text == "" {
			continue
		}

		if message.Role == "assistant" {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(text)))
			continue
		}
		messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
	}

	if len(messages) == 0 {
		return "", nil, errors.New("anthropic request has no user content")
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(resolveMaxTokens(c.maxTokens)),
		Messages:  messages,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	response, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", nil, fmt.Errorf("anthropic api error: %w", err)
	}

	raw := []byte(response.RawJSON())

	var builder strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			builder.WriteString(block.Text)
		}
	}

	if builder.Len() == 0 {
		return "", raw, errors.New("anthropic response missing text content")
	}

	return builder.String(), raw, nil
}
