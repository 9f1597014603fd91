// LLMClient - adapts a Provider to the two-prompt generate contract used by
// the research pipeline.

package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a provider answers with no text.
var ErrEmptyResponse = errors.New("llm returned an empty response")

// Client wraps a Provider with a simple interface.
type Client struct {
	provider Provider
}

// NewClient creates a new LLM client from a provider.
func NewClient(provider Provider) *Client {
	return &Client{provider: provider}
}

// Generate sends one system instruction and one human turn and returns the
// generated text.
func (c *Client) Generate(ctx context.Context, systemPrompt, humanPrompt string) (string, error) {
	response, err := c.provider.Chat(ctx, twoTurn(systemPrompt, humanPrompt))
	if err != nil {
		return "", err
	}
	if response.Content == "" {
		return "", ErrEmptyResponse
	}
	return response.Content, nil
}

// GenerateJSON is like Generate but asks the provider for a JSON object.
func (c *Client) GenerateJSON(ctx context.Context, systemPrompt, humanPrompt string) (string, error) {
	response, err := c.provider.ChatWithFormat(ctx, twoTurn(systemPrompt, humanPrompt), NewJSONObjectFormat())
	if err != nil {
		return "", err
	}
	if response.Content == "" {
		return "", ErrEmptyResponse
	}
	return response.Content, nil
}

// Chat sends a chat completion request and returns just the content.
func (c *Client) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	response, err := c.provider.Chat(ctx, messages)
	if err != nil {
		return "", err
	}
	return response.Content, nil
}

// Provider returns the underlying provider.
func (c *Client) Provider() Provider {
	return c.provider
}

func twoTurn(systemPrompt, humanPrompt string) []ChatMessage {
	messages := make([]ChatMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, SystemMessage(systemPrompt))
	}
	return append(messages, UserMessage(humanPrompt))
}
