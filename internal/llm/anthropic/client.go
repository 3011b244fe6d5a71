// Package anthropic adapts the Anthropic SDK to the llm.Provider interface.
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/rohitmangal/daily-news-podcast/internal/llm"
)

// Client wraps anthropic.Client for batched chat completions.
type Client struct {
	client anthropic.Client
}

// New builds a Client against the default Anthropic endpoint.
func New(apiKey string) *Client {
	return &Client{client: anthropic.NewClient(option.WithAPIKey(apiKey))}
}

// Chat implements llm.Provider. Anthropic splits the leading system message
// out of the turn list, so we extract it here.
func (c *Client) Chat(ctx context.Context, req llm.Request) (string, error) {
	var system string
	turns := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case "assistant":
			turns = append(turns, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			turns = append(turns, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	if req.JSONMode {
		// Anthropic has no response_format knob; nudge the model via an
		// assistant-prefill of "{" so it continues directly into JSON.
		turns = append(turns, anthropic.NewAssistantMessage(anthropic.NewTextBlock("{")))
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: 4096,
		Messages:  turns,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic chat: %w", err)
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("anthropic chat: empty content")
	}
	out := resp.Content[0].Text
	if req.JSONMode {
		out = "{" + out
	}
	return out, nil
}
