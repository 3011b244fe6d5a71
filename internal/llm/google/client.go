// Package google adapts the Gemini SDK to the llm.Provider interface.
package google

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/rohitmangal/daily-news-podcast/internal/llm"
)

// Client wraps genai.Client for batched chat completions.
type Client struct {
	client *genai.Client
}

// New builds a Client against the Gemini API.
func New(ctx context.Context, apiKey string) (*Client, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("google genai client: %w", err)
	}
	return &Client{client: c}, nil
}

// Chat implements llm.Provider. System messages become the model's system
// instruction; everything else becomes the content turns.
func (c *Client) Chat(ctx context.Context, req llm.Request) (string, error) {
	var system string
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case "assistant":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.JSONMode {
		cfg.ResponseMIMEType = "application/json"
	}
	if req.Temperature > 0 {
		t := float32(req.Temperature)
		cfg.Temperature = &t
	}

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("google chat: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("google chat: empty response")
	}
	return text, nil
}
