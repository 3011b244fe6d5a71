// Package llm defines the narrow chat-completion interface the pipeline's
// LLM-driven stages (outline, script, fact-check, safety) use. Every call is
// a single batched request expecting a JSON object back — there is no
// streaming, tool-calling, or multi-turn context management here, since no
// stage needs it.
package llm

import "context"

// Message is one turn in a chat completion request.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// Request is a single structured-JSON completion request.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	// JSONMode instructs the provider to constrain output to a JSON object
	// when the backend supports it (OpenAI's response_format, Anthropic's
	// prefill trick, Gemini's response_mime_type).
	JSONMode bool
}

// Provider is implemented by each concrete LLM backend.
type Provider interface {
	// Chat sends req and returns the assistant's reply content.
	Chat(ctx context.Context, req Request) (string, error)
}
