package interfaces

import "context"

// Message is one turn of an LLM conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMService generates text completions. Providers are selected by
// model name prefix; retries and rate limits are handled internally.
type LLMService interface {
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}

// GenerateRequest is a provider-neutral completion request.
type GenerateRequest struct {
	Messages          []Message
	Model             string
	Temperature       float64
	MaxTokens         int
	SystemInstruction string
	// OutputSchema, when set, asks the provider for structured JSON
	// output matching the schema (Gemini only; Claude gets the schema
	// appended to the instruction).
	OutputSchema map[string]interface{}
}

// GenerateResponse is the provider-neutral completion response.
type GenerateResponse struct {
	Text     string
	Provider string
	Model    string
}
