package extract

import "context"

// Provider is the interface for any LLM backend.
type Provider interface {
	Send(ctx context.Context, req *LLMRequest) (*LLMResponse, error)
}

// LLMRequest represents the input to the LLM provider. Extraction is a single
// forced-JSON completion, so there is no tool definition surface.
type LLMRequest struct {
	MaxTokens int
	System    string
	Messages  []Message
}

// Message is a single conversation turn sent to the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMResponse represents the output from the LLM provider.
type LLMResponse struct {
	Text       string
	StopReason StopReason
	Model      string
	Usage      Usage
}

// StopReason indicates why the LLM stopped generating content.
type StopReason string

const (
	StopEnd       StopReason = "end_turn"
	StopMaxTokens StopReason = "max_tokens"
)

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
