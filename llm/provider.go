package llm

import (
	"context"
	"fmt"
)

// Provider is the interface to the external extraction capability: given a
// rendered prompt and an attached PDF, return the model's best-effort text
// response. Implementations hold no per-call state, so a single Provider is
// safe to share across concurrently running tasks.
type Provider interface {
	// ExtractFromDocument sends a document-chat request.
	ExtractFromDocument(ctx context.Context, req DocumentRequest) (*Response, error)
}

// DocumentRequest is a single-turn chat request with one attached PDF.
type DocumentRequest struct {
	Model       string
	Prompt      string
	Document    []byte // raw PDF bytes, base64-encoded at the wire layer
	Filename    string
	Temperature float64
	MaxTokens   int
}

// Response is the model's reply to a document-chat request.
type Response struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	StopReason   string `json:"stop_reason"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// Config configures an extraction provider.
type Config struct {
	Provider    string `json:"provider"` // anthropic, openai, custom
	Model       string `json:"model"`
	BaseURL     string `json:"base_url"`
	APIKey      string `json:"api_key"`
	MaxTokens   int    `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// NewProvider creates an extraction provider from configuration.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "anthropic":
		return NewAnthropic(cfg)
	case "openai":
		return NewOpenAI(cfg)
	case "custom":
		return NewOpenAICompat(cfg)
	case "":
		return nil, fmt.Errorf("llm provider not specified")
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}
