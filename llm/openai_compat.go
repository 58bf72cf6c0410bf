package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
)

// openAICompatClient is the shared base for OpenAI-compatible providers.
// PDFs ride along as base64 file content parts in the chat completion.
type openAICompatClient struct {
	cfg        Config
	client     *http.Client
	pathPrefix string // API path prefix, defaults to "/v1"
}

func newOpenAICompatClient(cfg Config) openAICompatClient {
	return openAICompatClient{
		cfg:        cfg,
		pathPrefix: "/v1",
		client:     newHTTPClient(),
	}
}

// NewOpenAICompat creates a generic OpenAI-compatible provider for custom
// gateways. A base URL is required; an API key is optional since local
// gateways often run unauthenticated.
func NewOpenAICompat(cfg Config) (Provider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("custom provider requires a base URL")
	}
	return &openAICompatProvider{base: newOpenAICompatClient(cfg)}, nil
}

// NewOpenAI creates a provider for the OpenAI API.
func NewOpenAI(cfg Config) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai provider requires an API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	return &openAICompatProvider{base: newOpenAICompatClient(cfg)}, nil
}

type openAICompatProvider struct {
	base openAICompatClient
}

// --- wire types ---

type compatContentPart struct {
	Type string      `json:"type"` // "text" or "file"
	Text string      `json:"text,omitempty"`
	File *compatFile `json:"file,omitempty"`
}

type compatFile struct {
	Filename string `json:"filename"`
	FileData string `json:"file_data"` // data URL with base64 payload
}

type compatMessage struct {
	Role    string              `json:"role"`
	Content []compatContentPart `json:"content"`
}

type compatChatRequest struct {
	Model       string          `json:"model"`
	Messages    []compatMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type compatChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *openAICompatProvider) ExtractFromDocument(ctx context.Context, req DocumentRequest) (*Response, error) {
	model := req.Model
	if model == "" {
		model = p.base.cfg.Model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.base.cfg.MaxTokens
	}

	filename := req.Filename
	if filename == "" {
		filename = "document.pdf"
	}

	body := compatChatRequest{
		Model:       model,
		Temperature: req.Temperature,
		MaxTokens:   maxTokens,
		Messages: []compatMessage{{
			Role: "user",
			Content: []compatContentPart{
				{
					Type: "file",
					File: &compatFile{
						Filename: filename,
						FileData: "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(req.Document),
					},
				},
				{Type: "text", Text: req.Prompt},
			},
		}},
	}

	headers := map[string]string{}
	if p.base.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + p.base.cfg.APIKey
	}

	respBody, err := doPost(ctx, p.base.client, p.base.cfg.BaseURL+p.base.pathPrefix+"/chat/completions", headers, body)
	if err != nil {
		return nil, err
	}

	var resp compatChatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decoding chat response: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	return &Response{
		Content:      resp.Choices[0].Message.Content,
		Model:        resp.Model,
		StopReason:   resp.Choices[0].FinishReason,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}
