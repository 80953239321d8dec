package transcribe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient transcribes through the OpenAI cloud audio API.
// Implements the Provider interface.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates an OpenAI cloud transcription client.
func NewOpenAIClient(apiKey, model string, timeout time.Duration) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Name returns the provider name.
func (oc *OpenAIClient) Name() string { return "openai" }

// Model returns the configured model identifier.
func (oc *OpenAIClient) Model() string { return oc.model }

func (oc *OpenAIClient) Transcribe(ctx context.Context, audioPath string, opts Opts) (*Response, error) {
	req := openai.AudioRequest{
		Model:       oc.model,
		FilePath:    audioPath,
		Language:    opts.Language,
		Temperature: float32(opts.Temperature),
		Format:      openai.AudioResponseFormatVerboseJSON,
	}
	resp, err := oc.client.CreateTranscription(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}
	return &Response{Text: resp.Text, Language: resp.Language}, nil
}
