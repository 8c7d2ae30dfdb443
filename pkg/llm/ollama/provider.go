// Package ollama provides the Ollama model provider for local deployments.
//
// Usage:
//
//	import _ "github.com/kart-io/graphrag/pkg/llm/ollama"
//	import "github.com/kart-io/graphrag/pkg/llm"
//
//	provider, err := llm.NewChatProvider("ollama", map[string]any{
//	    "base_url": "http://localhost:11434",
//	    "model":    "llama3.1:8b",
//	})
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kart-io/graphrag/pkg/llm"
)

// ProviderName identifies the Ollama provider.
const ProviderName = "ollama"

func init() {
	llm.RegisterEmbeddingProvider(ProviderName, func(config map[string]any) (llm.EmbeddingProvider, error) {
		return New(config)
	})
	llm.RegisterChatProvider(ProviderName, func(config map[string]any) (llm.ChatProvider, error) {
		return New(config)
	})
}

// Provider implements llm.EmbeddingProvider and llm.ChatProvider
// against the Ollama HTTP API.
type Provider struct {
	baseURL    string
	model      string
	maxRetries int
	httpClient *http.Client
}

var (
	_ llm.EmbeddingProvider = (*Provider)(nil)
	_ llm.ChatProvider      = (*Provider)(nil)
)

// New creates a Provider from a config map.
func New(config map[string]any) (*Provider, error) {
	p := &Provider{
		baseURL:    "http://localhost:11434",
		model:      "llama3.1:8b",
		maxRetries: 3,
	}
	timeout := 120 * time.Second

	if v, ok := config["base_url"].(string); ok && v != "" {
		p.baseURL = v
	}
	if v, ok := config["model"].(string); ok && v != "" {
		p.model = v
	}
	if v, ok := config["timeout"].(time.Duration); ok && v > 0 {
		timeout = v
	}
	if v, ok := config["max_retries"].(int); ok && v >= 0 {
		p.maxRetries = v
	}

	p.httpClient = &http.Client{Timeout: timeout}
	return p, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return ProviderName
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed generates embeddings for the given texts.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp embedResponse
	if err := p.doJSON(ctx, "/api/embed", embedRequest{Model: p.model, Input: texts}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama: expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}
	return resp.Embeddings, nil
}

// EmbedSingle generates an embedding for a single text.
func (p *Provider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("ollama: no embedding returned")
	}
	return embeddings[0], nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type modelOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *modelOptions `json:"options,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// newModelOptions maps call options onto the Ollama options payload.
func newModelOptions(opts []llm.CallOption) *modelOptions {
	callOpts := llm.ApplyCallOptions(opts)
	if callOpts.Temperature == nil && callOpts.MaxTokens == 0 {
		return nil
	}
	return &modelOptions{
		Temperature: callOpts.Temperature,
		NumPredict:  callOpts.MaxTokens,
	}
}

// Chat runs a multi-turn conversation.
func (p *Provider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) (string, error) {
	req := chatRequest{Model: p.model, Stream: false, Options: newModelOptions(opts)}
	for _, m := range messages {
		req.Messages = append(req.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	var resp chatResponse
	if err := p.doJSON(ctx, "/api/chat", req, &resp); err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}

type generateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Options *modelOptions `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate produces text for a single prompt with an optional system prompt.
func (p *Provider) Generate(ctx context.Context, prompt string, systemPrompt string, opts ...llm.CallOption) (string, error) {
	var resp generateResponse
	err := p.doJSON(ctx, "/api/generate", generateRequest{
		Model:   p.model,
		Prompt:  prompt,
		System:  systemPrompt,
		Stream:  false,
		Options: newModelOptions(opts),
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Response, nil
}

// Ping checks if the Ollama server is reachable.
func (p *Provider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("ollama: create ping request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama: ping failed with status %d", resp.StatusCode)
	}
	return nil
}

// doJSON posts a JSON body and decodes the JSON response, with retries.
func (p *Provider) doJSON(ctx context.Context, path string, reqBody, respBody any) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("ollama: marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("ollama: create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("ollama: status %d: %s", resp.StatusCode, string(body))
			continue
		}

		err = json.NewDecoder(resp.Body).Decode(respBody)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("ollama: decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("ollama: request failed after %d attempts: %w", p.maxRetries+1, lastErr)
}
