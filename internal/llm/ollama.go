package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/chadiek/jarvis/internal/config"
	"github.com/chadiek/jarvis/internal/errorsx"
)

// Local decoding settings.
const (
	LocalMaxTokens     = 100
	LocalRepeatPenalty = 1.2
	greedySeed         = 42
)

// OllamaClient generates with a model served by a local Ollama daemon.
// The model is addressed by cfg.ModelRef.
type OllamaClient struct {
	client *api.Client
}

// NewOllamaClient connects to host, e.g. http://127.0.0.1:11434.
func NewOllamaClient(host string, httpClient *http.Client) (*OllamaClient, error) {
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host %q: %w", host, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OllamaClient{client: api.NewClient(u, httpClient)}, nil
}

// Options returns the decoding options for cfg. Temperature zero is greedy.
func Options(cfg config.RuntimeConfig) map[string]any {
	opts := map[string]any{
		"num_predict":    LocalMaxTokens,
		"repeat_penalty": LocalRepeatPenalty,
		"temperature":    cfg.Temperature,
	}
	if cfg.Temperature == 0 {
		opts["top_k"] = 1
		opts["seed"] = greedySeed
	}
	return opts
}

// Generate runs a single non-streamed completion. Each call owns its
// output buffer so calls may run concurrently.
func (c *OllamaClient) Generate(ctx context.Context, prompt string, cfg config.RuntimeConfig) (string, error) {
	if cfg.ModelRef == "" {
		return "", errorsx.New(errorsx.BackendError, "ollama: no model configured")
	}
	stream := false
	req := &api.GenerateRequest{
		Model:   cfg.ModelRef,
		Prompt:  prompt,
		Stream:  &stream,
		Options: Options(cfg),
	}
	var sb strings.Builder
	err := c.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", errorsx.Wrap(fmt.Errorf("ollama generate %s: %w", cfg.ModelRef, err), errorsx.BackendError)
	}
	out, err := cleanCompletion(prompt, sb.String())
	return out, errorsx.Wrap(err, errorsx.BackendError)
}
