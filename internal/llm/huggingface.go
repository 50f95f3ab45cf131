package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chadiek/jarvis/internal/config"
	"github.com/chadiek/jarvis/internal/errorsx"
)

// Remote generation defaults.
const (
	RemoteTopP         = 0.95
	RemoteMaxNewTokens = 50
)

// HuggingFaceClient calls a hosted text-generation model.
type HuggingFaceClient struct {
	HTTPClient *http.Client
	APIKey     string
	URL        string
}

type hfParameters struct {
	Temperature    *float64 `json:"temperature,omitempty"`
	TopP           float64  `json:"top_p"`
	MaxNewTokens   int      `json:"max_new_tokens"`
	DoSample       bool     `json:"do_sample"`
	ReturnFullText bool     `json:"return_full_text"`
}

type hfOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
	Options    hfOptions    `json:"options"`
}

type hfGeneration struct {
	GeneratedText *string `json:"generated_text"`
}

func NewHuggingFaceClient(apiKey, url string) *HuggingFaceClient {
	return &HuggingFaceClient{
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		APIKey:     apiKey,
		URL:        url,
	}
}

// Generate posts the prompt and returns the cleaned completion. Temperature
// zero disables sampling.
func (c *HuggingFaceClient) Generate(ctx context.Context, prompt string, cfg config.RuntimeConfig) (string, error) {
	out, err := c.generate(ctx, prompt, cfg)
	return out, errorsx.Wrap(err, errorsx.BackendError)
}

func (c *HuggingFaceClient) generate(ctx context.Context, prompt string, cfg config.RuntimeConfig) (string, error) {
	if c.APIKey == "" {
		return "", errors.New("hugging face: unauthorized: api key missing")
	}
	params := hfParameters{TopP: RemoteTopP, MaxNewTokens: RemoteMaxNewTokens}
	if cfg.Temperature > 0 {
		t := cfg.Temperature
		params.Temperature = &t
		params.DoSample = true
	}

	reqBody, _ := json.Marshal(hfRequest{
		Inputs:     prompt,
		Parameters: params,
		Options:    hfOptions{WaitForModel: true},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("hugging face request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("hugging face error: status=%d body=%s", resp.StatusCode, string(b))
	}
	var gens []hfGeneration
	if err := json.NewDecoder(resp.Body).Decode(&gens); err != nil {
		return "", fmt.Errorf("hugging face: decode: %w", err)
	}
	if len(gens) == 0 || gens[0].GeneratedText == nil {
		return "", errors.New("hugging face: unexpected response shape")
	}
	return cleanCompletion(prompt, *gens[0].GeneratedText)
}
