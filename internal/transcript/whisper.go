package transcript

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/chadiek/jarvis/internal/audio"
)

// WhisperClient recognizes speech with the OpenAI transcription API.
type WhisperClient struct {
	apiKey   string
	language string
	client   *openai.Client
}

// NewWhisperClient builds a client. baseURL and httpClient are optional.
func NewWhisperClient(apiKey, baseURL, language string, httpClient *http.Client) *WhisperClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &WhisperClient{
		apiKey:   apiKey,
		language: language,
		client:   openai.NewClientWithConfig(cfg),
	}
}

// Recognize uploads the WAV clip and returns the transcript text.
func (c *WhisperClient) Recognize(ctx context.Context, clip audio.Clip) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("whisper: %w", ErrMissingKey)
	}
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: "audio.wav",
		Reader:   bytes.NewReader(clip.WAV),
		Language: c.language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("whisper: status=%d: %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("whisper: %w", err)
	}
	return resp.Text, nil
}
