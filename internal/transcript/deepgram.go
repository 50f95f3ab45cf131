package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/chadiek/jarvis/internal/audio"
)

const deepgramListenURL = "https://api.deepgram.com/v1/listen"

// DeepgramClient recognizes speech with Deepgram's prerecorded REST API.
type DeepgramClient struct {
	apiKey   string
	model    string
	language string
	endpoint string
	client   *http.Client
}

// NewDeepgramClient builds a client for the given model and language.
func NewDeepgramClient(apiKey, model, language string) *DeepgramClient {
	if model == "" {
		model = "nova-2"
	}
	return &DeepgramClient{
		apiKey:   apiKey,
		model:    model,
		language: language,
		endpoint: deepgramListenURL,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

type deepgramResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Recognize posts the WAV clip and returns the best alternative. A response
// without alternatives is an empty transcript, not an error.
func (c *DeepgramClient) Recognize(ctx context.Context, clip audio.Clip) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("deepgram: %w", ErrMissingKey)
	}
	q := url.Values{}
	q.Set("model", c.model)
	q.Set("smart_format", "true")
	if c.language != "" {
		q.Set("language", c.language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?"+q.Encode(), bytes.NewReader(clip.WAV))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", "audio/wav")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepgram request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("deepgram error: status=%d body=%s", resp.StatusCode, string(body))
	}

	var parsed deepgramResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode deepgram: %w", err)
	}
	if len(parsed.Results.Channels) == 0 || len(parsed.Results.Channels[0].Alternatives) == 0 {
		return "", nil
	}
	return parsed.Results.Channels[0].Alternatives[0].Transcript, nil
}
