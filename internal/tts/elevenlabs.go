package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/exec"
	"strconv"
	"sync"
)

// DefaultElevenLabsVoice is used when no voice id is configured.
const DefaultElevenLabsVoice = "21m00Tcm4TlvDq8ikWAM"

// Player consumes an encoded audio stream until it ends.
type Player interface {
	Play(ctx context.Context, audio io.Reader, v Voice) error
}

// ElevenLabsEngine streams speech from the ElevenLabs HTTP API into a
// local player.
type ElevenLabsEngine struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Player     Player
	voice      Voice

	mu      sync.Mutex
	running bool
}

// ElevenLabsFactory builds engines that play through ffplay.
func ElevenLabsFactory(apiKey, model string) EngineFactory {
	return func(v Voice) (Engine, error) {
		if apiKey == "" {
			return nil, errors.New("elevenlabs: api key missing")
		}
		return NewElevenLabsEngine(apiKey, model, v, FFPlay{}), nil
	}
}

func NewElevenLabsEngine(apiKey, model string, v Voice, p Player) *ElevenLabsEngine {
	if v.ID == "" {
		v.ID = DefaultElevenLabsVoice
	}
	return &ElevenLabsEngine{
		APIKey:     apiKey,
		Model:      model,
		BaseURL:    "https://api.elevenlabs.io",
		HTTPClient: &http.Client{Timeout: 0},
		Player:     p,
		voice:      v,
	}
}

// Say requests an MP3 stream for text and plays it as it arrives.
func (e *ElevenLabsEngine) Say(ctx context.Context, text string) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}
	e.running = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	u, err := url.Parse(e.BaseURL)
	if err != nil {
		return fmt.Errorf("elevenlabs base url: %w", err)
	}
	u = u.JoinPath("/v1/text-to-speech", e.voice.ID, "stream")
	q := u.Query()
	q.Set("output_format", "mp3_44100_128")
	// lower streaming latency target (0..4 where lower is lower latency, may trade quality)
	q.Set("optimize_streaming_latency", "2")
	u.RawQuery = q.Encode()

	body := map[string]any{
		"model_id": e.Model,
		"text":     text,
		"voice_settings": map[string]any{
			"stability":         0.4,
			"similarity_boost":  0.7,
			"style":             0.0,
			"use_speaker_boost": true,
		},
	}
	buf, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("xi-api-key", e.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("elevenlabs http stream error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("elevenlabs http status=%d body=%s", resp.StatusCode, string(b))
	}
	return e.Player.Play(ctx, resp.Body, e.voice)
}

// Close is a no-op; the HTTP stream is released when Say returns.
func (e *ElevenLabsEngine) Close() error { return nil }

// FFPlay plays audio with ffplay, applying volume and tempo from the voice.
type FFPlay struct{}

// Args returns the ffplay command line for v.
func (FFPlay) Args(v Voice) []string {
	tempo := float64(v.Rate) / 200
	tempo = min(max(tempo, 0.5), 2.0)
	return []string{
		"-nodisp", "-autoexit", "-loglevel", "quiet",
		"-volume", strconv.Itoa(int(v.Volume * 100)),
		"-af", "atempo=" + strconv.FormatFloat(tempo, 'f', 2, 64),
		"-i", "-",
	}
}

func (f FFPlay) Play(ctx context.Context, audio io.Reader, v Voice) error {
	cmd := exec.CommandContext(ctx, "ffplay", f.Args(v)...)
	cmd.Stdin = audio
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffplay: %w", err)
	}
	return nil
}
