package app

import (
	"context"
	"testing"

	"github.com/nats-io/nats-server/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chadiek/jarvis/internal/agent"
	"github.com/chadiek/jarvis/internal/config"
	"github.com/chadiek/jarvis/internal/errorsx"
	"github.com/chadiek/jarvis/internal/llm"
	"github.com/chadiek/jarvis/internal/transcript"
)

func baseConfig() config.Config {
	return config.Config{
		Runtime:    config.Sanitize(0.3, 1, 200, "").WithSession("Psychology", "abc123", "llama3.2:1b"),
		Backend:    config.BackendLocal,
		Ollama:     config.OllamaConfig{Host: "http://127.0.0.1:11434"},
		Recognizer: config.RecognizerConfig{Provider: config.RecognizerWhisper},
		TTS:        config.TTSConfig{Engine: config.EngineSystem},
	}
}

func TestNewGenerator(t *testing.T) {
	cfg := baseConfig()
	gen, err := NewGenerator(cfg)
	require.NoError(t, err)
	assert.IsType(t, &llm.OllamaClient{}, gen)

	cfg.Backend = config.BackendRemote
	gen, err = NewGenerator(cfg)
	require.NoError(t, err)
	assert.IsType(t, &llm.HuggingFaceClient{}, gen)

	cfg.Backend = "cloud"
	_, err = NewGenerator(cfg)
	assert.Error(t, err)
}

func TestNewRecognizer(t *testing.T) {
	cfg := baseConfig()
	assert.IsType(t, &transcript.WhisperClient{}, NewRecognizer(cfg))
	cfg.Recognizer.Provider = config.RecognizerDeepgram
	assert.IsType(t, &transcript.DeepgramClient{}, NewRecognizer(cfg))
}

func TestBuild_ServerWithoutCredentials(t *testing.T) {
	cfg := baseConfig()
	cfg.Backend = config.BackendRemote

	a, err := Build(cfg, ModeServer, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	res := a.Assistant.Turn(context.Background(), agent.TextInput("hello"))
	assert.Equal(t, errorsx.BackendError, res.ErrorKind)
	assert.Equal(t, agent.ApologyBackend, res.DisplayText)
	assert.False(t, res.Spoken)
}

func TestBuild_PublishesToNATS(t *testing.T) {
	opts := test.DefaultTestOptions
	opts.Port = -1
	srv := test.RunServer(&opts)
	defer srv.Shutdown()

	cfg := baseConfig()
	cfg.Events = config.EventsConfig{NATSURL: srv.ClientURL(), Subject: "jarvis.turns"}
	a, err := Build(cfg, ModeServer, nil)
	require.NoError(t, err)
	assert.NoError(t, a.Close())
}

func TestBuild_UnreachableNATS(t *testing.T) {
	cfg := baseConfig()
	cfg.Events.NATSURL = "nats://127.0.0.1:1"
	_, err := Build(cfg, ModeServer, nil)
	assert.Error(t, err)
}
