package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Backend kinds.
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// Recognizer providers.
const (
	RecognizerWhisper  = "whisper"
	RecognizerDeepgram = "deepgram"
)

// TTS engines.
const (
	EngineSystem     = "system"
	EngineElevenLabs = "elevenlabs"
)

const (
	defaultModel         = "llama3.2:1b"
	defaultAbility       = "Psychology"
	defaultHFURL         = "https://api-inference.huggingface.co/models/mistralai/Mistral-7B-Instruct-v0.3"
	defaultOllamaHost    = "http://127.0.0.1:11434"
	defaultNATSSubject   = "jarvis.turns"
	defaultHTTPAddress   = ":5000"
	defaultElevenModel   = "eleven_turbo_v2_5"
	defaultDeepgramModel = "nova-2"
)

// HuggingFaceConfig configures the remote generation backend.
type HuggingFaceConfig struct {
	APIKey string
	URL    string
}

// OllamaConfig configures the local generation backend.
type OllamaConfig struct {
	Host string
}

// RecognizerConfig selects and configures the speech-to-text provider.
type RecognizerConfig struct {
	Provider      string
	Language      string
	OpenAIKey     string
	OpenAIBaseURL string
	DeepgramKey   string
	DeepgramModel string
}

// TTSConfig selects the synthesis engine.
type TTSConfig struct {
	Engine          string
	ElevenLabsKey   string
	ElevenLabsModel string
}

// EventsConfig configures turn event publishing. An empty URL disables it.
type EventsConfig struct {
	NATSURL string
	Subject string
}

// Config holds application configuration.
type Config struct {
	Runtime RuntimeConfig

	Backend     string
	HTTPAddress string
	LogLevel    string

	HuggingFace HuggingFaceConfig
	Ollama      OllamaConfig
	Recognizer  RecognizerConfig
	TTS         TTSConfig
	Events      EventsConfig

	CaptureLimit       time.Duration
	RecognitionTimeout time.Duration
	GenerationTimeout  time.Duration

	ListVoices bool
	TestVoice  bool
	PTT        bool
	Speak      bool
}

// NewFlagSet declares every command-line flag both binaries accept.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("model", defaultModel, "model reference for the local backend")
	fs.Float64("temperature", 0.3, "sampling temperature, clamped to [0,1]")
	fs.String("voice", "", "system voice id (empty uses the platform default)")
	fs.Float64("volume", 1.0, "speech volume, clamped to [0,1]")
	fs.Int("rate", 200, "speech rate in words per minute, clamped to [20,500]")
	fs.String("session_id", "", "session identifier (random when empty)")
	fs.String("ability", defaultAbility, "subject area the assistant answers in")
	fs.Bool("list_voices", false, "list available system voices and exit")
	fs.Bool("test_voice", false, "speak a sample sentence and exit")
	fs.Bool("ptt", false, "push-to-talk: press Enter again to stop recording")
	fs.Bool("speak", false, "speak answers on the host machine (server)")
	fs.String("backend", BackendLocal, "generation backend: local or remote")
	fs.String("recognizer", RecognizerWhisper, "speech recognizer: whisper or deepgram")
	fs.String("tts_engine", EngineSystem, "speech engine: system or elevenlabs")
	fs.String("language", "en", "recognition language")
	fs.Duration("capture_limit", 5*time.Second, "maximum microphone capture per turn")
	fs.Duration("recognition_timeout", 30*time.Second, "speech recognition timeout")
	fs.Duration("generation_timeout", 60*time.Second, "text generation timeout")
	fs.String("addr", defaultHTTPAddress, "HTTP listen address")
	fs.String("log_level", "info", "log level")
	fs.String("config", "", "optional config file (yaml, toml or json)")
	return fs
}

// Load parses args and the environment into a Config. Missing credentials
// only produce warnings; the affected adapter fails at call time.
func Load(args []string, log *zap.Logger) (Config, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := godotenv.Load(); err != nil {
		log.Warn("no .env file loaded", zap.Error(err))
	}

	fs := NewFlagSet("jarvis")
	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("JARVIS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return Config{}, fmt.Errorf("bind flags: %w", err)
	}
	for key, env := range map[string]string{
		"hugging_face_api_key": "HUGGING_FACE_API_KEY",
		"hugging_face_api_url": "HUGGING_FACE_API_URL",
		"ollama_host":          "OLLAMA_HOST",
		"openai_api_key":       "OPENAI_API_KEY",
		"openai_base_url":      "OPENAI_BASE_URL",
		"deepgram_api_key":     "DEEPGRAM_API_KEY",
		"elevenlabs_api_key":   "ELEVENLABS_API_KEY",
		"nats_url":             "NATS_URL",
		"nats_subject":         "NATS_SUBJECT",
		"addr":                 "HTTP_ADDRESS",
		"log_level":            "LOG_LEVEL",
	} {
		if err := v.BindEnv(key, "JARVIS_"+strings.ToUpper(key), env); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", env, err)
		}
	}
	v.SetDefault("hugging_face_api_url", defaultHFURL)
	v.SetDefault("ollama_host", defaultOllamaHost)
	v.SetDefault("nats_subject", defaultNATSSubject)

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := Config{
		Backend:     strings.ToLower(v.GetString("backend")),
		HTTPAddress: v.GetString("addr"),
		LogLevel:    v.GetString("log_level"),
		HuggingFace: HuggingFaceConfig{
			APIKey: v.GetString("hugging_face_api_key"),
			URL:    v.GetString("hugging_face_api_url"),
		},
		Ollama: OllamaConfig{Host: v.GetString("ollama_host")},
		Recognizer: RecognizerConfig{
			Provider:      strings.ToLower(v.GetString("recognizer")),
			Language:      v.GetString("language"),
			OpenAIKey:     v.GetString("openai_api_key"),
			OpenAIBaseURL: v.GetString("openai_base_url"),
			DeepgramKey:   v.GetString("deepgram_api_key"),
			DeepgramModel: defaultDeepgramModel,
		},
		TTS: TTSConfig{
			Engine:          strings.ToLower(v.GetString("tts_engine")),
			ElevenLabsKey:   v.GetString("elevenlabs_api_key"),
			ElevenLabsModel: defaultElevenModel,
		},
		Events: EventsConfig{
			NATSURL: v.GetString("nats_url"),
			Subject: v.GetString("nats_subject"),
		},
		CaptureLimit:       v.GetDuration("capture_limit"),
		RecognitionTimeout: v.GetDuration("recognition_timeout"),
		GenerationTimeout:  v.GetDuration("generation_timeout"),
		ListVoices:         v.GetBool("list_voices"),
		TestVoice:          v.GetBool("test_voice"),
		PTT:                v.GetBool("ptt"),
		Speak:              v.GetBool("speak"),
	}

	sessionID := v.GetString("session_id")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	cfg.Runtime = Sanitize(
		v.GetFloat64("temperature"),
		v.GetFloat64("volume"),
		v.GetInt("rate"),
		v.GetString("voice"),
	).WithSession(v.GetString("ability"), sessionID, v.GetString("model"))

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	cfg.warnMissing(log)
	log.Info("config loaded",
		zap.String("backend", cfg.Backend),
		zap.String("recognizer", cfg.Recognizer.Provider),
		zap.String("tts_engine", cfg.TTS.Engine),
		zap.String("http_address", cfg.HTTPAddress),
		zap.String("session_id", cfg.Runtime.SessionID),
	)
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	switch c.Backend {
	case BackendLocal, BackendRemote:
	default:
		errs = append(errs, fmt.Errorf("backend must be %q or %q, got %q", BackendLocal, BackendRemote, c.Backend))
	}
	switch c.Recognizer.Provider {
	case RecognizerWhisper, RecognizerDeepgram:
	default:
		errs = append(errs, fmt.Errorf("recognizer must be %q or %q, got %q", RecognizerWhisper, RecognizerDeepgram, c.Recognizer.Provider))
	}
	switch c.TTS.Engine {
	case EngineSystem, EngineElevenLabs:
	default:
		errs = append(errs, fmt.Errorf("tts_engine must be %q or %q, got %q", EngineSystem, EngineElevenLabs, c.TTS.Engine))
	}
	if c.CaptureLimit <= 0 {
		errs = append(errs, errors.New("capture_limit must be positive"))
	}
	return errors.Join(errs...)
}

func (c Config) warnMissing(log *zap.Logger) {
	if c.Backend == BackendRemote && c.HuggingFace.APIKey == "" {
		log.Warn("HUGGING_FACE_API_KEY not set - remote generation will fail")
	}
	switch c.Recognizer.Provider {
	case RecognizerWhisper:
		if c.Recognizer.OpenAIKey == "" {
			log.Warn("OPENAI_API_KEY not set - speech recognition will not work")
		}
	case RecognizerDeepgram:
		if c.Recognizer.DeepgramKey == "" {
			log.Warn("DEEPGRAM_API_KEY not set - speech recognition will not work")
		}
	}
	if c.TTS.Engine == EngineElevenLabs && c.TTS.ElevenLabsKey == "" {
		log.Warn("ELEVENLABS_API_KEY not set - TTS will not work")
	}
	if c.Events.NATSURL == "" {
		log.Debug("NATS_URL not set - turn events disabled")
	}
}
