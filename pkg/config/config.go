// Package config holds the application configuration, loaded from YAML
// with env-var fallbacks for secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	DB       DBConfig       `yaml:"db"`
	Log      LogConfig      `yaml:"log"`
	Request  RequestConfig  `yaml:"request"`
	Cache    CacheConfig    `yaml:"cache"`
	LLM      LLMConfig      `yaml:"llm"`
	TTS      TTSConfig      `yaml:"tts"`
	Geocode  GeocodeConfig  `yaml:"geocode"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Auth     AuthConfig     `yaml:"auth"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
	// BaseURL is the externally visible prefix used when building
	// audio URLs handed back to clients.
	BaseURL string `yaml:"base_url"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// LogSettings holds settings for a single log sink.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
}

// RequestConfig holds outbound HTTP request settings.
type RequestConfig struct {
	Timeout Duration      `yaml:"timeout"`
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay"`
}

// CacheConfig pins the TTL classes. These are persisted configuration,
// not a protocol detail: hourly entries must survive long enough for
// hourly rate windows, daily entries for daily reports, and monthly
// entries hold effectively static facts like geocoding results.
type CacheConfig struct {
	Hourly  Duration `yaml:"hourly"`
	Daily   Duration `yaml:"daily"`
	Monthly Duration `yaml:"monthly"`
}

// ProviderConfig holds settings for one LLM provider.
type ProviderConfig struct {
	Type      string  `yaml:"type"` // "gemini", "openai"
	Key       string  `yaml:"key"`
	Model     string  `yaml:"model"`
	BaseURL   string  `yaml:"base_url,omitempty"`
	CostPer1K float64 `yaml:"cost_per_1k_tokens"`
}

// LLMConfig holds the content generation provider chain.
type LLMConfig struct {
	Primary  ProviderConfig `yaml:"primary"`
	Fallback ProviderConfig `yaml:"fallback"`
}

// AzureSpeechConfig holds settings for Azure Speech TTS.
type AzureSpeechConfig struct {
	Key    string `yaml:"key"`
	Region string `yaml:"region"`
	Voice  string `yaml:"voice"`
}

// PollyConfig holds settings for Amazon Polly TTS.
type PollyConfig struct {
	Region string `yaml:"region"`
	Voice  string `yaml:"voice"`
	Engine string `yaml:"engine"` // "standard" or "neural"
}

// EdgeTTSConfig holds settings for Edge TTS.
type EdgeTTSConfig struct {
	Voice   string `yaml:"voice"`
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
	Origin  string `yaml:"origin"`
}

// TTSConfig holds Text-To-Speech settings.
type TTSConfig struct {
	Engine      string            `yaml:"engine"` // "azure-speech", "polly", "edge-tts"
	CostPer1K   float64           `yaml:"cost_per_1k_chars"`
	AzureSpeech AzureSpeechConfig `yaml:"azure_speech"`
	Polly       PollyConfig       `yaml:"polly"`
	EdgeTTS     EdgeTTSConfig     `yaml:"edge_tts"`
}

// GeocodeConfig holds settings for the stop geocoder.
type GeocodeConfig struct {
	BaseURL      string   `yaml:"base_url"`
	UserAgent    string   `yaml:"user_agent"`
	RadiusMeters int      `yaml:"radius_meters"`
	Concurrency  int      `yaml:"concurrency"`
	Timeout      Duration `yaml:"timeout"`
}

// PipelineConfig bounds the generation stages so that no tour is left
// dangling in "generating" past its provider's own timeout.
type PipelineConfig struct {
	ContentTimeout Duration `yaml:"content_timeout"`
	AudioTimeout   Duration `yaml:"audio_timeout"`
	AudioRetries   int      `yaml:"audio_retries"`
}

// AuthConfig holds settings for the bearer-token middleware.
// An empty secret switches the server into demo mode: every request
// runs as DemoUser.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	DemoUser  string `yaml:"demo_user"`
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address: "localhost:8420",
			BaseURL: "http://localhost:8420",
		},
		DB: DBConfig{
			Path: "./data/walkumentary.db",
		},
		Log: LogConfig{
			Server:   LogSettings{Path: "./logs/server.log", Level: "INFO"},
			Requests: LogSettings{Path: "./logs/requests.log", Level: "INFO"},
		},
		Request: RequestConfig{
			Timeout: Duration(30 * time.Second),
			Backoff: BackoffConfig{
				BaseDelay: Duration(1 * time.Second),
				MaxDelay:  Duration(60 * time.Second),
			},
		},
		Cache: CacheConfig{
			Hourly:  Duration(2 * time.Hour),
			Daily:   Duration(2 * Day),
			Monthly: Duration(35 * Day),
		},
		LLM: LLMConfig{
			Primary: ProviderConfig{
				Type:      "openai",
				Model:     "gpt-4o-mini",
				BaseURL:   "https://api.openai.com/v1",
				CostPer1K: 0.000765,
			},
			Fallback: ProviderConfig{
				Type:      "gemini",
				Model:     "gemini-2.5-flash-lite",
				CostPer1K: 0.000375,
			},
		},
		TTS: TTSConfig{
			Engine:    "polly",
			CostPer1K: 0.015,
			AzureSpeech: AzureSpeechConfig{
				Voice: "en-US-AvaMultilingualNeural",
			},
			Polly: PollyConfig{
				Region: "us-east-1",
				Voice:  "Joanna",
				Engine: "neural",
			},
			EdgeTTS: EdgeTTSConfig{
				Voice: "en-US-AvaMultilingualNeural",
			},
		},
		Geocode: GeocodeConfig{
			BaseURL:      "https://nominatim.openstreetmap.org",
			UserAgent:    "Walkumentary/1.0 (contact@walkumentary.app)",
			RadiusMeters: 2000,
			Concurrency:  4,
			Timeout:      Duration(10 * time.Second),
		},
		Pipeline: PipelineConfig{
			ContentTimeout: Duration(2 * time.Minute),
			AudioTimeout:   Duration(3 * time.Minute),
			AudioRetries:   3,
		},
		Auth: AuthConfig{
			DemoUser: "demo",
		},
	}
}

// Load loads the configuration from the given path. If the file does
// not exist it is created with defaults; if it exists, defaults are
// merged with its values but never written back (preserves user
// formatting and comments). Secrets missing from the file fall back to
// the environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else {
		if err := Save(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to save config file: %w", err)
		}
	}

	applyEnvFallbacks(cfg)

	if cfg.Geocode.Concurrency < 1 {
		cfg.Geocode.Concurrency = 1
	}
	return cfg, nil
}

func applyEnvFallbacks(cfg *Config) {
	fallback := func(dst *string, env string) {
		if *dst == "" {
			if v := os.Getenv(env); v != "" {
				*dst = v
			}
		}
	}
	for _, p := range []*ProviderConfig{&cfg.LLM.Primary, &cfg.LLM.Fallback} {
		switch p.Type {
		case "gemini":
			fallback(&p.Key, "GEMINI_API_KEY")
		case "openai":
			fallback(&p.Key, "OPENAI_API_KEY")
		}
	}
	fallback(&cfg.TTS.AzureSpeech.Key, "AZURE_SPEECH_KEY")
	fallback(&cfg.TTS.AzureSpeech.Region, "AZURE_SPEECH_REGION")
	fallback(&cfg.TTS.EdgeTTS.Token, "EDGE_TTS_TRUSTED_CLIENT_TOKEN")
	fallback(&cfg.Auth.JWTSecret, "JWT_SECRET")
	// Polly credentials come from the standard AWS env/credential chain.
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Walkumentary Configuration
# --------------------------
# Supported Duration units: ns, us (or µs), ms, s, m, h, d (day), w (week)

`)
	data = append(header, data...)

	// Inject comments for enum fields.
	reEngine := regexp.MustCompile(`(?m)^(\s+)engine:`)
	data = reEngine.ReplaceAll(data, []byte("${1}# Options: azure-speech, polly, edge-tts (llm type: openai, gemini)\n${1}engine:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return Save(path, DefaultConfig())
}
