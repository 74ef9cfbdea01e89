package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"video-scribe-go/internal/types"
)

const (
	defaultPort           = "8080"
	defaultDataDir        = "data"
	defaultLanguage       = "en"
	defaultSpeechModel    = "whisper-1"
	defaultMaxUploadBytes = 25 << 20
)

// Tier describes one generation model class: the base model, the prompt
// length at which it runs out of context, and the larger-window variant used
// beyond that point.
type Tier struct {
	BaseModel     string `toml:"base_model"`
	BaseCharLimit int    `toml:"base_char_limit"`
	ExpandedModel string `toml:"expanded_model"`
}

// OpenAI holds credentials and endpoint for the speech and generation
// backends. An empty BaseURL means the public API; any OpenAI-compatible
// gateway works.
type OpenAI struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

type Config struct {
	Addr           string                    `toml:"addr"`
	DataDir        string                    `toml:"data_dir"`
	MaxUploadBytes int64                     `toml:"max_upload_bytes"`
	Language       string                    `toml:"language"`
	SpeechModel    string                    `toml:"speech_model"`
	PromptsPath    string                    `toml:"prompts_path"`
	OpenAI         OpenAI                    `toml:"openai"`
	Tiers          map[types.ModelTier]*Tier `toml:"tiers"`
}

// DefaultTiers mirrors the shipped model capacity table.
func DefaultTiers() map[types.ModelTier]*Tier {
	return map[types.ModelTier]*Tier{
		types.TierA: {BaseModel: "gpt-3.5-turbo", BaseCharLimit: 4750, ExpandedModel: "gpt-3.5-turbo-16k"},
		types.TierB: {BaseModel: "gpt-4", BaseCharLimit: 9500, ExpandedModel: "gpt-4-32k"},
	}
}

func defaults() *Config {
	return &Config{
		Addr:           ":" + envOr("PORT", defaultPort),
		DataDir:        envOr("DATA_DIR", defaultDataDir),
		MaxUploadBytes: defaultMaxUploadBytes,
		Language:       envOr("TRANSCRIBE_LANGUAGE", defaultLanguage),
		SpeechModel:    envOr("SPEECH_MODEL", defaultSpeechModel),
		PromptsPath:    os.Getenv("PROMPTS_PATH"),
		OpenAI: OpenAI{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
		},
		Tiers: DefaultTiers(),
	}
}

// Load builds the server configuration from defaults, an optional TOML file
// at path (CONFIG_PATH when empty), and environment overrides. A missing
// file is not an error.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// fall through to env-only config
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive, got %d", c.MaxUploadBytes)
	}
	if len(c.Tiers) == 0 {
		return errors.New("at least one model tier is required")
	}
	for name, tier := range c.Tiers {
		if tier.BaseModel == "" || tier.ExpandedModel == "" {
			return fmt.Errorf("tier %s: base and expanded models are required", name)
		}
		if tier.BaseCharLimit <= 0 {
			return fmt.Errorf("tier %s: base_char_limit must be positive, got %d", name, tier.BaseCharLimit)
		}
	}
	return nil
}

// EnsureDirectories creates the data directory tree used for uploads.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.UploadDir(), 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	return nil
}

// UploadDir is where uploaded audio bytes are written.
func (c *Config) UploadDir() string {
	return filepath.Join(c.DataDir, "uploads")
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
