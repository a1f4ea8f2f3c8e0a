// Package config holds the backend and training configuration, loaded from
// the environment and adjusted through functional options.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/teilomillet/textgrad/utils"
)

// Environment prefixes for the two backends of a training run.
const (
	StudentPrefix = "STUDENT_"
	TeacherPrefix = "TEACHER_"
	TrainPrefix   = "TEXTGRAD_"
)

// Config describes one inference backend. A training run holds two: the small
// student model being prompted and the stronger teacher model that critiques
// and rewrites.
type Config struct {
	Provider          string         `env:"PROVIDER" validate:"required"`
	Model             string         `env:"MODEL" validate:"required"`
	Endpoint          string         `env:"ENDPOINT" validate:"omitempty,url"`
	Temperature       float64        `env:"TEMPERATURE" validate:"gte=0,lte=2"`
	MaxTokens         int            `env:"MAX_TOKENS" validate:"min=1"`
	Timeout           time.Duration  `env:"TIMEOUT" validate:"gt=0"`
	MaxRetries        int            `env:"MAX_RETRIES" validate:"min=0"`
	RetryDelay        time.Duration  `env:"RETRY_DELAY" validate:"min=0"`
	RequestsPerSecond float64        `env:"REQUESTS_PER_SECOND" validate:"gte=0"`
	Seed              *int           `env:"SEED"`
	LogLevel          utils.LogLevel `env:"LOG_LEVEL"`
	APIKeys           map[string]string
	ExtraHeaders      map[string]string
}

// NewConfig returns the defaults: a local Ollama backend.
func NewConfig() *Config {
	return &Config{
		Provider:     "ollama",
		Model:        "qwen2.5:1.5b-instruct",
		Temperature:  0.7,
		MaxTokens:    512,
		Timeout:      120 * time.Second,
		MaxRetries:   3,
		RetryDelay:   2 * time.Second,
		LogLevel:     utils.LogLevelWarn,
		APIKeys:      make(map[string]string),
		ExtraHeaders: make(map[string]string),
	}
}

// LoadConfig builds a backend configuration: defaults, then options, then
// environment variables carrying the given prefix. The result is validated.
func LoadConfig(prefix string, options ...ConfigOption) (*Config, error) {
	cfg := NewConfig()
	ApplyOptions(cfg, options...)

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: prefix}); err != nil {
		return nil, err
	}

	loadAPIKeys(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadAPIKeys(cfg *Config) {
	for _, envVar := range os.Environ() {
		key, value, found := strings.Cut(envVar, "=")
		if found && strings.HasSuffix(strings.ToUpper(key), "_API_KEY") {
			provider := strings.TrimSuffix(strings.ToUpper(key), "_API_KEY")
			cfg.APIKeys[strings.ToLower(provider)] = value
		}
	}
}

// APIKey returns the key registered for the configured provider.
func (c *Config) APIKey() string {
	return c.APIKeys[strings.ToLower(c.Provider)]
}

type ConfigOption func(*Config)

func SetProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

func SetModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

func SetEndpoint(endpoint string) ConfigOption {
	return func(c *Config) {
		c.Endpoint = endpoint
	}
}

func SetTemperature(temperature float64) ConfigOption {
	return func(c *Config) {
		c.Temperature = temperature
	}
}

func SetMaxTokens(maxTokens int) ConfigOption {
	return func(c *Config) {
		if maxTokens < 1 {
			maxTokens = 1
		}
		c.MaxTokens = maxTokens
	}
}

func SetTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

func SetAPIKey(apiKey string) ConfigOption {
	return func(c *Config) {
		if c.APIKeys == nil {
			c.APIKeys = make(map[string]string)
		}
		c.APIKeys[strings.ToLower(c.Provider)] = apiKey
	}
}

func SetMaxRetries(maxRetries int) ConfigOption {
	return func(c *Config) {
		c.MaxRetries = maxRetries
	}
}

func SetRetryDelay(retryDelay time.Duration) ConfigOption {
	return func(c *Config) {
		c.RetryDelay = retryDelay
	}
}

func SetRequestsPerSecond(rps float64) ConfigOption {
	return func(c *Config) {
		c.RequestsPerSecond = rps
	}
}

func SetSeed(seed int) ConfigOption {
	return func(c *Config) {
		c.Seed = &seed
	}
}

func SetLogLevel(level utils.LogLevel) ConfigOption {
	return func(c *Config) {
		c.LogLevel = level
	}
}

func SetExtraHeaders(headers map[string]string) ConfigOption {
	return func(c *Config) {
		if c.ExtraHeaders == nil {
			c.ExtraHeaders = make(map[string]string)
		}
		for k, v := range headers {
			c.ExtraHeaders[k] = v
		}
	}
}

func ApplyOptions(cfg *Config, options ...ConfigOption) {
	for _, option := range options {
		option(cfg)
	}
}
