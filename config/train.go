package config

import (
	"github.com/caarlos0/env/v11"

	"github.com/teilomillet/textgrad/utils"
)

// DefaultInstructions seeds the instructions parameter of a fresh run.
const DefaultInstructions = "You are a math helper. Solve the question and finish with 'Answer: [[number]]'."

// TrainConfig controls the epoch loop and the run's inputs and outputs.
type TrainConfig struct {
	MaxEpochs     int            `env:"MAX_EPOCHS" envDefault:"3" validate:"min=1"`
	Concurrency   int            `env:"CONCURRENCY" envDefault:"1" validate:"min=1"`
	ExcerptLength int            `env:"EXCERPT_LENGTH" envDefault:"150" validate:"min=1"`
	DatasetPath   string         `env:"DATASET"`
	Limit         int            `env:"LIMIT" envDefault:"0" validate:"min=0"`
	Parser        string         `env:"PARSER" envDefault:"numeric" validate:"oneof=numeric bracketed exact"`
	Instructions  string         `env:"INSTRUCTIONS" validate:"required,notblank"`
	Demos         string         `env:"DEMOS"`
	ReportPath    string         `env:"REPORT"`
	OutputPath    string         `env:"OUTPUT"`
	MetricsAddr   string         `env:"METRICS_ADDR" validate:"omitempty,hostname_port"`
	DebugDir      string         `env:"DEBUG_DIR"`
	CountTokens   bool           `env:"COUNT_TOKENS" envDefault:"true"`
	LogLevel      utils.LogLevel `env:"LOG_LEVEL" envDefault:"INFO"`
}

// LoadTrainConfig reads TEXTGRAD_* variables.
func LoadTrainConfig() (*TrainConfig, error) {
	cfg := &TrainConfig{Instructions: DefaultInstructions}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: TrainPrefix}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
