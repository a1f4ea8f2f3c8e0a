package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teilomillet/textgrad/config"
	"github.com/teilomillet/textgrad/utils"
)

func TestLoadConfigPrefixes(t *testing.T) {
	t.Setenv("STUDENT_MODEL", "qwen2.5:0.5b")
	t.Setenv("TEACHER_PROVIDER", "openai")
	t.Setenv("TEACHER_MODEL", "gpt-4o-mini")
	t.Setenv("TEACHER_TIMEOUT", "45s")
	t.Setenv("TEACHER_LOG_LEVEL", "debug")
	t.Setenv("OPENAI_API_KEY", "sk-test-key")

	student, err := config.LoadConfig(config.StudentPrefix)
	require.NoError(t, err)
	assert.Equal(t, "ollama", student.Provider)
	assert.Equal(t, "qwen2.5:0.5b", student.Model)

	teacher, err := config.LoadConfig(config.TeacherPrefix, config.SetModel("ignored-by-env"))
	require.NoError(t, err)
	assert.Equal(t, "openai", teacher.Provider)
	assert.Equal(t, "gpt-4o-mini", teacher.Model)
	assert.Equal(t, 45*time.Second, teacher.Timeout)
	assert.Equal(t, utils.LogLevelDebug, teacher.LogLevel)
	assert.Equal(t, "sk-test-key", teacher.APIKey())
}

func TestLoadConfigOptionsApplyBeforeEnv(t *testing.T) {
	cfg, err := config.LoadConfig("UNUSED_PREFIX_", config.SetModel("qwen2.5:7b-instruct"), config.SetSeed(7))
	require.NoError(t, err)
	assert.Equal(t, "qwen2.5:7b-instruct", cfg.Model)
	require.NotNil(t, cfg.Seed)
	assert.Equal(t, 7, *cfg.Seed)
}

func TestConfigValidation(t *testing.T) {
	testCases := []struct {
		name    string
		opts    []config.ConfigOption
		wantErr bool
	}{
		{name: "defaults", wantErr: false},
		{name: "missing model", opts: []config.ConfigOption{config.SetModel("")}, wantErr: true},
		{name: "temperature too high", opts: []config.ConfigOption{config.SetTemperature(3)}, wantErr: true},
		{name: "negative rate", opts: []config.ConfigOption{config.SetRequestsPerSecond(-1)}, wantErr: true},
		{name: "bad endpoint", opts: []config.ConfigOption{config.SetEndpoint("not a url")}, wantErr: true},
		{name: "max tokens clamped", opts: []config.ConfigOption{config.SetMaxTokens(0)}, wantErr: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.NewConfig()
			config.ApplyOptions(cfg, tc.opts...)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSetAPIKeyUsesProvider(t *testing.T) {
	cfg := config.NewConfig()
	config.ApplyOptions(cfg, config.SetProvider("OpenAI"), config.SetAPIKey("sk-abc"))
	assert.Equal(t, "sk-abc", cfg.APIKeys["openai"])
	assert.Equal(t, "sk-abc", cfg.APIKey())
}

func TestLoadTrainConfig(t *testing.T) {
	t.Setenv("TEXTGRAD_MAX_EPOCHS", "5")
	t.Setenv("TEXTGRAD_DATASET", "testdata/train.jsonl")

	cfg, err := config.LoadTrainConfig()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.MaxEpochs)
	assert.Equal(t, 1, cfg.Concurrency)
	assert.Equal(t, 150, cfg.ExcerptLength)
	assert.Equal(t, "testdata/train.jsonl", cfg.DatasetPath)
	assert.Equal(t, config.DefaultInstructions, cfg.Instructions)
	assert.Equal(t, utils.LogLevelInfo, cfg.LogLevel)
	assert.Equal(t, "numeric", cfg.Parser)
}

func TestLoadTrainConfigRejectsUnknownParser(t *testing.T) {
	t.Setenv("TEXTGRAD_PARSER", "regex")

	_, err := config.LoadTrainConfig()
	assert.Error(t, err)
}

func TestLoadTrainConfigRejectsZeroEpochs(t *testing.T) {
	t.Setenv("TEXTGRAD_MAX_EPOCHS", "0")

	_, err := config.LoadTrainConfig()
	assert.Error(t, err)
}

func TestLoadTrainConfigRejectsBlankInstructions(t *testing.T) {
	t.Setenv("TEXTGRAD_INSTRUCTIONS", " \n\t ")

	_, err := config.LoadTrainConfig()
	assert.ErrorContains(t, err, "Instructions")
}
