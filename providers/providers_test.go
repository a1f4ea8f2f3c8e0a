package providers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teilomillet/textgrad/config"
	"github.com/teilomillet/textgrad/types"
	"github.com/teilomillet/textgrad/utils"
)

func TestOpenAIProviderPrepareRequest(t *testing.T) {
	provider := NewOpenAIProvider("sk-test", "gpt-4o-mini", map[string]string{"X-Trace": "1"})
	provider.SetLogger(utils.NewNopLogger())
	seed := 42
	provider.SetDefaultOptions(&config.Config{Temperature: 0.2, MaxTokens: 64, Seed: &seed})

	body, err := provider.PrepareRequest([]types.Message{
		types.System("You are an AI optimization assistant."),
		types.User("critique this"),
	}, map[string]any{"max_tokens": 32})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "gpt-4o-mini", decoded["model"])
	assert.EqualValues(t, 32, decoded["max_tokens"])
	assert.EqualValues(t, 42, decoded["seed"])
	assert.InDelta(t, 0.2, decoded["temperature"], 1e-6)

	messages := decoded["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "critique this", messages[1].(map[string]any)["content"])

	headers := provider.Headers()
	assert.Equal(t, "Bearer sk-test", headers["Authorization"])
	assert.Equal(t, "1", headers["X-Trace"])
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", provider.Endpoint())
}

func TestOpenAIProviderSendsZeroTemperature(t *testing.T) {
	provider := NewOpenAIProvider("sk-test", "gpt-4o-mini", nil)
	provider.SetLogger(utils.NewNopLogger())
	provider.SetDefaultOptions(&config.Config{Temperature: 0, MaxTokens: 512})

	body, err := provider.PrepareRequest(types.Prompt("2+2?"), nil)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Contains(t, decoded, "temperature")
	assert.InDelta(t, 0, decoded["temperature"], 1e-6)
}

func TestOpenAIProviderRejectsBadOption(t *testing.T) {
	provider := NewOpenAIProvider("", "gpt-4o-mini", nil)
	provider.SetLogger(utils.NewNopLogger())

	_, err := provider.PrepareRequest(types.Prompt("hi"), map[string]any{"max_tokens": "many"})
	assert.Error(t, err)
}

func TestOpenAIProviderParseResponse(t *testing.T) {
	provider := NewOpenAIProvider("", "gpt-4o-mini", nil)

	text, err := provider.ParseResponse([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"Answer: [[4]]"}}]}`))
	require.NoError(t, err)
	assert.Equal(t, "Answer: [[4]]", text)

	_, err = provider.ParseResponse([]byte(`{"choices":[]}`))
	assert.Error(t, err)

	_, err = provider.ParseResponse([]byte(`not json`))
	assert.Error(t, err)
}

func TestOpenAICompatibleEndpointOverride(t *testing.T) {
	registry := NewProviderRegistry()
	provider, err := registry.Get("vllm", "", "Qwen/Qwen2.5-7B-Instruct", nil)
	require.NoError(t, err)
	provider.SetLogger(utils.NewNopLogger())

	assert.Equal(t, "vllm", provider.Name())
	assert.Equal(t, "http://localhost:8000/v1/chat/completions", provider.Endpoint())
	assert.NotContains(t, provider.Headers(), "Authorization")

	provider.SetDefaultOptions(&config.Config{Endpoint: "http://gpu-box:9000/v1/", MaxTokens: 1})
	assert.Equal(t, "http://gpu-box:9000/v1/chat/completions", provider.Endpoint())
}

func TestOllamaProvider(t *testing.T) {
	provider := NewOllamaProvider("ignored", "qwen2.5:1.5b-instruct", nil)
	provider.SetLogger(utils.NewNopLogger())
	provider.SetDefaultOptions(&config.Config{Temperature: 0, MaxTokens: 128, Endpoint: "http://127.0.0.1:11434"})

	assert.Equal(t, "http://127.0.0.1:11434/api/chat", provider.Endpoint())

	body, err := provider.PrepareRequest(types.Prompt("2+2?"), nil)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, false, decoded["stream"])
	assert.EqualValues(t, 128, decoded["options"].(map[string]any)["num_predict"])

	text, err := provider.ParseResponse([]byte(`{"message":{"role":"assistant","content":"[[4]]"},"done":true}`))
	require.NoError(t, err)
	assert.Equal(t, "[[4]]", text)

	_, err = provider.ParseResponse([]byte(`{"error":"model not found"}`))
	assert.ErrorContains(t, err, "model not found")
}

func TestProviderRegistry(t *testing.T) {
	registry := NewProviderRegistry("openai", "ollama", "unknown")
	assert.Equal(t, []string{"ollama", "openai"}, registry.Names())

	_, err := registry.Get("anthropic", "", "", nil)
	assert.ErrorContains(t, err, "unknown provider")

	registry.Register("Custom", NewMockProvider)
	provider, err := registry.Get("custom", "http://stub", "m", nil)
	require.NoError(t, err)
	assert.Equal(t, "mock", provider.Name())
	assert.Equal(t, "http://stub", provider.Endpoint())
}
