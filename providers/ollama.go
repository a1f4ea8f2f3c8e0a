package providers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/teilomillet/textgrad/config"
	"github.com/teilomillet/textgrad/types"
	"github.com/teilomillet/textgrad/utils"
)

const defaultOllamaEndpoint = "http://localhost:11434"

// OllamaProvider talks to a local Ollama server through /api/chat. The model
// stays loaded in the server between calls, which is what a training run
// wants from its student backend.
type OllamaProvider struct {
	endpoint     string
	model        string
	extraHeaders map[string]string
	options      map[string]any
	logger       utils.Logger
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []types.Message `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message types.Message `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error"`
}

// NewOllamaProvider creates a new Ollama provider instance. Ollama does not
// authenticate, so the apiKey parameter is ignored.
func NewOllamaProvider(_ string, model string, extraHeaders map[string]string) Provider {
	if extraHeaders == nil {
		extraHeaders = make(map[string]string)
	}
	return &OllamaProvider{
		endpoint:     defaultOllamaEndpoint,
		model:        model,
		extraHeaders: extraHeaders,
		options:      make(map[string]any),
		logger:       utils.NewLogger(utils.LogLevelInfo),
	}
}

func (p *OllamaProvider) Name() string { return "ollama" }

func (p *OllamaProvider) Endpoint() string {
	return strings.TrimSuffix(p.endpoint, "/") + "/api/chat"
}

func (p *OllamaProvider) Headers() map[string]string {
	return mergeHeaders(map[string]string{"Content-Type": "application/json"}, p.extraHeaders)
}

func (p *OllamaProvider) SetExtraHeaders(extraHeaders map[string]string) {
	p.extraHeaders = extraHeaders
}

func (p *OllamaProvider) SetLogger(logger utils.Logger) {
	p.logger = logger
}

// SetOption sets a model option (temperature, num_predict, seed, top_p, stop...).
func (p *OllamaProvider) SetOption(key string, value any) {
	p.options[key] = value
	p.logger.Debug("Setting option for Ollama", "key", key, "value", value)
}

func (p *OllamaProvider) SetDefaultOptions(cfg *config.Config) {
	p.SetOption("temperature", cfg.Temperature)
	p.SetOption("num_predict", cfg.MaxTokens)
	if cfg.Seed != nil {
		p.SetOption("seed", *cfg.Seed)
	}
	if cfg.Endpoint != "" {
		p.endpoint = cfg.Endpoint
	}
}

func (p *OllamaProvider) PrepareRequest(messages []types.Message, options map[string]any) ([]byte, error) {
	request := ollamaChatRequest{
		Model:    p.model,
		Messages: messages,
		Stream:   false,
		Options:  mergeOptions(p.options, options),
	}
	return json.Marshal(request)
}

func (p *OllamaProvider) ParseResponse(body []byte) (string, error) {
	var response ollamaChatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to decode ollama response: %w", err)
	}
	if response.Error != "" {
		return "", fmt.Errorf("ollama error: %s", response.Error)
	}
	return response.Message.Content, nil
}
