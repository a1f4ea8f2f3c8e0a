package providers

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/teilomillet/textgrad/config"
	"github.com/teilomillet/textgrad/types"
	"github.com/teilomillet/textgrad/utils"
)

const openAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider speaks the chat completions protocol. The same wire format is
// served by vLLM, LM Studio and Groq, which are registered as variants with a
// different name and base URL.
type OpenAIProvider struct {
	name         string
	baseURL      string
	apiKey       string
	model        string
	extraHeaders map[string]string
	options      map[string]any
	logger       utils.Logger
}

// NewOpenAIProvider creates a provider for api.openai.com.
func NewOpenAIProvider(apiKey, model string, extraHeaders map[string]string) Provider {
	return newOpenAICompatible("openai", openAIBaseURL, apiKey, model, extraHeaders)
}

func newOpenAICompatible(name, baseURL, apiKey, model string, extraHeaders map[string]string) *OpenAIProvider {
	if extraHeaders == nil {
		extraHeaders = make(map[string]string)
	}
	return &OpenAIProvider{
		name:         name,
		baseURL:      baseURL,
		apiKey:       apiKey,
		model:        model,
		extraHeaders: extraHeaders,
		options:      make(map[string]any),
		logger:       utils.NewLogger(utils.LogLevelInfo),
	}
}

func (p *OpenAIProvider) Name() string { return p.name }

// Endpoint returns the chat completions URL under the configured base URL.
func (p *OpenAIProvider) Endpoint() string {
	return strings.TrimSuffix(p.baseURL, "/") + "/chat/completions"
}

func (p *OpenAIProvider) Headers() map[string]string {
	headers := map[string]string{"Content-Type": "application/json"}
	if p.apiKey != "" {
		headers["Authorization"] = "Bearer " + p.apiKey
	}
	return mergeHeaders(headers, p.extraHeaders)
}

func (p *OpenAIProvider) SetExtraHeaders(extraHeaders map[string]string) {
	p.extraHeaders = extraHeaders
}

func (p *OpenAIProvider) SetLogger(logger utils.Logger) {
	p.logger = logger
}

func (p *OpenAIProvider) SetOption(key string, value any) {
	p.options[key] = value
	p.logger.Debug("Option set", "provider", p.name, "key", key, "value", value)
}

// SetDefaultOptions sets sampling options and the base URL from the configuration.
func (p *OpenAIProvider) SetDefaultOptions(cfg *config.Config) {
	p.SetOption("temperature", cfg.Temperature)
	p.SetOption("max_tokens", cfg.MaxTokens)
	if cfg.Seed != nil {
		p.SetOption("seed", *cfg.Seed)
	}
	if cfg.Endpoint != "" {
		p.baseURL = cfg.Endpoint
	}
}

// PrepareRequest builds a non-streaming chat completion request.
func (p *OpenAIProvider) PrepareRequest(messages []types.Message, options map[string]any) ([]byte, error) {
	request := openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		request.Messages = append(request.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	merged := mergeOptions(p.options, options)
	if err := applyOpenAIOptions(&request, merged); err != nil {
		return nil, err
	}

	body, err := json.Marshal(request)
	if err != nil {
		p.logger.Error("Failed to marshal request", "provider", p.name, "error", err)
		return nil, err
	}
	return body, nil
}

func applyOpenAIOptions(request *openai.ChatCompletionRequest, options map[string]any) error {
	for key, value := range options {
		switch key {
		case "temperature":
			f, ok := toFloat(value)
			if !ok {
				return fmt.Errorf("invalid temperature option: %v", value)
			}
			request.Temperature = float32(f)
			if request.Temperature == 0 {
				// Temperature is omitempty on the wire type; a zero would be dropped
				// and the server default used instead.
				request.Temperature = math.SmallestNonzeroFloat32
			}
		case "top_p":
			f, ok := toFloat(value)
			if !ok {
				return fmt.Errorf("invalid top_p option: %v", value)
			}
			request.TopP = float32(f)
		case "max_tokens":
			n, ok := value.(int)
			if !ok {
				return fmt.Errorf("invalid max_tokens option: %v", value)
			}
			request.MaxTokens = n
		case "seed":
			n, ok := value.(int)
			if !ok {
				return fmt.Errorf("invalid seed option: %v", value)
			}
			request.Seed = &n
		case "stop":
			stop, ok := value.([]string)
			if !ok {
				return fmt.Errorf("invalid stop option: %v", value)
			}
			request.Stop = stop
		}
	}
	return nil
}

// ParseResponse returns the content of the first choice.
func (p *OpenAIProvider) ParseResponse(body []byte) (string, error) {
	var response openai.ChatCompletionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to decode %s response: %w", p.name, err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("empty response from %s", p.name)
	}
	return response.Choices[0].Message.Content, nil
}

func mergeOptions(defaults, overrides map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
