package providers

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/teilomillet/textgrad/config"
	"github.com/teilomillet/textgrad/types"
	"github.com/teilomillet/textgrad/utils"
)

// MockProvider returns scripted responses regardless of the response body.
// It is meant for tests and dry runs against a stub HTTP endpoint.
type MockProvider struct {
	mu            sync.Mutex
	endpoint      string
	model         string
	extraHeaders  map[string]string
	options       map[string]any
	logger        utils.Logger
	responseText  string
	shouldError   bool
	errorMsg      string
	responses     []string
	currentIndex  int
	loopResponses bool
	requests      [][]types.Message
}

// NewMockProvider creates a mock provider. The first argument is used as the
// endpoint since mocks never need an API key.
func NewMockProvider(endpoint, model string, extraHeaders map[string]string) Provider {
	if extraHeaders == nil {
		extraHeaders = make(map[string]string)
	}
	return &MockProvider{
		endpoint:     endpoint,
		model:        model,
		extraHeaders: extraHeaders,
		options:      make(map[string]any),
		logger:       utils.NewNopLogger(),
		responseText: "This is a mock response",
	}
}

// SetMockResponse configures the default response text.
func (p *MockProvider) SetMockResponse(response string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responseText = response
}

// SetMockError configures the mock to fail on every call.
func (p *MockProvider) SetMockError(shouldError bool, errorMsg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shouldError = shouldError
	p.errorMsg = errorMsg
}

// SetResponses configures a list of responses to be returned in sequence.
func (p *MockProvider) SetResponses(responses []string, loop bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = responses
	p.currentIndex = 0
	p.loopResponses = loop
}

// Requests returns every conversation passed to PrepareRequest.
func (p *MockProvider) Requests() [][]types.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]types.Message(nil), p.requests...)
}

func (p *MockProvider) Name() string                              { return "mock" }
func (p *MockProvider) Endpoint() string                          { return p.endpoint }
func (p *MockProvider) SetLogger(logger utils.Logger)             { p.logger = logger }
func (p *MockProvider) SetExtraHeaders(headers map[string]string) { p.extraHeaders = headers }

func (p *MockProvider) SetOption(key string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.options[key] = value
}

func (p *MockProvider) Headers() map[string]string {
	return mergeHeaders(map[string]string{"Content-Type": "application/json"}, p.extraHeaders)
}

func (p *MockProvider) SetDefaultOptions(cfg *config.Config) {
	p.SetOption("temperature", cfg.Temperature)
	p.SetOption("max_tokens", cfg.MaxTokens)
	if cfg.Seed != nil {
		p.SetOption("seed", *cfg.Seed)
	}
	if cfg.Endpoint != "" {
		p.endpoint = cfg.Endpoint
	}
}

func (p *MockProvider) PrepareRequest(messages []types.Message, options map[string]any) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shouldError {
		return nil, errors.New(p.errorMsg)
	}
	p.requests = append(p.requests, messages)

	requestBody := map[string]any{
		"model":    p.model,
		"messages": messages,
	}
	for k, v := range p.options {
		requestBody[k] = v
	}
	for k, v := range options {
		requestBody[k] = v
	}
	return json.Marshal(requestBody)
}

func (p *MockProvider) ParseResponse(_ []byte) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shouldError {
		return "", errors.New(p.errorMsg)
	}
	return p.nextResponse()
}

func (p *MockProvider) nextResponse() (string, error) {
	if len(p.responses) == 0 {
		return p.responseText, nil
	}

	if p.currentIndex >= len(p.responses) {
		if !p.loopResponses {
			return "", errors.New("mock responses exhausted")
		}
		p.currentIndex = 0
	}

	response := p.responses[p.currentIndex]
	p.currentIndex++
	return response, nil
}
