// Package providers implements the wire formats of the inference backends a
// training run can talk to. Each provider turns a role-tagged conversation
// into a request body and extracts the generated text from a response body;
// transport, retries and rate limiting live in package llm.
package providers

import (
	"github.com/teilomillet/textgrad/config"
	"github.com/teilomillet/textgrad/types"
	"github.com/teilomillet/textgrad/utils"
)

// Provider defines the interface that all inference backends implement.
type Provider interface {
	Name() string
	Endpoint() string
	Headers() map[string]string
	SetExtraHeaders(extraHeaders map[string]string)
	SetDefaultOptions(cfg *config.Config)
	SetOption(key string, value any)
	SetLogger(logger utils.Logger)

	PrepareRequest(messages []types.Message, options map[string]any) ([]byte, error)
	ParseResponse(body []byte) (string, error)
}

// ProviderConstructor defines a function type for creating new provider instances.
type ProviderConstructor func(apiKey, model string, extraHeaders map[string]string) Provider

func mergeHeaders(base, extra map[string]string) map[string]string {
	headers := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		headers[k] = v
	}
	for k, v := range extra {
		headers[k] = v
	}
	return headers
}
