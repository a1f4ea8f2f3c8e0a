package providers

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ProviderRegistry manages the registration and retrieval of providers.
// It provides thread-safe access to provider constructors.
type ProviderRegistry struct {
	providers map[string]ProviderConstructor
	mutex     sync.RWMutex
}

// NewProviderRegistry creates a registry with the specified providers.
// If no providers are specified, all known providers are registered.
func NewProviderRegistry(providerNames ...string) *ProviderRegistry {
	registry := &ProviderRegistry{
		providers: make(map[string]ProviderConstructor),
	}

	knownProviders := getKnownProviders()
	if len(providerNames) == 0 {
		for name, constructor := range knownProviders {
			registry.providers[name] = constructor
		}
		return registry
	}

	for _, name := range providerNames {
		if constructor, ok := knownProviders[name]; ok {
			registry.providers[name] = constructor
		}
	}
	return registry
}

func getKnownProviders() map[string]ProviderConstructor {
	return map[string]ProviderConstructor{
		"openai": NewOpenAIProvider,
		"ollama": NewOllamaProvider,
		"mock":   NewMockProvider,
		"groq": func(apiKey, model string, extraHeaders map[string]string) Provider {
			return newOpenAICompatible("groq", "https://api.groq.com/openai/v1", apiKey, model, extraHeaders)
		},
		"vllm": func(apiKey, model string, extraHeaders map[string]string) Provider {
			return newOpenAICompatible("vllm", "http://localhost:8000/v1", apiKey, model, extraHeaders)
		},
		"lmstudio": func(apiKey, model string, extraHeaders map[string]string) Provider {
			return newOpenAICompatible("lmstudio", "http://localhost:1234/v1", apiKey, model, extraHeaders)
		},
	}
}

// Register adds a provider constructor, replacing any existing one with the same name.
func (r *ProviderRegistry) Register(name string, constructor ProviderConstructor) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.providers[strings.ToLower(name)] = constructor
}

// Get creates a provider instance by name.
func (r *ProviderRegistry) Get(name, apiKey, model string, extraHeaders map[string]string) (Provider, error) {
	r.mutex.RLock()
	constructor, exists := r.providers[strings.ToLower(name)]
	r.mutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	return constructor(apiKey, model, extraHeaders), nil
}

// Names lists the registered providers in alphabetical order.
func (r *ProviderRegistry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
