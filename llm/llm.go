// Package llm provides the transport shared by every inference backend: it
// sends provider-formatted requests over HTTP, retries transient failures and
// paces calls with a rate limiter.
package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/teilomillet/textgrad/config"
	"github.com/teilomillet/textgrad/providers"
	"github.com/teilomillet/textgrad/types"
	"github.com/teilomillet/textgrad/utils"
)

// LLM is a loaded model reachable over HTTP.
type LLM interface {
	Generate(ctx context.Context, messages []types.Message) (string, error)
	SetOption(key string, value any)
	GetLogger() utils.Logger
	ProviderName() string
	Model() string
}

// LLMImpl is the HTTP implementation of LLM.
type LLMImpl struct {
	Provider    providers.Provider
	Options     map[string]any
	client      *http.Client
	logger      utils.Logger
	config      *config.Config
	rateLimiter *rate.Limiter
	MaxRetries  int
	RetryDelay  time.Duration
}

// NewLLM builds a client for the provider named in cfg.
func NewLLM(cfg *config.Config, logger utils.Logger, registry *providers.ProviderRegistry) (LLM, error) {
	if logger == nil {
		logger = utils.NewLogger(cfg.LogLevel)
	}
	if registry == nil {
		registry = providers.NewProviderRegistry()
	}

	provider, err := registry.Get(cfg.Provider, cfg.APIKey(), cfg.Model, cfg.ExtraHeaders)
	if err != nil {
		return nil, NewLLMError(ErrorTypeProvider, "failed to create provider", err)
	}
	provider.SetLogger(logger)
	provider.SetDefaultOptions(cfg)

	l := &LLMImpl{
		Provider:   provider,
		Options:    make(map[string]any),
		client:     &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		config:     cfg,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
	}
	if cfg.RequestsPerSecond > 0 {
		l.rateLimiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return l, nil
}

func (l *LLMImpl) SetOption(key string, value any) {
	l.Options[key] = value
	l.logger.Debug("Option set", "key", key, "value", value)
}

func (l *LLMImpl) GetLogger() utils.Logger {
	return l.logger
}

func (l *LLMImpl) ProviderName() string {
	return l.Provider.Name()
}

func (l *LLMImpl) Model() string {
	return l.config.Model
}

// SetRateLimit replaces the limiter pacing outgoing requests.
func (l *LLMImpl) SetRateLimit(r rate.Limit, b int) {
	l.rateLimiter = rate.NewLimiter(r, b)
}

// Generate sends the conversation and returns the generated text only.
func (l *LLMImpl) Generate(ctx context.Context, messages []types.Message) (string, error) {
	if err := ValidateMessages(messages); err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 0; attempt <= l.MaxRetries; attempt++ {
		l.logger.Debug("Generating text", "provider", l.Provider.Name(), "messages", len(messages), "attempt", attempt+1)

		if l.rateLimiter != nil {
			if err := l.rateLimiter.Wait(ctx); err != nil {
				return "", NewLLMError(ErrorTypeRateLimit, "rate limiter wait failed", err)
			}
		}

		result, err := l.attemptGenerate(ctx, messages)
		if err == nil {
			return result, nil
		}
		lastErr = err

		l.logger.Warn("Generation attempt failed", "provider", l.Provider.Name(), "error", err, "attempt", attempt+1)

		var llmErr *LLMError
		if errors.As(err, &llmErr) && !llmErr.Retryable() {
			break
		}
		if attempt < l.MaxRetries {
			l.logger.Debug("Retrying", "delay", l.RetryDelay)
			if err := l.wait(ctx); err != nil {
				return "", err
			}
		}
	}

	return "", fmt.Errorf("failed to generate after %d attempts: %w", l.MaxRetries+1, lastErr)
}

func (l *LLMImpl) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(l.RetryDelay):
		return nil
	}
}

func (l *LLMImpl) attemptGenerate(ctx context.Context, messages []types.Message) (string, error) {
	reqBody, err := l.Provider.PrepareRequest(messages, l.Options)
	if err != nil {
		return "", NewLLMError(ErrorTypeRequest, "failed to prepare request", err)
	}
	l.logger.Debug("Request body", "provider", l.Provider.Name(), "body", string(reqBody))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.Provider.Endpoint(), bytes.NewReader(reqBody))
	if err != nil {
		return "", NewLLMError(ErrorTypeRequest, "failed to create request", err)
	}
	for k, v := range l.Provider.Headers() {
		req.Header.Set(k, v)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return "", NewLLMError(ErrorTypeRequest, "failed to send request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", NewLLMError(ErrorTypeResponse, "failed to read response body", err)
	}

	if resp.StatusCode != http.StatusOK {
		l.logger.Error("API error", "provider", l.Provider.Name(), "status", resp.StatusCode, "body", string(body))
		return "", newStatusError(resp.StatusCode)
	}

	result, err := l.Provider.ParseResponse(body)
	if err != nil {
		return "", NewLLMError(ErrorTypeResponse, "failed to parse response", err)
	}

	l.logger.Debug("Text generated successfully", "provider", l.Provider.Name(), "length", len(result))
	return result, nil
}
