package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teilomillet/textgrad/config"
	"github.com/teilomillet/textgrad/providers"
	"github.com/teilomillet/textgrad/types"
	"github.com/teilomillet/textgrad/utils"
)

func chatCompletion(content string) string {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"index": 0, "message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(body)
}

func newTestLLM(t *testing.T, server *httptest.Server, opts ...config.ConfigOption) LLM {
	t.Helper()
	cfg := config.NewConfig()
	config.ApplyOptions(cfg,
		config.SetProvider("openai"),
		config.SetModel("gpt-4o-mini"),
		config.SetEndpoint(server.URL+"/v1"),
		config.SetRetryDelay(time.Millisecond),
		config.SetAPIKey("sk-test"),
	)
	config.ApplyOptions(cfg, opts...)

	l, err := NewLLM(cfg, utils.NewNopLogger(), providers.NewProviderRegistry())
	require.NoError(t, err)
	return l
}

func TestGenerateSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "What is 2+2?")

		_, _ = io.WriteString(w, chatCompletion("Answer: [[4]]"))
	}))
	defer server.Close()

	l := newTestLLM(t, server)
	text, err := l.Generate(context.Background(), types.Prompt("What is 2+2?"))
	require.NoError(t, err)
	assert.Equal(t, "Answer: [[4]]", text)
	assert.Equal(t, "openai", l.ProviderName())
	assert.Equal(t, "gpt-4o-mini", l.Model())
}

func TestGenerateRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, chatCompletion("recovered"))
	}))
	defer server.Close()

	l := newTestLLM(t, server, config.SetMaxRetries(3))
	text, err := l.Generate(context.Background(), types.Prompt("hi"))
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
	assert.EqualValues(t, 3, calls.Load())
}

func TestGenerateStopsOnAuthenticationError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	l := newTestLLM(t, server, config.SetMaxRetries(5))
	_, err := l.Generate(context.Background(), types.Prompt("hi"))
	require.Error(t, err)

	var llmErr *LLMError
	require.True(t, errors.As(err, &llmErr))
	assert.Equal(t, ErrorTypeAuthentication, llmErr.Type)
	assert.Equal(t, http.StatusUnauthorized, llmErr.StatusCode)
	assert.Contains(t, err.Error(), "AuthenticationError: status code 401")
	assert.EqualValues(t, 1, calls.Load())
}

func TestGenerateRejectsEmptyConversation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	}))
	defer server.Close()

	l := newTestLLM(t, server)
	_, err := l.Generate(context.Background(), nil)
	assert.Error(t, err)

	_, err = l.Generate(context.Background(), []types.Message{{Role: "narrator", Content: "x"}})
	assert.Error(t, err)
}

func TestGenerateHonoursCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	l := newTestLLM(t, server, config.SetMaxRetries(10), config.SetRetryDelay(time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := l.Generate(ctx, types.Prompt("hi"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewLLMUnknownProvider(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Provider = "nope"
	_, err := NewLLM(cfg, utils.NewNopLogger(), nil)
	require.Error(t, err)

	var llmErr *LLMError
	require.True(t, errors.As(err, &llmErr))
	assert.Equal(t, ErrorTypeProvider, llmErr.Type)
}

func TestBackendDegradesToEmptyText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	l := newTestLLM(t, server, config.SetMaxRetries(1))
	backend := NewBackend(l, "teacher")

	assert.Equal(t, "", backend.Generate(context.Background(), types.Prompt("critique")))
	assert.Equal(t, "teacher(openai/gpt-4o-mini)", backend.String())
}

func TestBackendPassesThroughText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, chatCompletion("  raw output  "))
	}))
	defer server.Close()

	backend := NewBackend(newTestLLM(t, server), "student")
	assert.Equal(t, "  raw output  ", backend.Generate(context.Background(), types.Prompt("q")))
}

func TestLLMError(t *testing.T) {
	testCases := []struct {
		name          string
		errType       ErrorType
		message       string
		underlyingErr error
		expectedStr   string
		retryable     bool
	}{
		{
			name:          "Provider error with underlying error",
			errType:       ErrorTypeProvider,
			message:       "Failed to connect",
			underlyingErr: errors.New("connection refused"),
			expectedStr:   "ProviderError (Failed to connect): connection refused",
			retryable:     false,
		},
		{
			name:        "API error without underlying error",
			errType:     ErrorTypeAPI,
			message:     "Bad gateway",
			expectedStr: "APIError: Bad gateway",
			retryable:   true,
		},
		{
			name:        "Rate limit",
			errType:     ErrorTypeRateLimit,
			message:     "slow down",
			expectedStr: "RateLimitError: slow down",
			retryable:   true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			llmErr := NewLLMError(tc.errType, tc.message, tc.underlyingErr)

			assert.Equal(t, tc.expectedStr, llmErr.Error())
			assert.Equal(t, tc.retryable, llmErr.Retryable())
			if tc.underlyingErr != nil {
				assert.Equal(t, tc.underlyingErr, errors.Unwrap(llmErr))
			}
		})
	}
}

func TestStatusErrorClassification(t *testing.T) {
	tests := []struct {
		status    int
		errType   ErrorType
		retryable bool
	}{
		{http.StatusUnauthorized, ErrorTypeAuthentication, false},
		{http.StatusForbidden, ErrorTypeAuthentication, false},
		{http.StatusTooManyRequests, ErrorTypeRateLimit, true},
		{http.StatusBadRequest, ErrorTypeInvalidInput, false},
		{http.StatusNotFound, ErrorTypeInvalidInput, false},
		{http.StatusInternalServerError, ErrorTypeAPI, true},
		{http.StatusBadGateway, ErrorTypeAPI, true},
	}
	for _, tt := range tests {
		err := newStatusError(tt.status)
		assert.Equal(t, tt.errType, err.Type, "status %d", tt.status)
		assert.Equal(t, tt.retryable, err.Retryable(), "status %d", tt.status)
	}
	assert.Equal(t, "UnknownError", ErrorType(99).String())
}

func TestTokenCounterNilEstimates(t *testing.T) {
	var tc *TokenCounter
	assert.Equal(t, 0, tc.Count(""))
	assert.Equal(t, 2, tc.Count("12345678"))
	assert.Equal(t, 3, tc.Count("123456789"))
}

func TestBackendLogsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	logger := utils.NewMockLogger()
	cfg := config.NewConfig()
	config.ApplyOptions(cfg,
		config.SetProvider("openai"),
		config.SetEndpoint(server.URL),
		config.SetRetryDelay(time.Millisecond),
	)
	l, err := NewLLM(cfg, logger, nil)
	require.NoError(t, err)

	assert.Equal(t, "", NewBackend(l, "student").Generate(context.Background(), types.Prompt("q")))
	assert.Contains(t, logger.Messages("Warn"), "Backend call failed, returning empty output")
	assert.Contains(t, logger.Messages("Error"), "API error")
}
