package llm

import (
	"context"
	"strings"

	"github.com/teilomillet/textgrad/config"
	"github.com/teilomillet/textgrad/providers"
	"github.com/teilomillet/textgrad/types"
	"github.com/teilomillet/textgrad/utils"
)

// Backend adapts an LLM to the contract the training engine relies on:
// Generate never fails, and an unrecoverable error surfaces as empty text.
type Backend struct {
	llm    LLM
	logger utils.Logger
	label  string
}

// NewBackend wraps l. The label distinguishes student and teacher in logs.
func NewBackend(l LLM, label string) *Backend {
	return &Backend{llm: l, logger: l.GetLogger(), label: label}
}

// NewBackendFromConfig loads the provider described by cfg once; the returned
// backend is meant to be reused for every call of a run.
func NewBackendFromConfig(cfg *config.Config, label string, logger utils.Logger) (*Backend, error) {
	l, err := NewLLM(cfg, logger, providers.NewProviderRegistry())
	if err != nil {
		return nil, err
	}
	return NewBackend(l, label), nil
}

func (b *Backend) Generate(ctx context.Context, messages []types.Message) string {
	text, err := b.llm.Generate(ctx, messages)
	if err != nil {
		b.logger.Warn("Backend call failed, returning empty output",
			"backend", b.label,
			"provider", b.llm.ProviderName(),
			"model", b.llm.Model(),
			"error", err,
		)
		return ""
	}
	return text
}

// String identifies the backend as label(provider/model).
func (b *Backend) String() string {
	var sb strings.Builder
	sb.WriteString(b.label)
	sb.WriteString("(")
	sb.WriteString(b.llm.ProviderName())
	sb.WriteString("/")
	sb.WriteString(b.llm.Model())
	sb.WriteString(")")
	return sb.String()
}
