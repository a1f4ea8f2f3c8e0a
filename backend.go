package textgrad

import (
	"context"

	"github.com/teilomillet/textgrad/types"
)

// Backend is an opaque text-completion service. Generate never fails: an
// unrecoverable error is reported as empty text.
type Backend interface {
	Generate(ctx context.Context, messages []types.Message) string
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, messages []types.Message) string

func (f BackendFunc) Generate(ctx context.Context, messages []types.Message) string {
	return f(ctx, messages)
}

// AnswerParser extracts the comparable answer from raw model output. The
// boolean is false when no answer could be found.
type AnswerParser interface {
	Parse(raw string) (string, bool)
}

// ParserFunc adapts a function to AnswerParser.
type ParserFunc func(raw string) (string, bool)

func (f ParserFunc) Parse(raw string) (string, bool) {
	return f(raw)
}

// Reporter receives the metrics of every finished epoch.
type Reporter interface {
	Report(EpochMetrics)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(EpochMetrics)

func (f ReporterFunc) Report(m EpochMetrics) {
	f(m)
}
