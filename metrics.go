package textgrad

import (
	"strings"
	"unicode/utf8"
)

// EpochMetrics summarizes one pass over the dataset. Only FailureCount
// influences the training loop.
type EpochMetrics struct {
	Epoch              int     `json:"epoch" jsonschema:"minimum=1"`
	Total              int     `json:"total"`
	Correct            int     `json:"correct"`
	Accuracy           float64 `json:"accuracy" jsonschema:"minimum=0,maximum=1"`
	FailureCount       int     `json:"failure_count"`
	FormatFailureCount int     `json:"format_failure_count" jsonschema:"description=Outputs the answer parser could not read"`
	PromptLength       int     `json:"prompt_length" jsonschema:"description=Runes of parameter text in the student prompt"`
	PromptTokens       int     `json:"prompt_tokens,omitempty"`
}

// TokenCounter measures text in model tokens.
type TokenCounter interface {
	Count(text string) int
}

func accuracy(correct, total int) float64 {
	if total == 0 {
		return 1
	}
	return float64(correct) / float64(total)
}

func parameterText(params []*Parameter) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		if d := p.Data(); d != "" {
			parts = append(parts, d)
		}
	}
	return strings.Join(parts, "\n\n")
}

func promptMetrics(m *EpochMetrics, params []*Parameter, counter TokenCounter) {
	text := parameterText(params)
	m.PromptLength = utf8.RuneCountInString(text)
	if counter != nil {
		m.PromptTokens = counter.Count(text)
	}
}
