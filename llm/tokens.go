package llm

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/teilomillet/textgrad/utils"
)

// fallbackEncoding is used when the model has no registered tiktoken encoding,
// which is the case for most local models.
const fallbackEncoding = "cl100k_base"

// TokenCounter measures prompt sizes in tokens.
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter picks the encoding for model, falling back to cl100k_base.
func NewTokenCounter(model string, logger utils.Logger) (*TokenCounter, error) {
	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		logger.Debug("No encoding for model, using fallback", "model", model, "encoding", fallbackEncoding)
		encoding, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s encoding: %w", fallbackEncoding, err)
		}
	}
	return &TokenCounter{encoding: encoding}, nil
}

// Count returns the number of tokens in text. A nil counter estimates four
// characters per token.
func (tc *TokenCounter) Count(text string) int {
	if tc == nil || tc.encoding == nil {
		return (utf8.RuneCountInString(text) + 3) / 4
	}
	return len(tc.encoding.Encode(text, nil, nil))
}
