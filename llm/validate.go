package llm

import (
	"github.com/go-playground/validator/v10"

	"github.com/teilomillet/textgrad/types"
)

// validate is the shared validator instance used across the package.
var validate = validator.New()

// ValidateMessages checks that a conversation is non-empty and every turn
// carries a known role.
func ValidateMessages(messages []types.Message) error {
	if len(messages) == 0 {
		return NewLLMError(ErrorTypeInvalidInput, "conversation has no messages", nil)
	}
	for _, m := range messages {
		if err := validate.Struct(m); err != nil {
			return NewLLMError(ErrorTypeInvalidInput, "invalid message", err)
		}
	}
	return nil
}
