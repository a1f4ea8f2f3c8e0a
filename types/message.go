// Package types contains shared type definitions used across the textgrad packages.
// It helps avoid import cycles between the engine, the client and the providers.
package types

// Conversation roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role-tagged turn sent to a model.
type Message struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content"`
}

// System returns a system turn.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User returns a user turn.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Prompt wraps a single rendered prompt as a one-turn conversation.
func Prompt(prompt string) []Message {
	return []Message{User(prompt)}
}
