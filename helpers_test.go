package textgrad

import (
	"context"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/teilomillet/textgrad/types"
)

// MockBackend is a testify mock of Backend.
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Generate(ctx context.Context, messages []types.Message) string {
	args := m.Called(ctx, messages)
	return args.String(0)
}

// recordingBackend answers with a function of the last user message and keeps
// every conversation it received.
type recordingBackend struct {
	mu    sync.Mutex
	calls [][]types.Message
	reply func(prompt string) string
}

func newRecordingBackend(reply func(prompt string) string) *recordingBackend {
	return &recordingBackend{reply: reply}
}

func (b *recordingBackend) Generate(_ context.Context, messages []types.Message) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, messages)
	return b.reply(messages[len(messages)-1].Content)
}

func (b *recordingBackend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func (b *recordingBackend) Prompts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.calls))
	for _, c := range b.calls {
		out = append(out, c[len(c)-1].Content)
	}
	return out
}

// answers maps a question suffix of the rendered prompt to a fixed reply.
func answers(table map[string]string) func(string) string {
	return func(prompt string) string {
		for question, reply := range table {
			if strings.HasSuffix(prompt, "Question: "+question) {
				return reply
			}
		}
		return ""
	}
}

func constant(reply string) func(string) string {
	return func(string) string { return reply }
}
