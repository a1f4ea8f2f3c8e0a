package textgrad

import (
	"context"
	"strings"

	"github.com/teilomillet/textgrad/types"
	"github.com/teilomillet/textgrad/utils"
)

// BackwardEngine turns one failure into one Gradient by asking the teacher
// backend to critique it.
type BackwardEngine struct {
	teacher Backend
	logger  utils.Logger
}

type BackwardOption func(*BackwardEngine)

func WithBackwardLogger(logger utils.Logger) BackwardOption {
	return func(be *BackwardEngine) {
		be.logger = logger
	}
}

func NewBackwardEngine(teacher Backend, opts ...BackwardOption) *BackwardEngine {
	be := &BackwardEngine{
		teacher: teacher,
		logger:  utils.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(be)
	}
	return be
}

// ComputeGradient critiques a single failed answer. It makes exactly one
// backend call and never fails: an unusable critique yields empty feedback.
func (be *BackwardEngine) ComputeGradient(ctx context.Context, question, studentResponse, groundTruth string) Gradient {
	g := Gradient{
		SourceInput: question,
		SourceTruth: groundTruth,
	}

	prompt, err := critiqueTemplate.Execute(critiqueData{
		Question:        question,
		StudentResponse: studentResponse,
		GroundTruth:     groundTruth,
	})
	if err != nil {
		be.logger.Error("Failed to render critique prompt", "error", err)
		return g
	}

	critique := be.teacher.Generate(ctx, []types.Message{
		types.System(critiqueSystemPrompt),
		types.User(prompt),
	})
	g.Feedback = strings.TrimSpace(critique)
	if g.Feedback == "" {
		be.logger.Warn("Teacher returned an empty critique", "question", Excerpt(question, 50))
	}
	return g
}
