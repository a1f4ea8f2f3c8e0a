package textgrad

import (
	"context"
	"strings"

	"github.com/teilomillet/textgrad/types"
)

// TrainableComponent produces an output for an input from the current value
// of the parameters it owns.
type TrainableComponent interface {
	Forward(ctx context.Context, input string) string
	Parameters() []*Parameter
}

// Student is the trainable component: it owns the instructions and demos
// parameters and renders them into the prompt sent to the student backend.
type Student struct {
	backend      Backend
	instructions *Parameter
	demos        *Parameter
}

// NewStudent creates a student with trainable instructions and demos. An
// empty demos text leaves the examples block out of the prompt until the
// optimizer writes one.
func NewStudent(backend Backend, instructions, demos string) *Student {
	return &Student{
		backend:      backend,
		instructions: NewParameter("instructions", instructions, RoleInstructions, true),
		demos:        NewParameter("demos", demos, RoleDemos, true),
	}
}

func (s *Student) Instructions() *Parameter { return s.instructions }
func (s *Student) Demos() *Parameter        { return s.demos }

// Parameters returns the owned parameters in declaration order.
func (s *Student) Parameters() []*Parameter {
	return []*Parameter{s.instructions, s.demos}
}

// Render builds the prompt: instructions, then the demos block when it is not
// empty, then the question. The order is fixed.
func (s *Student) Render(input string) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(s.instructions.Data()))
	sb.WriteString("\n\n")
	if demos := strings.TrimSpace(s.demos.Data()); demos != "" {
		sb.WriteString("Examples:\n")
		sb.WriteString(demos)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Question: ")
	sb.WriteString(input)
	return sb.String()
}

// Forward sends the rendered prompt as one user turn and returns the raw
// output. It does not modify any parameter.
func (s *Student) Forward(ctx context.Context, input string) string {
	return s.backend.Generate(ctx, types.Prompt(s.Render(input)))
}
