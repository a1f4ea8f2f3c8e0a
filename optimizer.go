package textgrad

import (
	"context"
	"fmt"
	"strings"

	"github.com/teilomillet/textgrad/types"
	"github.com/teilomillet/textgrad/utils"
)

// DefaultExcerptLength bounds how much of each failing input is echoed into
// the rewrite prompt.
const DefaultExcerptLength = 150

// Strategy is the rewrite applied to parameters of one role.
type Strategy struct {
	Name     string
	Template *PromptTemplate
}

var (
	rewriteInstructions = Strategy{Name: "rewrite the instructions", Template: instructionsTemplate}
	writeDemos          = Strategy{Name: "write new few-shot Q/A pairs", Template: demosTemplate}
)

func defaultStrategies() map[Role]Strategy {
	return map[Role]Strategy{
		RoleInstructions: rewriteInstructions,
		RoleDemos:        writeDemos,
	}
}

// Update describes what one Step did to one parameter.
type Update struct {
	ParameterID string
	Name        string
	Role        Role
	Gradients   int
	Accepted    bool
}

// Optimizer rewrites every trainable parameter that has gradients, using the
// teacher backend and the strategy registered for the parameter's role.
type Optimizer struct {
	params        []*Parameter
	teacher       Backend
	strategies    map[Role]Strategy
	excerptLength int
	logger        utils.Logger
	debugManager  *utils.DebugManager
}

type OptimizerOption func(*Optimizer)

// WithStrategy registers or replaces the strategy for role.
func WithStrategy(role Role, strategy Strategy) OptimizerOption {
	return func(o *Optimizer) {
		o.strategies[role] = strategy
	}
}

func WithExcerptLength(n int) OptimizerOption {
	return func(o *Optimizer) {
		o.excerptLength = n
	}
}

func WithOptimizerLogger(logger utils.Logger) OptimizerOption {
	return func(o *Optimizer) {
		o.logger = logger
	}
}

// WithDebugManager records every rewrite prompt and response.
func WithDebugManager(dm *utils.DebugManager) OptimizerOption {
	return func(o *Optimizer) {
		o.debugManager = dm
	}
}

// NewOptimizer optimizes params in the given order.
func NewOptimizer(params []*Parameter, teacher Backend, opts ...OptimizerOption) *Optimizer {
	o := &Optimizer{
		params:        params,
		teacher:       teacher,
		strategies:    defaultStrategies(),
		excerptLength: DefaultExcerptLength,
		logger:        utils.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// StrategyFor returns the strategy for role. Roles without an entry are
// treated as instructions.
func (o *Optimizer) StrategyFor(role Role) Strategy {
	if s, ok := o.strategies[role]; ok {
		return s
	}
	return o.strategies[RoleInstructions]
}

// Step rewrites each trainable parameter with gradients exactly once and
// clears its gradients, whether or not the rewrite was kept. Parameters
// without gradients cause no backend call.
func (o *Optimizer) Step(ctx context.Context) []Update {
	var updates []Update
	for _, p := range o.params {
		if !p.Trainable() || len(p.gradients) == 0 {
			continue
		}
		updates = append(updates, o.update(ctx, p))
	}
	return updates
}

func (o *Optimizer) update(ctx context.Context, p *Parameter) Update {
	u := Update{
		ParameterID: p.ID(),
		Name:        p.Name(),
		Role:        p.Role(),
		Gradients:   len(p.gradients),
	}
	defer p.ResetGradients()

	strategy := o.StrategyFor(p.Role())
	o.logger.Info("Optimizing parameter", "parameter", p.Name(), "strategy", strategy.Name, "failures", u.Gradients)

	prompt, err := strategy.Template.Execute(rewriteData{
		Current:  p.Data(),
		ErrorLog: ErrorLog(p.gradients, o.excerptLength),
	})
	if err != nil {
		o.logger.Error("Failed to render rewrite prompt", "parameter", p.Name(), "error", err)
		return u
	}
	o.debugManager.LogPrompt(p.Name(), prompt)

	raw := o.teacher.Generate(ctx, []types.Message{
		types.System(optimizerSystemPrompt),
		types.User(prompt),
	})
	o.debugManager.LogResponse(p.Name(), raw)

	if err := p.ReplaceData(Sanitize(raw)); err != nil {
		o.logger.Warn("Rewrite rejected, keeping previous value", "parameter", p.Name(), "error", err)
		return u
	}
	u.Accepted = true
	o.logger.Info("Parameter updated", "parameter", p.Name(), "length", len([]rune(p.Data())))
	o.logger.Debug("New parameter value", "parameter", p.Name(), "data", p.Data())
	return u
}

// ErrorLog lists the gradients in order: an excerpt of the failing input, the
// target and the full critique of each.
func ErrorLog(gradients []Gradient, excerptLength int) string {
	var sb strings.Builder
	for i, g := range gradients {
		fmt.Fprintf(&sb, "Example %d:\n- Question: %s\n- Target: %s\n- Teacher Critique: %s\n\n",
			i+1, Excerpt(g.SourceInput, excerptLength), g.SourceTruth, g.Feedback)
	}
	return sb.String()
}
