package textgrad

import (
	"context"
	"errors"
	"iter"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/teilomillet/textgrad/parse"
	"github.com/teilomillet/textgrad/utils"
)

// DefaultMaxEpochs is the epoch budget of a run.
const DefaultMaxEpochs = 3

// ErrFinished is returned when Run is called on a controller that already
// reached a terminal state.
var ErrFinished = errors.New("training run already finished")

// State is the position of a run in its lifecycle.
type State int

const (
	StateRunning State = iota
	StateConverged
	StateBudgetExhausted
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateConverged:
		return "CONVERGED"
	case StateBudgetExhausted:
		return "BUDGET_EXHAUSTED"
	default:
		return "UNKNOWN"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further epoch can run.
func (s State) Terminal() bool {
	return s == StateConverged || s == StateBudgetExhausted
}

// Result is the outcome of a run. Parameters are the values after the last
// epoch. For StateBudgetExhausted they include the rewrite made after the
// final epoch, which no epoch has evaluated; the last entry of Metrics scores
// the previous values.
type Result struct {
	State      State               `json:"state"`
	Epochs     int                 `json:"epochs"`
	Steps      int                 `json:"steps"`
	Metrics    []EpochMetrics      `json:"metrics"`
	Parameters []ParameterSnapshot `json:"parameters"`
}

// EpochController drives forward, evaluate, backward and optimize cycles
// until the component answers every example or the epoch budget runs out.
type EpochController struct {
	component   TrainableComponent
	backward    *BackwardEngine
	optimizer   *Optimizer
	parser      AnswerParser
	normalize   func(string) string
	reporter    Reporter
	counter     TokenCounter
	logger      utils.Logger
	maxEpochs   int
	concurrency int
	state       State
}

type ControllerOption func(*EpochController)

func WithMaxEpochs(n int) ControllerOption {
	return func(c *EpochController) {
		c.maxEpochs = n
	}
}

// WithConcurrency runs up to n forward passes of an epoch in parallel.
// Gradients are still computed and attached one by one in dataset order.
func WithConcurrency(n int) ControllerOption {
	return func(c *EpochController) {
		c.concurrency = n
	}
}

func WithReporter(r Reporter) ControllerOption {
	return func(c *EpochController) {
		c.reporter = r
	}
}

func WithTokenCounter(counter TokenCounter) ControllerOption {
	return func(c *EpochController) {
		c.counter = counter
	}
}

func WithLogger(logger utils.Logger) ControllerOption {
	return func(c *EpochController) {
		c.logger = logger
	}
}

// WithNormalizer replaces the function applied to both sides of the answer
// comparison.
func WithNormalizer(fn func(string) string) ControllerOption {
	return func(c *EpochController) {
		c.normalize = fn
	}
}

func NewEpochController(component TrainableComponent, backward *BackwardEngine, optimizer *Optimizer, parser AnswerParser, opts ...ControllerOption) *EpochController {
	c := &EpochController{
		component:   component,
		backward:    backward,
		optimizer:   optimizer,
		parser:      parser,
		normalize:   parse.Normalize,
		logger:      utils.NewNopLogger(),
		maxEpochs:   DefaultMaxEpochs,
		concurrency: 1,
		state:       StateRunning,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxEpochs < 1 {
		c.maxEpochs = 1
	}
	return c
}

func (c *EpochController) State() State {
	return c.state
}

// Run trains until a terminal state is reached. The dataset is consumed once
// per epoch. Cancellation is checked between examples and between epochs;
// it is the only error, and the partial result is returned with it. When the
// budget runs out the optimizer still steps after the final epoch, so the
// returned parameters are unscored.
func (c *EpochController) Run(ctx context.Context, dataset iter.Seq[Example]) (*Result, error) {
	if c.state.Terminal() {
		return nil, ErrFinished
	}

	res := &Result{State: StateRunning}
	defer func() {
		res.Parameters = snapshots(c.component.Parameters())
	}()

	for epoch := 1; ; epoch++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		c.logger.Info("Starting epoch", "epoch", epoch, "max_epochs", c.maxEpochs)

		metrics, err := c.runEpoch(ctx, epoch, dataset)
		if err != nil {
			return res, err
		}
		res.Epochs = epoch
		res.Metrics = append(res.Metrics, metrics)
		if c.reporter != nil {
			c.reporter.Report(metrics)
		}
		c.logger.Info("Epoch finished",
			"epoch", epoch,
			"accuracy", metrics.Accuracy,
			"failures", metrics.FailureCount,
			"format_failures", metrics.FormatFailureCount,
		)

		if metrics.FailureCount == 0 {
			c.state = StateConverged
			c.logger.Info("Converged", "epoch", epoch)
			break
		}

		updates := c.optimizer.Step(ctx)
		res.Steps++
		for _, u := range updates {
			c.logger.Debug("Parameter step", "parameter", u.Name, "role", u.Role, "gradients", u.Gradients, "accepted", u.Accepted)
		}

		if epoch >= c.maxEpochs {
			c.state = StateBudgetExhausted
			c.logger.Warn("Epoch budget exhausted before convergence", "epochs", epoch, "failures", metrics.FailureCount)
			break
		}
	}

	res.State = c.state
	return res, nil
}

func (c *EpochController) runEpoch(ctx context.Context, epoch int, dataset iter.Seq[Example]) (EpochMetrics, error) {
	trainable := c.trainable()
	for _, p := range trainable {
		p.ResetGradients()
	}

	m := EpochMetrics{Epoch: epoch}
	promptMetrics(&m, c.component.Parameters(), c.counter)

	if c.concurrency > 1 {
		examples := slices.Collect(dataset)
		outputs, err := c.forwardAll(ctx, examples)
		if err != nil {
			return m, err
		}
		for i, ex := range examples {
			if err := ctx.Err(); err != nil {
				return m, err
			}
			c.evaluate(ctx, &m, trainable, ex, outputs[i])
		}
	} else {
		for ex := range dataset {
			if err := ctx.Err(); err != nil {
				return m, err
			}
			c.evaluate(ctx, &m, trainable, ex, c.component.Forward(ctx, ex.Input))
		}
	}

	m.Accuracy = accuracy(m.Correct, m.Total)
	return m, nil
}

func (c *EpochController) forwardAll(ctx context.Context, examples []Example) ([]string, error) {
	outputs := make([]string, len(examples))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, ex := range examples {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outputs[i] = c.component.Forward(gctx, ex.Input)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, ctx.Err()
}

func (c *EpochController) evaluate(ctx context.Context, m *EpochMetrics, trainable []*Parameter, ex Example, output string) {
	m.Total++
	parsed, ok := c.parser.Parse(output)
	if !ok {
		m.FormatFailureCount++
	}
	if ok && c.normalize(parsed) == c.normalize(ex.ExpectedOutput) {
		m.Correct++
		c.logger.Debug("PASS", "input", Excerpt(ex.Input, 50), "prediction", parsed)
		return
	}

	m.FailureCount++
	c.logger.Debug("FAIL", "input", Excerpt(ex.Input, 50), "prediction", parsed, "parsed", ok, "truth", ex.ExpectedOutput)

	g := c.backward.ComputeGradient(ctx, ex.Input, output, ex.ExpectedOutput)
	for _, p := range trainable {
		p.AddGradient(g)
	}
}

func (c *EpochController) trainable() []*Parameter {
	var out []*Parameter
	for _, p := range c.component.Parameters() {
		if p.Trainable() {
			out = append(out, p)
		}
	}
	return out
}

func snapshots(params []*Parameter) []ParameterSnapshot {
	out := make([]ParameterSnapshot, 0, len(params))
	for _, p := range params {
		out = append(out, p.Snapshot())
	}
	return out
}
