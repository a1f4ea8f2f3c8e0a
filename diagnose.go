package textgrad

import (
	"context"
	"iter"

	"github.com/teilomillet/textgrad/parse"
)

// Status values of a Diagnosis.
const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
)

// Diagnosis is the evaluation of one example without any training.
type Diagnosis struct {
	ID         int    `json:"id"`
	Status     string `json:"status"`
	Question   string `json:"question"`
	Prediction string `json:"prediction"`
	Truth      string `json:"truth"`
	Raw        string `json:"raw"`
}

type diagnoseOptions struct {
	normalize func(string) string
}

type DiagnoseOption func(*diagnoseOptions)

// WithDiagnoseNormalizer replaces the comparison normalization, matching
// WithNormalizer on the controller.
func WithDiagnoseNormalizer(fn func(string) string) DiagnoseOption {
	return func(o *diagnoseOptions) {
		o.normalize = fn
	}
}

// Diagnose evaluates the component's current prompt over the dataset. It
// records every example and returns the same summary a training epoch would,
// but computes no gradient and changes no parameter.
func Diagnose(ctx context.Context, component TrainableComponent, parser AnswerParser, dataset iter.Seq[Example], opts ...DiagnoseOption) ([]Diagnosis, EpochMetrics, error) {
	o := diagnoseOptions{normalize: parse.Normalize}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		results []Diagnosis
		m       EpochMetrics
	)
	promptMetrics(&m, component.Parameters(), nil)

	for ex := range dataset {
		if err := ctx.Err(); err != nil {
			return results, m, err
		}

		raw := component.Forward(ctx, ex.Input)
		parsed, ok := parser.Parse(raw)
		d := Diagnosis{
			ID:         m.Total,
			Status:     StatusFail,
			Question:   ex.Input,
			Prediction: parsed,
			Truth:      ex.ExpectedOutput,
			Raw:        raw,
		}

		m.Total++
		switch {
		case !ok:
			m.FormatFailureCount++
			m.FailureCount++
		case o.normalize(parsed) == o.normalize(ex.ExpectedOutput):
			d.Status = StatusPass
			m.Correct++
		default:
			m.FailureCount++
		}
		results = append(results, d)
	}

	m.Accuracy = accuracy(m.Correct, m.Total)
	return results, m, nil
}
