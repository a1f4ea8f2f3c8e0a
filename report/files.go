package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/invopop/jsonschema"

	"github.com/teilomillet/textgrad"
)

// WriteDiagnosis writes one CSV row per evaluated example with the columns
// id, status, question, prediction and truth. Questions are cut to 50 runes.
func WriteDiagnosis(w io.Writer, results []textgrad.Diagnosis) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "status", "question", "prediction", "truth"}); err != nil {
		return err
	}
	for _, d := range results {
		row := []string{
			strconv.Itoa(d.ID),
			d.Status,
			textgrad.Excerpt(d.Question, 50),
			d.Prediction,
			d.Truth,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Artifact is the final output of a training run.
type Artifact struct {
	State      string                       `json:"state" jsonschema:"enum=RUNNING,enum=CONVERGED,enum=BUDGET_EXHAUSTED"`
	Epochs     int                          `json:"epochs"`
	Steps      int                          `json:"steps"`
	Parameters []textgrad.ParameterSnapshot `json:"parameters"`
	Metrics    []textgrad.EpochMetrics      `json:"metrics"`
}

func NewArtifact(res *textgrad.Result) Artifact {
	return Artifact{
		State:      res.State.String(),
		Epochs:     res.Epochs,
		Steps:      res.Steps,
		Parameters: res.Parameters,
		Metrics:    res.Metrics,
	}
}

// WriteParameters writes the artifact of res as indented JSON.
func WriteParameters(w io.Writer, res *textgrad.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewArtifact(res))
}

// WriteFile creates path and fills it with write.
func WriteFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// Schema returns the JSON schema of the records this package writes: the
// run artifact with its epoch metrics and parameters.
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
	}
	s := r.Reflect(&Artifact{})
	s.Title = "textgrad run artifact"
	return s
}
