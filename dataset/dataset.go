// Package dataset loads training examples from JSON Lines, JSON or YAML files.
package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/teilomillet/textgrad"
)

// record accepts the field names of the common question answering sets.
type record struct {
	Input          string `json:"input" yaml:"input"`
	Question       string `json:"question" yaml:"question"`
	ExpectedOutput string `json:"expected_output" yaml:"expected_output"`
	Truth          string `json:"truth" yaml:"truth"`
	Target         string `json:"target" yaml:"target"`
	Answer         string `json:"answer" yaml:"answer"`
}

func (r record) example() (textgrad.Example, error) {
	ex := textgrad.Example{Input: firstNonEmpty(r.Input, r.Question)}
	switch {
	case r.ExpectedOutput != "":
		ex.ExpectedOutput = strings.TrimSpace(r.ExpectedOutput)
	case r.Truth != "":
		ex.ExpectedOutput = strings.TrimSpace(r.Truth)
	case r.Target != "":
		ex.ExpectedOutput = strings.TrimSpace(r.Target)
	default:
		ex.ExpectedOutput = GSM8KAnswer(r.Answer)
	}
	if strings.TrimSpace(ex.Input) == "" {
		return ex, fmt.Errorf("record has no input")
	}
	if ex.ExpectedOutput == "" {
		return ex, fmt.Errorf("record %q has no expected output", excerpt(ex.Input))
	}
	return ex, nil
}

// GSM8KAnswer extracts the final answer of a GSM8K solution: the text after
// the last "####" marker, without thousands separators. Text without a marker
// is returned trimmed.
func GSM8KAnswer(answer string) string {
	if i := strings.LastIndex(answer, "####"); i >= 0 {
		answer = answer[i+len("####"):]
		answer = strings.ReplaceAll(answer, ",", "")
	}
	return strings.TrimSpace(answer)
}

// Options control Load.
type Options struct {
	// Limit keeps only the first Limit examples when positive.
	Limit int
}

// Load reads every example of the file at path. The format follows the
// extension: .jsonl, .json, .yaml or .yml.
func Load(path string, opts Options) ([]textgrad.Example, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	var records []record
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".jsonl", ".ndjson":
		records, err = decodeJSONLines(data)
	case ".json":
		err = json.Unmarshal(data, &records)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &records)
	default:
		return nil, fmt.Errorf("unsupported dataset format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	if opts.Limit > 0 && len(records) > opts.Limit {
		records = records[:opts.Limit]
	}

	examples := make([]textgrad.Example, 0, len(records))
	for i, r := range records {
		ex, err := r.example()
		if err != nil {
			return nil, fmt.Errorf("%s: example %d: %w", path, i+1, err)
		}
		examples = append(examples, ex)
	}
	return examples, nil
}

func decodeJSONLines(data []byte) ([]record, error) {
	var records []record
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var r record
		if err := json.Unmarshal(text, &r); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, r)
	}
	return records, scanner.Err()
}

// Seq yields the examples in order. The sequence can be ranged over once per
// epoch.
func Seq(examples []textgrad.Example) iter.Seq[textgrad.Example] {
	return slices.Values(examples)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func excerpt(s string) string {
	return textgrad.Excerpt(s, 40)
}
