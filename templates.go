package textgrad

import (
	"bytes"
	"text/template"
)

const (
	critiqueSystemPrompt  = "You are an AI optimization assistant."
	optimizerSystemPrompt = "You are an expert Prompt Engineer optimizing a small LLM."
)

// PromptTemplate is a named text/template rendered into a single user turn.
type PromptTemplate struct {
	Name     string
	Template string

	parsed *template.Template
}

// NewPromptTemplate parses text once. It panics on a malformed template, so
// it is meant for package-level templates.
func NewPromptTemplate(name, text string) *PromptTemplate {
	return &PromptTemplate{
		Name:     name,
		Template: text,
		parsed:   template.Must(template.New(name).Parse(text)),
	}
}

// Execute renders the template with data.
func (pt *PromptTemplate) Execute(data any) (string, error) {
	var buf bytes.Buffer
	if err := pt.parsed.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type critiqueData struct {
	Question        string
	StudentResponse string
	GroundTruth     string
}

type rewriteData struct {
	Current  string
	ErrorLog string
}

var critiqueTemplate = NewPromptTemplate("critique", `You generate textual gradients for a prompt optimization loop.

A small student model answered the question below incorrectly. Explain why it
failed so that its instructions can be improved.

Question: "{{.Question}}"
Student answer: "{{.StudentResponse}}"
Correct answer: "{{.GroundTruth}}"

How to analyze:
- Compare the student answer with the correct answer.
- Name the exact point of failure: a missed constraint, a calculation slip or a formatting error.
- Do not simply restate the correct answer. Describe the gap in reasoning.

Feedback:
`)

var instructionsTemplate = NewPromptTemplate("rewrite_instructions", `You are tuning the instructions of a small language model (about 1.5B parameters).

Current instructions:
"{{.Current}}"

The model fails on some examples. Each failure is listed with the critique written for it:
{{.ErrorLog}}
Write a new, improved version of the instructions.
- Look for the root cause shared by the critiques.
- When the model loses track of items, tell it to list them first.
- When the model breaks the output format, require "Answer: [[number]]".
- Stay short and strict.

Reply with the text of the new instructions only, without quotes or code fences.
`)

var demosTemplate = NewPromptTemplate("rewrite_demos", `You are writing the few-shot examples shown to a small student model.

Current examples:
"{{.Current}}"

The student keeps making mistakes. Failures:
{{.ErrorLog}}
Write a new set of question and answer pairs.
- Every new pair must target one of the mistakes listed above.
- Show the reasoning step by step where the student went wrong.
- Keep this layout:
  Q: ...
  A: ... Answer: [[N]]

Reply with the new examples only, without quotes.
`)
