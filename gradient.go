package textgrad

// Gradient is the textual feedback produced for one failed example. It is a
// plain value: every parameter receives its own copy.
type Gradient struct {
	Feedback    string
	SourceInput string
	SourceTruth string
	// Score is carried along but every gradient weighs the same.
	Score float64
}

// Example is one training record.
type Example struct {
	Input          string `json:"input" yaml:"input"`
	ExpectedOutput string `json:"expected_output" yaml:"expected_output"`
}
