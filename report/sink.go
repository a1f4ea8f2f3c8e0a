// Package report collects the side outputs of a training run: epoch metrics
// sinks and the files written at the end of a run.
package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"sync"

	"github.com/teilomillet/textgrad"
	"github.com/teilomillet/textgrad/utils"
)

// MultiSink fans every report out to each sink in order.
type MultiSink []textgrad.Reporter

func (ms MultiSink) Report(m textgrad.EpochMetrics) {
	for _, s := range ms {
		if s != nil {
			s.Report(m)
		}
	}
}

// LogSink writes each epoch summary to a logger.
type LogSink struct {
	Logger utils.Logger
}

func (s LogSink) Report(m textgrad.EpochMetrics) {
	s.Logger.Info("Epoch metrics",
		"epoch", m.Epoch,
		"total", m.Total,
		"correct", m.Correct,
		"accuracy", strconv.FormatFloat(m.Accuracy, 'f', 4, 64),
		"failures", m.FailureCount,
		"format_failures", m.FormatFailureCount,
		"prompt_length", m.PromptLength,
		"prompt_tokens", m.PromptTokens,
	)
}

var csvHeader = []string{
	"epoch", "total", "correct", "accuracy",
	"failure_count", "format_failure_count", "prompt_length", "prompt_tokens",
}

// CSVSink appends one row per epoch to a CSV stream. The header is written
// before the first row.
type CSVSink struct {
	mu      sync.Mutex
	w       *csv.Writer
	logger  utils.Logger
	started bool
}

func NewCSVSink(w io.Writer, logger utils.Logger) *CSVSink {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &CSVSink{w: csv.NewWriter(w), logger: logger}
}

// Report never fails the run; write errors are logged.
func (s *CSVSink) Report(m textgrad.EpochMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		if err := s.w.Write(csvHeader); err != nil {
			s.logger.Error("Failed to write metrics header", "error", err)
			return
		}
		s.started = true
	}

	row := []string{
		strconv.Itoa(m.Epoch),
		strconv.Itoa(m.Total),
		strconv.Itoa(m.Correct),
		strconv.FormatFloat(m.Accuracy, 'f', 4, 64),
		strconv.Itoa(m.FailureCount),
		strconv.Itoa(m.FormatFailureCount),
		strconv.Itoa(m.PromptLength),
		strconv.Itoa(m.PromptTokens),
	}
	if err := s.w.Write(row); err != nil {
		s.logger.Error("Failed to write metrics row", "epoch", m.Epoch, "error", err)
		return
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.logger.Error("Failed to flush metrics", "epoch", m.Epoch, "error", err)
	}
}
