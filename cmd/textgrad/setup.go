package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/teilomillet/textgrad"
	"github.com/teilomillet/textgrad/dataset"
	"github.com/teilomillet/textgrad/llm"
	"github.com/teilomillet/textgrad/parse"
	"github.com/teilomillet/textgrad/report"
)

// runFlags are shared by train and diagnose. Only flags set on the command
// line override the environment.
type runFlags struct {
	dataset          string
	limit            int
	parser           string
	instructions     string
	instructionsFile string
	demos            string
	demosFile        string
}

func (f *runFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.dataset, "dataset", "d", "", "Dataset file (.jsonl, .json, .yaml)")
	fs.IntVarP(&f.limit, "limit", "n", 0, "Use only the first N examples")
	fs.StringVar(&f.parser, "parser", "", "Answer parser ("+strings.Join(parse.Names(), ", ")+")")
	fs.StringVar(&f.instructions, "instructions", "", "Initial instructions")
	fs.StringVar(&f.instructionsFile, "instructions-file", "", "Read the initial instructions from a file")
	fs.StringVar(&f.demos, "demos", "", "Initial few-shot examples")
	fs.StringVar(&f.demosFile, "demos-file", "", "Read the initial few-shot examples from a file")
	cmd.MarkFlagsMutuallyExclusive("instructions", "instructions-file")
	cmd.MarkFlagsMutuallyExclusive("demos", "demos-file")
}

func (f *runFlags) apply(cmd *cobra.Command) error {
	fs := cmd.Flags()
	if fs.Changed("dataset") {
		trainCfg.DatasetPath = f.dataset
	}
	if fs.Changed("limit") {
		trainCfg.Limit = f.limit
	}
	if fs.Changed("parser") {
		trainCfg.Parser = f.parser
	}
	if fs.Changed("instructions") {
		trainCfg.Instructions = f.instructions
	}
	if fs.Changed("demos") {
		trainCfg.Demos = f.demos
	}
	if f.instructionsFile != "" {
		text, err := os.ReadFile(f.instructionsFile)
		if err != nil {
			return fmt.Errorf("failed to read instructions: %w", err)
		}
		trainCfg.Instructions = string(text)
	}
	if f.demosFile != "" {
		text, err := os.ReadFile(f.demosFile)
		if err != nil {
			return fmt.Errorf("failed to read demos: %w", err)
		}
		trainCfg.Demos = string(text)
	}
	if trainCfg.DatasetPath == "" {
		return errors.New("no dataset: set --dataset or TEXTGRAD_DATASET")
	}
	return trainCfg.Validate()
}

func loadExamples() ([]textgrad.Example, error) {
	examples, err := dataset.Load(trainCfg.DatasetPath, dataset.Options{Limit: trainCfg.Limit})
	if err != nil {
		return nil, err
	}
	logger.Info("Dataset loaded", "path", trainCfg.DatasetPath, "examples", len(examples))
	return examples, nil
}

// newBackend loads one backend and instruments it when metrics are enabled.
func newBackend(label string, metrics *report.BackendMetrics) (textgrad.Backend, error) {
	cfg := studentCfg
	if label == "teacher" {
		cfg = teacherCfg
	}
	b, err := llm.NewBackendFromConfig(cfg, label, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s backend: %w", label, err)
	}
	logger.Info("Backend ready", "backend", b.String())
	if metrics == nil {
		return b, nil
	}
	return metrics.Wrap(label, b), nil
}

// serveMetrics exposes reg on addr until the returned function is called.
func serveMetrics(addr string, reg *prometheus.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("Serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("Metrics server shutdown failed", "error", err)
		}
	}
}
