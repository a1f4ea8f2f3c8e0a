package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/teilomillet/textgrad"
	"github.com/teilomillet/textgrad/dataset"
	"github.com/teilomillet/textgrad/llm"
	"github.com/teilomillet/textgrad/parse"
	"github.com/teilomillet/textgrad/report"
	"github.com/teilomillet/textgrad/utils"
)

func trainCmd() *cobra.Command {
	var (
		flags       runFlags
		epochs      int
		concurrency int
		reportPath  string
		output      string
		metricsAddr string
		debugDir    string
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Optimize the student prompt on a dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Flags()
			if fs.Changed("epochs") {
				trainCfg.MaxEpochs = epochs
			}
			if fs.Changed("concurrency") {
				trainCfg.Concurrency = concurrency
			}
			if fs.Changed("report") {
				trainCfg.ReportPath = reportPath
			}
			if fs.Changed("output") {
				trainCfg.OutputPath = output
			}
			if fs.Changed("metrics-addr") {
				trainCfg.MetricsAddr = metricsAddr
			}
			if fs.Changed("debug-dir") {
				trainCfg.DebugDir = debugDir
			}
			if err := flags.apply(cmd); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runTraining(ctx, cmd.OutOrStdout())
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&epochs, "epochs", "e", textgrad.DefaultMaxEpochs, "Maximum number of epochs")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 1, "Parallel student calls per epoch")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write per-epoch metrics to this CSV file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the final parameters to this JSON file")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&debugDir, "debug-dir", "", "Save every rewrite prompt and response in this directory")
	return cmd
}

func runTraining(ctx context.Context, stdout io.Writer) error {
	examples, err := loadExamples()
	if err != nil {
		return err
	}
	parser, err := parse.ByName(trainCfg.Parser)
	if err != nil {
		return err
	}

	sinks := report.MultiSink{report.LogSink{Logger: logger}}

	var backendMetrics *report.BackendMetrics
	if trainCfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		sinks = append(sinks, report.NewPrometheusSink(reg))
		backendMetrics = report.NewBackendMetrics(reg)
		defer serveMetrics(trainCfg.MetricsAddr, reg)()
	}

	if trainCfg.ReportPath != "" {
		f, err := os.Create(trainCfg.ReportPath)
		if err != nil {
			return fmt.Errorf("failed to create report: %w", err)
		}
		defer f.Close()
		sinks = append(sinks, report.NewCSVSink(f, logger))
	}

	studentBackend, err := newBackend("student", backendMetrics)
	if err != nil {
		return err
	}
	teacherBackend, err := newBackend("teacher", backendMetrics)
	if err != nil {
		return err
	}

	var counter textgrad.TokenCounter
	if trainCfg.CountTokens {
		tc, err := llm.NewTokenCounter(studentCfg.Model, logger)
		if err != nil {
			logger.Warn("Token counting disabled", "error", err)
		} else {
			counter = tc
		}
	}

	debugManager := utils.NewDebugManager(logger, utils.DebugOptions{
		Enabled:      trainCfg.DebugDir != "",
		OutputDir:    trainCfg.DebugDir,
		SaveToFile:   trainCfg.DebugDir != "",
		LogPrompts:   true,
		LogResponses: true,
	})

	student := textgrad.NewStudent(studentBackend, trainCfg.Instructions, trainCfg.Demos)
	controller := textgrad.NewEpochController(
		student,
		textgrad.NewBackwardEngine(teacherBackend, textgrad.WithBackwardLogger(logger)),
		textgrad.NewOptimizer(student.Parameters(), teacherBackend,
			textgrad.WithExcerptLength(trainCfg.ExcerptLength),
			textgrad.WithOptimizerLogger(logger),
			textgrad.WithDebugManager(debugManager),
		),
		parser,
		textgrad.WithMaxEpochs(trainCfg.MaxEpochs),
		textgrad.WithConcurrency(trainCfg.Concurrency),
		textgrad.WithReporter(sinks),
		textgrad.WithTokenCounter(counter),
		textgrad.WithLogger(logger),
	)

	res, err := controller.Run(ctx, dataset.Seq(examples))
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if err != nil {
		logger.Warn("Training interrupted, writing the last parameter values")
	}

	if trainCfg.OutputPath != "" {
		if werr := report.WriteFile(trainCfg.OutputPath, func(w io.Writer) error {
			return report.WriteParameters(w, res)
		}); werr != nil {
			return werr
		}
		logger.Info("Final parameters written", "path", trainCfg.OutputPath)
	}

	printResult(stdout, res)
	return err
}

func printResult(w io.Writer, res *textgrad.Result) {
	fmt.Fprintf(w, "State:  %s\n", res.State)
	fmt.Fprintf(w, "Epochs: %d (optimizer steps: %d)\n", res.Epochs, res.Steps)
	if n := len(res.Metrics); n > 0 {
		fmt.Fprintf(w, "Last accuracy: %.2f%%\n", res.Metrics[n-1].Accuracy*100)
	}
	for _, p := range res.Parameters {
		fmt.Fprintf(w, "\n--- %s ---\n%s\n", p.Name, p.Data)
	}
}
