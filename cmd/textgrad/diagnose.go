package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teilomillet/textgrad"
	"github.com/teilomillet/textgrad/dataset"
	"github.com/teilomillet/textgrad/parse"
	"github.com/teilomillet/textgrad/report"
)

func diagnoseCmd() *cobra.Command {
	var (
		flags runFlags
		out   string
	)

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Evaluate the current prompt on a dataset without training",
		Long: `Run the student once over every example and write a CSV report with
the columns id, status, question, prediction and truth.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.apply(cmd); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDiagnosis(ctx, cmd.OutOrStdout(), out)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "diagnosis.csv", "CSV report path")
	return cmd
}

func runDiagnosis(ctx context.Context, stdout io.Writer, out string) error {
	examples, err := loadExamples()
	if err != nil {
		return err
	}
	parser, err := parse.ByName(trainCfg.Parser)
	if err != nil {
		return err
	}
	backend, err := newBackend("student", nil)
	if err != nil {
		return err
	}

	student := textgrad.NewStudent(backend, trainCfg.Instructions, trainCfg.Demos)
	results, m, err := textgrad.Diagnose(ctx, student, parser, dataset.Seq(examples))
	if err != nil {
		return err
	}

	for _, d := range results {
		if d.Status == textgrad.StatusPass {
			logger.Info("PASS", "id", d.ID, "prediction", d.Prediction)
		} else {
			logger.Info("FAIL", "id", d.ID, "prediction", d.Prediction, "truth", d.Truth)
		}
	}

	if err := report.WriteFile(out, func(w io.Writer) error {
		return report.WriteDiagnosis(w, results)
	}); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Accuracy: %.2f%% (%d/%d)\n", m.Accuracy*100, m.Correct, m.Total)
	fmt.Fprintf(stdout, "Errors:   %d (unreadable answers: %d)\n", m.FailureCount, m.FormatFailureCount)
	fmt.Fprintf(stdout, "Report:   %s\n", out)
	return nil
}
