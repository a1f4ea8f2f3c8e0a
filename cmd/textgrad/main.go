// Command textgrad optimizes the prompt of a small model with a stronger
// teacher model, or evaluates a prompt without training it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teilomillet/textgrad/config"
	"github.com/teilomillet/textgrad/utils"
)

var (
	trainCfg   *config.TrainConfig
	studentCfg *config.Config
	teacherCfg *config.Config
	logger     utils.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "textgrad",
		Short: "Textual gradient descent for small model prompts",
		Long: `textgrad improves the instructions and few-shot examples of a small
"student" model. A stronger "teacher" model critiques every failed example
and rewrites the prompt from those critiques, epoch after epoch.

Backends are configured with STUDENT_* and TEACHER_* variables, the run with
TEXTGRAD_* variables. Flags override the environment.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			trainCfg, err = config.LoadTrainConfig()
			if err != nil {
				return fmt.Errorf("failed to load run config: %w", err)
			}
			studentCfg, err = config.LoadConfig(config.StudentPrefix)
			if err != nil {
				return fmt.Errorf("failed to load student config: %w", err)
			}
			teacherCfg, err = config.LoadConfig(config.TeacherPrefix,
				config.SetModel("qwen2.5:7b-instruct"),
			)
			if err != nil {
				return fmt.Errorf("failed to load teacher config: %w", err)
			}
			logger = utils.NewLogger(trainCfg.LogLevel)
			return nil
		},
	}

	rootCmd.AddCommand(
		trainCmd(),
		diagnoseCmd(),
		schemaCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
