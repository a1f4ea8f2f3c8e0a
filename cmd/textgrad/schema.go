package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/teilomillet/textgrad/report"
)

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the run artifact written by train --output",
		// No backend is needed to print the schema.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report.Schema())
		},
	}
}
