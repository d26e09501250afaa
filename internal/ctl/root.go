// Package ctl implements lookoutctl, the operator tool for rule tables and
// offline summaries.
package ctl

import (
	"fmt"

	"github.com/spf13/cobra"
)

var output string

// NewRootCmd returns the root command for lookoutctl
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "lookoutctl",
		Short:         "Lookout operator tool",
		Long:          "lookoutctl validates risk rule tables, scores labels and builds template summaries without the service.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&output, "output", "text", "output format: json|text")

	rootCmd.AddCommand(newRulesCmd())
	rootCmd.AddCommand(newSummarizeCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func outputJSON() bool {
	return output == "json"
}

func checkOutput() error {
	if output != "json" && output != "text" {
		return fmt.Errorf("invalid --output %q: must be 'json' or 'text'", output)
	}
	return nil
}
