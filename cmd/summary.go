package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bactscout/bactscout/internal/summary"
)

var flagSummaryOutput string

func newSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary <data-dir>",
		Short: "Merge per-sample summaries into one CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := flagSummaryOutput
			if output == "" {
				output = filepath.Join(args[0], "final_summary.csv")
			}
			if err := summary.MergeDir(args[0], output); err != nil {
				return err
			}
			fmt.Printf("Merged summary written to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&flagSummaryOutput, "output", "o", "", "merged CSV path (default <data-dir>/final_summary.csv)")
	return cmd
}
