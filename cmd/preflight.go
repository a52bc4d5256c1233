package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bactscout/bactscout/internal/config"
	"github.com/bactscout/bactscout/internal/preflight"
)

func newPreflightCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Validate system resources, tools, and databases",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if !preflight.Check(cmd.Context(), cfg) {
				return fmt.Errorf("preflight checks failed")
			}
			fmt.Println("All preflight checks passed.")
			return nil
		},
	}
}
