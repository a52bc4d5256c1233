package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bactscout",
		Short: "Rapid QC for bacterial whole-genome sequencing reads",
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "bactscout_config.yml", "config file path")
	root.AddCommand(newQCCmd())
	root.AddCommand(newCollectCmd())
	root.AddCommand(newSummaryCmd())
	root.AddCommand(newPreflightCmd())
	root.AddCommand(newVersionCmd())
	return root
}
