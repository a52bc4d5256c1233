package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the bactscout version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("bactscout %s\n", version)
		},
	}
}
