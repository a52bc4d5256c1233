package main

import (
	"os"

	"github.com/bactscout/bactscout/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
