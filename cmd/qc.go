package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bactscout/bactscout/internal/config"
	"github.com/bactscout/bactscout/internal/preflight"
	"github.com/bactscout/bactscout/internal/runner"
)

var (
	flagOutputDir       string
	flagThreads         int
	flagSkipPreflight   bool
	flagReportResources bool
	flagWriteJSON       bool
	flagDownloadGenomes bool
)

func newQCCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qc <input-dir>",
		Short: "Run batch QC over every read pair in a directory",
		Args:  cobra.ExactArgs(1),
		RunE:  runQC,
	}
	cmd.Flags().StringVarP(&flagOutputDir, "output", "o", "bactscout_output", "output directory")
	cmd.Flags().IntVarP(&flagThreads, "threads", "t", 4, "max concurrent samples")
	cmd.Flags().BoolVar(&flagSkipPreflight, "skip-preflight", false, "skip environment checks")
	cmd.Flags().BoolVar(&flagReportResources, "report-resources", false, "track per-sample thread and memory usage")
	cmd.Flags().BoolVar(&flagWriteJSON, "write-json", false, "also write per-sample JSON summaries")
	cmd.Flags().BoolVar(&flagDownloadGenomes, "download-genomes", false, "cache reference genomes for detected species")
	return cmd
}

func runQC(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if flagSkipPreflight {
		fmt.Println("Skipping preflight checks")
	} else if !preflight.Check(ctx, cfg) {
		return fmt.Errorf("preflight checks failed")
	}

	state, err := runner.RunBatch(ctx, cfg, runner.BatchOptions{
		InputDir: args[0],
		Workers:  flagThreads,
		Sample: runner.SampleOptions{
			OutputDir:       flagOutputDir,
			Threads:         1,
			ReportResources: flagReportResources,
			WriteJSON:       flagWriteJSON,
			DownloadGenomes: flagDownloadGenomes,
		},
	})
	if err != nil {
		return err
	}
	if len(state.Failed) > 0 {
		return fmt.Errorf("%d of %d samples failed", len(state.Failed), state.Total)
	}
	return nil
}
