package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bactscout/bactscout/internal/config"
	"github.com/bactscout/bactscout/internal/preflight"
	"github.com/bactscout/bactscout/internal/runner"
)

var (
	flagCollectOutput    string
	flagCollectThreads   int
	flagCollectPreflight bool
	flagCollectResources bool
	flagCollectJSON      bool
	flagKATEnabled       bool
	flagKATDisabled      bool
	flagKMerSize         int
)

func newCollectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect <R1> <R2>",
		Short: "Run QC for a single read pair",
		Args:  cobra.ExactArgs(2),
		RunE:  runCollect,
	}
	cmd.Flags().StringVarP(&flagCollectOutput, "output", "o", "bactscout_output", "output directory")
	cmd.Flags().IntVarP(&flagCollectThreads, "threads", "t", 4, "threads for external tools")
	cmd.Flags().BoolVar(&flagCollectPreflight, "preflight", false, "run environment checks first")
	cmd.Flags().BoolVar(&flagCollectResources, "report-resources", false, "track thread and memory usage")
	cmd.Flags().BoolVar(&flagCollectJSON, "write-json", false, "also write a JSON summary")
	cmd.Flags().BoolVar(&flagKATEnabled, "kat", false, "force-enable k-mer analysis")
	cmd.Flags().BoolVar(&flagKATDisabled, "no-kat", false, "force-disable k-mer analysis")
	cmd.Flags().IntVarP(&flagKMerSize, "kmer-size", "k", 0, "k-mer size for k-mer analysis")
	return cmd
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if flagKATEnabled {
		cfg.KAT.Enabled = true
	}
	if flagKATDisabled {
		cfg.KAT.Enabled = false
	}
	if flagKMerSize > 0 {
		cfg.KAT.K = flagKMerSize
	}
	ctx := cmd.Context()

	if flagCollectPreflight {
		if !preflight.Check(ctx, cfg) {
			return fmt.Errorf("preflight checks failed")
		}
	} else {
		fmt.Println("Skipping preflight checks")
	}

	r1, r2 := args[0], args[1]
	sampleID := runner.SampleName(r1)
	if sampleID == "" {
		return fmt.Errorf("could not derive sample name from %s", r1)
	}

	fmt.Printf("Sample ID: %s\n", sampleID)
	result, err := runner.RunSample(ctx, sampleID, r1, r2, cfg, runner.SampleOptions{
		OutputDir:       flagCollectOutput,
		Threads:         flagCollectThreads,
		ReportResources: flagCollectResources,
		WriteJSON:       flagCollectJSON,
	})
	if err != nil {
		return fmt.Errorf("processing sample %s: %w", sampleID, err)
	}
	fmt.Printf("Sample %s processed: %s\n", sampleID, result.FinalStatus)
	fmt.Printf("Results saved to %s/%s/\n", flagCollectOutput, sampleID)
	return nil
}
