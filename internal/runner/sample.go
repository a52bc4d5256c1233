package runner

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/bactscout/bactscout/internal/config"
	"github.com/bactscout/bactscout/internal/genome"
	"github.com/bactscout/bactscout/internal/monitor"
	"github.com/bactscout/bactscout/internal/qc"
	"github.com/bactscout/bactscout/internal/tools"
)

// SampleOptions controls one sample run.
type SampleOptions struct {
	OutputDir       string
	Threads         int
	ReportResources bool
	WriteJSON       bool
	DownloadGenomes bool
}

// RunSample runs the full per-sample pipeline: species profiling, read QC,
// aggregation with typing, the optional k-mer and resistance-gene side
// analyses, and the per-sample summary files. Tool failures degrade the affected metrics;
// only an unusable sample (missing reads, unwritable output) is an error.
func RunSample(ctx context.Context, sampleID, r1, r2 string, cfg *config.Config, opts SampleOptions) (*qc.SampleResult, error) {
	var mon *monitor.Monitor
	if opts.ReportResources {
		mon = monitor.Start()
	}

	sampleDir := filepath.Join(opts.OutputDir, sampleID)
	if err := os.MkdirAll(sampleDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating sample directory %s: %w", sampleDir, err)
	}
	if _, err := os.Stat(r1); err != nil {
		return nil, fmt.Errorf("R1 file %s not found", r1)
	}
	if _, err := os.Stat(r2); err != nil {
		return nil, fmt.Errorf("R2 file %s not found", r2)
	}

	sylphDB := filepath.Join(cfg.DBsPath, cfg.SylphDB)
	toolCtx, cancel := toolContext(ctx, cfg)
	report, err := tools.RunSylph(toolCtx, r1, r2, sampleDir, sylphDB, opts.Threads)
	cancel()
	if err != nil {
		log.Printf("warning: sample %s: %v", sampleID, err)
	}
	hits, genomeFilePath := tools.ExtractSpecies(report)

	toolCtx, cancel = toolContext(ctx, cfg)
	reports, err := tools.RunFastp(toolCtx, r1, r2, sampleDir, sampleID, opts.Threads)
	cancel()
	if err != nil {
		log.Printf("warning: sample %s: %v", sampleID, err)
	}
	reads := tools.ExtractReadMetrics(reports.JSONReport)

	typer := func(dbKey string) (map[string]string, error) {
		tctx, tcancel := toolContext(ctx, cfg)
		defer tcancel()
		dbPrefix := filepath.Join(cfg.DBsPath, dbKey, dbKey)
		return tools.RunStringMLST(tctx, r1, r2, dbPrefix, sampleDir)
	}

	result := qc.Aggregate(sampleID, hits, genomeFilePath, reads, cfg, typer)
	result.KAT = tools.RunKAT(ctx, r1, r2, sampleDir, cfg, opts.Threads)

	// Resistance-gene typing follows the same contamination policy as MLST:
	// a failed species call skips it.
	if result.SpeciesStatus != qc.StatusFailed {
		if key := cfg.AribaDatabaseKey(topSpecies(result)); key != "" {
			tctx, tcancel := toolContext(ctx, cfg)
			_, err := tools.RunAriba(tctx, r1, r2, filepath.Join(cfg.DBsPath, key), filepath.Join(sampleDir, "ariba"))
			tcancel()
			if err != nil {
				log.Printf("warning: sample %s: %v", sampleID, err)
			}
		}
	}

	if accession := genome.ExtractAccession(genomeFilePath); accession != "" {
		result.GenomeFile = accession
		if opts.DownloadGenomes {
			cacheDir := filepath.Join(opts.OutputDir, "reference_genomes")
			local, err := genome.EnsureGenome(ctx, accession, cacheDir)
			if err != nil {
				log.Printf("warning: sample %s: reference genome %s: %v", sampleID, accession, err)
			} else {
				result.GenomeFile = local
			}
		}
	}

	if mon != nil {
		stats := mon.Stop()
		result.Resources = &qc.ResourceUsage{
			ThreadsPeak:  stats.PeakThreads,
			MemoryPeakMB: stats.PeakMemoryMB,
			MemoryAvgMB:  stats.AvgMemoryMB,
			DurationSec:  stats.DurationSec,
		}
	}

	if err := result.WriteSummary(sampleDir, opts.WriteJSON); err != nil {
		return result, err
	}
	return result, nil
}

func topSpecies(r *qc.SampleResult) string {
	if r.Species == "" {
		return ""
	}
	return strings.SplitN(r.Species, ";", 2)[0]
}

func toolContext(ctx context.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	if d := cfg.ToolTimeout(); d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}
