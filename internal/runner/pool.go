package runner

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sort"

	"golang.org/x/sync/semaphore"

	"github.com/bactscout/bactscout/internal/config"
	"github.com/bactscout/bactscout/internal/summary"
)

// BatchOptions controls a batch run over an input directory.
type BatchOptions struct {
	InputDir string
	Workers  int
	Sample   SampleOptions

	// Run processes one pair. Nil means RunSample; tests substitute their
	// own to exercise dispatch without the external tools.
	Run func(ctx context.Context, pair ReadPair, cfg *config.Config, opts SampleOptions) error
}

// BatchState is the outcome of a batch run.
type BatchState struct {
	Total     int
	Succeeded []string
	Failed    []string
	Errors    map[string]error
}

type outcome struct {
	sampleID string
	err      error
}

// RunBatch discovers read pairs, processes them on a bounded worker pool,
// and merges the per-sample summaries into final_summary.csv. Each pair
// holds one semaphore slot; failures (including worker panics) are
// recorded per sample and never interrupt the rest of the batch.
func RunBatch(ctx context.Context, cfg *config.Config, opts BatchOptions) (*BatchState, error) {
	pairs, err := DiscoverPairs(opts.InputDir)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no FASTQ file pairs found in %s", opts.InputDir)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	run := opts.Run
	if run == nil {
		run = func(ctx context.Context, pair ReadPair, cfg *config.Config, sampleOpts SampleOptions) error {
			_, err := RunSample(ctx, pair.SampleID, pair.R1, pair.R2, cfg, sampleOpts)
			return err
		}
	}

	fmt.Printf("Found %d sample pairs to process\n", len(pairs))
	fmt.Printf("Using up to %d parallel workers\n", opts.Workers)

	sem := semaphore.NewWeighted(int64(opts.Workers))
	results := make(chan outcome)
	for _, pair := range pairs {
		pair := pair
		go func() {
			if err := sem.Acquire(ctx, 1); err != nil {
				results <- outcome{pair.SampleID, err}
				return
			}
			defer sem.Release(1)
			results <- outcome{pair.SampleID, runGuarded(ctx, run, pair, cfg, opts.Sample)}
		}()
	}

	state := &BatchState{Total: len(pairs), Errors: map[string]error{}}
	for done := 1; done <= len(pairs); done++ {
		out := <-results
		if out.err != nil {
			state.Failed = append(state.Failed, out.sampleID)
			state.Errors[out.sampleID] = out.err
			log.Printf("sample %s failed: %v", out.sampleID, out.err)
		} else {
			state.Succeeded = append(state.Succeeded, out.sampleID)
		}
		fmt.Printf("[%d/%d] %s\n", done, len(pairs), out.sampleID)
	}
	sort.Strings(state.Succeeded)
	sort.Strings(state.Failed)

	fmt.Printf("Total samples processed: %d\n", state.Total)
	fmt.Printf("Successful: %d\n", len(state.Succeeded))
	fmt.Printf("Failed: %d\n", len(state.Failed))

	mergePath := filepath.Join(opts.Sample.OutputDir, "final_summary.csv")
	if err := summary.MergeDir(opts.Sample.OutputDir, mergePath); err != nil {
		return state, fmt.Errorf("merging summaries: %w", err)
	}
	return state, nil
}

// runGuarded converts a worker panic into a per-sample error so one bad
// sample cannot take the batch down.
func runGuarded(ctx context.Context, run func(context.Context, ReadPair, *config.Config, SampleOptions) error, pair ReadPair, cfg *config.Config, opts SampleOptions) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sample worker panic: %v", r)
		}
	}()
	return run(ctx, pair, cfg, opts)
}
