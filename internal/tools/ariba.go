package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AribaReports locates the outputs of one resistance-gene typing run.
type AribaReports struct {
	OutputDir      string
	Report         string
	AssembledGenes string
	AssembledSeqs  string
	LogFile        string
}

// RunAriba types a read pair against a prepared ariba reference database.
// ariba refuses an existing output directory, so any directory left by a
// previous run is removed first.
func RunAriba(ctx context.Context, r1, r2, databaseDir, outputDir string) (*AribaReports, error) {
	if err := os.RemoveAll(outputDir); err != nil {
		return nil, fmt.Errorf("clearing ariba output dir %s: %w", outputDir, err)
	}

	cmd := command(ctx, lookup("ariba"), "run", databaseDir, r1, r2, outputDir)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("running ariba: %w: %s", err, strings.TrimSpace(string(out)))
	}

	return &AribaReports{
		OutputDir:      outputDir,
		Report:         filepath.Join(outputDir, "report.tsv"),
		AssembledGenes: filepath.Join(outputDir, "assembled_genes.fa.gz"),
		AssembledSeqs:  filepath.Join(outputDir, "assembled_seqs.fa.gz"),
		LogFile:        filepath.Join(outputDir, "log.txt"),
	}, nil
}

// FetchPubMLST downloads and formats a pubMLST scheme into destDir via
// `ariba pubmlstget`. destDir must not exist; a partial database from an
// interrupted fetch is removed before retrying.
func FetchPubMLST(ctx context.Context, scheme, destDir string) error {
	destDir, err := filepath.Abs(destDir)
	if err != nil {
		return fmt.Errorf("resolving database dir: %w", err)
	}
	if err := os.RemoveAll(destDir); err != nil {
		return fmt.Errorf("clearing partial database %s: %w", destDir, err)
	}

	cmd := command(ctx, lookup("ariba"), "pubmlstget", scheme, destDir)
	cmd.Dir = filepath.Dir(destDir)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("fetching pubMLST scheme %q: %w: %s", scheme, err, strings.TrimSpace(string(out)))
	}
	return nil
}
