package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RunStringMLST types a read pair against a species allele database and
// returns the parsed result row (column name → value). dbPrefix is the
// stringMLST database prefix; when it names a directory, the prefix is the
// directory joined with its own base name. Stale output from a previous run
// is removed first so a failed run cannot report old results.
func RunStringMLST(ctx context.Context, r1, r2, dbPrefix, outputDir string) (map[string]string, error) {
	outputDir, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("resolving output dir: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir %s: %w", outputDir, err)
	}
	outputFile := filepath.Join(outputDir, "mlst.tsv")
	_ = os.Remove(outputFile)

	if info, err := os.Stat(dbPrefix); err == nil && info.IsDir() {
		abs, err := filepath.Abs(dbPrefix)
		if err != nil {
			return nil, fmt.Errorf("resolving database path: %w", err)
		}
		dbPrefix = filepath.Join(abs, filepath.Base(abs))
	}

	absR1, _ := filepath.Abs(r1)
	absR2, _ := filepath.Abs(r2)
	cmd := command(ctx, lookup("stringMLST.py"),
		"--predict",
		"-P", dbPrefix,
		"-1", absR1,
		"-2", absR2,
		"--output", outputFile,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("running stringMLST: %w: %s", err, strings.TrimSpace(string(out)))
	}

	data, err := os.ReadFile(outputFile)
	if err != nil {
		return nil, fmt.Errorf("stringMLST produced no output file: %w", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) < 2 {
		return nil, fmt.Errorf("no MLST results in %s", outputFile)
	}
	header := strings.Split(strings.TrimSpace(lines[0]), "\t")
	values := strings.Split(strings.TrimSpace(lines[1]), "\t")
	row := make(map[string]string, len(header))
	for i, name := range header {
		if i < len(values) {
			row[name] = values[i]
		}
	}
	return row, nil
}
