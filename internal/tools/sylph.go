package tools

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/bactscout/bactscout/internal/qc"
)

// RunSylph profiles a read pair against the sylph species database.
// The report goes to sylph_report.txt in the sample directory and tool
// diagnostics to sylph_errors.log. Returns the report path; a non-zero
// exit is returned as an error alongside it, since an empty report still
// parses to "no species detected".
func RunSylph(ctx context.Context, r1, r2, outputDir, databasePath string, threads int) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir %s: %w", outputDir, err)
	}
	reportPath := filepath.Join(outputDir, "sylph_report.txt")
	errorsPath := filepath.Join(outputDir, "sylph_errors.log")

	report, err := os.Create(reportPath)
	if err != nil {
		return "", fmt.Errorf("creating sylph report: %w", err)
	}
	defer report.Close()
	errLog, err := os.Create(errorsPath)
	if err != nil {
		return "", fmt.Errorf("creating sylph error log: %w", err)
	}
	defer errLog.Close()

	cmd := command(ctx, lookup("sylph"),
		"profile", databasePath,
		"-u",
		"-1", r1,
		"-2", r2,
		"-t", strconv.Itoa(threads),
	)
	cmd.Stdout = report
	cmd.Stderr = errLog
	if err := cmd.Run(); err != nil {
		return reportPath, fmt.Errorf("running sylph: %w", err)
	}
	return reportPath, nil
}

// ExtractSpecies parses a sylph profile report into species hits sorted by
// descending abundance, plus the reference genome path of the top hit.
// Species names are the genus and species words of the contig description
// column. A missing report yields no hits and no error.
func ExtractSpecies(reportPath string) (hits []qc.SpeciesHit, genomeFilePath string) {
	f, err := os.Open(reportPath)
	if err != nil {
		return nil, ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if first {
			first = false
			continue
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) > 1 && genomeFilePath == "" {
			genomeFilePath = parts[1]
		}
		if len(parts) <= 14 {
			continue
		}
		words := strings.Fields(parts[14])
		if len(words) < 3 {
			continue
		}
		hit := qc.SpeciesHit{Name: words[1] + " " + words[2]}
		if v, err := cast.ToFloat64E(strings.TrimSpace(parts[3])); err == nil {
			hit.Abundance = v
		}
		if v, err := cast.ToFloat64E(strings.TrimSpace(parts[5])); err == nil {
			hit.Coverage = v
		}
		hits = append(hits, hit)
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Abundance > hits[j].Abundance })
	return hits, genomeFilePath
}
