// Package summary consolidates per-sample report files into one CSV.
package summary

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
)

// MergeDir collects every *_summary.csv in dataDir and its immediate
// subdirectories into outputFile, sorted by path. The first readable
// file's header is canonical; files whose header differs are warned about
// and skipped, as are empty or unreadable files. Re-running the merge over
// its own output is safe: the output file is excluded from collection.
func MergeDir(dataDir, outputFile string) error {
	files, err := collectSummaries(dataDir, outputFile)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no summary files found in %s", dataDir)
	}

	var header []string
	var rows [][]string
	for _, path := range files {
		fileHeader, fileRows, err := readSummary(path)
		if err != nil {
			log.Printf("warning: skipping %s: %v", path, err)
			continue
		}
		if header == nil {
			header = fileHeader
		} else if !equalHeader(header, fileHeader) {
			log.Printf("warning: skipping %s: header does not match %s", path, files[0])
			continue
		}
		rows = append(rows, fileRows...)
	}
	if header == nil {
		return fmt.Errorf("no readable summary files in %s", dataDir)
	}

	out, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outputFile, err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing merged header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("writing merged rows: %w", err)
	}
	return nil
}

func collectSummaries(dataDir, outputFile string) ([]string, error) {
	absOutput, err := filepath.Abs(outputFile)
	if err != nil {
		return nil, fmt.Errorf("resolving output path: %w", err)
	}

	patterns := []string{
		filepath.Join(dataDir, "*_summary.csv"),
		filepath.Join(dataDir, "*", "*_summary.csv"),
	}
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("globbing %s: %w", pattern, err)
		}
		for _, m := range matches {
			abs, err := filepath.Abs(m)
			if err != nil || abs == absOutput {
				continue
			}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

func readSummary(path string) (header []string, rows [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return nil, nil, fmt.Errorf("no data rows")
	}
	return records[0], records[1:], nil
}

func equalHeader(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
