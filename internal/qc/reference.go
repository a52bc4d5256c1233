package qc

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// GenomeMetrics is one species' expected-genome entry from the reference
// metrics table.
type GenomeMetrics struct {
	// GenomeSize is the midpoint of the expected size range; zero when the
	// species has no entry.
	GenomeSize float64
	GCLower    int
	GCUpper    int
}

// LookupGenomeMetrics scans the flat reference table for a species' expected
// genome size and GC range. Lines look like
//
//	Streptococcus_agalactiae,Genome_Size,1900000,2300000
//	Streptococcus_agalactiae,GC_Content,35,37
//
// keyed by the underscored species name. A species without an entry yields
// zero values rather than an error; only an unreadable table is an error.
func LookupGenomeMetrics(metricsFile, species string) (GenomeMetrics, error) {
	var gm GenomeMetrics
	f, err := os.Open(metricsFile)
	if err != nil {
		return gm, fmt.Errorf("opening metrics file %s: %w", metricsFile, err)
	}
	defer f.Close()

	key := strings.NewReplacer(" ", "_", ".", "_").Replace(species)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, key) {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 4 {
			continue
		}
		switch {
		case strings.Contains(line, "Genome_Size"):
			lower, err1 := strconv.Atoi(parts[2])
			upper, err2 := strconv.Atoi(parts[3])
			if err1 == nil && err2 == nil {
				gm.GenomeSize = float64(lower+upper) / 2
			}
		case strings.Contains(line, "GC_Content"):
			lower, err1 := strconv.Atoi(parts[2])
			upper, err2 := strconv.Atoi(parts[3])
			if err1 == nil && err2 == nil {
				gm.GCLower = lower
				gm.GCUpper = upper
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return gm, fmt.Errorf("reading metrics file %s: %w", metricsFile, err)
	}
	return gm, nil
}
