package tools

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bactscout/bactscout/internal/config"
	"github.com/bactscout/bactscout/internal/qc"
)

// RunKAT runs the optional k-mer composition side analysis: a k-mer
// frequency histogram and a GC-by-coverage matrix, each parsed into
// metrics plus derived quality flags. Returns nil when KAT is disabled or
// the binary is unavailable; a failed subcommand leaves its metrics at
// zero. The whole analysis runs under the configured KAT timeout.
func RunKAT(ctx context.Context, r1, r2, outputDir string, cfg *config.Config, threads int) *qc.KATMetrics {
	if !cfg.KAT.Enabled {
		return nil
	}
	argv, version := katBinary(ctx)
	if argv == nil {
		log.Printf("warning: kat not available, skipping k-mer analysis")
		return nil
	}

	ctx, cancel := withTimeout(ctx, time.Duration(cfg.KAT.TimeoutMinutes)*time.Minute)
	defer cancel()

	k := cfg.KAT.K
	m := &qc.KATMetrics{K: k, Version: version}

	if cfg.KATHistEnabled() {
		out := filepath.Join(outputDir, fmt.Sprintf("kat_hist_k%d", k))
		if err := runKATSub(ctx, argv, "hist", out, r1, r2, k, threads); err != nil {
			log.Printf("warning: kat hist: %v", err)
		} else {
			parseKATHist(out+".hist.gnuplot", cfg.KAT.Thresholds, m)
		}
	}
	if cfg.KATGCPEnabled() {
		out := filepath.Join(outputDir, fmt.Sprintf("kat_gcp_k%d", k))
		if err := runKATSub(ctx, argv, "gcp", out, r1, r2, k, threads); err != nil {
			log.Printf("warning: kat gcp: %v", err)
		} else {
			parseKATGCP(out+".gcp.gnuplot", cfg.KAT.Thresholds, m)
		}
	}

	computeKATFlags(cfg.KAT.Thresholds, m)
	return m
}

// katBinary locates kat and confirms it answers --version, returning the
// argv prefix and the reported version string.
func katBinary(ctx context.Context) ([]string, string) {
	argv := lookup("kat")
	probe, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	out, err := command(probe, argv, "--version").Output()
	if err != nil {
		return nil, ""
	}
	version := strings.TrimSpace(string(out))
	if version == "" {
		version = "unknown"
	}
	return argv, version
}

func runKATSub(ctx context.Context, argv []string, sub, outputPrefix, r1, r2 string, k, threads int) error {
	cmd := command(ctx, argv, sub,
		"-t", strconv.Itoa(threads),
		"-k", strconv.Itoa(k),
		"-o", outputPrefix,
		r1, r2,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("kat %s: %w: %s", sub, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// parseKATHist extracts k-mer distribution metrics from the histogram:
// one "coverage count" pair per line. Coverage at or below the error
// cutoff is the error region, everything above it the genomic signal.
func parseKATHist(histFile string, t config.KATThresholds, m *qc.KATMetrics) {
	rows := readPairs(histFile)
	if len(rows) == 0 {
		return
	}

	var totalDistinct, totalInstances int64
	for _, row := range rows {
		totalDistinct += row.count
		totalInstances += int64(row.cov) * row.count
	}
	m.TotalKmers = totalDistinct
	m.TotalKmerInstances = totalInstances
	if totalInstances == 0 {
		return
	}

	var errorInstances, singletons int64
	var errorPeak, mainPeak struct {
		cov   int
		count int64
	}
	for _, row := range rows {
		if row.cov == 1 {
			singletons += row.count
		}
		if row.cov <= t.ErrorCovCutoff {
			errorInstances += int64(row.cov) * row.count
			if row.count > errorPeak.count {
				errorPeak.cov, errorPeak.count = row.cov, row.count
			}
		} else if row.count > mainPeak.count {
			mainPeak.cov, mainPeak.count = row.cov, row.count
		}
	}
	m.ErrorPeakCov = float64(errorPeak.cov)
	m.ErrorPeakProp = float64(errorInstances) / float64(totalInstances)
	m.MainPeakCov = float64(mainPeak.cov)
	m.MainPeakHeight = mainPeak.count
	m.UniqueKmersProp = float64(singletons) / float64(totalDistinct)
	m.MeanKmerCov = float64(totalInstances) / float64(totalDistinct)

	sorted := make([]covCount, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].cov < sorted[j].cov })
	var cumulative int64
	target := float64(totalDistinct) / 2
	for _, row := range sorted {
		cumulative += row.count
		if float64(cumulative) >= target {
			m.MedianKmerCov = float64(row.cov)
			break
		}
	}
}

// parseKATGCP extracts contamination indicators from the GC-by-coverage
// matrix: bin occupancy, concentration in the top bin, multi-modality
// (two or more bins past the configured proportion), and the share of
// k-mers at low coverage with extreme GC.
func parseKATGCP(gcpFile string, t config.KATThresholds, m *qc.KATMetrics) {
	f, err := os.Open(gcpFile)
	if err != nil {
		log.Printf("warning: kat gcp output not found: %s", gcpFile)
		return
	}
	defer f.Close()

	type bin struct {
		gc, cov float64
		count   int64
	}
	var bins []bin
	var totalInstances int64

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 3 {
			continue
		}
		gc, err1 := strconv.ParseFloat(parts[0], 64)
		cov, err2 := strconv.ParseFloat(parts[1], 64)
		count, err3 := strconv.ParseInt(parts[2], 10, 64)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		bins = append(bins, bin{gc, cov, count})
		totalInstances += count
	}
	if len(bins) == 0 || totalInstances == 0 {
		return
	}

	m.GCPNumBins = len(bins)

	var maxCount, highBins, lowCovExtremeGC int64
	lowCovCutoff := t.MainCovLow * 0.2
	for _, b := range bins {
		if b.count > maxCount {
			maxCount = b.count
		}
		if float64(b.count)/float64(totalInstances) >= t.GCPMultiModalBinPct {
			highBins++
		}
		if b.cov < lowCovCutoff && (b.gc < 0.25 || b.gc > 0.75) {
			lowCovExtremeGC += b.count
		}
	}
	m.GCPTopBinProp = float64(maxCount) / float64(totalInstances)
	if highBins >= 2 {
		m.GCPMultiModal = 1
	}
	m.GCPLowCovGCPct = float64(lowCovExtremeGC) / float64(totalInstances)
}

func computeKATFlags(t config.KATThresholds, m *qc.KATMetrics) {
	if m.MainPeakCov < t.MainCovLow {
		m.FlagLowCoverage = 1
	}
	if m.ErrorPeakProp > t.ErrorPropWarn {
		m.FlagHighError = 1
	}
	if m.GCPMultiModal == 1 || m.GCPLowCovGCPct > 0.02 {
		m.FlagContamination = 1
	}
}

type covCount struct {
	cov   int
	count int64
}

func readPairs(path string) []covCount {
	f, err := os.Open(path)
	if err != nil {
		log.Printf("warning: kat hist output not found: %s", path)
		return nil
	}
	defer f.Close()

	var rows []covCount
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		cov, err1 := strconv.Atoi(parts[0])
		count, err2 := strconv.ParseInt(parts[1], 10, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		rows = append(rows, covCount{cov, count})
	}
	return rows
}
