package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bactscout/bactscout/internal/qc"
)

// FastpReports holds the file paths fastp produced for one sample.
type FastpReports struct {
	JSONReport string
	HTMLReport string
	LogFile    string
}

// RunFastp runs fastp on a read pair in reporting-only mode: adapter
// detection stays on but trimming and filtering are disabled, so the JSON
// report describes the reads as sequenced. Tool stdout and stderr go to the
// sample's fastp log.
func RunFastp(ctx context.Context, r1, r2, outputDir, sampleName string, threads int) (FastpReports, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return FastpReports{}, fmt.Errorf("creating output dir %s: %w", outputDir, err)
	}
	reports := FastpReports{
		JSONReport: filepath.Join(outputDir, sampleName+".fastp.json"),
		HTMLReport: filepath.Join(outputDir, sampleName+".fastp.html"),
		LogFile:    filepath.Join(outputDir, sampleName+".fastp.log"),
	}

	logFile, err := os.Create(reports.LogFile)
	if err != nil {
		return reports, fmt.Errorf("creating fastp log: %w", err)
	}
	defer logFile.Close()

	cmd := command(ctx, lookup("fastp"),
		"--in1", r1,
		"--in2", r2,
		"--json", reports.JSONReport,
		"--html", reports.HTMLReport,
		"--thread", strconv.Itoa(threads),
		"--detect_adapter_for_pe",
		"--disable_adapter_trimming",
		"--disable_quality_filtering",
		"--disable_length_filtering",
	)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(logFile, "\nERROR: running fastp for %s: %v\n", sampleName, err)
		return reports, fmt.Errorf("running fastp for %s: %w", sampleName, err)
	}
	return reports, nil
}

// fastpReport mirrors the subset of fastp's JSON output the pipeline reads.
type fastpReport struct {
	Summary struct {
		AfterFiltering struct {
			TotalReads      int64   `json:"total_reads"`
			TotalBases      int64   `json:"total_bases"`
			Q20Bases        int64   `json:"q20_bases"`
			Q30Bases        int64   `json:"q30_bases"`
			Q20Rate         float64 `json:"q20_rate"`
			Q30Rate         float64 `json:"q30_rate"`
			Read1MeanLength int     `json:"read1_mean_length"`
			Read2MeanLength int     `json:"read2_mean_length"`
			GCContent       float64 `json:"gc_content"`
		} `json:"after_filtering"`
	} `json:"summary"`
	Duplication struct {
		Rate float64 `json:"rate"`
	} `json:"duplication"`
	FilteringResult struct {
		TotalReads int64 `json:"total_reads"`
		TooManyN   int64 `json:"too_many_N"`
	} `json:"filtering_result"`
	Read1BeforeFiltering struct {
		OverrepresentedSequences map[string]int64 `json:"overrepresented_sequences"`
	} `json:"read1_before_filtering"`
}

// ExtractReadMetrics parses a fastp JSON report into read metrics. Any
// read or parse failure yields the zero metrics, which downstream
// evaluation reports as "no reads processed".
func ExtractReadMetrics(jsonPath string) qc.ReadMetrics {
	var m qc.ReadMetrics

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return m
	}
	var report fastpReport
	if err := json.Unmarshal(data, &report); err != nil {
		return m
	}

	af := report.Summary.AfterFiltering
	m.TotalReads = af.TotalReads
	m.TotalBases = af.TotalBases
	m.Q20Bases = af.Q20Bases
	m.Q30Bases = af.Q30Bases
	m.Q20Rate = af.Q20Rate
	m.Q30Rate = af.Q30Rate
	m.Read1MeanLength = af.Read1MeanLength
	m.Read2MeanLength = af.Read2MeanLength
	m.GCContent = math.Round(af.GCContent*100*10000) / 10000

	m.DuplicationRate = report.Duplication.Rate
	if report.FilteringResult.TotalReads > 0 {
		m.NContentRate = float64(report.FilteringResult.TooManyN) / float64(report.FilteringResult.TotalReads) * 100
	}
	m.OverrepCount = len(report.Read1BeforeFiltering.OverrepresentedSequences)
	return m
}
