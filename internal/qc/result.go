package qc

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
)

// Status is a per-metric (and final) QC determination.
type Status string

const (
	StatusPassed  Status = "PASSED"
	StatusWarning Status = "WARNING"
	StatusFailed  Status = "FAILED"
)

// SampleResult is the complete per-sample QC record. Every metric carries a
// value, a status, and a message; the blank record defaults every status to
// its worst case so that absent data is always reported as FAILED rather
// than left unset.
type SampleResult struct {
	SampleID    string `json:"sample_id"`
	FinalStatus Status `json:"a_final_status"`

	ReadTotalReads int64   `json:"read_total_reads"`
	ReadTotalBases int64   `json:"read_total_bases"`
	ReadQ20Bases   int64   `json:"read_q20_bases"`
	ReadQ30Bases   int64   `json:"read_q30_bases"`
	ReadQ20Rate    float64 `json:"read_q20_rate"`
	ReadQ30Rate    float64 `json:"read_q30_rate"`
	ReadQ30Status  Status  `json:"read_q30_status"`
	ReadQ30Message string  `json:"read_q30_message"`

	Read1MeanLength   int    `json:"read1_mean_length"`
	Read2MeanLength   int    `json:"read2_mean_length"`
	ReadLengthStatus  Status `json:"read_length_status"`
	ReadLengthMessage string `json:"read_length_message"`

	DuplicationRate    float64 `json:"duplication_rate"`
	DuplicationStatus  Status  `json:"duplication_status"`
	DuplicationMessage string  `json:"duplication_message"`

	NContentRate    float64 `json:"n_content_rate"`
	NContentStatus  Status  `json:"n_content_status"`
	NContentMessage string  `json:"n_content_message"`

	AdapterDetectionStatus  Status `json:"adapter_detection_status"`
	AdapterDetectionMessage string `json:"adapter_detection_message"`

	Species          string `json:"species"`
	SpeciesAbundance string `json:"species_abundance"`
	SpeciesCoverage  string `json:"species_coverage"`
	SpeciesStatus    Status `json:"species_status"`
	SpeciesMessage   string `json:"species_message"`

	ContaminationStatus  Status `json:"contamination_status"`
	ContaminationMessage string `json:"contamination_message"`

	CoverageEstimate float64 `json:"coverage_estimate"`
	CoverageStatus   Status  `json:"coverage_status"`
	CoverageMessage  string  `json:"coverage_message"`

	CoverageAltEstimate float64 `json:"coverage_alt_estimate"`
	CoverageAltStatus   Status  `json:"coverage_alt_status"`
	CoverageAltMessage  string  `json:"coverage_alt_message"`

	GenomeSizeExpected float64 `json:"genome_size_expected"`
	GCContent          float64 `json:"gc_content"`
	GCContentLower     int     `json:"gc_content_lower"`
	GCContentUpper     int     `json:"gc_content_upper"`
	GCContentStatus    Status  `json:"gc_content_status"`
	GCContentMessage   string  `json:"gc_content_message"`

	// MLSTST is the sequence type as reported by the typer; empty means
	// undetermined.
	MLSTST      string `json:"mlst_st"`
	MLSTStatus  Status `json:"mlst_status"`
	MLSTMessage string `json:"mlst_message"`

	GenomeFilePath string `json:"genome_file_path"`
	GenomeFile     string `json:"genome_file"`

	Resources *ResourceUsage `json:"resources,omitempty"`
	KAT       *KATMetrics    `json:"kat,omitempty"`
}

// ResourceUsage holds optional per-sample resource accounting.
type ResourceUsage struct {
	ThreadsPeak  int     `json:"resource_threads_peak"`
	MemoryPeakMB float64 `json:"resource_memory_peak_mb"`
	MemoryAvgMB  float64 `json:"resource_memory_avg_mb"`
	DurationSec  float64 `json:"resource_duration_sec"`
}

// KATMetrics holds k-mer composition metrics from the optional KAT side
// analysis.
type KATMetrics struct {
	TotalKmers         int64   `json:"kat_total_kmers"`
	TotalKmerInstances int64   `json:"kat_total_kmer_instances"`
	ErrorPeakCov       float64 `json:"kat_error_peak_cov"`
	ErrorPeakProp      float64 `json:"kat_error_peak_prop"`
	MainPeakCov        float64 `json:"kat_main_peak_cov"`
	MainPeakHeight     int64   `json:"kat_main_peak_height"`
	UniqueKmersProp    float64 `json:"kat_unique_kmers_prop"`
	MedianKmerCov      float64 `json:"kat_median_kmer_cov"`
	MeanKmerCov        float64 `json:"kat_mean_kmer_cov"`

	GCPNumBins     int     `json:"kat_gcp_num_bins"`
	GCPTopBinProp  float64 `json:"kat_gcp_top_bin_prop"`
	GCPMultiModal  int     `json:"kat_gcp_multi_modal"`
	GCPLowCovGCPct float64 `json:"kat_gcp_lowcov_gc_prop"`

	FlagLowCoverage   int `json:"kat_flag_low_coverage"`
	FlagHighError     int `json:"kat_flag_high_error"`
	FlagContamination int `json:"kat_flag_contamination"`

	K       int    `json:"kat_k"`
	Version string `json:"kat_version"`
}

// NewSampleResult returns the blank record for a sample: every metric in its
// failure state with a "no reads processed" message, sequence typing at
// WARNING. Aggregation overwrites fields as data becomes available.
func NewSampleResult(sampleID string) *SampleResult {
	return &SampleResult{
		SampleID:    sampleID,
		FinalStatus: StatusFailed,

		ReadQ30Status:  StatusFailed,
		ReadQ30Message: "No reads processed. Cannot determine quality metrics.",

		ReadLengthStatus:  StatusFailed,
		ReadLengthMessage: "No reads processed. Cannot determine read lengths.",

		DuplicationStatus:  StatusFailed,
		DuplicationMessage: "No reads processed. Cannot determine duplication rate.",

		NContentStatus:  StatusFailed,
		NContentMessage: "No reads processed. Cannot determine N-content.",

		AdapterDetectionStatus:  StatusFailed,
		AdapterDetectionMessage: "No reads processed. Cannot verify adapter detection.",

		SpeciesStatus:  StatusFailed,
		SpeciesMessage: "No reads processed. Cannot determine species.",

		ContaminationStatus:  StatusFailed,
		ContaminationMessage: "No reads processed. Cannot determine contamination.",

		CoverageStatus:  StatusFailed,
		CoverageMessage: "No reads processed. Cannot estimate genome size or coverage.",

		CoverageAltStatus:  StatusFailed,
		CoverageAltMessage: "No reads processed. Cannot estimate alternative coverage.",

		GCContentStatus:  StatusFailed,
		GCContentMessage: "No reads processed. Cannot determine expected GC content range.",

		MLSTStatus:  StatusWarning,
		MLSTMessage: "Cannot determine MLST.",
	}
}

// Columns returns the report header and value row in the preferred column
// order: identity, final verdict, then metric families. Optional resource
// and KAT columns are appended only when present.
func (r *SampleResult) Columns() (header, row []string) {
	add := func(name, value string) {
		header = append(header, name)
		row = append(row, value)
	}

	add("sample_id", r.SampleID)
	add("a_final_status", string(r.FinalStatus))

	add("read_total_reads", strconv.FormatInt(r.ReadTotalReads, 10))
	add("read_total_bases", strconv.FormatInt(r.ReadTotalBases, 10))
	add("read_q20_bases", strconv.FormatInt(r.ReadQ20Bases, 10))
	add("read_q30_bases", strconv.FormatInt(r.ReadQ30Bases, 10))
	add("read_q20_rate", ftoa(r.ReadQ20Rate))
	add("read_q30_rate", ftoa(r.ReadQ30Rate))
	add("read_q30_status", string(r.ReadQ30Status))
	add("read_q30_message", r.ReadQ30Message)

	add("read1_mean_length", strconv.Itoa(r.Read1MeanLength))
	add("read2_mean_length", strconv.Itoa(r.Read2MeanLength))
	add("read_length_status", string(r.ReadLengthStatus))
	add("read_length_message", r.ReadLengthMessage)

	add("duplication_rate", ftoa(r.DuplicationRate))
	add("duplication_status", string(r.DuplicationStatus))
	add("duplication_message", r.DuplicationMessage)

	add("n_content_rate", ftoa(r.NContentRate))
	add("n_content_status", string(r.NContentStatus))
	add("n_content_message", r.NContentMessage)

	add("adapter_detection_status", string(r.AdapterDetectionStatus))
	add("adapter_detection_message", r.AdapterDetectionMessage)

	add("species", r.Species)
	add("species_abundance", r.SpeciesAbundance)
	add("species_coverage", r.SpeciesCoverage)
	add("species_status", string(r.SpeciesStatus))
	add("species_message", r.SpeciesMessage)

	add("contamination_status", string(r.ContaminationStatus))
	add("contamination_message", r.ContaminationMessage)

	add("coverage_estimate", ftoa(r.CoverageEstimate))
	add("coverage_status", string(r.CoverageStatus))
	add("coverage_message", r.CoverageMessage)

	add("coverage_alt_estimate", ftoa(r.CoverageAltEstimate))
	add("coverage_alt_status", string(r.CoverageAltStatus))
	add("coverage_alt_message", r.CoverageAltMessage)

	add("genome_size_expected", ftoa(r.GenomeSizeExpected))
	add("gc_content", ftoa(r.GCContent))
	add("gc_content_lower", strconv.Itoa(r.GCContentLower))
	add("gc_content_upper", strconv.Itoa(r.GCContentUpper))
	add("gc_content_status", string(r.GCContentStatus))
	add("gc_content_message", r.GCContentMessage)

	add("mlst_st", r.MLSTST)
	add("mlst_status", string(r.MLSTStatus))
	add("mlst_message", r.MLSTMessage)

	add("genome_file_path", r.GenomeFilePath)
	add("genome_file", r.GenomeFile)

	if r.Resources != nil {
		add("resource_threads_peak", strconv.Itoa(r.Resources.ThreadsPeak))
		add("resource_memory_peak_mb", ftoa(r.Resources.MemoryPeakMB))
		add("resource_memory_avg_mb", ftoa(r.Resources.MemoryAvgMB))
		add("resource_duration_sec", ftoa(r.Resources.DurationSec))
	}
	if r.KAT != nil {
		k := r.KAT
		add("kat_total_kmers", strconv.FormatInt(k.TotalKmers, 10))
		add("kat_total_kmer_instances", strconv.FormatInt(k.TotalKmerInstances, 10))
		add("kat_error_peak_cov", ftoa(k.ErrorPeakCov))
		add("kat_error_peak_prop", ftoa(k.ErrorPeakProp))
		add("kat_main_peak_cov", ftoa(k.MainPeakCov))
		add("kat_main_peak_height", strconv.FormatInt(k.MainPeakHeight, 10))
		add("kat_unique_kmers_prop", ftoa(k.UniqueKmersProp))
		add("kat_median_kmer_cov", ftoa(k.MedianKmerCov))
		add("kat_mean_kmer_cov", ftoa(k.MeanKmerCov))
		add("kat_gcp_num_bins", strconv.Itoa(k.GCPNumBins))
		add("kat_gcp_top_bin_prop", ftoa(k.GCPTopBinProp))
		add("kat_gcp_multi_modal", strconv.Itoa(k.GCPMultiModal))
		add("kat_gcp_lowcov_gc_prop", ftoa(k.GCPLowCovGCPct))
		add("kat_flag_low_coverage", strconv.Itoa(k.FlagLowCoverage))
		add("kat_flag_high_error", strconv.Itoa(k.FlagHighError))
		add("kat_flag_contamination", strconv.Itoa(k.FlagContamination))
		add("kat_k", strconv.Itoa(k.K))
		add("kat_version", k.Version)
	}
	return header, row
}

// WriteSummary persists the per-sample report: <sample_id>_summary.csv with
// a header row and exactly one data row, plus an optional JSON mirror.
func (r *SampleResult) WriteSummary(sampleDir string, writeJSON bool) error {
	csvPath := filepath.Join(sampleDir, r.SampleID+"_summary.csv")
	f, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("creating summary %s: %w", csvPath, err)
	}
	defer f.Close()

	header, row := r.Columns()
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing summary header: %w", err)
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("writing summary row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing summary %s: %w", csvPath, err)
	}

	if writeJSON {
		jsonPath := filepath.Join(sampleDir, r.SampleID+"_summary.json")
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling summary: %w", err)
		}
		if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
			// The CSV already exists; the mirror is best-effort.
			log.Printf("warning: writing JSON summary %s: %v", jsonPath, err)
		}
	}
	return nil
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
