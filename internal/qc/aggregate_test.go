package qc_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bactscout/bactscout/internal/config"
	"github.com/bactscout/bactscout/internal/qc"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	metricsFile := filepath.Join(t.TempDir(), "species_metrics.csv")
	table := "Escherichia_coli,Genome_Size,4500000,5500000\n" +
		"Escherichia_coli,GC_Content,50,51\n" +
		"Streptococcus_agalactiae,Genome_Size,1900000,2300000\n" +
		"Streptococcus_agalactiae,GC_Content,35,37\n"
	if err := os.WriteFile(metricsFile, []byte(table), 0o644); err != nil {
		t.Fatal(err)
	}
	return &config.Config{
		DBsPath:     t.TempDir(),
		MetricsFile: metricsFile,
		MLSTSpecies: map[string]string{"escherichia_coli": "Escherichia coli"},
		Thresholds: config.Thresholds{
			Q30:            config.Tier{Warn: 0.70, Fail: 0.60},
			ReadLength:     config.Tier{Warn: 75, Fail: 100},
			Duplication:    config.Tier{Warn: 0.20, Fail: 0.30},
			Coverage:       config.Tier{Warn: 20, Fail: 30},
			Contamination:  config.Tier{Warn: 5, Fail: 10},
			NContent:       0.001,
			AdapterOverrep: 5,
			GCTolerance:    0.05,
		},
	}
}

func goodReads() qc.ReadMetrics {
	return qc.ReadMetrics{
		TotalReads:      2000000,
		TotalBases:      300000000,
		Q30Bases:        280000000,
		Q30Rate:         0.93,
		Read1MeanLength: 150,
		Read2MeanLength: 148,
		GCContent:       50.5,
		DuplicationRate: 0.08,
		NContentRate:    0.0,
	}
}

func TestAggregateCleanSample(t *testing.T) {
	cfg := testConfig(t)
	hits := []qc.SpeciesHit{{Name: "Escherichia coli", Abundance: 99.2, Coverage: 42.0}}

	var typedKey string
	typer := func(dbKey string) (map[string]string, error) {
		typedKey = dbKey
		return map[string]string{"Sample": "sample1", "ST": "131"}, nil
	}

	r := qc.Aggregate("sample1", hits, "GCF_000005845.2_genomic.fna.gz", goodReads(), cfg, typer)

	if r.FinalStatus != qc.StatusPassed {
		t.Errorf("final status = %s, want PASSED", r.FinalStatus)
	}
	if typedKey != "escherichia_coli" {
		t.Errorf("typer called with %q, want escherichia_coli", typedKey)
	}
	if r.Species != "Escherichia coli" {
		t.Errorf("species = %q", r.Species)
	}
	if r.SpeciesStatus != qc.StatusPassed || r.SpeciesMessage != "Single species detected." {
		t.Errorf("species status %s message %q", r.SpeciesStatus, r.SpeciesMessage)
	}
	if r.CoverageStatus != qc.StatusPassed {
		t.Errorf("coverage status = %s, want PASSED", r.CoverageStatus)
	}
	if r.CoverageEstimate != 42.0 {
		t.Errorf("coverage estimate = %v", r.CoverageEstimate)
	}
	// 300 Mbp over a 5 Mbp genome midpoint.
	if r.CoverageAltEstimate != 60.0 {
		t.Errorf("alt coverage estimate = %v, want 60", r.CoverageAltEstimate)
	}
	if r.GenomeSizeExpected != 5000000 {
		t.Errorf("genome size = %v, want 5000000", r.GenomeSizeExpected)
	}
	if r.GCContentStatus != qc.StatusPassed {
		t.Errorf("gc status = %s (gc=%v bounds %d-%d)", r.GCContentStatus, r.GCContent, r.GCContentLower, r.GCContentUpper)
	}
	if r.MLSTST != "131" || r.MLSTStatus != qc.StatusPassed {
		t.Errorf("mlst = %q/%s, want 131/PASSED", r.MLSTST, r.MLSTStatus)
	}
	if r.GenomeFilePath != "GCF_000005845.2_genomic.fna.gz" {
		t.Errorf("genome file path = %q", r.GenomeFilePath)
	}
}

func TestAggregateContaminatedSampleSkipsTyping(t *testing.T) {
	cfg := testConfig(t)
	hits := []qc.SpeciesHit{
		{Name: "Escherichia coli", Abundance: 85, Coverage: 10},
		{Name: "Staphylococcus aureus", Abundance: 15, Coverage: 1},
	}

	typerCalled := false
	typer := func(string) (map[string]string, error) {
		typerCalled = true
		return nil, nil
	}

	r := qc.Aggregate("sample2", hits, "", goodReads(), cfg, typer)

	if typerCalled {
		t.Error("typer invoked for a contaminated sample")
	}
	if r.SpeciesStatus != qc.StatusFailed {
		t.Errorf("species status = %s, want FAILED", r.SpeciesStatus)
	}
	if !strings.Contains(r.SpeciesMessage, "Skipping MLST") {
		t.Errorf("species message = %q", r.SpeciesMessage)
	}
	if !strings.Contains(r.SpeciesMessage, "15.00%") {
		t.Errorf("species message should carry the non-top abundance: %q", r.SpeciesMessage)
	}
	// Purity 85% is below the fail bound, so contamination is critical.
	if r.ContaminationStatus != qc.StatusFailed {
		t.Errorf("contamination status = %s, want FAILED", r.ContaminationStatus)
	}
	if r.FinalStatus != qc.StatusFailed {
		t.Errorf("final status = %s, want FAILED", r.FinalStatus)
	}
}

func TestAggregateUnsortedHits(t *testing.T) {
	cfg := testConfig(t)
	// Minor species listed first; the aggregator must still treat the
	// 85% hit as top for the contamination gate and the species strings.
	hits := []qc.SpeciesHit{
		{Name: "Staphylococcus aureus", Abundance: 15, Coverage: 1},
		{Name: "Escherichia coli", Abundance: 85, Coverage: 10},
	}

	typerCalled := false
	typer := func(string) (map[string]string, error) {
		typerCalled = true
		return nil, nil
	}

	r := qc.Aggregate("sample6", hits, "", goodReads(), cfg, typer)

	if typerCalled {
		t.Error("typer invoked for a contaminated sample")
	}
	if r.Species != "Escherichia coli;Staphylococcus aureus" {
		t.Errorf("species list = %q", r.Species)
	}
	if !strings.Contains(r.SpeciesMessage, "15.00%") {
		t.Errorf("non-top abundance should be 15%%: %q", r.SpeciesMessage)
	}
	if r.CoverageEstimate != 10 {
		t.Errorf("coverage estimate = %v, want the top hit's 10", r.CoverageEstimate)
	}
}

func TestAggregateNoSpecies(t *testing.T) {
	cfg := testConfig(t)
	typer := func(string) (map[string]string, error) {
		t.Fatal("typer must not run without species")
		return nil, nil
	}

	r := qc.Aggregate("sample3", nil, "", goodReads(), cfg, typer)

	if r.SpeciesStatus != qc.StatusFailed || r.SpeciesMessage != "No species detected." {
		t.Errorf("species = %s %q", r.SpeciesStatus, r.SpeciesMessage)
	}
	if r.CoverageStatus != qc.StatusFailed {
		t.Errorf("coverage status = %s, want FAILED", r.CoverageStatus)
	}
	if r.ContaminationStatus != qc.StatusFailed {
		t.Errorf("contamination status = %s, want FAILED", r.ContaminationStatus)
	}
	if r.FinalStatus != qc.StatusFailed {
		t.Errorf("final status = %s, want FAILED", r.FinalStatus)
	}
}

func TestAggregateZeroReads(t *testing.T) {
	cfg := testConfig(t)
	r := qc.Aggregate("sample4", nil, "", qc.ReadMetrics{}, cfg, nil)

	for name, status := range map[string]qc.Status{
		"q30":         r.ReadQ30Status,
		"read length": r.ReadLengthStatus,
		"duplication": r.DuplicationStatus,
		"n-content":   r.NContentStatus,
		"adapter":     r.AdapterDetectionStatus,
		"species":     r.SpeciesStatus,
		"coverage":    r.CoverageStatus,
	} {
		if status != qc.StatusFailed {
			t.Errorf("%s = %s, want FAILED for zero observations", name, status)
		}
	}
	if r.FinalStatus != qc.StatusFailed {
		t.Errorf("final status = %s, want FAILED", r.FinalStatus)
	}
}

func TestAggregateMultipleSpeciesBelowGate(t *testing.T) {
	cfg := testConfig(t)
	hits := []qc.SpeciesHit{
		{Name: "Escherichia coli", Abundance: 94, Coverage: 40},
		{Name: "Staphylococcus aureus", Abundance: 6, Coverage: 2},
	}
	typer := func(string) (map[string]string, error) {
		return map[string]string{"ST": "10"}, nil
	}

	r := qc.Aggregate("sample5", hits, "", goodReads(), cfg, typer)

	if r.SpeciesStatus != qc.StatusWarning {
		t.Errorf("species status = %s, want WARNING", r.SpeciesStatus)
	}
	if r.Species != "Escherichia coli;Staphylococcus aureus" {
		t.Errorf("species list = %q", r.Species)
	}
	if r.MLSTStatus != qc.StatusPassed {
		t.Errorf("mlst status = %s, want PASSED (typing still runs below the gate)", r.MLSTStatus)
	}
	if !strings.Contains(r.CoverageAltMessage, "Multiple species detected") {
		t.Errorf("alt coverage message should warn about multiple species: %q", r.CoverageAltMessage)
	}
	if r.FinalStatus != qc.StatusWarning {
		t.Errorf("final status = %s, want WARNING", r.FinalStatus)
	}
}

func TestAggregateMLSTFallbacks(t *testing.T) {
	cfg := testConfig(t)
	hits := []qc.SpeciesHit{{Name: "Streptococcus agalactiae", Abundance: 99, Coverage: 40}}

	// No database mapping for the species.
	r := qc.Aggregate("s", hits, "", goodReads(), cfg, nil)
	if r.MLSTStatus != qc.StatusWarning || !strings.Contains(r.MLSTMessage, "No MLST database found") {
		t.Errorf("missing db: %s %q", r.MLSTStatus, r.MLSTMessage)
	}

	// Typer failure degrades to a warning.
	cfg.MLSTSpecies["streptococcus_agalactiae"] = "Streptococcus agalactiae"
	r = qc.Aggregate("s", hits, "", goodReads(), cfg, func(string) (map[string]string, error) {
		return nil, fmt.Errorf("tool crashed")
	})
	if r.MLSTStatus != qc.StatusWarning || !strings.Contains(r.MLSTMessage, "MLST analysis failed") {
		t.Errorf("typer error: %s %q", r.MLSTStatus, r.MLSTMessage)
	}
}
