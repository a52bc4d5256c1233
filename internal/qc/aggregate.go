package qc

import (
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"github.com/bactscout/bactscout/internal/config"
)

// Typer runs sequence typing against a species database key and returns the
// parsed result row (column name → value). Implementations wrap the external
// typing tool; the aggregator only sees the row.
type Typer func(dbKey string) (map[string]string, error)

// Aggregate builds the complete SampleResult from the extracted tool
// outputs. Evaluation order is fixed: read metrics, species and coverage,
// genome-size and GC evaluation for the top species, the contamination gate,
// sequence typing, and finally the overall verdict. A failed step degrades
// its own metrics and the sequence continues.
func Aggregate(sampleID string, hits []SpeciesHit, genomeFilePath string, reads ReadMetrics, cfg *config.Config, typer Typer) *SampleResult {
	r := NewSampleResult(sampleID)
	r.GenomeFilePath = genomeFilePath

	// Sorted once here; every later step takes "top" to mean hits[0].
	sorted := make([]SpeciesHit, len(hits))
	copy(sorted, hits)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Abundance > sorted[j].Abundance })

	applyReadMetrics(r, reads, cfg.Thresholds)
	species := applySpecies(r, sorted, cfg.Thresholds)
	if len(species) > 0 {
		applyGenomeSize(r, species, reads, cfg)
	}

	// Contamination gate: when the combined non-top abundance is past the
	// fail threshold, typing a sample is unreliable and is skipped.
	notContaminated := true
	hasMultiple := len(sorted) > 1
	if hasMultiple {
		var nonTop float64
		for _, h := range sorted[1:] {
			nonTop += h.Abundance
		}
		if nonTop > cfg.Thresholds.Contamination.Fail {
			r.SpeciesStatus = StatusFailed
			r.SpeciesMessage = fmt.Sprintf("Multiple species detected with significant abundance (%.2f%%). Skipping MLST.", nonTop)
			notContaminated = false
		}
	}

	switch {
	case len(species) == 0:
		if r.SpeciesMessage == "" {
			r.SpeciesMessage = "No species detected."
		}
		r.SpeciesStatus = StatusFailed
	case notContaminated:
		if hasMultiple {
			r.SpeciesStatus = StatusWarning
			r.SpeciesMessage = "Multiple species detected. Using the top species for MLST."
		} else {
			r.SpeciesStatus = StatusPassed
			r.SpeciesMessage = "Single species detected."
		}
		applyTyping(r, species[0], cfg, typer)
	default:
		r.SpeciesStatus = StatusFailed
	}

	r.FinalStatus = FinalStatus(r)
	return r
}

func applyReadMetrics(r *SampleResult, m ReadMetrics, t config.Thresholds) {
	r.ReadTotalReads = m.TotalReads
	r.ReadTotalBases = m.TotalBases
	r.ReadQ20Bases = m.Q20Bases
	r.ReadQ30Bases = m.Q30Bases
	r.ReadQ20Rate = m.Q20Rate
	r.ReadQ30Rate = m.Q30Rate
	r.Read1MeanLength = m.Read1MeanLength
	r.Read2MeanLength = m.Read2MeanLength
	r.GCContent = m.GCContent
	r.DuplicationRate = m.DuplicationRate
	r.NContentRate = m.NContentRate

	r.ReadQ30Status, r.ReadQ30Message = EvaluateQ30(m.TotalReads, m.Q30Rate, t.Q30)
	r.ReadLengthStatus, r.ReadLengthMessage = EvaluateReadLength(m.TotalReads, m.Read1MeanLength, m.Read2MeanLength, t.ReadLength)
	r.DuplicationStatus, r.DuplicationMessage = EvaluateDuplication(m.TotalReads, m.DuplicationRate, t.Duplication)
	r.NContentStatus, r.NContentMessage = EvaluateNContent(m.TotalReads, m.NContentRate, t.NContent)
	r.AdapterDetectionStatus, r.AdapterDetectionMessage = EvaluateAdapter(m.TotalReads, m.OverrepCount, t.AdapterOverrep)
}

// applySpecies records the profiler's species list and evaluates the
// tool-reported coverage estimate and contamination for the top hit.
// hits must already be sorted by descending abundance. Returns the
// detected species names in that order.
func applySpecies(r *SampleResult, hits []SpeciesHit, t config.Thresholds) []string {
	if len(hits) == 0 {
		r.CoverageStatus = StatusFailed
		r.CoverageMessage = "No species detected. Cannot estimate genome size or coverage."
		r.GCContentMessage = "No species detected. Cannot determine expected GC content range."
		r.ContaminationStatus = StatusFailed
		r.SpeciesStatus = StatusFailed
		r.SpeciesMessage = "No species detected."
		return nil
	}

	names := make([]string, len(hits))
	abundances := make([]string, len(hits))
	coverages := make([]string, len(hits))
	for i, h := range hits {
		names[i] = h.Name
		abundances[i] = ftoa(h.Abundance)
		coverages[i] = ftoa(h.Coverage)
	}
	r.Species = strings.Join(names, ";")
	r.SpeciesAbundance = strings.Join(abundances, ";")
	r.SpeciesCoverage = strings.Join(coverages, ";")

	if len(hits) == 1 {
		r.SpeciesStatus = StatusPassed
		r.SpeciesMessage = ""
	} else {
		r.SpeciesStatus = StatusWarning
		r.SpeciesMessage = "Multiple species detected. Using the top species for genome size and coverage estimation."
	}

	top := hits[0]
	r.CoverageEstimate = round2(top.Coverage)
	switch {
	case top.Coverage >= t.Coverage.Fail:
		r.CoverageStatus = StatusPassed
		r.CoverageMessage = fmt.Sprintf("Top species %s with coverage %.2fx meets the threshold of %gx.", top.Name, top.Coverage, t.Coverage.Fail)
	case top.Coverage >= t.Coverage.Warn:
		r.CoverageStatus = StatusWarning
		r.CoverageMessage = fmt.Sprintf("Top species %s with coverage %.2fx falls between warning (%gx) and fail (%gx) thresholds.", top.Name, top.Coverage, t.Coverage.Warn, t.Coverage.Fail)
	default:
		r.CoverageStatus = StatusFailed
		r.CoverageMessage = fmt.Sprintf("Top species %s with coverage %.2fx falls below warning threshold (%gx).", top.Name, top.Coverage, t.Coverage.Warn)
	}

	r.ContaminationStatus, r.ContaminationMessage = EvaluateContamination(top, t.Contamination)
	return names
}

// applyGenomeSize computes the second, independent coverage estimate
// (total bases over the expected genome size of the top species) and the
// GC-range evaluation from the reference table.
func applyGenomeSize(r *SampleResult, species []string, m ReadMetrics, cfg *config.Config) {
	warning := ""
	if len(species) > 1 {
		warning = "Warning: Multiple species detected. Using the top species."
	}

	gm, err := LookupGenomeMetrics(cfg.MetricsFile, species[0])
	if err != nil {
		log.Printf("warning: genome metrics lookup for %s: %v", species[0], err)
	}

	var estimated float64
	if gm.GenomeSize > 0 && m.TotalBases > 0 {
		estimated = float64(m.TotalBases) / gm.GenomeSize
	}
	r.CoverageAltEstimate = round2(estimated)
	r.GenomeSizeExpected = gm.GenomeSize

	t := cfg.Thresholds.Coverage
	switch {
	case estimated >= t.Fail:
		r.CoverageAltStatus = StatusPassed
		r.CoverageAltMessage = fmt.Sprintf("Estimated coverage %.2fx meets the threshold of %gx.", estimated, t.Fail) + warning
	case estimated >= t.Warn:
		r.CoverageAltStatus = StatusWarning
		r.CoverageAltMessage = fmt.Sprintf("Estimated coverage %.2fx falls between warning (%gx) and pass (%gx) thresholds.", estimated, t.Warn, t.Fail) + warning
	default:
		r.CoverageAltStatus = StatusFailed
		r.CoverageAltMessage = fmt.Sprintf("Estimated coverage %.2fx below the warning threshold (%gx).", estimated, t.Warn) + warning
	}

	r.GCContentLower = gm.GCLower
	r.GCContentUpper = gm.GCUpper
	if gm.GCLower > 0 && gm.GCUpper > 0 {
		r.GCContentStatus, r.GCContentMessage = EvaluateGCContent(m.GCContent, gm.GCLower, gm.GCUpper, cfg.Thresholds.GCTolerance)
	}
}

func applyTyping(r *SampleResult, species string, cfg *config.Config, typer Typer) {
	dbKey := cfg.MLSTDatabaseKey(species)
	if dbKey == "" || typer == nil {
		r.MLSTStatus = StatusWarning
		r.MLSTMessage = "No MLST database found for species. Install via config.yml."
		return
	}

	row, err := typer(dbKey)
	if err != nil {
		r.MLSTST = ""
		r.MLSTStatus = StatusWarning
		r.MLSTMessage = fmt.Sprintf("MLST analysis failed: %v", err)
		return
	}
	if msg, ok := row["error"]; ok {
		r.MLSTST = ""
		r.MLSTStatus = StatusWarning
		r.MLSTMessage = "MLST analysis failed: " + msg
		return
	}
	st, ok := row["ST"]
	if !ok {
		r.MLSTST = ""
		r.MLSTStatus = StatusWarning
		r.MLSTMessage = "No valid ST found (ST field missing)."
		return
	}
	r.MLSTST = strings.TrimSpace(st)
	r.MLSTStatus, r.MLSTMessage = EvaluateST(st)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
