package qc

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"github.com/bactscout/bactscout/internal/config"
)

// ReadMetrics is the flat read-level metric set extracted from the read-QC
// tool's JSON report (after-filtering section plus duplication, N-content,
// and overrepresented-sequence counters).
type ReadMetrics struct {
	TotalReads int64
	TotalBases int64
	Q20Bases   int64
	Q30Bases   int64
	Q20Rate    float64
	Q30Rate    float64

	Read1MeanLength int
	Read2MeanLength int

	GCContent       float64 // percent
	DuplicationRate float64 // fraction
	NContentRate    float64 // percent
	OverrepCount    int
}

// SpeciesHit is one row of the species profiler output: a candidate species
// with its abundance percentage and coverage estimate.
type SpeciesHit struct {
	Name      string
	Abundance float64
	Coverage  float64
}

// Evaluators are pure: value plus resolved thresholds in, status plus message
// out. Missing source data (zero total reads) is always the worst case.

func EvaluateQ30(totalReads int64, rate float64, t config.Tier) (Status, string) {
	switch {
	case totalReads == 0:
		return StatusFailed, "No reads processed. Cannot determine quality metrics."
	case rate >= t.Fail:
		return StatusPassed, fmt.Sprintf("Q30 rate %.2f meets threshold (%g).", rate, t.Fail)
	case rate >= t.Warn:
		return StatusWarning, fmt.Sprintf("Q30 rate %.2f falls between warning (%g) and fail (%g) thresholds.", rate, t.Warn, t.Fail)
	default:
		return StatusFailed, fmt.Sprintf("Q30 rate %.2f below warning threshold (%g).", rate, t.Warn)
	}
}

// EvaluateReadLength requires both mates to clear a bound before the pair
// does.
func EvaluateReadLength(totalReads int64, read1Len, read2Len int, t config.Tier) (Status, string) {
	r1, r2 := float64(read1Len), float64(read2Len)
	switch {
	case totalReads == 0:
		return StatusFailed, "No reads processed. Cannot determine read lengths."
	case r1 >= t.Fail && r2 >= t.Fail:
		return StatusPassed, fmt.Sprintf("Read1 mean length %d; Read2 mean length %d meet threshold (>%g).", read1Len, read2Len, t.Fail)
	case r1 >= t.Warn && r2 >= t.Warn:
		return StatusWarning, fmt.Sprintf("Read1 mean length %d; Read2 mean length %d falls between warning (>%g) and fail (>%g) thresholds.", read1Len, read2Len, t.Warn, t.Fail)
	default:
		return StatusFailed, fmt.Sprintf("Read1 mean length %d; Read2 mean length %d below warning threshold (>%g).", read1Len, read2Len, t.Warn)
	}
}

func EvaluateDuplication(totalReads int64, rate float64, t config.Tier) (Status, string) {
	switch {
	case totalReads == 0:
		return StatusFailed, "No reads processed. Cannot determine duplication rate."
	case rate <= t.Warn:
		return StatusPassed, fmt.Sprintf("Duplication rate %.4f (%.2f%%) is below warning threshold (%.1f%%).",
			rate, rate*100, t.Warn*100)
	case rate <= t.Fail:
		return StatusWarning, fmt.Sprintf("Duplication rate %.4f (%.2f%%) falls between warning (%.1f%%) and fail (%.1f%%) thresholds. May indicate PCR bias or library complexity issues.",
			rate, rate*100, t.Warn*100, t.Fail*100)
	default:
		return StatusFailed, fmt.Sprintf("Duplication rate %.4f (%.2f%%) exceeds fail threshold (%.1f%%). High PCR bias detected.",
			rate, rate*100, t.Fail*100)
	}
}

// EvaluateNContent compares a percentage rate against a fractional threshold.
// Elevated N-content is a warning, never an outright failure once reads exist.
func EvaluateNContent(totalReads int64, ratePct, threshold float64) (Status, string) {
	switch {
	case totalReads == 0:
		return StatusFailed, "No reads processed. Cannot determine N-content."
	case ratePct <= threshold*100:
		return StatusPassed, fmt.Sprintf("N-content %.4f%% is below threshold (%.2f%%).", ratePct, threshold*100)
	default:
		return StatusWarning, fmt.Sprintf("N-content %.4f%% exceeds threshold (%.2f%%). Indicates base-calling uncertainty.", ratePct, threshold*100)
	}
}

func EvaluateAdapter(totalReads int64, overrepCount, limit int) (Status, string) {
	switch {
	case totalReads == 0:
		return StatusFailed, "No reads processed. Cannot check for adapter contamination."
	case overrepCount == 0:
		return StatusPassed, "No overrepresented sequences detected."
	case overrepCount <= limit:
		return StatusWarning, fmt.Sprintf("%d overrepresented sequence(s) detected. May indicate minor adapter contamination or repetitive sequences.", overrepCount)
	default:
		return StatusFailed, fmt.Sprintf("%d overrepresented sequences detected (threshold: %d). Indicates significant adapter contamination or other contaminants.", overrepCount, limit)
	}
}

// EvaluateContamination scores the abundance complement of the top species.
// Boundaries are inclusive on the better side: contamination exactly at the
// warn threshold still passes, exactly at the fail threshold still warns.
func EvaluateContamination(top SpeciesHit, t config.Tier) (Status, string) {
	switch {
	case top.Abundance >= 100-t.Warn:
		return StatusPassed, "OK"
	case top.Abundance >= 100-t.Fail:
		return StatusWarning, fmt.Sprintf("Top species purity %.2f%% falls between warning (%g%%) and fail (%g%%) thresholds.",
			top.Abundance, 100-t.Warn, 100-t.Fail)
	default:
		return StatusFailed, fmt.Sprintf("Top species purity %.2f%% falls below warning threshold (%g%%).",
			top.Abundance, 100-t.Warn)
	}
}

// EvaluateGCContent checks a GC percentage against the expected range for
// the species, with a tolerance band of range±range×tolerance scored as
// WARNING. Outside the band is an explicit FAILED.
func EvaluateGCContent(gc float64, lower, upper int, tolerance float64) (Status, string) {
	lo, hi := float64(lower), float64(upper)
	switch {
	case gc >= lo && gc <= hi:
		return StatusPassed, fmt.Sprintf("GC content %g%% within expected range (%d-%d%%)", gc, lower, upper)
	case gc >= lo-lo*tolerance && gc <= hi+hi*tolerance:
		return StatusWarning, fmt.Sprintf("GC content %g%% near expected range (%d-%d%%)", gc, lower, upper)
	default:
		return StatusFailed, fmt.Sprintf("GC content %g%% outside expected range (%d-%d%%)", gc, lower, upper)
	}
}

// EvaluateST validates a raw sequence-type value. Any non-negative integer
// is a pass (zero is a novel type); everything else is a warning. Typing
// never gates overall QC.
func EvaluateST(raw string) (Status, string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return StatusWarning, "No valid ST found (empty ST field)."
	}
	st, err := cast.ToIntE(trimmed)
	if err != nil {
		return StatusWarning, fmt.Sprintf("No valid ST found (ST=%s).", raw)
	}
	switch {
	case st > 0:
		return StatusPassed, fmt.Sprintf("Valid ST found: %s", trimmed)
	case st == 0:
		return StatusPassed, "Novel ST found."
	default:
		return StatusWarning, fmt.Sprintf("No valid ST found (ST=%s).", raw)
	}
}
