package qc

// FinalStatus computes the overall verdict from the per-metric statuses.
//
// Critical metrics (read length, read quality, contamination, GC content)
// fail the sample outright. Duplication and N-content join the critical set
// only when reads were actually processed, so an empty sample is not
// penalized twice. The two independent coverage estimates corroborate each
// other: both failing fails the sample, one failing is a warning. Species
// identification problems escalate a pass to a warning but never to a
// failure, and sequence typing is informational only.
func FinalStatus(r *SampleResult) Status {
	critical := []Status{
		r.ReadLengthStatus,
		r.ReadQ30Status,
		r.ContaminationStatus,
		r.GCContentStatus,
	}
	if r.ReadTotalReads > 0 {
		critical = append(critical, r.DuplicationStatus, r.NContentStatus)
	}
	for _, s := range critical {
		if s == StatusFailed {
			return StatusFailed
		}
	}

	final := StatusPassed
	switch {
	case r.CoverageStatus == StatusFailed && r.CoverageAltStatus == StatusFailed:
		return StatusFailed
	case r.CoverageStatus == StatusFailed || r.CoverageAltStatus == StatusFailed:
		final = StatusWarning
	}

	if r.SpeciesStatus == StatusFailed || r.SpeciesStatus == StatusWarning {
		if final == StatusPassed {
			final = StatusWarning
		}
	}
	return final
}
