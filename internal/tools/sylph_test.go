package tools_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bactscout/bactscout/internal/tools"
)

// sylphRow builds one report line with the columns the extractor reads:
// genome file (1), abundance (3), coverage (5), contig info (14).
func sylphRow(genomeFile, abundance, coverage, contigInfo string) string {
	cols := make([]string, 15)
	for i := range cols {
		cols[i] = "-"
	}
	cols[0] = "reads.fastq.gz"
	cols[1] = genomeFile
	cols[3] = abundance
	cols[5] = coverage
	cols[14] = contigInfo
	return strings.Join(cols, "\t")
}

func TestExtractSpecies(t *testing.T) {
	report := filepath.Join(t.TempDir(), "sylph_report.txt")
	body := "Sample_file\tGenome_file\tTaxonomic_abundance\tSequence_abundance\tAdjusted_ANI\tEff_cov\n" +
		sylphRow("db/GCF/000/742/135/GCF_000742135.1_genomic.fna.gz", "12.5", "3.1", "NZ_CP007557.1 Staphylococcus aureus strain X") + "\n" +
		sylphRow("db/GCF/000/005/845/GCF_000005845.2_genomic.fna.gz", "87.5", "41.2", "NC_000913.3 Escherichia coli str. K-12") + "\n"
	require.NoError(t, os.WriteFile(report, []byte(body), 0o644))

	hits, genomePath := tools.ExtractSpecies(report)

	require.Len(t, hits, 2)
	// Sorted by abundance, not file order.
	assert.Equal(t, "Escherichia coli", hits[0].Name)
	assert.Equal(t, 87.5, hits[0].Abundance)
	assert.Equal(t, 41.2, hits[0].Coverage)
	assert.Equal(t, "Staphylococcus aureus", hits[1].Name)
	// The genome path comes from the first data row regardless of sorting.
	assert.Equal(t, "db/GCF/000/742/135/GCF_000742135.1_genomic.fna.gz", genomePath)
}

func TestExtractSpeciesPaddedNumbers(t *testing.T) {
	report := filepath.Join(t.TempDir(), "sylph_report.txt")
	body := "Sample_file\tGenome_file\tTaxonomic_abundance\tSequence_abundance\tAdjusted_ANI\tEff_cov\n" +
		sylphRow("db/GCF_000005845.2_genomic.fna.gz", " 87.5 ", " 41.2", "NC_000913.3 Escherichia coli str. K-12") + "\n"
	require.NoError(t, os.WriteFile(report, []byte(body), 0o644))

	hits, _ := tools.ExtractSpecies(report)
	require.Len(t, hits, 1)
	assert.Equal(t, 87.5, hits[0].Abundance)
	assert.Equal(t, 41.2, hits[0].Coverage)
}

func TestExtractSpeciesHeaderOnly(t *testing.T) {
	report := filepath.Join(t.TempDir(), "sylph_report.txt")
	require.NoError(t, os.WriteFile(report, []byte("Sample_file\tGenome_file\n"), 0o644))

	hits, genomePath := tools.ExtractSpecies(report)
	assert.Empty(t, hits)
	assert.Empty(t, genomePath)
}

func TestExtractSpeciesMissingReport(t *testing.T) {
	hits, genomePath := tools.ExtractSpecies(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Empty(t, hits)
	assert.Empty(t, genomePath)
}
