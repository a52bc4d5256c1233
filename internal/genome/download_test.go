package genome_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bactscout/bactscout/internal/genome"
)

func TestExtractAccession(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"gtdb_genomes_reps_r226/database/GCF/000/742/135/GCF_000742135.1_genomic.fna.gz", "GCF_000742135.1"},
		{"GCA_000005845.2_genomic.fna.gz", "GCA_000005845.2"},
		{"/abs/path/GCF_000742135.1_genomic.fna.gz", "GCF_000742135.1"},
		{"no_accession_here.fna.gz", ""},
		{"", ""},
		{"GCX_000742135.1_genomic.fna.gz", ""},
	}
	for _, tt := range tests {
		if got := genome.ExtractAccession(tt.path); got != tt.want {
			t.Errorf("ExtractAccession(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestBuildNCBIURL(t *testing.T) {
	want := "https://ftp.ncbi.nlm.nih.gov/genomes/all/GCF/000/742/135/GCF_000742135.1/GCF_000742135.1_genomic.fna.gz"
	if got := genome.BuildNCBIURL("GCF_000742135.1"); got != want {
		t.Errorf("BuildNCBIURL = %q, want %q", got, want)
	}
	if got := genome.BuildNCBIURL("bogus"); got != "" {
		t.Errorf("BuildNCBIURL(bogus) = %q, want empty", got)
	}
	if got := genome.BuildNCBIURL(""); got != "" {
		t.Errorf("BuildNCBIURL(empty) = %q, want empty", got)
	}
}

func TestEnsureGenomeUsesCache(t *testing.T) {
	cacheDir := t.TempDir()
	cached := genome.CachedPath("GCF_000742135.1", cacheDir)
	if err := os.WriteFile(cached, []byte("fasta"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := genome.EnsureGenome(context.Background(), "GCF_000742135.1", cacheDir)
	if err != nil {
		t.Fatalf("EnsureGenome: %v", err)
	}
	if got != cached {
		t.Errorf("EnsureGenome = %q, want cached path %q", got, cached)
	}
}

func TestEnsureGenomeInvalidAccession(t *testing.T) {
	if _, err := genome.EnsureGenome(context.Background(), "not-an-accession", t.TempDir()); err == nil {
		t.Error("expected error for invalid accession")
	}
}

func TestCachedPath(t *testing.T) {
	got := genome.CachedPath("GCF_000742135.1", "/cache")
	want := filepath.Join("/cache", "GCF_000742135.1_genomic.fna.gz")
	if got != want {
		t.Errorf("CachedPath = %q, want %q", got, want)
	}
}
