package preflight_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bactscout/bactscout/internal/preflight"
)

func TestParseMemory(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{"8.GB", 8 << 30},
		{"8GB", 8 << 30},
		{"512 MB", 512 << 20},
		{"1.5GB", 1<<30 + 512<<20},
		{"2048kb", 2048 << 10},
		{"1073741824", 1 << 30},
		{"", 0},
		{"lots", 0},
		{"-1GB", 0},
	}
	for _, tt := range tests {
		if got := preflight.ParseMemory(tt.in); got != tt.want {
			t.Errorf("ParseMemory(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestAribaDBReady(t *testing.T) {
	dbs := t.TempDir()

	touch := func(rel string) {
		t.Helper()
		path := filepath.Join(dbs, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if preflight.AribaDBReady(dbs, "ecoli") {
		t.Error("missing database reported ready")
	}

	touch(filepath.Join("ecoli", "clusters.tsv"))
	if preflight.AribaDBReady(dbs, "ecoli") {
		t.Error("partial database reported ready")
	}

	touch(filepath.Join("ecoli", "ref_db", "00.auto_metadata.tsv"))
	if !preflight.AribaDBReady(dbs, "ecoli") {
		t.Error("complete database reported not ready")
	}
}
