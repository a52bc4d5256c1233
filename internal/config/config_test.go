package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bactscout/bactscout/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bactscout_config.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "bactscout_dbs_path: /data/dbs\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tt := cfg.Thresholds
	if tt.Q30 != (config.Tier{Warn: 0.70, Fail: 0.60}) {
		t.Errorf("q30 tier = %+v", tt.Q30)
	}
	if tt.ReadLength != (config.Tier{Warn: 100, Fail: 75}) {
		t.Errorf("read length tier = %+v", tt.ReadLength)
	}
	if tt.Duplication != (config.Tier{Warn: 0.20, Fail: 0.30}) {
		t.Errorf("duplication tier = %+v", tt.Duplication)
	}
	if tt.Coverage != (config.Tier{Warn: 20, Fail: 30}) {
		t.Errorf("coverage tier = %+v", tt.Coverage)
	}
	if tt.Contamination != (config.Tier{Warn: 5, Fail: 10}) {
		t.Errorf("contamination tier = %+v", tt.Contamination)
	}
	if tt.NContent != 0.001 || tt.AdapterOverrep != 5 || tt.GCTolerance != 0.05 {
		t.Errorf("single thresholds = %+v", tt)
	}

	if cfg.SylphDB != "gtdb-r226-c1000-dbv1.syldb" {
		t.Errorf("sylph db default = %q", cfg.SylphDB)
	}
	if cfg.KAT.K != 27 || cfg.KAT.TimeoutMinutes != 60 {
		t.Errorf("kat defaults = %+v", cfg.KAT)
	}
	if cfg.KAT.Thresholds.ErrorCovCutoff != 4 || cfg.KAT.Thresholds.ErrorPropWarn != 0.05 {
		t.Errorf("kat threshold defaults = %+v", cfg.KAT.Thresholds)
	}
	if !cfg.KATHistEnabled() || !cfg.KATGCPEnabled() {
		t.Error("kat subcommands should default to enabled")
	}
}

func TestLoadMissingDBsPath(t *testing.T) {
	if _, err := config.Load(writeConfig(t, "sylph_db: custom.syldb\n")); err == nil {
		t.Error("expected validation error without bactscout_dbs_path")
	}
}

func TestLoadLegacyThresholds(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
bactscout_dbs_path: /data/dbs
coverage_threshold: 30
contamination_threshold: 10
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Thresholds.Coverage.Fail != 30 {
		t.Errorf("legacy coverage fail = %v, want 30", cfg.Thresholds.Coverage.Fail)
	}
	if got := cfg.Thresholds.Coverage.Warn; got != 30*0.67 {
		t.Errorf("legacy coverage warn = %v, want %v", got, 30*0.67)
	}
	if cfg.Thresholds.Contamination.Fail != 10 {
		t.Errorf("legacy contamination fail = %v, want 10", cfg.Thresholds.Contamination.Fail)
	}
	if cfg.Thresholds.Contamination.Warn != 5 {
		t.Errorf("legacy contamination warn = %v, want 5", cfg.Thresholds.Contamination.Warn)
	}
}

func TestLoadTwoTierOverridesLegacy(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
bactscout_dbs_path: /data/dbs
coverage_threshold: 99
coverage_warn_threshold: 15
coverage_fail_threshold: 25
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Thresholds.Coverage != (config.Tier{Warn: 15, Fail: 25}) {
		t.Errorf("coverage tier = %+v, legacy key should be ignored", cfg.Thresholds.Coverage)
	}
}

func TestLoadPercentageNormalization(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
bactscout_dbs_path: /data/dbs
q30_warn_threshold: 70
q30_fail_threshold: 60
gc_fail_percentage: 5
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Thresholds.Q30 != (config.Tier{Warn: 0.70, Fail: 0.60}) {
		t.Errorf("q30 tier = %+v, percentages should normalize to fractions", cfg.Thresholds.Q30)
	}
	if cfg.Thresholds.GCTolerance != 0.05 {
		t.Errorf("gc tolerance = %v, want 0.05", cfg.Thresholds.GCTolerance)
	}
}

func TestMLSTDatabaseKey(t *testing.T) {
	cfg := &config.Config{MLSTSpecies: map[string]string{
		"escherichia_coli":   "Escherichia coli",
		"neisseria_spp.":     "Neisseria gonorrhoeae",
		"klebsiella_oxytoca": "klebsiella_oxytoca",
	}}

	tests := []struct {
		species string
		want    string
	}{
		{"Escherichia coli", "escherichia_coli"},
		{"Klebsiella oxytoca", "klebsiella_oxytoca"},
		{"Vibrio cholerae", ""},
	}
	for _, tt := range tests {
		if got := cfg.MLSTDatabaseKey(tt.species); got != tt.want {
			t.Errorf("MLSTDatabaseKey(%q) = %q, want %q", tt.species, got, tt.want)
		}
	}
}

func TestAribaDatabaseKey(t *testing.T) {
	cfg := &config.Config{AribaSpecies: map[string]string{
		"escherichia_coli": "Escherichia coli#1",
		"neisseria":        "Neisseria spp.",
	}}

	tests := []struct {
		species string
		want    string
	}{
		{"Escherichia coli", "escherichia_coli"},
		{"Neisseria spp.", "neisseria"},
		{"Vibrio cholerae", ""},
	}
	for _, tt := range tests {
		if got := cfg.AribaDatabaseKey(tt.species); got != tt.want {
			t.Errorf("AribaDatabaseKey(%q) = %q, want %q", tt.species, got, tt.want)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := config.Load("nonexistent.yml"); err == nil {
		t.Error("expected error for missing config file")
	}
}
