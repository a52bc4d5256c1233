package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full pipeline configuration. Loaded once per run and shared
// read-only across all workers.
type Config struct {
	// Two-tier thresholds. Pointers distinguish "absent" from zero so the
	// legacy single-threshold fallback can kick in.
	Q30WarnThreshold        *float64 `yaml:"q30_warn_threshold"`
	Q30FailThreshold        *float64 `yaml:"q30_fail_threshold"`
	ReadLengthWarnThreshold *float64 `yaml:"read_length_warn_threshold"`
	ReadLengthFailThreshold *float64 `yaml:"read_length_fail_threshold"`
	DuplicationWarn         *float64 `yaml:"duplication_warn_threshold"`
	DuplicationFail         *float64 `yaml:"duplication_fail_threshold"`
	CoverageWarn            *float64 `yaml:"coverage_warn_threshold"`
	CoverageFail            *float64 `yaml:"coverage_fail_threshold"`
	ContaminationWarn       *float64 `yaml:"contamination_warn_threshold"`
	ContaminationFail       *float64 `yaml:"contamination_fail_threshold"`

	// Legacy single-threshold keys, reinterpreted as the fail tier.
	CoverageThreshold      *float64 `yaml:"coverage_threshold"`
	ContaminationThreshold *float64 `yaml:"contamination_threshold"`

	NContentThreshold   *float64 `yaml:"n_content_threshold"`
	AdapterOverrepLimit *int     `yaml:"adapter_overrep_threshold"`
	GCFailPercentage    *float64 `yaml:"gc_fail_percentage"`

	DBsPath     string            `yaml:"bactscout_dbs_path" validate:"required"`
	SylphDB     string            `yaml:"sylph_db"`
	SylphDBURL  string            `yaml:"sylph_db_url" validate:"omitempty,url"`
	MetricsFile string            `yaml:"metrics_file"`
	MLSTSpecies map[string]string `yaml:"mlst_species"`

	// Resistance-gene typing databases: directory key under DBsPath to the
	// pubMLST scheme name ariba fetches it by.
	AribaSpecies map[string]string `yaml:"ariba_species"`

	SystemResources SystemResources `yaml:"system_resources"`
	KAT             KATConfig       `yaml:"kat"`

	// Wall-clock bound applied to every external tool invocation.
	// Zero means no deadline.
	ToolTimeoutMinutes int `yaml:"tool_timeout_minutes" validate:"min=0"`

	// Thresholds resolved once at load time.
	Thresholds Thresholds `yaml:"-" validate:"-"`
}

type SystemResources struct {
	CPUs   int    `yaml:"cpus" validate:"min=0"`
	Memory string `yaml:"memory"`
}

// KATConfig controls the optional k-mer composition side analysis.
type KATConfig struct {
	Enabled        bool          `yaml:"enabled"`
	K              int           `yaml:"k" validate:"min=0"`
	TimeoutMinutes int           `yaml:"timeout_minutes" validate:"min=0"`
	Run            KATRun        `yaml:"run"`
	Thresholds     KATThresholds `yaml:"thresholds"`
}

type KATRun struct {
	Hist *bool `yaml:"hist"`
	GCP  *bool `yaml:"gcp"`
}

type KATThresholds struct {
	ErrorCovCutoff      int     `yaml:"error_cov_cutoff"`
	MainCovLow          float64 `yaml:"main_cov_low"`
	ErrorPropWarn       float64 `yaml:"error_prop_warn"`
	GCPMultiModalBinPct float64 `yaml:"gcp_multi_modal_bin_prop"`
}

// Tier is a resolved warn/fail threshold pair for one metric.
type Tier struct {
	Warn float64
	Fail float64
}

// Thresholds holds every threshold after legacy-fallback resolution and
// percentage normalization. Evaluators only ever see this form.
type Thresholds struct {
	Q30           Tier
	ReadLength    Tier
	Duplication   Tier
	Coverage      Tier
	Contamination Tier

	NContent       float64 // fraction; compared against a percentage rate
	AdapterOverrep int
	GCTolerance    float64 // fraction of the expected range
}

// Load reads, validates, and resolves a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	cfg.Thresholds = resolveThresholds(&cfg)
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.SylphDB == "" {
		cfg.SylphDB = "gtdb-r226-c1000-dbv1.syldb"
	}
	if cfg.SylphDBURL == "" {
		cfg.SylphDBURL = "http://faust.compbio.cs.cmu.edu/sylph-stuff/" + cfg.SylphDB
	}
	if cfg.KAT.K == 0 {
		cfg.KAT.K = 27
	}
	if cfg.KAT.TimeoutMinutes == 0 {
		cfg.KAT.TimeoutMinutes = 60
	}
	if cfg.KAT.Thresholds.ErrorCovCutoff == 0 {
		cfg.KAT.Thresholds.ErrorCovCutoff = 4
	}
	if cfg.KAT.Thresholds.MainCovLow == 0 {
		cfg.KAT.Thresholds.MainCovLow = 10
	}
	if cfg.KAT.Thresholds.ErrorPropWarn == 0 {
		cfg.KAT.Thresholds.ErrorPropWarn = 0.05
	}
	if cfg.KAT.Thresholds.GCPMultiModalBinPct == 0 {
		cfg.KAT.Thresholds.GCPMultiModalBinPct = 0.1
	}
	return validator.New().Struct(cfg)
}

// ToolTimeout returns the external-tool deadline, or zero when unbounded.
func (c *Config) ToolTimeout() time.Duration {
	return time.Duration(c.ToolTimeoutMinutes) * time.Minute
}

// KATHistEnabled reports whether the histogram subcommand should run.
// Both KAT subcommands default to on once the kat block enables KAT at all.
func (c *Config) KATHistEnabled() bool {
	return c.KAT.Run.Hist == nil || *c.KAT.Run.Hist
}

func (c *Config) KATGCPEnabled() bool {
	return c.KAT.Run.GCP == nil || *c.KAT.Run.GCP
}

// MLSTDatabaseKey maps a species name to its typing-database directory key.
// An exact match on a configured species name wins; otherwise the
// underscored lowercase form of the name is tried as a key directly.
// Empty means no database is configured for the species.
func (c *Config) MLSTDatabaseKey(species string) string {
	for key, name := range c.MLSTSpecies {
		if name == species {
			return key
		}
	}
	simple := underscore(species)
	if _, ok := c.MLSTSpecies[simple]; ok {
		return simple
	}
	return ""
}

// AribaDatabaseKey maps a species name to its resistance-typing database
// directory key. The underscored lowercase form of the name is tried as a
// key first; pubMLST scheme names carry suffixes such as "#1", so an exact
// prefix match on the scheme is the fallback. Empty means no database is
// configured for the species.
func (c *Config) AribaDatabaseKey(species string) string {
	simple := underscore(species)
	if _, ok := c.AribaSpecies[simple]; ok {
		return simple
	}
	for key, scheme := range c.AribaSpecies {
		if scheme == species || strings.HasPrefix(scheme, species+"#") {
			return key
		}
	}
	return ""
}

func underscore(species string) string {
	out := make([]byte, len(species))
	for i := 0; i < len(species); i++ {
		ch := species[i]
		switch {
		case ch == ' ':
			out[i] = '_'
		case ch >= 'A' && ch <= 'Z':
			out[i] = ch + ('a' - 'A')
		default:
			out[i] = ch
		}
	}
	return string(out)
}

// resolveThresholds folds the raw keys, legacy fallbacks, and percentage
// normalization into explicit warn/fail pairs. This is the only place the
// legacy math lives.
func resolveThresholds(cfg *Config) Thresholds {
	t := Thresholds{
		Q30:         resolveTier(cfg.Q30WarnThreshold, cfg.Q30FailThreshold, nil, 0.70, 0.60, 0),
		ReadLength:  resolveTier(cfg.ReadLengthWarnThreshold, cfg.ReadLengthFailThreshold, nil, 100, 75, 0),
		Duplication: resolveTier(cfg.DuplicationWarn, cfg.DuplicationFail, nil, 0.20, 0.30, 0),
		// Legacy coverage_threshold becomes the fail tier, warn at ~67% of it.
		Coverage: resolveTier(cfg.CoverageWarn, cfg.CoverageFail, cfg.CoverageThreshold, 20, 30, 0.67),
		// Legacy contamination_threshold becomes the fail tier, warn at half.
		Contamination: resolveTier(cfg.ContaminationWarn, cfg.ContaminationFail, cfg.ContaminationThreshold, 5, 10, 0.50),

		NContent:       0.001,
		AdapterOverrep: 5,
		GCTolerance:    0.05,
	}

	// Q30 thresholds given as whole percentages are normalized to fractions.
	if t.Q30.Fail > 1 {
		t.Q30.Fail /= 100
	}
	if t.Q30.Warn > 1 {
		t.Q30.Warn /= 100
	}

	if cfg.NContentThreshold != nil {
		t.NContent = *cfg.NContentThreshold
	}
	if cfg.AdapterOverrepLimit != nil {
		t.AdapterOverrep = *cfg.AdapterOverrepLimit
	}
	if cfg.GCFailPercentage != nil {
		t.GCTolerance = *cfg.GCFailPercentage
	}
	if t.GCTolerance > 1 {
		t.GCTolerance /= 100
	}
	return t
}

// resolveTier computes one warn/fail pair. When the fail key is absent the
// legacy key (or the default fail) stands in, and when warn is also absent
// it is derived as legacyWarnFrac of fail for metrics that had a legacy
// single-threshold form.
func resolveTier(warn, fail, legacy *float64, defWarn, defFail, legacyWarnFrac float64) Tier {
	t := Tier{Warn: defWarn, Fail: defFail}
	switch {
	case fail != nil:
		t.Fail = *fail
		if warn != nil {
			t.Warn = *warn
		} else if legacyWarnFrac > 0 {
			t.Warn = t.Fail * legacyWarnFrac
		}
	case legacy != nil:
		t.Fail = *legacy
		if legacyWarnFrac > 0 {
			t.Warn = t.Fail * legacyWarnFrac
		}
	default:
		if warn != nil {
			t.Warn = *warn
		}
	}
	return t
}
