// Package preflight validates the environment before a run: system
// resources against the configured requirements, external tool
// availability, and database presence.
package preflight

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/bactscout/bactscout/internal/config"
	"github.com/bactscout/bactscout/internal/tools"
)

const versionProbeTimeout = 5 * time.Second

// Check runs every preflight stage and reports whether the environment can
// support a run. Each stage prints its findings; all stages run even after
// an earlier one fails so the operator sees the full picture.
func Check(ctx context.Context, cfg *config.Config) bool {
	ok := CheckSystemResources(cfg)
	ok = CheckSoftware(ctx) && ok
	ok = CheckDatabases(ctx, cfg) && ok
	return ok
}

// CheckSystemResources compares physical CPUs and total memory against the
// system_resources requirements.
func CheckSystemResources(cfg *config.Config) bool {
	requiredCPUs := cfg.SystemResources.CPUs
	if requiredCPUs == 0 {
		requiredCPUs = 1
	}
	requiredMemory := ParseMemory(cfg.SystemResources.Memory)
	if cfg.SystemResources.Memory == "" {
		requiredMemory = 1 << 30
	}

	cpus, err := cpu.Counts(false)
	if err != nil || cpus == 0 {
		cpus, _ = cpu.Counts(true)
	}
	var available uint64
	if vm, err := mem.VirtualMemory(); err == nil {
		available = vm.Total
	}

	ok := true
	if cpus < requiredCPUs {
		log.Printf("insufficient CPUs: required %d, available %d", requiredCPUs, cpus)
		ok = false
	}
	if available < requiredMemory {
		log.Printf("insufficient memory: required %d GB, available %d GB", requiredMemory>>30, available>>30)
		ok = false
	}
	if ok {
		fmt.Println("System resources validated successfully.")
	}
	return ok
}

// ParseMemory converts a human memory requirement such as "8.GB", "512 MB"
// or a bare byte count into bytes. Unparseable input is zero.
func ParseMemory(s string) uint64 {
	s = strings.ToUpper(strings.ReplaceAll(s, " ", ""))
	units := []struct {
		suffix string
		scale  float64
	}{
		{"KB", 1 << 10},
		{"MB", 1 << 20},
		{"GB", 1 << 30},
	}
	for _, u := range units {
		if strings.HasSuffix(s, u.suffix) {
			v, err := strconv.ParseFloat(strings.TrimSuffix(s, u.suffix), 64)
			if err != nil || v < 0 {
				return 0
			}
			return uint64(v * u.scale)
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return uint64(v)
}

// CheckSoftware probes each required tool with its version command under a
// short timeout. ariba spells it "version" rather than "--version".
func CheckSoftware(ctx context.Context) bool {
	probes := []struct {
		tool       string
		versionArg string
	}{
		{"fastp", "--version"},
		{"sylph", "--version"},
		{"stringMLST.py", "--version"},
		{"ariba", "version"},
	}
	ok := true
	for _, p := range probes {
		line, err := probeVersion(ctx, p.tool, p.versionArg)
		if err != nil {
			log.Printf("%s check failed: %v", p.tool, err)
			ok = false
			continue
		}
		fmt.Printf("%s is available: %s\n", p.tool, line)
	}
	return ok
}

func probeVersion(ctx context.Context, tool, versionArg string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()

	argv := []string{tool}
	if path, err := exec.LookPath(tool); err == nil {
		argv = []string{path}
	} else if _, err := exec.LookPath("pixi"); err == nil {
		argv = []string{"pixi", "run", "--", tool}
	}
	argv = append(argv, versionArg)

	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).Output()
	if err != nil {
		return "", err
	}
	line := strings.TrimSpace(string(out))
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if line == "" {
		line = "ok"
	}
	return line, nil
}

// CheckDatabases ensures the database directory exists, fetches the sylph
// database when absent, fetches any missing resistance-typing databases via
// ariba pubmlstget, and reports which configured MLST typing databases are
// missing. Missing MLST databases are warnings: the affected species simply
// go untyped. A failed database fetch is fatal.
func CheckDatabases(ctx context.Context, cfg *config.Config) bool {
	if err := os.MkdirAll(cfg.DBsPath, 0o755); err != nil {
		log.Printf("creating database path %s: %v", cfg.DBsPath, err)
		return false
	}

	sylphDB := filepath.Join(cfg.DBsPath, cfg.SylphDB)
	if _, err := os.Stat(sylphDB); err != nil {
		fmt.Printf("Downloading sylph database from %s...\n", cfg.SylphDBURL)
		if err := download(ctx, cfg.SylphDBURL, sylphDB); err != nil {
			log.Printf("downloading sylph database: %v", err)
			return false
		}
		fmt.Println("Sylph database downloaded successfully.")
	}

	for key, scheme := range cfg.AribaSpecies {
		if AribaDBReady(cfg.DBsPath, key) {
			fmt.Printf("ARIBA database for %s found in %s.\n", key, cfg.DBsPath)
			continue
		}
		log.Printf("warning: ARIBA files for %s not found in %s, trying to download", key, cfg.DBsPath)
		if err := tools.FetchPubMLST(ctx, scheme, filepath.Join(cfg.DBsPath, key)); err != nil {
			log.Printf("downloading ARIBA database for %s: %v", key, err)
			return false
		}
	}

	for key, species := range cfg.MLSTSpecies {
		dbDir := filepath.Join(cfg.DBsPath, key)
		if _, err := os.Stat(dbDir); err != nil {
			log.Printf("warning: typing database for %s (%s) not found in %s", species, key, cfg.DBsPath)
		}
	}

	fmt.Println("All required databases are validated successfully.")
	return true
}

// AribaDBReady reports whether a fetched pubMLST database under dbsPath/key
// is complete. An interrupted pubmlstget leaves a directory without these
// files, which must be refetched from scratch.
func AribaDBReady(dbsPath, key string) bool {
	for _, rel := range []string{
		filepath.Join("ref_db", "00.auto_metadata.tsv"),
		"clusters.tsv",
	} {
		if _, err := os.Stat(filepath.Join(dbsPath, key, rel)); err != nil {
			return false
		}
	}
	return true
}

func download(ctx context.Context, url, destination string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: unexpected status %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(destination), filepath.Base(destination)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", destination, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), destination)
}
