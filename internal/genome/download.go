// Package genome caches reference genomes referenced by species profiling
// output, keyed by NCBI assembly accession.
package genome

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

var accessionPattern = regexp.MustCompile(`(GC[FA]_\d{9}\.\d)`)

var httpClient = &http.Client{Timeout: 5 * time.Minute}

// ExtractAccession pulls the assembly accession (GCF_XXXXXXXXX.X or
// GCA_XXXXXXXXX.X) out of a genome file path. Empty when the path carries
// no accession.
func ExtractAccession(genomeFilePath string) string {
	return accessionPattern.FindString(genomeFilePath)
}

// BuildNCBIURL maps an accession to its genomic FASTA on the NCBI assembly
// mirror: the nine accession digits become three directory levels.
func BuildNCBIURL(accession string) string {
	if len(accession) < 13 || ExtractAccession(accession) != accession {
		return ""
	}
	prefix := accession[:3]
	digits := accession[4:13]
	return fmt.Sprintf("https://ftp.ncbi.nlm.nih.gov/genomes/all/%s/%s/%s/%s/%s/%s_genomic.fna.gz",
		prefix, digits[0:3], digits[3:6], digits[6:9], accession, accession)
}

// CachedPath is the local cache location for an accession.
func CachedPath(accession, cacheDir string) string {
	return filepath.Join(cacheDir, accession+"_genomic.fna.gz")
}

// EnsureGenome returns the local path of an accession's genome, downloading
// it into cacheDir on first use. The download lands in a temporary file and
// is renamed into place, so concurrent callers for the same accession end
// up with a complete file.
func EnsureGenome(ctx context.Context, accession, cacheDir string) (string, error) {
	cachePath := CachedPath(accession, cacheDir)
	if _, err := os.Stat(cachePath); err == nil {
		return cachePath, nil
	}

	url := BuildNCBIURL(accession)
	if url == "" {
		return "", fmt.Errorf("invalid accession %q", accession)
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("creating cache dir %s: %w", cacheDir, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building request for %s: %w", accession, err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", accession, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading %s: unexpected status %s", accession, resp.Status)
	}

	tmp, err := os.CreateTemp(cacheDir, accession+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing %s: %w", cachePath, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), cachePath); err != nil {
		return "", fmt.Errorf("caching %s: %w", accession, err)
	}
	return cachePath, nil
}
