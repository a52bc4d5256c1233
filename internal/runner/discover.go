package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// ReadPair is one sample's forward and reverse FASTQ files.
type ReadPair struct {
	SampleID string
	R1       string
	R2       string
}

// pairPattern splits a FASTQ filename into sample base, mate number, and
// extension. Both _R1/_R2 and bare _1/_2 mate markers are accepted.
var pairPattern = regexp.MustCompile(`^(.+?)(?:_R)?([12])(\.fastq(?:\.gz)?|\.fq(?:\.gz)?)$`)

// mateSuffix strips the trailing mate marker from an extension-less name.
var mateSuffix = regexp.MustCompile(`(_R[12]|_[12])$`)

// DiscoverPairs scans a directory for paired FASTQ files and returns the
// complete pairs sorted by sample ID. Files without a matching mate are
// dropped; when a sample matches more than one file per mate the
// last-scanned file wins.
func DiscoverPairs(dir string) ([]ReadPair, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading input directory %s: %w", dir, err)
	}

	type mates struct{ r1, r2 string }
	found := map[string]*mates{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := pairPattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		base := strings.TrimSuffix(m[1], "_")
		pair := found[base]
		if pair == nil {
			pair = &mates{}
			found[base] = pair
		}
		path := filepath.Join(dir, entry.Name())
		if m[2] == "1" {
			pair.r1 = path
		} else {
			pair.r2 = path
		}
	}

	var pairs []ReadPair
	for base, m := range found {
		if m.r1 != "" && m.r2 != "" {
			pairs = append(pairs, ReadPair{SampleID: base, R1: m.r1, R2: m.r2})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].SampleID < pairs[j].SampleID })
	return pairs, nil
}

// SampleName derives a sample ID from a FASTQ path: extension first, then
// the mate marker.
func SampleName(path string) string {
	name := filepath.Base(path)
	for _, ext := range []string{".fastq.gz", ".fq.gz", ".fastq", ".fq"} {
		if strings.HasSuffix(name, ext) {
			name = strings.TrimSuffix(name, ext)
			break
		}
	}
	return mateSuffix.ReplaceAllString(name, "")
}
