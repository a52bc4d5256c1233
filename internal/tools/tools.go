// Package tools wraps the external bioinformatics programs the pipeline
// drives: fastp, sylph, stringMLST, ariba and kat. Each wrapper runs the program
// under the caller's context, captures its reports under the sample
// directory, and parses them into the qc package's types. Tool failure
// degrades to zero metrics rather than aborting the sample.
package tools

import (
	"context"
	"os/exec"
	"time"
)

// lookup resolves a tool name to the argv prefix used to invoke it.
// Tools on PATH run directly; otherwise the pixi environment runner is
// tried, matching how the pipeline is usually deployed.
func lookup(name string) []string {
	if path, err := exec.LookPath(name); err == nil {
		return []string{path}
	}
	if _, err := exec.LookPath("pixi"); err == nil {
		return []string{"pixi", "run", "--", name}
	}
	return []string{name}
}

func command(ctx context.Context, argv []string, extra ...string) *exec.Cmd {
	args := append(append([]string{}, argv[1:]...), extra...)
	return exec.CommandContext(ctx, argv[0], args...)
}

// withTimeout derives a deadline-bound context when d is positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}
