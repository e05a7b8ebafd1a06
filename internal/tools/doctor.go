package tools

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/zephyr-swift/swift-mcp-server/internal/runner"
)

// Probe is a toolchain binary checked by Doctor
type Probe struct {
	Name string
	Args []string
}

// ProbeResult is the outcome of one probe
type ProbeResult struct {
	Name      string
	Available bool
	Version   string // first line of the version output
	Detail    string // failure reason when unavailable
}

// DefaultProbes are the binaries the tool handlers shell out to
func DefaultProbes() []Probe {
	return []Probe{
		{Name: "swift", Args: []string{"swift", "--version"}},
		{Name: "swift-format", Args: []string{"swift-format", "--version"}},
		{Name: "swiftlint", Args: []string{"swiftlint", "version"}},
		{Name: "west", Args: []string{"west", "--version"}},
	}
}

// Doctor runs all probes concurrently. Results keep the order of probes.
func Doctor(ctx context.Context, r runner.Runner, dir string, probes []Probe) []ProbeResult {
	results := make([]ProbeResult, len(probes))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, probe := range probes {
		i, probe := i, probe
		g.Go(func() error {
			results[i] = probeOne(ctx, r, dir, probe)
			return nil
		})
	}
	_ = g.Wait() // probes report failures in their results

	return results
}

func probeOne(ctx context.Context, r runner.Runner, dir string, probe Probe) ProbeResult {
	out := r.Run(ctx, runner.Command{Args: probe.Args, Dir: dir})
	result := ProbeResult{Name: probe.Name}
	if !out.Success() {
		result.Detail = firstLine(out.Stderr)
		if result.Detail == "" {
			result.Detail = firstLine(out.Stdout)
		}
		return result
	}

	result.Available = true
	result.Version = firstLine(out.Stdout)
	if result.Version == "" {
		result.Version = firstLine(out.Stderr) // some tools print their version on stderr
	}
	return result
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
