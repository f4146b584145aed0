package preflight

import (
	"context"

	"recut/internal/config"
)

// Result is one environment check's outcome. Detail is always set; for a
// failed check it names what went wrong.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks that gate daemon startup. Directory access is
// always verified; the generation API check runs only when the remote
// pipeline is the default, so mock-only installs work offline.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	checks := []Result{
		CheckDirectoryAccess("Jobs directory", cfg.Paths.JobsDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Generation.DefaultPipeline == config.PipelineRemote {
		checks = append(checks, CheckGeneration(ctx, cfg))
	}
	return checks
}

// Failed filters results down to the ones that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
