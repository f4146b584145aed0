package preflight

import (
	"context"
	"strings"

	"recut/internal/config"
)

// CheckGenerationFromConfig evaluates generation API status from config and
// connectivity. Used by status displays, where a mock-only setup should read
// as disabled rather than failing.
func CheckGenerationFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "Generation API"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	key := strings.TrimSpace(cfg.Generation.APIKey)
	if key == "" {
		if cfg.Generation.DefaultPipeline != config.PipelineRemote {
			return Result{Name: name, Passed: true, Detail: "Not configured (mock pipeline)"}
		}
		return Result{Name: name, Detail: "Missing API key"}
	}
	// A key alongside the mock pipeline still gets verified so per-job
	// --pipeline remote overrides fail here rather than at generation time.
	return CheckGeneration(ctx, cfg)
}
