package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var problems []string

	if c.Paths.JobsDir == "" {
		problems = append(problems, "paths.jobs_dir must not be empty")
	}
	if c.Paths.LogDir == "" {
		problems = append(problems, "paths.log_dir must not be empty")
	}
	if c.Paths.APIBind == "" {
		problems = append(problems, "paths.api_bind must not be empty")
	}

	switch c.Generation.DefaultPipeline {
	case PipelineMock, PipelineRemote:
	default:
		problems = append(problems, fmt.Sprintf("generation.default_pipeline must be %q or %q, got %q", PipelineMock, PipelineRemote, c.Generation.DefaultPipeline))
	}
	if c.Generation.DefaultPipeline == PipelineRemote && c.Generation.APIKey == "" {
		problems = append(problems, "generation.api_key is required for the remote pipeline (or set GEMINI_API_KEY)")
	}
	if c.Generation.BaseURL == "" {
		problems = append(problems, "generation.base_url must not be empty")
	}
	if c.Generation.TimeoutSeconds <= 0 {
		problems = append(problems, "generation.timeout_seconds must be positive")
	}
	if c.Generation.PollIntervalSeconds <= 0 {
		problems = append(problems, "generation.poll_interval_seconds must be positive")
	}
	if c.Generation.PollTimeoutSeconds < c.Generation.PollIntervalSeconds {
		problems = append(problems, "generation.poll_timeout_seconds must be at least the poll interval")
	}
	if c.Generation.VideoDurationSeconds <= 0 {
		problems = append(problems, "generation.video_duration_seconds must be positive")
	}

	if c.Decompose.SceneThreshold <= 0 || c.Decompose.SceneThreshold >= 1 {
		problems = append(problems, "decompose.scene_threshold must be between 0 and 1 exclusive")
	}
	if c.Decompose.MinShotSeconds <= 0 {
		problems = append(problems, "decompose.min_shot_seconds must be positive")
	}
	if c.Decompose.MaxShotSeconds < c.Decompose.MinShotSeconds {
		problems = append(problems, "decompose.max_shot_seconds must be at least min_shot_seconds")
	}
	if c.Decompose.MaxShots < 1 || c.Decompose.MaxShots > 99 {
		problems = append(problems, "decompose.max_shots must be between 1 and 99")
	}
	if c.Decompose.FallbackSeconds <= 0 {
		problems = append(problems, "decompose.fallback_interval_seconds must be positive")
	}

	if c.Engine.LockTimeoutSeconds <= 0 {
		problems = append(problems, "engine.lock_timeout_seconds must be positive")
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format must be %q or %q, got %q", "console", "json", c.Logging.Format))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level))
	}
	if c.Logging.RetentionDays < 1 {
		problems = append(problems, "logging.retention_days must be at least 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
