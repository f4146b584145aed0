package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"recut/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "config.toml")

	cfg, resolved, exists, err := config.Load(missing)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if resolved != missing {
		t.Fatalf("resolved path = %q, want %q", resolved, missing)
	}
	if cfg.Generation.DefaultPipeline != "mock" {
		t.Fatalf("default pipeline = %q, want mock", cfg.Generation.DefaultPipeline)
	}
	if cfg.Generation.PollIntervalSeconds != config.DefaultPollInterval {
		t.Fatalf("poll interval = %d, want %d", cfg.Generation.PollIntervalSeconds, config.DefaultPollInterval)
	}
	if cfg.Paths.APIBind != config.DefaultAPIBind {
		t.Fatalf("api bind = %q, want %q", cfg.Paths.APIBind, config.DefaultAPIBind)
	}
}

func TestLoadAppliesOverridesAndExpandsPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
jobs_dir = "` + dir + `/jobs"
log_dir = "` + dir + `/logs"

[generation]
default_pipeline = "remote"
api_key = "test-key"
chat_model = "gemini-test"

[decompose]
max_shots = 12
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Paths.JobsDir != filepath.Join(dir, "jobs") {
		t.Fatalf("jobs dir = %q", cfg.Paths.JobsDir)
	}
	if cfg.Generation.ChatModel != "gemini-test" {
		t.Fatalf("chat model = %q", cfg.Generation.ChatModel)
	}
	if cfg.Decompose.MaxShots != 12 {
		t.Fatalf("max shots = %d, want 12", cfg.Decompose.MaxShots)
	}
	// Sections absent from the file keep their defaults.
	if cfg.Generation.VideoModel != config.DefaultVideoModel {
		t.Fatalf("video model = %q, want default", cfg.Generation.VideoModel)
	}
}

func TestLoadRemotePipelineRequiresKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[generation]
default_pipeline = "remote"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, _, _, err := config.Load(path)
	if err == nil {
		t.Fatal("expected validation error for remote pipeline without api key")
	}
	if !strings.Contains(err.Error(), "generation.api_key") {
		t.Fatalf("error %q does not mention generation.api_key", err)
	}
}

func TestLoadAPIKeyEnvFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[generation]
default_pipeline = "remote"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Generation.APIKey != "env-key" {
		t.Fatalf("api key = %q, want env-key", cfg.Generation.APIKey)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "bad pipeline",
			mutate: func(c *config.Config) { c.Generation.DefaultPipeline = "cloud" },
			want:   "generation.default_pipeline",
		},
		{
			name:   "zero poll interval",
			mutate: func(c *config.Config) { c.Generation.PollIntervalSeconds = 0 },
			want:   "poll_interval_seconds",
		},
		{
			name:   "scene threshold out of range",
			mutate: func(c *config.Config) { c.Decompose.SceneThreshold = 1.5 },
			want:   "scene_threshold",
		},
		{
			name:   "too many shots",
			mutate: func(c *config.Config) { c.Decompose.MaxShots = 100 },
			want:   "max_shots",
		},
		{
			name:   "bad log format",
			mutate: func(c *config.Config) { c.Logging.Format = "xml" },
			want:   "logging.format",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestCreateSampleWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[generation]") {
		t.Fatal("sample config missing [generation] section")
	}

	// The sample must load cleanly with no overrides.
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true for sample")
	}
	if cfg.Generation.DefaultPipeline != "mock" {
		t.Fatalf("sample pipeline = %q, want mock", cfg.Generation.DefaultPipeline)
	}
}
