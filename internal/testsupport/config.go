package testsupport

import (
	"path/filepath"
	"testing"

	"recut/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config rooted in unique temp directories per test,
// with the mock pipeline selected and the required directories created. The
// lock timeout is shortened so contention failures surface quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.JobsDir = filepath.Join(base, "jobs")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Generation.DefaultPipeline = config.PipelineMock
	cfg.Engine.LockTimeoutSeconds = 2

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithAPIToken sets the daemon API token on the test config.
func WithAPIToken(token string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Paths.APIToken = token
	}
}

// WithLockTimeout overrides the per-job lock timeout in seconds.
func WithLockTimeout(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Engine.LockTimeoutSeconds = seconds
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.JobsDir)
}
