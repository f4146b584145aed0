package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"recut/internal/agent"
	"recut/internal/config"
	"recut/internal/engine"
	"recut/internal/generation"
	"recut/internal/logging"
	"recut/internal/media/ffprobe"
	"recut/internal/testsupport"
)

type cliMedia struct{}

func (cliMedia) Probe(context.Context, string) (ffprobe.Result, error) {
	return ffprobe.Result{Format: ffprobe.Format{Duration: "4.0"}}, nil
}

func (cliMedia) ExtractFrame(_ context.Context, _ string, _ float64, dst string) error {
	return writeTestArtifact(dst, "frame")
}

func (cliMedia) ExtractSegment(_ context.Context, _ string, _, _ float64, dst string) error {
	return writeTestArtifact(dst, "segment")
}

func (cliMedia) Concat(_ context.Context, _ []string, dst string) error {
	return writeTestArtifact(dst, "final")
}

type cliDecomposer struct{}

func (cliDecomposer) Decompose(context.Context, string, float64) ([]generation.ShotPlan, error) {
	return []generation.ShotPlan{
		{StartSeconds: 0, EndSeconds: 2, Description: "a fox trots along the ridge"},
		{StartSeconds: 2, EndSeconds: 4, Description: "the fox pauses at the summit"},
	}, nil
}

type cliStylizer struct{}

func (cliStylizer) Stylize(_ context.Context, req generation.StylizeRequest) error {
	return writeTestArtifact(req.OutputPath, "stylized")
}

type cliSynthesizer struct{}

func (cliSynthesizer) Synthesize(_ context.Context, req generation.SynthesizeRequest) error {
	return writeTestArtifact(req.OutputPath, "clip")
}

type cliPipelines struct {
	set generation.Set
}

func (p cliPipelines) For(string) (generation.Set, error) { return p.set, nil }

type cannedCompleter struct {
	response string
}

func (c *cannedCompleter) CompleteJSON(context.Context, string, string) (string, error) {
	return c.response, nil
}

func writeTestArtifact(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	eng        *engine.Engine
	completer  *cannedCompleter
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	set := generation.Set{
		Name:        generation.MockModel,
		Decomposer:  cliDecomposer{},
		Stylizer:    cliStylizer{},
		Synthesizer: cliSynthesizer{},
	}
	eng, err := engine.New(cfg, cliMedia{}, cliPipelines{set: set}, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		eng:        eng,
		completer:  &cannedCompleter{response: "[]"},
	}
}

func (env *cliTestEnv) runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return env.runCLIWithConfigPath(t, env.configPath, args...)
}

func (env *cliTestEnv) runCLIWithConfigPath(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()

	var configFlag string
	ctx := newCommandContext(&configFlag)
	ctx.buildEngine = func(*config.Config) (*engine.Engine, func(), error) {
		return env.eng, func() {}, nil
	}
	ctx.buildAgent = func(_ *config.Config, logger *slog.Logger) *agent.Agent {
		return agent.New(env.completer, logger)
	}

	cmd := buildRootCommand(ctx, &configFlag)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (env *cliTestEnv) writeSourceVideo(t *testing.T) string {
	t.Helper()
	source := filepath.Join(testsupport.BaseDir(env.cfg), "clips", "source.mp4")
	testsupport.WriteFile(t, source, "source-bytes")
	return source
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
jobs_dir = %q
log_dir = %q
api_bind = %q

[generation]
default_pipeline = %q

[engine]
lock_timeout_seconds = %d
`,
		cfg.Paths.JobsDir,
		cfg.Paths.LogDir,
		cfg.Paths.APIBind,
		cfg.Generation.DefaultPipeline,
		cfg.Engine.LockTimeoutSeconds,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
