package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigValidateCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := env.runCLI(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate failed: %v", err)
	}
	requireContains(t, stdout, "Config path:")
	requireContains(t, stdout, "Configuration valid")
}

func TestConfigValidateReportsMissingFile(t *testing.T) {
	env := setupCLITestEnv(t)
	missing := filepath.Join(t.TempDir(), "absent.toml")

	stdout, _, err := env.runCLIWithConfigPath(t, missing, "config", "validate")
	if err != nil {
		t.Fatalf("config validate failed: %v", err)
	}
	requireContains(t, stdout, "defaults were used")
	requireContains(t, stdout, "Configuration valid")
}

func TestConfigInitCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	stdout, _, err := env.runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	requireContains(t, stdout, "Wrote sample configuration")

	if _, statErr := os.Stat(target); statErr != nil {
		t.Fatalf("expected sample config at %s: %v", target, statErr)
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(target, []byte("# existing\n"), 0o644); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	_, _, err := env.runCLI(t, "config", "init", "--path", target)
	if err == nil {
		t.Fatal("expected init to refuse overwriting an existing file")
	}
	requireContains(t, err.Error(), "already exists")

	stdout, _, err := env.runCLI(t, "config", "init", "--path", target, "--overwrite")
	if err != nil {
		t.Fatalf("config init --overwrite failed: %v", err)
	}
	requireContains(t, stdout, "Wrote sample configuration")
}
