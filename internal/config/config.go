package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	JobsDir  string `toml:"jobs_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Generation contains connection settings for the remote generation service
// used by the chat agent, the remote stylizer, and the video synthesizer.
type Generation struct {
	APIKey               string `toml:"api_key"`
	BaseURL              string `toml:"base_url"`
	ChatModel            string `toml:"chat_model"`
	ImageModel           string `toml:"image_model"`
	VideoModel           string `toml:"video_model"`
	DefaultPipeline      string `toml:"default_pipeline"`
	TimeoutSeconds       int    `toml:"timeout_seconds"`
	PollIntervalSeconds  int    `toml:"poll_interval_seconds"`
	PollTimeoutSeconds   int    `toml:"poll_timeout_seconds"`
	VideoDurationSeconds int    `toml:"video_duration_seconds"`
	AspectRatio          string `toml:"aspect_ratio"`
}

// Decompose contains shot decomposition tuning for the scene-detect path.
type Decompose struct {
	SceneThreshold  float64 `toml:"scene_threshold"`
	MinShotSeconds  float64 `toml:"min_shot_seconds"`
	MaxShotSeconds  float64 `toml:"max_shot_seconds"`
	MaxShots        int     `toml:"max_shots"`
	FallbackSeconds float64 `toml:"fallback_interval_seconds"`
}

// Tools contains external binary overrides.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// Engine contains orchestration timing knobs.
type Engine struct {
	LockTimeoutSeconds int `toml:"lock_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for recut.
//
// Configuration sections by subsystem:
//   - Paths: job storage, logs, and API bind address
//   - Generation: remote generation service connection and models
//   - Decompose: scene-detection bounds for job bootstrap
//   - Tools: ffmpeg/ffprobe binary overrides
//   - Engine: per-job lock timing
//   - Logging: log format, level, and retention
type Config struct {
	Paths      Paths      `toml:"paths"`
	Generation Generation `toml:"generation"`
	Decompose  Decompose  `toml:"decompose"`
	Tools      Tools      `toml:"tools"`
	Engine     Engine     `toml:"engine"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/recut/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := locateConfig(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		raw, err := os.ReadFile(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

// locateConfig resolves which config file Load reads. An explicit path wins
// even when the file is absent; otherwise the user config dir is tried
// first, then a recut.toml in the working directory.
func locateConfig(explicit string) (string, bool, error) {
	if explicit != "" {
		expanded, err := expandPath(explicit)
		if err != nil {
			return "", false, err
		}
		switch _, statErr := os.Stat(expanded); {
		case statErr == nil:
			return expanded, true, nil
		case errors.Is(statErr, fs.ErrNotExist):
			return expanded, false, nil
		default:
			return "", false, fmt.Errorf("stat config: %w", statErr)
		}
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("recut.toml")
	if err != nil {
		return "", false, err
	}

	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for engine operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.JobsDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// JobDir returns the storage root for one job.
func (c *Config) JobDir(jobID string) string {
	return filepath.Join(c.Paths.JobsDir, jobID)
}

// RegistryPath returns the sqlite job index location.
func (c *Config) RegistryPath() string {
	return filepath.Join(c.Paths.LogDir, "registry.db")
}

// FFmpegBinary returns the ffmpeg executable to invoke.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Tools.FFmpeg); bin != "" {
		return bin
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable to invoke.
func (c *Config) FFprobeBinary() string {
	if bin := strings.TrimSpace(c.Tools.FFprobe); bin != "" {
		return bin
	}
	return "ffprobe"
}

// expandPath turns ~ and relative values into absolute paths.
func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") || strings.HasPrefix(value, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if value == "~" {
			value = home
		} else {
			value = filepath.Join(home, value[2:])
		}
	}
	abs, err := filepath.Abs(filepath.Clean(value))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return abs, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the embedded sample configuration to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
