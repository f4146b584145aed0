package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"recut/internal/agent"
	"recut/internal/config"
	"recut/internal/daemon"
	"recut/internal/engine"
	"recut/internal/generation"
	"recut/internal/logging"
	"recut/internal/media"
	"recut/internal/registry"
	"recut/internal/services/genai"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run brings up the full daemon process and blocks until SIGINT, SIGTERM,
// or cancellation of the parent context.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logPath := runLogPath(cfg.Paths.LogDir)
	logger, err := openRunLogger(cfg, opts, logPath)
	if err != nil {
		return err
	}

	logToolchain(logger, cfg)
	if err := refreshLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		logger.Warn("could not update recutd.log pointer",
			logging.String(logging.FieldEventType, "log_pointer_refresh_failed"),
			logging.Error(err),
		)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "recutd-*.log", Exclude: []string{logPath}},
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "recut-*.log"},
	)

	removePID, err := recordPID(cfg.Paths.LogDir)
	if err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer removePID()

	d, err := assemble(cfg, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	<-ctx.Done()
	logger.Info("recut daemon shutting down")
	return nil
}

// runLogPath names this run's log file with a UTC timestamp so successive
// runs never collide.
func runLogPath(logDir string) string {
	stamp := time.Now().UTC().Format("20060102T150405.000Z")
	return filepath.Join(logDir, "recutd-"+stamp+".log")
}

func openRunLogger(cfg *config.Config, opts Options, logPath string) (*slog.Logger, error) {
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

// assemble wires media tools, generation pipelines, the engine, the chat
// agent, and the job index into a daemon. The daemon owns the index once
// daemon.New succeeds; on earlier failures the index is closed here.
func assemble(cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	index, err := registry.Open(cfg)
	if err != nil {
		logger.Error("open job registry", logging.Error(err))
		return nil, err
	}

	mediaClient, err := media.New(cfg.FFmpegBinary(), cfg.FFprobeBinary())
	if err != nil {
		index.Close()
		return nil, fmt.Errorf("init media tools: %w", err)
	}

	var remote *genai.Client
	if strings.TrimSpace(cfg.Generation.APIKey) != "" {
		remote = genai.NewClient(genai.Config{
			APIKey:         cfg.Generation.APIKey,
			BaseURL:        cfg.Generation.BaseURL,
			ChatModel:      cfg.Generation.ChatModel,
			ImageModel:     cfg.Generation.ImageModel,
			VideoModel:     cfg.Generation.VideoModel,
			TimeoutSeconds: cfg.Generation.TimeoutSeconds,
		})
	}

	pipelines := generation.NewRegistry(mediaClient, remote, generation.SettingsFromConfig(cfg), logger)
	eng, err := engine.New(cfg, mediaClient, pipelines, index, logger)
	if err != nil {
		index.Close()
		return nil, fmt.Errorf("create engine: %w", err)
	}

	var chatAgent *agent.Agent
	if remote != nil {
		chatAgent = agent.New(remote, logger)
	}

	d, err := daemon.New(cfg, eng, chatAgent, index, logger)
	if err != nil {
		index.Close()
		return nil, fmt.Errorf("create daemon: %w", err)
	}
	return d, nil
}

// refreshLogPointer points logDir/recutd.log at the current run's log so a
// single tail survives restarts. Falls back to a hard link on filesystems
// without symlink support.
func refreshLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	pointer := filepath.Join(logDir, "recutd.log")
	if err := os.Remove(pointer); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("drop stale log pointer: %w", err)
	}
	if symErr := os.Symlink(target, pointer); symErr != nil {
		if linkErr := os.Link(target, pointer); linkErr != nil {
			return fmt.Errorf("point %s at %s: %w", pointer, target, linkErr)
		}
	}
	return nil
}

// recordPID drops recutd.pid next to the logs and returns the cleanup that
// removes it on shutdown.
func recordPID(logDir string) (func(), error) {
	if logDir == "" {
		return func() {}, nil
	}
	path := filepath.Join(logDir, "recutd.pid")
	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(path, []byte(pid+"\n"), 0o644); err != nil {
		return nil, err
	}
	return func() { os.Remove(path) }, nil
}

func logToolchain(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	ffmpeg := cfg.FFmpegBinary()
	ffprobe := cfg.FFprobeBinary()
	logger.Info("toolchain snapshot",
		logging.String(logging.FieldEventType, "toolchain_snapshot"),
		logging.Bool("ffmpeg_available", toolOnPath(ffmpeg)),
		logging.String("ffmpeg_binary", ffmpeg),
		logging.Bool("ffprobe_available", toolOnPath(ffprobe)),
		logging.String("ffprobe_binary", ffprobe),
		logging.Bool("generation_key_present", strings.TrimSpace(cfg.Generation.APIKey) != ""),
		logging.String("default_pipeline", cfg.Generation.DefaultPipeline),
		logging.String("chat_model", cfg.Generation.ChatModel),
		logging.String("video_model", cfg.Generation.VideoModel),
	)
}

func toolOnPath(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}
