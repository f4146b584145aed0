package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"recut/internal/config"
)

// Options describes logger construction parameters. Every sink receives
// every record at or above Level.
type Options struct {
	// Level is debug, info, warn, or error. Unknown values fall back to info.
	Level string
	// Format is "console" (default) or "json".
	Format string
	// OutputPaths lists sinks: "stdout", "stderr", or file paths. Files open
	// in append mode. Defaults to stdout.
	OutputPaths []string
	// Development forces caller information even above debug level.
	Development bool
}

// New constructs a slog logger from opts.
func New(opts Options) (*slog.Logger, error) {
	level := new(slog.LevelVar)
	level.Set(parseLevel(opts.Level))

	sink, err := openSink(opts.OutputPaths)
	if err != nil {
		return nil, err
	}
	addSource := opts.Development || level.Level() <= slog.LevelDebug

	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "", "console":
		return slog.New(newConsoleHandler(sink, level, addSource)), nil
	case "json":
		return slog.New(newJSONHandler(sink, level, addSource)), nil
	default:
		return nil, fmt.Errorf("log format %q not recognized", opts.Format)
	}
}

// NewFromConfig creates the logger CLI commands share. Stdout and stderr
// stay reserved for rendered command output, so records go only to a dated
// file in the configured log directory. The file opens in append mode and
// the dated name keeps old days visible to the daemon's retention sweep.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil || cfg.Paths.LogDir == "" {
		return NewNop(), nil
	}
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("recut-%s.log", time.Now().Format("20060102")))
	return New(Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{logPath},
	})
}

var levelNames = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func parseLevel(name string) slog.Level {
	if lvl, ok := levelNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// openSink opens each named sink once, in order, and fans writes out when
// more than one remains.
func openSink(paths []string) (io.Writer, error) {
	if len(paths) == 0 {
		paths = []string{"stdout"}
	}
	var writers []io.Writer
	opened := make(map[string]bool, len(paths))
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" || opened[path] {
			continue
		}
		opened[path] = true
		w, err := openWriter(path)
		if err != nil {
			return nil, err
		}
		writers = append(writers, w)
	}
	switch len(writers) {
	case 0:
		return os.Stdout, nil
	case 1:
		return writers[0], nil
	}
	return io.MultiWriter(writers...), nil
}

// openWriter resolves one sink name to a writer. Names other than the two
// standard streams are file paths, created on first use.
func openWriter(path string) (io.Writer, error) {
	switch path {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	if err := mkdirForFile(path); err != nil {
		return nil, fmt.Errorf("create log directory for %s: %w", path, err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}

// mkdirForFile creates the directory that will hold the file at path.
func mkdirForFile(path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		return os.MkdirAll(dir, 0o755)
	}
	return nil
}
