package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RetentionTarget names one directory and filename pattern to prune. Exclude
// lists paths that must survive the sweep, typically the log file the running
// process is writing to.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

// CleanupOldLogs removes files matching the targets whose modification time
// is older than retentionDays. Zero or negative retention disables pruning.
// Failures are logged and skipped; retention never interrupts startup.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) {
	if retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	for _, target := range targets {
		pruneTarget(logger, target, cutoff)
	}
}

func pruneTarget(logger *slog.Logger, target RetentionTarget, cutoff time.Time) {
	dir := strings.TrimSpace(target.Dir)
	if dir == "" {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	keep := make(map[string]struct{}, len(target.Exclude))
	for _, path := range target.Exclude {
		if abs := absOrSelf(path); abs != "" {
			keep[abs] = struct{}{}
		}
	}

	pattern := strings.TrimSpace(target.Pattern)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if pattern != "" {
			if matched, err := filepath.Match(pattern, entry.Name()); err != nil || !matched {
				continue
			}
		}
		path := absOrSelf(filepath.Join(dir, entry.Name()))
		if _, excluded := keep[path]; excluded {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "could not prune old log file", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check log_dir permissions"),
				String(FieldImpact, "expired log file remains on disk"),
			)
			continue
		}
		if logger != nil {
			logger.Info("pruned expired log file",
				String("path", path),
				String(FieldEventType, "log_pruned"),
			)
		}
	}
}

func absOrSelf(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
