package logging

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// JobLog appends console-formatted records to a job's on-disk log file.
// Engine code tees its logger into the handler while a job holds work, so
// every stage transition lands both in the daemon log and beside the job's
// assets.
type JobLog struct {
	mu      sync.Mutex
	file    *os.File
	handler slog.Handler
}

// OpenJobLog opens (or creates) the log file at path in append mode. The
// returned handler records at debug level; callers control verbosity through
// the logger they tee into it.
func OpenJobLog(path string) (*JobLog, error) {
	if err := mkdirForFile(path); err != nil {
		return nil, fmt.Errorf("create job log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open job log %s: %w", path, err)
	}
	level := new(slog.LevelVar)
	level.Set(slog.LevelDebug)
	return &JobLog{
		file:    file,
		handler: newConsoleHandler(file, level, false),
	}, nil
}

// Handler exposes the slog handler backed by the job log file.
func (l *JobLog) Handler() slog.Handler {
	if l == nil {
		return nopHandler{}
	}
	return l.handler
}

// Close releases the underlying file handle. Safe to call on nil.
func (l *JobLog) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
