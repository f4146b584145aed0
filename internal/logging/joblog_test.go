package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestJobLogWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.log")

	jobLog, err := OpenJobLog(path)
	if err != nil {
		t.Fatalf("OpenJobLog returned error: %v", err)
	}
	defer jobLog.Close()

	logger := slog.New(jobLog.Handler())
	logger.Info("stage complete", slog.String(FieldStage, "stylize"))

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read job log: %v", err)
	}
	if !strings.Contains(string(content), "stage complete") {
		t.Fatalf("job log missing message, got %q", content)
	}
}

func TestJobLogAppendsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.log")

	first, err := OpenJobLog(path)
	if err != nil {
		t.Fatalf("OpenJobLog returned error: %v", err)
	}
	slog.New(first.Handler()).Info("first run")
	if err := first.Close(); err != nil {
		t.Fatalf("close first: %v", err)
	}

	second, err := OpenJobLog(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	slog.New(second.Handler()).Info("second run")
	if err := second.Close(); err != nil {
		t.Fatalf("close second: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read job log: %v", err)
	}
	if !strings.Contains(string(content), "first run") || !strings.Contains(string(content), "second run") {
		t.Fatalf("expected both runs in log, got %q", content)
	}
}

func TestJobLogTeeWithBaseLogger(t *testing.T) {
	dir := t.TempDir()
	basePath := filepath.Join(dir, "daemon.log")
	jobPath := filepath.Join(dir, "job.log")

	base, err := New(Options{Format: "console", Level: "info", OutputPaths: []string{basePath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	jobLog, err := OpenJobLog(jobPath)
	if err != nil {
		t.Fatalf("OpenJobLog returned error: %v", err)
	}
	defer jobLog.Close()

	TeeLogger(base, jobLog.Handler()).Info("teed record")

	for _, path := range []string{basePath, jobPath} {
		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		if !strings.Contains(string(content), "teed record") {
			t.Fatalf("%s missing teed record, got %q", path, content)
		}
	}
}

func TestJobLogNilReceiver(t *testing.T) {
	var jobLog *JobLog
	if _, ok := jobLog.Handler().(nopHandler); !ok {
		t.Fatal("nil JobLog must return the discarding handler")
	}
	if err := jobLog.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
}
