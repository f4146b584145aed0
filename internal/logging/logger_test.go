package logging_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"recut/internal/config"
	"recut/internal/logging"
	"recut/internal/services"
)

func TestNewFromConfigWritesDatedFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("startup message")

	matches, err := filepath.Glob(filepath.Join(cfg.Paths.LogDir, "recut-*.log"))
	if err != nil {
		t.Fatalf("glob log dir: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one dated log file, got %v", matches)
	}
	content, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read cli log: %v", err)
	}
	if !strings.Contains(string(content), "startup message") {
		t.Fatalf("cli log missing message, got %q", content)
	}
}

func TestNewFromConfigNilConfigDiscards(t *testing.T) {
	logger, err := logging.NewFromConfig(nil)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	logger.Info("discarded")
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "debug",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleSubjectLine(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "subject.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("stage started",
		logging.String(logging.FieldJobID, "1a2b3c4d"),
		logging.String(logging.FieldShotID, "shot_03"),
		logging.String(logging.FieldStage, "stylize"),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "Job 1a2b3c4d") {
		t.Fatalf("expected job subject, got %q", content)
	}
	if !strings.Contains(string(content), "shot_03 (stylize)") {
		t.Fatalf("expected shot/stage subject, got %q", content)
	}
}

func TestNewJSONLogger(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "out.json")

	logger, err := logging.New(logging.Options{
		Format:      "json",
		Level:       "debug",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("json message", logging.String("k", "v"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), `"msg":"json message"`) {
		t.Fatalf("expected renamed msg key, got %q", content)
	}
	if !strings.Contains(string(content), `"level":"info"`) {
		t.Fatalf("expected lowercase level, got %q", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := logging.New(logging.Options{Format: "xml"})
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "level.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "invalid",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Debug("hidden")
	logger.Info("visible")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), "hidden") {
		t.Fatalf("debug record should be filtered at info level, got %q", content)
	}
	if !strings.Contains(string(content), "visible") {
		t.Fatalf("info record missing, got %q", content)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobID(ctx, "9f8e7d6c")
	ctx = services.WithShotID(ctx, "shot_01")
	ctx = services.WithStage(ctx, "video_generate")
	ctx = services.WithRequestID(ctx, "req-xyz")

	logPath := filepath.Join(t.TempDir(), "ctx.json")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WithContext(ctx, logger).Info("contextual log")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for _, want := range []string{
		`"job_id":"9f8e7d6c"`,
		`"shot_id":"shot_01"`,
		`"stage":"video_generate"`,
		`"correlation_id":"req-xyz"`,
	} {
		if !strings.Contains(string(content), want) {
			t.Fatalf("log output missing %s, got %q", want, content)
		}
	}
}

func TestWithContextNilLoggerReturnsNop(t *testing.T) {
	logger := logging.WithContext(context.Background(), nil)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	// Must not panic.
	logger.Info("discarded")
}
