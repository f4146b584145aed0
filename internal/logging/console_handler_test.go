package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func newTestConsole(buf *bytes.Buffer, level slog.Level) *slog.Logger {
	lv := new(slog.LevelVar)
	lv.Set(level)
	return slog.New(newConsoleHandler(buf, lv, false))
}

func TestConsoleHeaderCarriesIdentity(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestConsole(&buf, slog.LevelInfo)

	logger.Info("clip ready",
		String(FieldComponent, "engine"),
		String(FieldJobID, "job-1"),
		String(FieldShotID, "shot_02"),
		String(FieldStage, "video_generate"),
		String("status", "success"),
	)

	out := buf.String()
	if !strings.Contains(out, "[engine] Job job-1 · shot_02 (video_generate) | clip ready") {
		t.Fatalf("header missing identity, got %q", out)
	}
	if !strings.Contains(out, "- Status: success") {
		t.Fatalf("expected highlighted status field, got %q", out)
	}
	if strings.Contains(out, "job_id") {
		t.Fatalf("identity keys must not repeat in the field list, got %q", out)
	}
}

func TestConsoleInfoSuppressesUnchangedFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestConsole(&buf, slog.LevelInfo).With(String(FieldJobID, "job-7"))

	logger.Info("poll", String("status", "running"))
	logger.Info("poll", String("status", "running"))
	logger.Info("poll", String("status", "success"))

	if n := strings.Count(buf.String(), "- Status:"); n != 2 {
		t.Fatalf("expected 2 status lines (changed values only), got %d in %q", n, buf.String())
	}
}

func TestConsoleWarnAlwaysRendersFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestConsole(&buf, slog.LevelInfo).With(String(FieldJobID, "job-9"))

	logger.Warn("retrying", String("reason", "timeout"))
	logger.Warn("retrying", String("reason", "timeout"))

	if n := strings.Count(buf.String(), "- Reason: timeout"); n != 2 {
		t.Fatalf("warn records must render in full every time, got %d in %q", n, buf.String())
	}
}

func TestConsoleDebugShowsRawKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestConsole(&buf, slog.LevelDebug)

	logger.Debug("request", String("prompt", "make it neon"), Int("attempt", 2))

	out := buf.String()
	if !strings.Contains(out, `prompt: "make it neon"`) {
		t.Fatalf("debug prompt field missing, got %q", out)
	}
	if !strings.Contains(out, "attempt: 2") {
		t.Fatalf("debug attempt field missing, got %q", out)
	}
}

func TestConsoleGroupKeysFlatten(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestConsole(&buf, slog.LevelDebug)

	logger.WithGroup("probe").Debug("check", String("codec", "h264"))

	if !strings.Contains(buf.String(), "probe.codec: h264") {
		t.Fatalf("expected dotted group key, got %q", buf.String())
	}
}

func TestConsoleDuplicateKeysLastWins(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestConsole(&buf, slog.LevelDebug)

	logger.Debug("merge", String("output", "a.mp4"), String("output", "b.mp4"))

	out := buf.String()
	if strings.Contains(out, "a.mp4") {
		t.Fatalf("overridden value must not render, got %q", out)
	}
	if !strings.Contains(out, "output: b.mp4") {
		t.Fatalf("expected last duplicate to win, got %q", out)
	}
}
