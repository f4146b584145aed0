package logging

import (
	"context"
	"log/slog"
)

// TeeLogger returns a logger whose records reach base's handler and every
// extra handler. The engine uses it to mirror stage activity into the
// per-job session log while the daemon log keeps the full stream.
func TeeLogger(base *slog.Logger, extra ...slog.Handler) *slog.Logger {
	targets := make([]slog.Handler, 0, len(extra)+1)
	if base != nil {
		targets = append(targets, base.Handler())
	}
	for _, h := range extra {
		if h != nil {
			targets = append(targets, h)
		}
	}
	switch len(targets) {
	case 0:
		return NewNop()
	case 1:
		return slog.New(targets[0])
	}
	return slog.New(&teeHandler{targets: targets})
}

// teeHandler fans each record out to every target that accepts its level.
type teeHandler struct {
	targets []slog.Handler
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, t := range h.targets {
		if t.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for i, t := range h.targets {
		if !t.Enabled(ctx, record.Level) {
			continue
		}
		// Handlers may mutate the record's attr cursor, so every target but
		// the last gets its own clone.
		rec := record
		if i < len(h.targets)-1 {
			rec = record.Clone()
		}
		if err := t.Handle(ctx, rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.targets))
	for i, t := range h.targets {
		next[i] = t.WithAttrs(attrs)
	}
	return &teeHandler{targets: next}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.targets))
	for i, t := range h.targets {
		next[i] = t.WithGroup(name)
	}
	return &teeHandler{targets: next}
}
