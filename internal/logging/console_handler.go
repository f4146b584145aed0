package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders records as human-readable blocks: one header line
// carrying level, component, and job context, then indented fields. Info
// records drop fields whose value is unchanged since the previous record of
// the same job, so poll loops stay readable.
type consoleHandler struct {
	state     *consoleState
	level     *slog.LevelVar
	attrs     []slog.Attr
	groups    []string
	addSource bool
}

// consoleState is shared by every clone of a handler so the writer and the
// repeat-suppression cache stay under one mutex.
type consoleState struct {
	mu       sync.Mutex
	out      io.Writer
	lastSeen map[string]map[string]string
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{
		state:     &consoleState{out: w, lastSeen: make(map[string]map[string]string)},
		level:     lvl,
		addSource: addSource,
	}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// recordID holds the identity fields lifted out of a record's attrs. They
// render in the header line, never in the field list.
type recordID struct {
	component string
	jobID     string
	shotID    string
	stage     string
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.level.Level() {
		return nil
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}

	flat := make([]flatAttr, 0, record.NumAttrs()+len(h.attrs))
	flattenInto(&flat, h.groups, h.attrs...)
	record.Attrs(func(attr slog.Attr) bool {
		flattenInto(&flat, h.groups, attr)
		return true
	})
	id, body := liftIdentity(dedupeAttrs(flat))

	var buf bytes.Buffer
	buf.Grow(256 + len(body)*32)
	h.writeHeader(&buf, ts, record.Level, id, message, record.Source())

	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	if record.Level < slog.LevelInfo {
		writeRawFields(&buf, body)
	} else {
		h.writeInfoFields(&buf, record.Level, id, body)
	}
	_, err := h.state.out.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) writeHeader(buf *bytes.Buffer, ts time.Time, level slog.Level, id recordID, message string, src *slog.Source) {
	buf.WriteString(consoleTime(ts))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(level))
	if id.component != "" {
		buf.WriteString(" [")
		buf.WriteString(id.component)
		buf.WriteByte(']')
	}
	if subject := FormatSubject(id.jobID, id.shotID, id.stage); subject != "" {
		buf.WriteByte(' ')
		buf.WriteString(subject)
	}
	buf.WriteString(" | ")
	buf.WriteString(message)
	if h.addSource && src != nil {
		buf.WriteString(" [")
		buf.WriteString(filepath.Base(src.File))
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(src.Line))
		buf.WriteByte(']')
	}
	buf.WriteByte('\n')
}

// writeRawFields prints every field, one per line. Debug records get the
// unfiltered view.
func writeRawFields(buf *bytes.Buffer, attrs []flatAttr) {
	for _, attr := range attrs {
		buf.WriteString("    ")
		buf.WriteString(attr.key)
		buf.WriteString(": ")
		buf.WriteString(fieldValue(attr.value))
		buf.WriteByte('\n')
	}
}

// writeInfoFields prints the curated field list, suppressing values unchanged
// since the previous info record for the same job. Warn and error records
// always render in full but still refresh the cache. Caller holds state.mu.
func (h *consoleHandler) writeInfoFields(buf *bytes.Buffer, level slog.Level, id recordID, attrs []flatAttr) {
	fields := selectInfoFields(attrs)
	if key := infoSummaryKey(id, attrs); key != "" && len(fields) > 0 {
		seen := h.state.lastSeen[key]
		if seen == nil {
			seen = make(map[string]string)
			h.state.lastSeen[key] = seen
		}
		if level == slog.LevelInfo {
			kept := fields[:0]
			for _, field := range fields {
				if prev, ok := seen[field.label]; ok && prev == field.value {
					continue
				}
				seen[field.label] = field.value
				kept = append(kept, field)
			}
			fields = kept
		} else {
			for _, field := range fields {
				seen[field.label] = field.value
			}
		}
	}
	for _, field := range fields {
		buf.WriteString("    - ")
		buf.WriteString(field.label)
		buf.WriteString(": ")
		buf.WriteString(field.value)
		buf.WriteByte('\n')
	}
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	clone.attrs = append(clone.attrs, attrs...)
	return clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *consoleHandler) clone() *consoleHandler {
	return &consoleHandler{
		state:     h.state,
		level:     h.level,
		addSource: h.addSource,
		attrs:     append([]slog.Attr(nil), h.attrs...),
		groups:    append([]string(nil), h.groups...),
	}
}

// flatAttr is a resolved attribute with group prefixes folded into the key.
type flatAttr struct {
	key   string
	value slog.Value
}

func flattenInto(dst *[]flatAttr, prefix []string, attrs ...slog.Attr) {
	for _, attr := range attrs {
		if attr.Equal(slog.Attr{}) {
			continue
		}
		attr.Value = attr.Value.Resolve()
		if attr.Value.Kind() == slog.KindGroup {
			next := prefix
			if attr.Key != "" {
				next = append(append(make([]string, 0, len(prefix)+1), prefix...), attr.Key)
			}
			flattenInto(dst, next, attr.Value.Group()...)
			continue
		}
		key := attr.Key
		if len(prefix) > 0 {
			if key == "" {
				key = strings.Join(prefix, ".")
			} else {
				key = strings.Join(prefix, ".") + "." + key
			}
		}
		*dst = append(*dst, flatAttr{key: key, value: attr.Value})
	}
}

// dedupeAttrs keeps one entry per key at its first position; the last
// duplicate wins the value. Empty keys are dropped.
func dedupeAttrs(attrs []flatAttr) []flatAttr {
	if len(attrs) == 0 {
		return attrs
	}
	pos := make(map[string]int, len(attrs))
	out := attrs[:0]
	for _, attr := range attrs {
		if attr.key == "" {
			continue
		}
		if i, ok := pos[attr.key]; ok {
			out[i].value = attr.value
			continue
		}
		pos[attr.key] = len(out)
		out = append(out, attr)
	}
	return out
}

// liftIdentity splits the component and job context keys from the rest of the
// attrs.
func liftIdentity(attrs []flatAttr) (recordID, []flatAttr) {
	var id recordID
	body := attrs[:0]
	for _, attr := range attrs {
		switch attr.key {
		case FieldComponent:
			id.component = valueText(attr.value)
		case FieldJobID:
			id.jobID = valueText(attr.value)
		case FieldShotID:
			id.shotID = valueText(attr.value)
		case FieldStage:
			id.stage = valueText(attr.value)
		default:
			body = append(body, attr)
		}
	}
	return id, body
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
