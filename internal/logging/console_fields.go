package logging

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type infoField struct {
	label string
	value string
}

// infoHighlightKeys render first, in this order. Everything else follows in
// arrival order.
var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	"status",
	"pipeline",
	FieldProgressStage,
	FieldProgressPercent,
	FieldProgressMessage,
	"command",
	"error_message",
	FieldErrorCode,
	FieldErrorHint,
	"operation_name",
	"video_model",
	"image_model",
	"chat_model",
	"style_prompt",
	"shots_total",
	"shots_failed",
	"shots_pending",
	"affected_shots",
	"ops_applied",
	"invalidated_stages",
	"stage_duration",
	"segment_duration",
	"output_bytes",
	"final_bytes",
	"attempts",
	"reason",
}

// selectInfoFields formats body attrs for an info-level record.
func selectInfoFields(attrs []flatAttr) []infoField {
	if len(attrs) == 0 {
		return nil
	}
	fields := make([]infoField, 0, len(attrs))
	used := make([]bool, len(attrs))
	for _, key := range infoHighlightKeys {
		for i, attr := range attrs {
			if used[i] || attr.key != key {
				continue
			}
			used[i] = true
			fields = append(fields, infoField{label: displayLabel(key), value: formatFieldValue(key, attr.value)})
			break
		}
	}
	for i, attr := range attrs {
		if used[i] {
			continue
		}
		fields = append(fields, infoField{label: displayLabel(attr.key), value: formatFieldValue(attr.key, attr.value)})
	}
	return fields
}

// formatFieldValue picks a rendering by key convention: byte counts become
// binary sizes, durations round to seconds, percents get one decimal, bools
// read yes/no, and error text is truncated.
func formatFieldValue(key string, v slog.Value) string {
	if isByteSizeKey(key) && (v.Kind() == slog.KindInt64 || v.Kind() == slog.KindUint64) {
		size := v.Int64()
		if v.Kind() == slog.KindUint64 {
			size = int64(v.Uint64())
		}
		return formatBytes(size)
	}
	if isDurationKey(key) && v.Kind() == slog.KindDuration {
		return formatDurationHuman(v.Duration())
	}
	if isPercentKey(key) && v.Kind() == slog.KindFloat64 {
		return formatPercent(v.Float64())
	}
	if v.Kind() == slog.KindBool {
		if v.Bool() {
			return "yes"
		}
		return "no"
	}
	value := fieldValue(v)
	if key == "error" || key == "error_message" {
		value = truncateErrorValue(value)
	}
	return value
}

func isByteSizeKey(key string) bool {
	return strings.HasSuffix(key, "_bytes") ||
		strings.HasSuffix(key, "_size") ||
		key == "size"
}

func isDurationKey(key string) bool {
	return strings.HasSuffix(key, "_duration") ||
		strings.HasSuffix(key, "_elapsed") ||
		strings.HasSuffix(key, "_latency") ||
		key == "elapsed" ||
		key == "duration" ||
		key == "backoff"
}

func isPercentKey(key string) bool {
	return strings.HasSuffix(key, "_percent") || key == FieldProgressPercent
}

func truncateErrorValue(value string) string {
	value = strings.TrimSpace(value)
	const maxLen = 200
	if len(value) > maxLen {
		value = value[:maxLen] + "..."
	}
	return value
}

var fieldLabels = map[string]string{
	FieldAlert:           "Alert",
	FieldEventType:       "Event",
	FieldErrorCode:       "Error Code",
	FieldErrorHint:       "Hint",
	FieldProgressStage:   "Progress Stage",
	FieldProgressMessage: "Progress",
	FieldProgressPercent: "Percent",
	"status":             "Status",
	"pipeline":           "Pipeline",
	"operation_name":     "Operation",
	"video_model":        "Video Model",
	"image_model":        "Image Model",
	"chat_model":         "Chat Model",
	"style_prompt":       "Style",
	"source_video":       "Source",
	"shots_total":        "Shots",
	"shots_failed":       "Failed",
	"shots_pending":      "Pending",
	"affected_shots":     "Affected",
	"ops_applied":        "Ops Applied",
	"invalidated_stages": "Invalidated",
	"stage_duration":     "Duration",
	"segment_duration":   "Segment",
	"output_bytes":       "Output Size",
	"final_bytes":        "Final Size",
	"attempts":           "Attempts",
	"reason":             "Reason",
}

func displayLabel(key string) string {
	if label, ok := fieldLabels[key]; ok {
		return label
	}
	return titleizeKey(key)
}

func titleizeKey(key string) string {
	parts := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-'
	})
	if len(parts) == 0 {
		return capitalizeASCII(key)
	}
	for i, part := range parts {
		parts[i] = capitalizeASCII(part)
	}
	return strings.Join(parts, " ")
}

func capitalizeASCII(value string) string {
	switch len(value) {
	case 0:
		return ""
	case 1:
		return strings.ToUpper(value)
	default:
		lower := strings.ToLower(value)
		return strings.ToUpper(lower[:1]) + lower[1:]
	}
}

// infoSummaryKey scopes the repeated-field cache to one job (or one shot of a
// job when shot context exists) so unrelated jobs never suppress each other.
// Records without job context fall back to the source path or the component.
func infoSummaryKey(id recordID, attrs []flatAttr) string {
	job := strings.TrimSpace(id.jobID)
	if job == "" {
		if source := attrValue(attrs, "source_video"); source != "" {
			job = "source:" + source
		} else {
			job = id.component
		}
	}
	if job == "" {
		return ""
	}
	if shot := strings.TrimSpace(id.shotID); shot != "" {
		return job + "/" + shot
	}
	return job
}

func attrValue(attrs []flatAttr, key string) string {
	for _, attr := range attrs {
		if attr.key == key {
			return valueText(attr.value)
		}
	}
	return ""
}

func formatBytes(value int64) string {
	const (
		kiB = 1024
		miB = kiB * 1024
		giB = miB * 1024
	)
	switch {
	case value >= giB:
		return fmt.Sprintf("%.2f GiB", float64(value)/float64(giB))
	case value >= miB:
		return fmt.Sprintf("%.2f MiB", float64(value)/float64(miB))
	case value >= kiB:
		return fmt.Sprintf("%.2f KiB", float64(value)/float64(kiB))
	default:
		return fmt.Sprintf("%d B", value)
	}
}

func formatPercent(value float64) string {
	return fmt.Sprintf("%.1f%%", value)
}

func formatDurationHuman(d time.Duration) string {
	if d < time.Second {
		return d.String()
	}
	return d.Round(time.Second).String()
}
