package logging

import (
	"context"
	"log/slog"

	"recut/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldJobID is the standardized structured logging key for job identifiers.
	FieldJobID = "job_id"
	// FieldShotID is the standardized structured logging key for shot identifiers.
	FieldShotID = "shot_id"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
	// FieldEventType categorizes log records for downstream filtering.
	FieldEventType = "event_type"
	// FieldErrorCode carries the stable machine-readable error classification.
	FieldErrorCode = "error_code"
	// FieldErrorHint suggests the next step for an operator reading a warning or error.
	FieldErrorHint = "error_hint"
	// FieldImpact states the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldProgressStage names the sub-step of a long-running operation.
	FieldProgressStage = "progress_stage"
	// FieldProgressPercent carries 0-100 completion for a long-running operation.
	FieldProgressPercent = "progress_percent"
	// FieldProgressMessage carries the human-readable progress summary.
	FieldProgressMessage = "progress_message"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.JobIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldJobID, id))
	}
	if shot, ok := services.ShotIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldShotID, shot))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(asArgs(fields)...)
}
