package services

import "context"

// contextKey scopes the identifiers this package threads through contexts.
type contextKey string

const (
	jobIDKey     contextKey = "job_id"
	shotIDKey    contextKey = "shot_id"
	stageKey     contextKey = "stage"
	requestIDKey contextKey = "request_id"
)

func withString(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key contextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}

// WithJobID tags ctx with the job identifier for downstream logging.
func WithJobID(ctx context.Context, id string) context.Context {
	return withString(ctx, jobIDKey, id)
}

// JobIDFromContext reports the job identifier, if any.
func JobIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, jobIDKey)
}

// WithShotID tags ctx with the shot identifier.
func WithShotID(ctx context.Context, id string) context.Context {
	return withString(ctx, shotIDKey, id)
}

// ShotIDFromContext reports the shot identifier, if any.
func ShotIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, shotIDKey)
}

// WithStage tags ctx with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	return withString(ctx, stageKey, stage)
}

// StageFromContext reports the stage name, if any.
func StageFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, stageKey)
}

// WithRequestID tags ctx with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withString(ctx, requestIDKey, id)
}

// RequestIDFromContext reports the correlation identifier, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, requestIDKey)
}
