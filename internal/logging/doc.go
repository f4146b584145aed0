// Package logging builds the slog loggers recut components share.
//
// New constructs the root logger from Options: console or JSON format and
// one or more output sinks, with the level fixed at construction. Context
// helpers thread job, shot, and stage identity through blocking calls so
// every line a stage emits carries its provenance without passing attrs by
// hand. Per-job logs fan out through an extra handler that writes a filtered
// copy into the job directory.
//
// NewNop returns a logger that discards everything; tests and wiring code
// that cannot fail use it instead of nil checks.
package logging
