// Package services defines shared utilities consumed by the orchestration
// engine and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, shot IDs, stage names, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the outcomes surfaced over the API and CLI (not found, precondition
//     failed, generator failure, persistence failure).
//
// Use these helpers when wiring new engine logic so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
