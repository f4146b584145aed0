// Package api defines wire-format types and converters for the HTTP API and
// the CLI's JSON output. It translates internal workflow models into
// transport-friendly DTOs so consumers never couple to internal types.
//
// # Key Types
//
// JobView: full transport representation of one workflow document with
// per-shot stage states, recorded assets, and the merge readiness summary.
//
// JobSummary: one row of a job listing, derived from the registry index.
//
// EditResult/SkippedDirective: outcome reporting for edit batches and chat
// proposals.
//
// RunAccepted: acknowledgement for a stage run that continues in the
// background.
//
// DaemonStatus: daemon runtime information including startup checks.
//
// # Converters
//
// FromJob: workflow.Job -> JobView.
//
// FromEntry: registry.Entry -> JobSummary with display state.
//
// FromEditOutcomes / FromSkippedDirectives / FromPreflight: surface-layer
// projections of engine, agent, and preflight results.
//
// # Design Notes
//
// Envelope DTOs use camelCase JSON tags. Edit operations keep their
// document-domain wire names (snake_case op fields) because the edits
// package owns that vocabulary; the API passes them through untouched.
// Stage and status enums are exposed as plain strings.
package api
