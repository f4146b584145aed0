// Package edits defines the edit operations that mutate a workflow document.
//
// Operations arrive as JSON objects tagged with an "op" discriminator, either
// one at a time or as a batch, from the HTTP API, the CLI, and the agent.
// Decoding is strict: unknown operation names and missing required fields are
// rejected before any mutation happens. Application of the decoded operations
// (the cascading invalidation itself) lives in the engine.
package edits
