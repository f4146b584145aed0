// Package preflight provides readiness checks for the directories, binaries,
// and remote APIs that recut depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup. A failed check halts startup so
//     jobs never begin against a broken environment.
//   - Status displays call CheckTools and CheckGenerationFromConfig, where a
//     missing binary or key should read as a warning rather than a refusal.
//
// RunAll gates the generation API check on the remote pipeline being in
// use; a mock-only installation never needs a key or network access.
package preflight
