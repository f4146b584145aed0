// Package generation provides the collaborator implementations the engine
// dispatches stage work to: shot decomposition at bootstrap, frame
// stylization, and video synthesis.
//
// Two pipelines exist. The mock pipeline runs entirely on local ffmpeg
// operations and produces placeholder artifacts (copied frames, stream-copied
// clips), so the whole state machine can be exercised without an API key.
// The remote pipeline calls the generation API: stylization through the
// image-edit endpoint and synthesis through long-running video operations
// that this package polls to completion.
//
// A Registry selects between the pipelines per job based on the document's
// video model; "mock" routes to the local implementations, anything else to
// the remote ones.
//
// The engine owns stage state transitions and persistence. Implementations
// here only read inputs and write the one artifact they were asked for.
package generation
