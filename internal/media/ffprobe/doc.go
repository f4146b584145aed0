// Package ffprobe shells out to ffprobe and decodes its JSON report into
// typed results.
//
// The package knows nothing about recut jobs; it maps the subset of the
// ffprobe schema the rest of the tree reads (stream layout, dimensions,
// container duration and size) and leaves everything else on the floor.
// Inspect is the only entry point. The helpers on Result deal with ffprobe's
// habit of encoding numbers as strings.
package ffprobe
