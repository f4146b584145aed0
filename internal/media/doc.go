// Package media wraps the ffmpeg operations recut performs locally.
//
// Everything here is a thin, typed layer over the ffmpeg CLI: frame and
// segment extraction at bootstrap, scene-change detection for shot
// decomposition, placeholder clip rendering for the mock pipeline, and the
// concat muxing used by merge. Command execution goes through the Executor
// interface so tests can substitute canned output for a real binary.
//
// Key entry points:
//   - Client: binds the configured ffmpeg/ffprobe binaries to an Executor
//   - Probe: typed ffprobe inspection (see the ffprobe subpackage)
//   - ExtractFrame, ExtractSegment: per-shot bootstrap artifacts
//   - SceneChanges + PlanSegments: shot decomposition
//   - PlaceholderClip: mock pipeline stand-in video
//   - Concat: lossless concatenation for the merge stage
//
// This package knows nothing about jobs or stages; callers pass explicit
// source and destination paths.
package media
