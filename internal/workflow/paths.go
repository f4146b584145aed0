package workflow

import (
	"path"
	"path/filepath"
	"strings"
)

// File and directory names inside one job directory.
const (
	DocumentFileName = "workflow.json"
	LockFileName     = ".lock"
	LogFileName      = "job.log"
	FramesDirName    = "frames"
	StylizedDirName  = "stylized_frames"
	SegmentsDirName  = "source_segments"
	VideosDirName    = "videos"
	FinalOutputName  = "final_output.mp4"

	frameExt   = ".png"
	segmentExt = ".mp4"
	videoExt   = ".mp4"
)

// Layout resolves document and artifact locations under one job directory.
// Asset paths inside the document stay relative to the job root so a job
// directory can be moved wholesale.
type Layout struct {
	root string
}

// NewLayout builds a layout rooted at the job directory.
func NewLayout(jobDir string) Layout {
	return Layout{root: filepath.Clean(jobDir)}
}

// Root returns the job directory.
func (l Layout) Root() string { return l.root }

// DocumentPath returns the absolute path of workflow.json.
func (l Layout) DocumentPath() string { return filepath.Join(l.root, DocumentFileName) }

// LockPath returns the absolute path of the per-job lock file.
func (l Layout) LockPath() string { return filepath.Join(l.root, LockFileName) }

// LogPath returns the absolute path of the per-job session log.
func (l Layout) LogPath() string { return filepath.Join(l.root, LogFileName) }

// FinalOutputPath returns the absolute path of the merge artifact.
func (l Layout) FinalOutputPath() string { return filepath.Join(l.root, FinalOutputName) }

// AssetDirs returns the artifact directories the bootstrap path creates.
func (l Layout) AssetDirs() []string {
	return []string{
		filepath.Join(l.root, FramesDirName),
		filepath.Join(l.root, StylizedDirName),
		filepath.Join(l.root, SegmentsDirName),
		filepath.Join(l.root, VideosDirName),
	}
}

// Resolve joins a document-relative asset path onto the job root. Absolute
// inputs pass through unchanged.
func (l Layout) Resolve(rel string) string {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		return ""
	}
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}
	return filepath.Join(l.root, filepath.FromSlash(rel))
}

// FirstFramePath returns the absolute extraction frame path for a shot.
func (l Layout) FirstFramePath(shotID string) string {
	return l.Resolve(FirstFrameRel(shotID))
}

// StylizedFramePath returns the absolute stylize artifact path for a shot.
func (l Layout) StylizedFramePath(shotID string) string {
	return l.Resolve(StylizedFrameRel(shotID))
}

// SourceSegmentPath returns the absolute extracted clip path for a shot.
func (l Layout) SourceSegmentPath(shotID string) string {
	return l.Resolve(SourceSegmentRel(shotID))
}

// VideoPath returns the absolute video_generate artifact path for a shot.
func (l Layout) VideoPath(shotID string) string {
	return l.Resolve(VideoRel(shotID))
}

// ArtifactPath returns the absolute artifact location a shot stage produces.
func (l Layout) ArtifactPath(stage Stage, shotID string) (string, bool) {
	rel, ok := ArtifactRel(stage, shotID)
	if !ok {
		return "", false
	}
	return l.Resolve(rel), true
}

// FirstFrameRel returns the document-relative extraction frame path.
func FirstFrameRel(shotID string) string {
	return path.Join(FramesDirName, shotID+frameExt)
}

// StylizedFrameRel returns the document-relative stylize artifact path.
func StylizedFrameRel(shotID string) string {
	return path.Join(StylizedDirName, shotID+frameExt)
}

// SourceSegmentRel returns the document-relative extracted clip path.
func SourceSegmentRel(shotID string) string {
	return path.Join(SegmentsDirName, shotID+segmentExt)
}

// VideoRel returns the document-relative video_generate artifact path.
func VideoRel(shotID string) string {
	return path.Join(VideosDirName, shotID+videoExt)
}

// ArtifactRel returns the document-relative artifact path a shot stage
// produces for the given shot.
func ArtifactRel(stage Stage, shotID string) (string, bool) {
	switch stage {
	case StageStylize:
		return StylizedFrameRel(shotID), true
	case StageVideoGenerate:
		return VideoRel(shotID), true
	default:
		return "", false
	}
}
