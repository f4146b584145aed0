package engine

import (
	"os"

	"recut/internal/workflow"
)

// reconcileJob corrects each shot's declared stage statuses against artifact
// presence on disk, stylize before video_generate, then refreshes the derived
// merge summary. It reports whether the document changed.
//
// RUNNING plus an existing artifact promotes to SUCCESS: the artifact is the
// only trustworthy completion signal because the producing process may have
// crashed between writing the file and persisting the status. SUCCESS without
// the artifact demotes to NOT_STARTED. FAILED, NOT_STARTED, and RUNNING
// without an artifact keep their status, but any asset path recorded for a
// non-SUCCESS stage is dropped so a stale path is never re-served.
func reconcileJob(job *workflow.Job, layout workflow.Layout) bool {
	changed := false
	for _, shot := range job.Shots {
		if shot == nil {
			continue
		}
		for _, stage := range workflow.ShotStages() {
			assetKey, ok := workflow.AssetForStage(stage)
			if !ok {
				continue
			}
			rel, _ := workflow.ArtifactRel(stage, shot.ID)
			exists := fileExists(artifactPath(layout, shot, stage))

			switch shot.StageState(stage) {
			case workflow.StatusRunning:
				if exists {
					shot.MarkSuccess(stage, rel)
					changed = true
				} else if shot.Asset(assetKey) != "" {
					delete(shot.Assets, assetKey)
					changed = true
				}
			case workflow.StatusSuccess:
				if !exists {
					shot.ResetStage(stage)
					changed = true
				} else if shot.Asset(assetKey) == "" {
					shot.Assets[assetKey] = rel
					changed = true
				}
			default:
				if shot.Asset(assetKey) != "" {
					delete(shot.Assets, assetKey)
					changed = true
				}
			}
		}
	}

	prevMerge := job.Merge
	prevStylize := job.StageState(workflow.StageStylize)
	prevVideo := job.StageState(workflow.StageVideoGenerate)
	job.RecomputeDerived()
	if job.Merge != prevMerge ||
		job.StageState(workflow.StageStylize) != prevStylize ||
		job.StageState(workflow.StageVideoGenerate) != prevVideo {
		changed = true
	}
	return changed
}

// artifactPath returns the absolute location of a shot stage's artifact,
// preferring the path recorded in the document over the canonical layout
// location.
func artifactPath(layout workflow.Layout, shot *workflow.Shot, stage workflow.Stage) string {
	if assetKey, ok := workflow.AssetForStage(stage); ok {
		if rel := shot.Asset(assetKey); rel != "" {
			return layout.Resolve(rel)
		}
	}
	path, ok := layout.ArtifactPath(stage, shot.ID)
	if !ok {
		return ""
	}
	return path
}

// removeArtifact deletes a shot stage's artifact file if one is present.
func removeArtifact(layout workflow.Layout, shot *workflow.Shot, stage workflow.Stage) {
	if path := artifactPath(layout, shot, stage); path != "" {
		_ = os.Remove(path)
	}
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
