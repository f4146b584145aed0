package api

import (
	"time"

	"recut/internal/agent"
	"recut/internal/engine"
	"recut/internal/preflight"
	"recut/internal/registry"
	"recut/internal/workflow"
)

// FromJob converts a workflow document to its API representation.
func FromJob(job *workflow.Job) JobView {
	if job == nil {
		return JobView{}
	}

	view := JobView{
		ID:          job.ID,
		SourceVideo: job.SourceVideo,
		StylePrompt: job.Global.StylePrompt,
		VideoModel:  job.Global.VideoModel,
		Stages:      stageStrings(job.Stages),
		Merge: MergeSummary{
			FailedShots:  job.Merge.FailedShots,
			PendingShots: job.Merge.PendingShots,
			CanMerge:     job.Merge.CanMerge,
		},
		UpdatedAt: job.Meta.UpdatedAt,
		Attempts:  job.Meta.Attempts,
	}
	if len(job.Entities) > 0 {
		view.Entities = make(map[string]EntityView, len(job.Entities))
		for id, entity := range job.Entities {
			view.Entities[id] = EntityView{Name: entity.Name, ReferenceImage: entity.ReferenceImage}
		}
	}
	view.Shots = make([]ShotView, 0, len(job.Shots))
	for _, shot := range job.Shots {
		if shot == nil {
			continue
		}
		view.Shots = append(view.Shots, FromShot(shot))
	}
	return view
}

// FromShot converts one shot to its API representation.
func FromShot(shot *workflow.Shot) ShotView {
	if shot == nil {
		return ShotView{}
	}
	view := ShotView{
		ID:           shot.ID,
		StartSeconds: shot.StartSeconds,
		EndSeconds:   shot.EndSeconds,
		Description:  shot.Description,
		Stages:       stageStrings(shot.Status),
	}
	if len(shot.Entities) > 0 {
		view.Entities = append([]string(nil), shot.Entities...)
	}
	if len(shot.Assets) > 0 {
		view.Assets = make(map[string]string, len(shot.Assets))
		for name, rel := range shot.Assets {
			view.Assets[name] = rel
		}
	}
	if len(shot.Errors) > 0 {
		view.Errors = make(map[string]string, len(shot.Errors))
		for stage, detail := range shot.Errors {
			view.Errors[string(stage)] = detail
		}
	}
	return view
}

// FromEntry converts a registry row to a job summary.
func FromEntry(entry *registry.Entry) JobSummary {
	if entry == nil {
		return JobSummary{}
	}
	return JobSummary{
		ID:           entry.JobID,
		Title:        entry.Title,
		SourceVideo:  entry.SourceVideo,
		ShotCount:    entry.ShotCount,
		StylizeDone:  entry.StylizeDone,
		VideoDone:    entry.VideoDone,
		FailedShots:  entry.FailedShots,
		PendingShots: entry.PendingShots,
		CanMerge:     entry.CanMerge,
		State:        entry.State(),
		CreatedAt:    FormatTime(entry.CreatedAt),
		UpdatedAt:    FormatTime(entry.UpdatedAt),
	}
}

// FromEntries converts registry rows into job summaries.
func FromEntries(entries []*registry.Entry) []JobSummary {
	if len(entries) == 0 {
		return nil
	}
	out := make([]JobSummary, 0, len(entries))
	for _, entry := range entries {
		out = append(out, FromEntry(entry))
	}
	return out
}

// FromEditOutcomes converts engine edit outcomes into API results.
func FromEditOutcomes(outcomes []engine.EditOutcome) []EditResult {
	if len(outcomes) == 0 {
		return nil
	}
	out := make([]EditResult, 0, len(outcomes))
	for _, outcome := range outcomes {
		out = append(out, EditResult{Op: outcome.Op, Affected: outcome.Affected})
	}
	return out
}

// FromSkippedDirectives converts declined agent directives into API payloads.
func FromSkippedDirectives(skipped []agent.Skipped) []SkippedDirective {
	if len(skipped) == 0 {
		return nil
	}
	out := make([]SkippedDirective, 0, len(skipped))
	for _, s := range skipped {
		out = append(out, SkippedDirective{Op: s.Op, Reason: s.Reason})
	}
	return out
}

// FromPreflight converts readiness results into API payloads.
func FromPreflight(results []preflight.Result) []CheckStatus {
	if len(results) == 0 {
		return nil
	}
	out := make([]CheckStatus, 0, len(results))
	for _, r := range results {
		out = append(out, CheckStatus{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	return out
}

// ToCreateRequest maps a create payload onto the engine's request type.
func ToCreateRequest(req CreateJobRequest) engine.CreateRequest {
	out := engine.CreateRequest{
		SourceVideo: req.SourceVideo,
		StylePrompt: req.StylePrompt,
		VideoModel:  req.VideoModel,
	}
	if len(req.Entities) > 0 {
		out.Entities = make(map[string]workflow.Entity, len(req.Entities))
		for id, entity := range req.Entities {
			out.Entities[id] = workflow.Entity{Name: entity.Name, ReferenceImage: entity.ReferenceImage}
		}
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func stageStrings(stages map[workflow.Stage]workflow.StageStatus) map[string]string {
	out := make(map[string]string, len(stages))
	for stage, status := range stages {
		out[string(stage)] = string(status)
	}
	return out
}
