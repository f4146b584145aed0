package engine_test

import (
	"context"
	"testing"

	"recut/internal/testsupport"
	"recut/internal/workflow"
)

func TestGetPromotesRunningWithArtifact(t *testing.T) {
	r := newRig(t)
	job := r.seedJob("job-promote", 2)
	for _, shot := range job.Shots {
		shot.MarkRunning(workflow.StageStylize)
		testsupport.WriteFile(t, r.layout(job.ID).StylizedFramePath(shot.ID), "stylized")
	}
	job.Meta.UpdatedAt = staleStamp
	r.saveJobRaw(job)

	got, err := r.eng.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	for _, shot := range got.Shots {
		if state := shot.StageState(workflow.StageStylize); state != workflow.StatusSuccess {
			t.Fatalf("%s stylize = %s, want SUCCESS", shot.ID, state)
		}
		if asset := shot.Asset(workflow.AssetStylizedFrame); asset != workflow.StylizedFrameRel(shot.ID) {
			t.Fatalf("%s stylized asset = %q, want %q", shot.ID, asset, workflow.StylizedFrameRel(shot.ID))
		}
	}
	if state := got.StageState(workflow.StageStylize); state != workflow.StatusSuccess {
		t.Fatalf("job stylize stage = %s, want SUCCESS", state)
	}

	reloaded := r.reload(job.ID)
	if reloaded.Meta.UpdatedAt == staleStamp {
		t.Fatal("promotion was not persisted")
	}
	if state := reloaded.Shots[0].StageState(workflow.StageStylize); state != workflow.StatusSuccess {
		t.Fatalf("persisted stylize = %s, want SUCCESS", state)
	}
}

func TestGetDemotesSuccessWithoutArtifact(t *testing.T) {
	r := newRig(t)
	job := r.seedJob("job-demote", 2)
	// shot_01's clip is recorded but missing from disk; shot_02's exists.
	job.Shots[0].MarkSuccess(workflow.StageVideoGenerate, workflow.VideoRel("shot_01"))
	r.finishStage(job, "shot_02", workflow.StageVideoGenerate)
	job.Meta.UpdatedAt = staleStamp
	r.saveJobRaw(job)

	got, err := r.eng.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	first := got.ShotByID("shot_01")
	if state := first.StageState(workflow.StageVideoGenerate); state != workflow.StatusNotStarted {
		t.Fatalf("shot_01 video = %s, want NOT_STARTED", state)
	}
	if asset := first.Asset(workflow.AssetVideo); asset != "" {
		t.Fatalf("shot_01 kept asset %q after demotion", asset)
	}
	second := got.ShotByID("shot_02")
	if state := second.StageState(workflow.StageVideoGenerate); state != workflow.StatusSuccess {
		t.Fatalf("shot_02 video = %s, want SUCCESS", state)
	}
	if r.reload(job.ID).Meta.UpdatedAt == staleStamp {
		t.Fatal("demotion was not persisted")
	}
}

func TestGetLeavesInFlightAndFailedUntouched(t *testing.T) {
	r := newRig(t)
	job := r.seedJob("job-keep", 2)
	job.Shots[0].MarkRunning(workflow.StageStylize)
	job.Shots[1].MarkFailed(workflow.StageVideoGenerate, "veo rejected the prompt")
	job.RecomputeDerived()
	job.Meta.UpdatedAt = staleStamp
	r.saveJobRaw(job)

	got, err := r.eng.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if state := got.Shots[0].StageState(workflow.StageStylize); state != workflow.StatusRunning {
		t.Fatalf("in-flight stylize = %s, want RUNNING", state)
	}
	if state := got.Shots[1].StageState(workflow.StageVideoGenerate); state != workflow.StatusFailed {
		t.Fatalf("failed video = %s, want FAILED", state)
	}
	if msg := got.Shots[1].Errors[workflow.StageVideoGenerate]; msg != "veo rejected the prompt" {
		t.Fatalf("failure detail = %q", msg)
	}
	if r.reload(job.ID).Meta.UpdatedAt != staleStamp {
		t.Fatal("document was rewritten without a correction")
	}
}

func TestGetClearsStrayAssetPath(t *testing.T) {
	r := newRig(t)
	job := r.seedJob("job-stray", 2)
	// shot_01 carries an asset path and a file for a stage never marked done;
	// shot_02 has only the stray file.
	job.Shots[0].Assets[workflow.AssetVideo] = workflow.VideoRel("shot_01")
	testsupport.WriteFile(t, r.layout(job.ID).VideoPath("shot_01"), "clip")
	testsupport.WriteFile(t, r.layout(job.ID).VideoPath("shot_02"), "clip")
	job.Meta.UpdatedAt = staleStamp
	r.saveJobRaw(job)

	got, err := r.eng.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	first := got.ShotByID("shot_01")
	if asset := first.Asset(workflow.AssetVideo); asset != "" {
		t.Fatalf("asset path %q survived on a NOT_STARTED stage", asset)
	}
	if state := first.StageState(workflow.StageVideoGenerate); state != workflow.StatusNotStarted {
		t.Fatalf("shot_01 video = %s, want NOT_STARTED", state)
	}
	if state := got.ShotByID("shot_02").StageState(workflow.StageVideoGenerate); state != workflow.StatusNotStarted {
		t.Fatalf("stray file promoted shot_02 to %s", state)
	}
	// Reconciliation corrects the document, never the files.
	if !fileExists(t, r.layout(job.ID).VideoPath("shot_01")) {
		t.Fatal("reconciliation deleted an artifact file")
	}
	if r.reload(job.ID).Meta.UpdatedAt == staleStamp {
		t.Fatal("asset correction was not persisted")
	}
}

func TestGetRefreshesMergeSummary(t *testing.T) {
	r := newRig(t)
	job := r.seedJob("job-summary", 2)
	for _, shot := range job.Shots {
		r.finishStage(job, shot.ID, workflow.StageStylize)
		r.finishStage(job, shot.ID, workflow.StageVideoGenerate)
	}
	// Stale counts, as a writer that crashed before recomputing would leave.
	job.Merge = workflow.MergeInfo{FailedShots: 3, PendingShots: 9}
	job.Meta.UpdatedAt = staleStamp
	r.saveJobRaw(job)

	got, err := r.eng.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !got.Merge.CanMerge || got.Merge.FailedShots != 0 || got.Merge.PendingShots != 0 {
		t.Fatalf("merge summary not refreshed: %+v", got.Merge)
	}
	if r.reload(job.ID).Meta.UpdatedAt == staleStamp {
		t.Fatal("summary correction was not persisted")
	}
}
