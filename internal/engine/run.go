package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"recut/internal/generation"
	"recut/internal/logging"
	"recut/internal/services"
	"recut/internal/workflow"
)

// StageRun is one accepted stage execution. BeginStage claims the targets,
// marks them RUNNING, and persists; Execute renders them. The two halves let
// the daemon answer the request as soon as the claim is durable while the
// generator calls proceed in the background.
type StageRun struct {
	engine    *Engine
	jobID     string
	stage     workflow.Stage
	shots     []string
	repairs   map[string]struct{}
	set       generation.Set
	requestID string
	logger    *slog.Logger
}

// JobID returns the job the run belongs to.
func (r *StageRun) JobID() string { return r.jobID }

// Stage returns the stage being executed.
func (r *StageRun) Stage() workflow.Stage { return r.stage }

// Shots returns the claimed target shots in document order.
func (r *StageRun) Shots() []string {
	cp := make([]string, len(r.shots))
	copy(cp, r.shots)
	return cp
}

// RequestID returns the correlation id minted for this run.
func (r *StageRun) RequestID() string { return r.requestID }

// BeginStage validates a stage run and claims its targets under the job
// lock: eligible shots are marked RUNNING with their stale artifacts removed,
// and the claim is persisted before this returns. An untargeted run claims
// every shot whose stage is NOT_STARTED or FAILED; a targeted run claims the
// named shot regardless of a prior terminal state, but a shot already
// RUNNING is rejected rather than raced.
func (e *Engine) BeginStage(ctx context.Context, jobID, stageName, shotID string) (*StageRun, error) {
	stage, ok := workflow.ParseShotStage(stageName)
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "engine", "run stage",
			fmt.Sprintf("unknown stage %q", stageName), nil)
	}

	var run *StageRun
	err := e.withJob(ctx, jobID, func(layout workflow.Layout, job *workflow.Job) error {
		set, err := e.pipelines.For(job.Global.VideoModel)
		if err != nil {
			return services.Wrap(services.ErrConfiguration, "engine", "run stage", "resolve pipeline", err)
		}
		targets, repairs, err := claimTargets(job, layout, stage, strings.TrimSpace(shotID))
		if err != nil {
			return err
		}
		job.Meta.Attempts++
		job.RecomputeDerived()
		if err := e.persist(ctx, layout, job); err != nil {
			return err
		}
		requestID := uuid.NewString()
		run = &StageRun{
			engine:    e,
			jobID:     job.ID,
			stage:     stage,
			shots:     targets,
			repairs:   repairs,
			set:       set,
			requestID: requestID,
			logger: e.logger.With(
				logging.String(logging.FieldJobID, job.ID),
				logging.String(logging.FieldCorrelationID, requestID)),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	run.logger.Info("stage run accepted",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String(logging.FieldStage, string(run.stage)),
		logging.String("pipeline", run.set.Name),
		logging.Int("target_shots", len(run.shots)),
		logging.Int("stylize_repairs", len(run.repairs)))
	return run, nil
}

// claimTargets selects the shots a run will process and transitions each of
// them to RUNNING, deleting pre-existing artifacts first so a poll taken
// between claim and completion never sees a stale SUCCESS or a stale file.
// video_generate targets whose stylize is not SUCCESS are additionally
// claimed for a stylize repair.
func claimTargets(job *workflow.Job, layout workflow.Layout, stage workflow.Stage, shotID string) ([]string, map[string]struct{}, error) {
	var selected []*workflow.Shot
	if shotID != "" {
		shot := job.ShotByID(shotID)
		if shot == nil {
			return nil, nil, services.Wrap(services.ErrNotFound, "engine", "run stage",
				fmt.Sprintf("shot %s not found", shotID), nil)
		}
		if shot.StageState(stage) == workflow.StatusRunning {
			return nil, nil, services.Wrap(services.ErrPrecondition, "engine", "run stage",
				fmt.Sprintf("%s already running for %s", stage, shotID), nil)
		}
		if stage == workflow.StageVideoGenerate && shot.StageState(workflow.StageStylize) == workflow.StatusRunning {
			return nil, nil, services.Wrap(services.ErrPrecondition, "engine", "run stage",
				fmt.Sprintf("stylize already running for %s", shotID), nil)
		}
		selected = append(selected, shot)
	} else {
		for _, shot := range job.Shots {
			if shot == nil {
				continue
			}
			switch shot.StageState(stage) {
			case workflow.StatusNotStarted, workflow.StatusFailed:
			default:
				continue
			}
			if stage == workflow.StageVideoGenerate && shot.StageState(workflow.StageStylize) == workflow.StatusRunning {
				continue
			}
			selected = append(selected, shot)
		}
		if len(selected) == 0 {
			return nil, nil, services.Wrap(services.ErrPrecondition, "engine", "run stage",
				fmt.Sprintf("no shots eligible for %s", stage), nil)
		}
	}

	targets := make([]string, 0, len(selected))
	repairs := make(map[string]struct{})
	for _, shot := range selected {
		if stage == workflow.StageVideoGenerate && shot.StageState(workflow.StageStylize) != workflow.StatusSuccess {
			repairs[shot.ID] = struct{}{}
			removeArtifact(layout, shot, workflow.StageStylize)
			shot.MarkRunning(workflow.StageStylize)
		}
		removeArtifact(layout, shot, stage)
		shot.MarkRunning(stage)
		targets = append(targets, shot.ID)
	}
	return targets, repairs, nil
}

// Execute renders every claimed shot, stylize repairs first, persisting after
// each terminal transition. A generator failure marks its shot FAILED and the
// run continues with the siblings; only infrastructure failures (lock,
// persistence, cancellation) are returned. The returned document is the
// reconciled state after the run.
func (r *StageRun) Execute(ctx context.Context) (*workflow.Job, error) {
	ctx = services.WithJobID(ctx, r.jobID)
	ctx = services.WithRequestID(ctx, r.requestID)
	start := time.Now()

	logger := r.logger
	layout := r.engine.layout(r.jobID)
	if jobLog, err := logging.OpenJobLog(layout.LogPath()); err == nil {
		logger = logging.TeeLogger(r.logger, jobLog.Handler())
		defer jobLog.Close()
	} else {
		r.logger.Warn("job log unavailable", logging.Error(err))
	}

	var runErr error
	record := func(err error) {
		if err != nil && runErr == nil {
			runErr = err
		}
	}

	for _, shotID := range r.shots {
		if ctx.Err() != nil {
			logger.Debug("stage run interrupted",
				logging.String(logging.FieldStage, string(r.stage)))
			record(ctx.Err())
			break
		}

		if _, repair := r.repairs[shotID]; repair {
			status, err := r.executeShot(ctx, shotID, workflow.StageStylize, logger)
			if err != nil {
				record(err)
				continue
			}
			if status != workflow.StatusSuccess {
				record(r.failVideoAfterRepair(ctx, shotID))
				continue
			}
		}
		_, err := r.executeShot(ctx, shotID, r.stage, logger)
		record(err)
	}

	var final *workflow.Job
	if ctx.Err() == nil {
		record(r.engine.withJob(ctx, r.jobID, func(_ workflow.Layout, job *workflow.Job) error {
			final = job
			return nil
		}))
	}

	succeeded, failed := 0, 0
	if final != nil {
		for _, shotID := range r.shots {
			switch final.ShotByID(shotID).StageState(r.stage) {
			case workflow.StatusSuccess:
				succeeded++
			case workflow.StatusFailed:
				failed++
			}
		}
	}
	logger.Info("stage run completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String(logging.FieldStage, string(r.stage)),
		logging.Int("succeeded_shots", succeeded),
		logging.Int("failed_shots", failed),
		logging.Duration("stage_duration", time.Since(start)))
	return final, runErr
}

// executeShot performs one generator call for a claimed (shot, stage) pair
// and records its terminal transition under the job lock. The returned status
// is the stage's state after the attempt; a claim revoked by a concurrent
// edit leaves the shot untouched and its result discarded.
func (r *StageRun) executeShot(ctx context.Context, shotID string, stage workflow.Stage, base *slog.Logger) (workflow.StageStatus, error) {
	ctx = services.WithStage(services.WithShotID(ctx, shotID), string(stage))
	logger := base.With(
		logging.String(logging.FieldShotID, shotID),
		logging.String(logging.FieldStage, string(stage)))

	var (
		stylizeReq generation.StylizeRequest
		synthReq   generation.SynthesizeRequest
		claimed    bool
		observed   workflow.StageStatus
	)
	err := r.engine.withJob(ctx, r.jobID, func(layout workflow.Layout, job *workflow.Job) error {
		shot := job.ShotByID(shotID)
		if shot == nil {
			observed = workflow.StatusNotStarted
			return nil
		}
		observed = shot.StageState(stage)
		if observed != workflow.StatusRunning {
			return nil
		}
		claimed = true
		switch stage {
		case workflow.StageStylize:
			stylizeReq = stylizeRequest(layout, job, shot)
		case workflow.StageVideoGenerate:
			synthReq = synthesizeRequest(layout, job, shot)
		}
		return nil
	})
	if err != nil {
		return observed, err
	}
	if !claimed {
		logger.Debug("shot no longer claimed, skipping",
			logging.String("status", string(observed)))
		return observed, nil
	}

	genStart := time.Now()
	var genErr error
	switch stage {
	case workflow.StageStylize:
		genErr = r.set.Stylizer.Stylize(ctx, stylizeReq)
	case workflow.StageVideoGenerate:
		genErr = r.set.Synthesizer.Synthesize(ctx, synthReq)
	}

	final := workflow.StatusNotStarted
	err = r.engine.withJob(ctx, r.jobID, func(layout workflow.Layout, job *workflow.Job) error {
		shot := job.ShotByID(shotID)
		if shot == nil {
			return nil
		}
		state := shot.StageState(stage)
		switch {
		case genErr == nil && state == workflow.StatusRunning:
			rel, _ := workflow.ArtifactRel(stage, shot.ID)
			shot.MarkSuccess(stage, rel)
		case genErr == nil && state == workflow.StatusSuccess:
			// The reconciler already promoted from the artifact on disk.
		case genErr == nil:
			// An edit revoked the claim mid-flight; the artifact written
			// after the revocation is stale and must not survive.
			removeArtifact(layout, shot, stage)
			final = state
			return nil
		case state == workflow.StatusRunning:
			shot.MarkFailed(stage, genErr.Error())
		default:
			final = state
			return nil
		}
		final = shot.StageState(stage)
		job.RecomputeDerived()
		return r.engine.persist(ctx, layout, job)
	})
	if err != nil {
		return final, err
	}

	duration := time.Since(genStart)
	switch final {
	case workflow.StatusSuccess:
		logger.Info("shot stage completed",
			logging.String(logging.FieldEventType, "shot_complete"),
			logging.Duration("stage_duration", duration))
	case workflow.StatusFailed:
		detail := ""
		if genErr != nil {
			detail = genErr.Error()
		}
		logger.Warn("shot stage failed",
			logging.String(logging.FieldEventType, "shot_failed"),
			logging.String("detail", detail),
			logging.Duration("stage_duration", duration))
	default:
		logger.Debug("shot result discarded after invalidation",
			logging.String("status", string(final)))
	}
	return final, nil
}

// failVideoAfterRepair marks a still-claimed video_generate FAILED when its
// stylize repair did not reach SUCCESS, carrying the repair's failure detail.
func (r *StageRun) failVideoAfterRepair(ctx context.Context, shotID string) error {
	ctx = services.WithShotID(ctx, shotID)
	return r.engine.withJob(ctx, r.jobID, func(layout workflow.Layout, job *workflow.Job) error {
		shot := job.ShotByID(shotID)
		if shot == nil || shot.StageState(workflow.StageVideoGenerate) != workflow.StatusRunning {
			return nil
		}
		detail := "stylize failed"
		if msg := strings.TrimSpace(shot.Errors[workflow.StageStylize]); msg != "" {
			detail = "stylize failed: " + msg
		}
		shot.MarkFailed(workflow.StageVideoGenerate, detail)
		job.RecomputeDerived()
		return r.engine.persist(ctx, layout, job)
	})
}

// RunStage claims and executes a stage synchronously, returning the document
// as persisted after the run. The daemon uses BeginStage and dispatches
// Execute itself; this path serves the CLI.
func (e *Engine) RunStage(ctx context.Context, jobID, stageName, shotID string) (*workflow.Job, error) {
	run, err := e.BeginStage(ctx, jobID, stageName, shotID)
	if err != nil {
		return nil, err
	}
	return run.Execute(ctx)
}

// stylizeRequest snapshots everything the stylizer needs for one shot while
// the job lock is held.
func stylizeRequest(layout workflow.Layout, job *workflow.Job, shot *workflow.Shot) generation.StylizeRequest {
	refs := make([]string, 0, len(shot.Entities))
	for _, id := range shot.Entities {
		entity, ok := job.Entities[id]
		if !ok {
			continue
		}
		if ref := strings.TrimSpace(entity.ReferenceImage); ref != "" {
			refs = append(refs, layout.Resolve(ref))
		}
	}
	first := shot.Asset(workflow.AssetFirstFrame)
	if first == "" {
		first = workflow.FirstFrameRel(shot.ID)
	}
	return generation.StylizeRequest{
		JobID:               job.ID,
		ShotID:              shot.ID,
		FirstFramePath:      layout.Resolve(first),
		ReferenceImagePaths: refs,
		StylePrompt:         job.Global.StylePrompt,
		Description:         shot.Description,
		OutputPath:          layout.StylizedFramePath(shot.ID),
	}
}

// synthesizeRequest snapshots everything the video synthesizer needs for one
// shot while the job lock is held.
func synthesizeRequest(layout workflow.Layout, job *workflow.Job, shot *workflow.Shot) generation.SynthesizeRequest {
	stylized := shot.Asset(workflow.AssetStylizedFrame)
	if stylized == "" {
		stylized = workflow.StylizedFrameRel(shot.ID)
	}
	segment := shot.Asset(workflow.AssetSourceSegment)
	if segment == "" {
		segment = workflow.SourceSegmentRel(shot.ID)
	}
	return generation.SynthesizeRequest{
		JobID:             job.ID,
		ShotID:            shot.ID,
		StylizedFramePath: layout.Resolve(stylized),
		SourceSegmentPath: layout.Resolve(segment),
		SourceVideoPath:   job.SourceVideo,
		StylePrompt:       job.Global.StylePrompt,
		Description:       shot.Description,
		OutputPath:        layout.VideoPath(shot.ID),
	}
}
