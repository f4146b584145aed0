package engine

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"recut/internal/config"
	"recut/internal/generation"
	"recut/internal/logging"
	"recut/internal/services"
	"recut/internal/workflow"
)

// CreateRequest describes a job to bootstrap from a source video.
type CreateRequest struct {
	SourceVideo string
	StylePrompt string
	// VideoModel selects the generation pipeline; empty means the local
	// mock pipeline.
	VideoModel string
	// Entities are recurring characters or objects keyed by a caller-chosen
	// identifier. Every decomposed shot references all of them so a later
	// reference swap invalidates the full set.
	Entities map[string]workflow.Entity
}

// Create bootstraps a new job: decomposes the source into shots, extracts the
// first frame and source segment per shot, and persists the initial document.
// The job directory is removed again when any bootstrap step fails.
func (e *Engine) Create(ctx context.Context, req CreateRequest) (*workflow.Job, error) {
	source, err := resolveSource(req.SourceVideo)
	if err != nil {
		return nil, err
	}
	model := strings.TrimSpace(req.VideoModel)
	if model == "" {
		model = generation.MockModel
	}
	set, err := e.pipelines.For(model)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "engine", "create job", "select pipeline", err)
	}
	entities, entityIDs, err := normalizeEntities(req.Entities)
	if err != nil {
		return nil, err
	}

	jobID := uuid.NewString()
	ctx = services.WithJobID(ctx, jobID)
	layout := e.layout(jobID)
	start := time.Now()

	job := workflow.NewJob(jobID, source, workflow.Global{
		StylePrompt: strings.TrimSpace(req.StylePrompt),
		VideoModel:  model,
	})
	job.Entities = entities

	err = e.withJobLock(ctx, jobID, func() error {
		for _, dir := range layout.AssetDirs() {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return services.Wrap(services.ErrPersistence, "engine", "create job", "create asset directories", err)
			}
		}

		probe, err := e.media.Probe(ctx, source)
		if err != nil {
			return services.Wrap(services.ErrExternalTool, "engine", "create job", "probe source video", err)
		}
		duration := probe.DurationSeconds()
		// NaN marks a malformed duration string in the probe output.
		// NaN <= 0 is false, so test it explicitly.
		if math.IsNaN(duration) || duration <= 0 {
			return services.Wrap(services.ErrValidation, "engine", "create job", "source video reports no duration", nil)
		}

		plans, err := set.Decomposer.Decompose(ctx, source, duration)
		if err != nil {
			return services.Wrap(services.ErrGenerator, "engine", "create job", "decompose source video", err)
		}
		if len(plans) == 0 {
			return services.Wrap(services.ErrGenerator, "engine", "create job", "decomposition produced no shots", nil)
		}

		for i, plan := range plans {
			shotID := workflow.FormatShotID(i + 1)
			shot := workflow.NewShot(shotID, plan.StartSeconds, plan.EndSeconds, plan.Description)
			shot.Entities = append(shot.Entities, entityIDs...)

			if err := e.media.ExtractFrame(ctx, source, plan.StartSeconds, layout.FirstFramePath(shotID)); err != nil {
				return services.Wrap(services.ErrExternalTool, "engine", "create job",
					fmt.Sprintf("extract first frame for %s", shotID), err)
			}
			shot.Assets[workflow.AssetFirstFrame] = workflow.FirstFrameRel(shotID)

			if err := e.media.ExtractSegment(ctx, source, plan.StartSeconds, plan.EndSeconds, layout.SourceSegmentPath(shotID)); err != nil {
				return services.Wrap(services.ErrExternalTool, "engine", "create job",
					fmt.Sprintf("extract source segment for %s", shotID), err)
			}
			shot.Assets[workflow.AssetSourceSegment] = workflow.SourceSegmentRel(shotID)

			job.Shots = append(job.Shots, shot)
			e.logger.Debug("shot bootstrapped",
				logging.String(logging.FieldJobID, jobID),
				logging.String(logging.FieldShotID, shotID),
				logging.Float64("start_seconds", plan.StartSeconds),
				logging.Float64("end_seconds", plan.EndSeconds))
		}

		job.SetStage(workflow.StageAnalyze, workflow.StatusSuccess)
		job.SetStage(workflow.StageExtract, workflow.StatusSuccess)
		job.RecomputeDerived()
		return e.persist(ctx, layout, job)
	})
	if err != nil {
		_ = os.RemoveAll(layout.Root())
		return nil, err
	}

	e.logger.Info("job created",
		logging.String(logging.FieldEventType, "job_created"),
		logging.String(logging.FieldJobID, jobID),
		logging.String("source_file", source),
		logging.String("pipeline", set.Name),
		logging.Int("shots", len(job.Shots)),
		logging.Duration("bootstrap_duration", time.Since(start)))
	return job, nil
}

func resolveSource(sourceVideo string) (string, error) {
	source := strings.TrimSpace(sourceVideo)
	if source == "" {
		return "", services.Wrap(services.ErrValidation, "engine", "create job", "source video is required", nil)
	}
	expanded, err := config.ExpandPath(source)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "engine", "create job", "resolve source video path", err)
	}
	info, err := os.Stat(expanded)
	if err != nil || info.IsDir() {
		return "", services.Wrap(services.ErrValidation, "engine", "create job",
			fmt.Sprintf("source video %s not found", expanded), err)
	}
	return expanded, nil
}

func normalizeEntities(raw map[string]workflow.Entity) (map[string]workflow.Entity, []string, error) {
	entities := make(map[string]workflow.Entity, len(raw))
	ids := make([]string, 0, len(raw))
	for id, entity := range raw {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, nil, services.Wrap(services.ErrValidation, "engine", "create job", "entity id is required", nil)
		}
		entity.ReferenceImage = strings.TrimSpace(entity.ReferenceImage)
		if entity.ReferenceImage == "" {
			return nil, nil, services.Wrap(services.ErrValidation, "engine", "create job",
				fmt.Sprintf("entity %s needs a reference image", id), nil)
		}
		entity.Name = strings.TrimSpace(entity.Name)
		entities[id] = entity
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return entities, ids, nil
}
