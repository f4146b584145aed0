package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"recut/internal/logging"
	"recut/internal/services"
	"recut/internal/workflow"
)

// Merge losslessly concatenates every shot's rendered clip, ordered by shot
// identifier, into the job's final output. It requires at least one shot and
// video_generate SUCCESS across all of them; the requirement is re-checked
// here against the reconciled document rather than trusting a stored flag.
func (e *Engine) Merge(ctx context.Context, jobID string) (string, error) {
	var output string
	start := time.Now()
	err := e.withJob(ctx, jobID, func(layout workflow.Layout, job *workflow.Job) error {
		if len(job.Shots) == 0 {
			return services.Wrap(services.ErrPrecondition, "engine", "merge", "job has no shots", nil)
		}
		if !job.Merge.CanMerge {
			return services.Wrap(services.ErrPrecondition, "engine", "merge",
				fmt.Sprintf("%d failed and %d pending shots", job.Merge.FailedShots, job.Merge.PendingShots), nil)
		}

		ordered := make([]*workflow.Shot, len(job.Shots))
		copy(ordered, job.Shots)
		sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

		inputs := make([]string, 0, len(ordered))
		for _, shot := range ordered {
			rel := shot.Asset(workflow.AssetVideo)
			if rel == "" {
				rel = workflow.VideoRel(shot.ID)
			}
			inputs = append(inputs, layout.Resolve(rel))
		}

		job.SetStage(workflow.StageMerge, workflow.StatusRunning)
		if err := e.persist(ctx, layout, job); err != nil {
			return err
		}

		if err := e.media.Concat(ctx, inputs, layout.FinalOutputPath()); err != nil {
			job.SetStage(workflow.StageMerge, workflow.StatusFailed)
			if perr := e.persist(ctx, layout, job); perr != nil {
				e.logger.Error("failed to persist merge failure",
					logging.String(logging.FieldJobID, job.ID),
					logging.Error(perr))
			}
			return services.Wrap(services.ErrExternalTool, "engine", "merge", "concatenate shot clips", err)
		}

		job.SetStage(workflow.StageMerge, workflow.StatusSuccess)
		if err := e.persist(ctx, layout, job); err != nil {
			return err
		}
		output = layout.FinalOutputPath()
		return nil
	})
	if err != nil {
		return "", err
	}

	e.logger.Info("merge completed",
		logging.String(logging.FieldEventType, "merge_complete"),
		logging.String(logging.FieldJobID, jobID),
		logging.String("output_file", output),
		logging.Duration("merge_duration", time.Since(start)))
	return output, nil
}
