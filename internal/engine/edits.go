package engine

import (
	"context"
	"fmt"
	"strings"

	"recut/internal/edits"
	"recut/internal/logging"
	"recut/internal/services"
	"recut/internal/textutil"
	"recut/internal/workflow"
)

// EditOutcome reports one applied operation and the number of shots it
// invalidated.
type EditOutcome struct {
	Op       string `json:"op"`
	Affected int    `json:"affected"`
}

// EditReport is the result of one edit batch. Job carries the document as
// persisted after the batch.
type EditReport struct {
	Job     *workflow.Job
	Applied []EditOutcome
}

// ApplyEdits applies a batch of edit operations in order under the job lock.
// Shots touched by an operation have their stylize and video_generate stages
// reset to NOT_STARTED and both artifact files removed, so stale renders can
// never survive a content change. A failing operation rejects the whole
// batch; nothing is persisted. A batch that changes nothing is not persisted
// either.
func (e *Engine) ApplyEdits(ctx context.Context, jobID string, ops []edits.Op) (*EditReport, error) {
	if len(ops) == 0 {
		return nil, services.Wrap(services.ErrValidation, "engine", "apply edits", "no operations supplied", nil)
	}

	report := &EditReport{Applied: make([]EditOutcome, 0, len(ops))}
	err := e.withJob(ctx, jobID, func(layout workflow.Layout, job *workflow.Job) error {
		mutated := false
		for _, op := range ops {
			if err := op.Validate(); err != nil {
				return err
			}
			affected, changed, err := applyEdit(job, layout, op)
			if err != nil {
				return err
			}
			mutated = mutated || changed
			report.Applied = append(report.Applied, EditOutcome{Op: op.Name(), Affected: affected})
			e.logger.Debug("edit applied",
				logging.String(logging.FieldJobID, job.ID),
				logging.String("op", op.Name()),
				logging.Int("affected_shots", affected))
		}
		if mutated {
			job.RecomputeDerived()
			if err := e.persist(ctx, layout, job); err != nil {
				return err
			}
		}
		report.Job = job
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("edits applied",
		logging.String(logging.FieldEventType, "edits_applied"),
		logging.String(logging.FieldJobID, report.Job.ID),
		logging.Int("operations", len(report.Applied)),
		logging.Int("affected_shots", totalAffected(report.Applied)))
	return report, nil
}

// applyEdit mutates the in-memory document for one operation. It returns the
// number of invalidated shots and whether the document changed at all; an
// operation can change the document without touching any shot (a style change
// on a job that has none yet).
func applyEdit(job *workflow.Job, layout workflow.Layout, op edits.Op) (int, bool, error) {
	switch v := op.(type) {
	case edits.SetGlobalStyle:
		job.Global.StylePrompt = strings.TrimSpace(v.Value)
		for _, shot := range job.Shots {
			invalidateShot(layout, shot)
		}
		return len(job.Shots), true, nil

	case edits.GlobalSubjectSwap:
		affected := 0
		for _, shot := range job.Shots {
			replaced, ok := textutil.ReplaceFold(shot.Description, v.OldSubject, v.NewSubject)
			if !ok {
				continue
			}
			shot.Description = replaced
			invalidateShot(layout, shot)
			affected++
		}
		return affected, affected > 0, nil

	case edits.UpdateShotParams:
		shot := job.ShotByID(strings.TrimSpace(v.ShotID))
		if shot == nil {
			return 0, false, nil
		}
		if desc := strings.TrimSpace(v.Description); desc != "" {
			shot.Description = desc
		}
		invalidateShot(layout, shot)
		return 1, true, nil

	case edits.EnhanceShotDescription:
		shot := job.ShotByID(strings.TrimSpace(v.ShotID))
		if shot == nil {
			return 0, false, nil
		}
		shot.Description = joinFragments(shot.Description, v.SpatialInfo, v.StyleBoost)
		invalidateShot(layout, shot)
		return 1, true, nil

	case edits.ReplaceEntityRef:
		id := strings.TrimSpace(v.EntityID)
		entity, ok := job.Entities[id]
		if !ok {
			return 0, false, services.Wrap(services.ErrNotFound, "engine", edits.OpReplaceEntityRef,
				fmt.Sprintf("entity %s not found", id), nil)
		}
		entity.ReferenceImage = strings.TrimSpace(v.NewRef)
		job.Entities[id] = entity
		affected := 0
		for _, shot := range job.Shots {
			if !shot.HasEntity(id) {
				continue
			}
			invalidateShot(layout, shot)
			affected++
		}
		return affected, true, nil

	default:
		return 0, false, services.Wrap(services.ErrValidation, "engine", "apply edits",
			fmt.Sprintf("unsupported operation %s", op.Name()), nil)
	}
}

// invalidateShot returns both render stages to NOT_STARTED and removes their
// artifact files. Removing the file and resetting the status together is what
// keeps the reconciler from ever re-promoting stale output.
func invalidateShot(layout workflow.Layout, shot *workflow.Shot) {
	if shot == nil {
		return
	}
	for _, stage := range workflow.ShotStages() {
		removeArtifact(layout, shot, stage)
		shot.ResetStage(stage)
	}
}

// joinFragments appends annotation fragments to a description, separated by
// single spaces, skipping empty pieces.
func joinFragments(description string, fragments ...string) string {
	parts := make([]string, 0, 1+len(fragments))
	if trimmed := strings.TrimSpace(description); trimmed != "" {
		parts = append(parts, trimmed)
	}
	for _, fragment := range fragments {
		if trimmed := strings.TrimSpace(fragment); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, " ")
}

func totalAffected(outcomes []EditOutcome) int {
	total := 0
	for _, outcome := range outcomes {
		total += outcome.Affected
	}
	return total
}
