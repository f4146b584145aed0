package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"recut/internal/config"
	"recut/internal/generation"
	"recut/internal/logging"
	"recut/internal/media/ffprobe"
	"recut/internal/registry"
	"recut/internal/services"
	"recut/internal/workflow"
)

// Media is the subset of the media toolchain the engine drives directly:
// probing and extraction at bootstrap, concatenation at merge.
type Media interface {
	Probe(ctx context.Context, path string) (ffprobe.Result, error)
	ExtractFrame(ctx context.Context, source string, atSeconds float64, dst string) error
	ExtractSegment(ctx context.Context, source string, startSeconds, endSeconds float64, dst string) error
	Concat(ctx context.Context, inputs []string, dst string) error
}

// Pipelines resolves the generator set serving a job's video model.
type Pipelines interface {
	For(videoModel string) (generation.Set, error)
}

// Engine owns every mutation of workflow documents. The registry index is
// optional; when present it is refreshed on every persist so listings never
// require a directory walk.
type Engine struct {
	cfg       *config.Config
	media     Media
	pipelines Pipelines
	index     *registry.Store
	logger    *slog.Logger
	locks     *lockTable
}

// New constructs an engine with initialized dependencies.
func New(cfg *config.Config, mediaTools Media, pipelines Pipelines, index *registry.Store, logger *slog.Logger) (*Engine, error) {
	if cfg == nil || mediaTools == nil || pipelines == nil {
		return nil, errors.New("engine requires config, media tools, and pipelines")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		cfg:       cfg,
		media:     mediaTools,
		pipelines: pipelines,
		index:     index,
		logger:    logging.NewComponentLogger(logger, "engine"),
		locks:     newLockTable(),
	}, nil
}

func (e *Engine) layout(jobID string) workflow.Layout {
	return workflow.NewLayout(e.cfg.JobDir(jobID))
}

// withJob runs fn with the job's document loaded, reconciled, and protected
// by the per-job lock. Reconciliation corrections are persisted before fn
// observes the document.
func (e *Engine) withJob(ctx context.Context, jobID string, fn func(layout workflow.Layout, job *workflow.Job) error) error {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return services.Wrap(services.ErrValidation, "engine", "load job", "job id is required", nil)
	}
	layout := e.layout(jobID)
	if !workflow.Exists(layout.Root()) {
		return services.Wrap(services.ErrNotFound, "engine", "load job", fmt.Sprintf("job %s not found", jobID), nil)
	}
	return e.withJobLock(ctx, jobID, func() error {
		job, err := workflow.Load(layout.Root())
		if err != nil {
			return services.Wrap(services.ErrPersistence, "engine", "load job", "read workflow document", err)
		}
		if job.IsEmpty() {
			return services.Wrap(services.ErrNotFound, "engine", "load job", fmt.Sprintf("job %s not found", jobID), nil)
		}
		if job.ID == "" {
			job.ID = jobID
		}
		if reconcileJob(job, layout) {
			if err := e.persist(ctx, layout, job); err != nil {
				return err
			}
		}
		return fn(layout, job)
	})
}

// persist writes the document and refreshes the registry row. Index failures
// never fail the mutation; the registry is a cache and a rescan repairs it.
func (e *Engine) persist(ctx context.Context, layout workflow.Layout, job *workflow.Job) error {
	if err := workflow.Save(layout.Root(), job); err != nil {
		return services.Wrap(services.ErrPersistence, "engine", "save job", "write workflow document", err)
	}
	if e.index != nil {
		if err := e.index.Upsert(ctx, registry.Summarize(job)); err != nil {
			e.logger.Warn("registry refresh failed",
				logging.String(logging.FieldJobID, job.ID),
				logging.Error(err))
		}
	}
	return nil
}

// Get returns the job document after reconciling it against the files on
// disk. Corrections are persisted; an unchanged document is not rewritten.
func (e *Engine) Get(ctx context.Context, jobID string) (*workflow.Job, error) {
	var job *workflow.Job
	err := e.withJob(ctx, jobID, func(_ workflow.Layout, loaded *workflow.Job) error {
		job = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// List returns a summary row per job. With a registry attached the index
// answers directly; without one the jobs directory is summarized on the fly.
func (e *Engine) List(ctx context.Context) ([]*registry.Entry, error) {
	if e.index != nil {
		return e.index.List(ctx)
	}
	dirs, err := workflow.ListJobDirs(e.cfg.Paths.JobsDir)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "engine", "list jobs", "scan jobs directory", err)
	}
	entries := make([]*registry.Entry, 0, len(dirs))
	for _, dir := range dirs {
		job, err := workflow.Load(dir)
		if err != nil || job.IsEmpty() {
			continue
		}
		if job.ID == "" {
			job.ID = filepath.Base(dir)
		}
		entry := registry.Summarize(job)
		entries = append(entries, &entry)
	}
	return entries, nil
}

// RefreshIndex rebuilds the registry from the documents on disk and returns
// the number of jobs indexed. A nil index makes this a no-op.
func (e *Engine) RefreshIndex(ctx context.Context) (int, error) {
	if e.index == nil {
		return 0, nil
	}
	return e.index.Rescan(ctx, e.cfg.Paths.JobsDir)
}
