package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"recut/internal/agent"
	"recut/internal/config"
	"recut/internal/engine"
	"recut/internal/logging"
	"recut/internal/preflight"
	"recut/internal/registry"
	"recut/internal/services"
	"recut/internal/workflow"
)

// Daemon owns the recut process lifecycle and enforces single-instance
// execution through a lock file in the log directory.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	eng    *engine.Engine
	chat   *agent.Agent
	index  *registry.Store

	lockPath string
	lock     *flock.Flock

	api *apiServer

	// checks holds the preflight results captured at startup; Status reports
	// them without re-probing remote services per request.
	checks []preflight.Result

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	tasks   sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	JobsDir      string
	RegistryPath string
	LockFilePath string
	JobCount     int
	JobStates    map[string]int
	Checks       []preflight.Result
}

// ChatResult carries the outcome of one director-agent exchange: the
// operations that were applied, the directives that were declined, and the
// document as persisted afterwards.
type ChatResult struct {
	Job     *workflow.Job
	Applied []engine.EditOutcome
	Skipped []agent.Skipped
}

// New constructs a daemon with initialized dependencies. The chat agent and
// registry index are optional; a nil agent rejects chat requests and a nil
// index falls back to directory scans for listings.
func New(cfg *config.Config, eng *engine.Engine, chatAgent *agent.Agent, index *registry.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || eng == nil {
		return nil, errors.New("daemon requires config and engine")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "recutd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		eng:      eng,
		chat:     chatAgent,
		index:    index,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, runs the preflight checks, and brings up
// the HTTP API. A failed preflight check halts startup so jobs never begin
// against a broken environment.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another recut daemon instance is already running")
	}

	d.checks = preflight.RunAll(ctx, d.cfg)
	if failed := preflight.Failed(d.checks); len(failed) > 0 {
		for _, check := range failed {
			logging.ErrorWithContext(d.logger, "preflight check failed", "preflight_failed",
				logging.String("check", check.Name),
				logging.String("detail", check.Detail))
		}
		_ = d.lock.Unlock()
		return fmt.Errorf("%d preflight check(s) failed", len(failed))
	}
	d.logger.Info("preflight checks passed", logging.Int("checks", len(d.checks)))

	d.ctx, d.cancel = context.WithCancel(ctx)
	server, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		d.teardownStart()
		return fmt.Errorf("create api server: %w", err)
	}
	d.api = server
	if d.api != nil {
		if err := d.api.start(d.ctx); err != nil {
			d.api = nil
			d.teardownStart()
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("recut daemon started",
		logging.String("lock", d.lockPath),
		logging.String("bind", d.cfg.Paths.APIBind))
	return nil
}

func (d *Daemon) teardownStart() {
	if d.cancel != nil {
		d.cancel()
	}
	d.ctx = nil
	d.cancel = nil
	_ = d.lock.Unlock()
}

// Stop shuts down the API, waits for in-flight stage runs, and releases the
// daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.api != nil {
		d.api.stop()
		d.api = nil
	}
	d.tasks.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("recut daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.index != nil {
		return d.index.Close()
	}
	return nil
}

// APIAddr returns the bound API listener address, or empty when the API is
// not serving. Useful when the configured bind uses an ephemeral port.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.address()
}

// StartRun claims a stage run for the given job and executes the generators
// in the background. The returned run describes the accepted claim; results
// land in the workflow document as shots finish.
func (d *Daemon) StartRun(ctx context.Context, jobID, stageName, shotID string) (*engine.StageRun, error) {
	run, err := d.eng.BeginStage(ctx, jobID, stageName, shotID)
	if err != nil {
		return nil, err
	}
	d.tasks.Add(1)
	go func() {
		defer d.tasks.Done()
		if _, err := run.Execute(d.runCtx()); err != nil {
			logging.ErrorWithContext(d.logger, "background stage run failed", "stage_run_failed",
				logging.String(logging.FieldJobID, run.JobID()),
				logging.String(logging.FieldStage, string(run.Stage())),
				logging.Error(err))
		}
	}()
	return run, nil
}

// runCtx returns the daemon lifetime context for background work. Before
// Start, as in tests driving handlers directly, it falls back to the
// background context.
func (d *Daemon) runCtx() context.Context {
	if d.ctx != nil {
		return d.ctx
	}
	return context.Background()
}

// Chat runs one natural-language instruction through the director agent and
// applies whatever operations it proposes to the job.
func (d *Daemon) Chat(ctx context.Context, jobID, message string) (*ChatResult, error) {
	if d.chat == nil {
		return nil, services.Wrap(services.ErrConfiguration, jobID, "chat", "chat agent is not configured", nil)
	}
	job, err := d.eng.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	proposal, err := d.chat.Propose(ctx, message, job)
	if err != nil {
		return nil, err
	}
	if len(proposal.Ops) == 0 {
		return &ChatResult{Job: job, Skipped: proposal.Skipped}, nil
	}
	report, err := d.eng.ApplyEdits(ctx, jobID, proposal.Ops)
	if err != nil {
		return nil, err
	}
	return &ChatResult{Job: report.Job, Applied: report.Applied, Skipped: proposal.Skipped}, nil
}

// Status returns the current daemon status. Job counts come from the
// registry aggregate when an index is attached, falling back to the engine
// listing otherwise; either failure degrades to counts of zero rather than
// failing the status call. Tool availability is probed per call because
// binaries can appear or vanish while the daemon runs.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		JobsDir:      d.cfg.Paths.JobsDir,
		RegistryPath: d.cfg.RegistryPath(),
		LockFilePath: d.lockPath,
		Checks:       append(append([]preflight.Result{}, d.checks...), preflight.CheckTools(d.cfg)...),
	}
	if d.index != nil {
		summary, err := d.index.Stats(ctx)
		if err == nil {
			status.JobCount = summary.Total
			status.JobStates = summary.StateCounts()
			return status
		}
		d.logger.Warn("registry stats for status failed", logging.Error(err))
	}
	entries, err := d.eng.List(ctx)
	if err != nil {
		d.logger.Warn("job listing for status failed", logging.Error(err))
		return status
	}
	status.JobCount = len(entries)
	if len(entries) > 0 {
		states := make(map[string]int, 4)
		for _, entry := range entries {
			states[entry.State()]++
		}
		status.JobStates = states
	}
	return status
}
