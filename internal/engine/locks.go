package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"recut/internal/config"
	"recut/internal/logging"
	"recut/internal/services"
)

const lockRetryDelay = 50 * time.Millisecond

// lockTable hands out one mutex per job id so goroutines in this process
// serialize before contending on the lock file.
type lockTable struct {
	mu   sync.Mutex
	jobs map[string]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{jobs: make(map[string]*sync.Mutex)}
}

func (t *lockTable) forJob(jobID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	lock, ok := t.jobs[jobID]
	if !ok {
		lock = &sync.Mutex{}
		t.jobs[jobID] = lock
	}
	return lock
}

// withJobLock serializes document access for one job. The in-process mutex
// orders goroutines; the lock file extends the exclusion to other recut
// processes sharing the jobs directory. Holders must not call back into any
// locked engine operation for the same job.
func (e *Engine) withJobLock(ctx context.Context, jobID string, fn func() error) error {
	local := e.locks.forJob(jobID)
	local.Lock()
	defer local.Unlock()

	layout := e.layout(jobID)
	if err := os.MkdirAll(layout.Root(), 0o755); err != nil {
		return services.Wrap(services.ErrPersistence, "engine", "lock job", "create job directory", err)
	}

	fileLock := flock.New(layout.LockPath())
	lockCtx, cancel := context.WithTimeout(ctx, e.lockTimeout())
	defer cancel()

	locked, err := fileLock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return services.Wrap(services.ErrPrecondition, "engine", "lock job",
				fmt.Sprintf("job %s is locked by another process", jobID), nil)
		}
		return services.Wrap(services.ErrPersistence, "engine", "lock job", "acquire job lock", err)
	}
	if !locked {
		return services.Wrap(services.ErrPrecondition, "engine", "lock job",
			fmt.Sprintf("job %s is locked by another process", jobID), nil)
	}
	defer func() {
		if err := fileLock.Unlock(); err != nil {
			e.logger.Warn("failed to release job lock",
				logging.String(logging.FieldJobID, jobID),
				logging.Error(err))
		}
	}()

	return fn()
}

func (e *Engine) lockTimeout() time.Duration {
	seconds := e.cfg.Engine.LockTimeoutSeconds
	if seconds <= 0 {
		seconds = config.DefaultLockTimeout
	}
	return time.Duration(seconds) * time.Second
}
