package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Load tolerates a writer that is mid-save: an empty or malformed document is
// retried a few times before the job is treated as having no prior state.
const (
	loadRetryAttempts = 4
	loadRetryBackoff  = 50 * time.Millisecond
)

// Load reads and normalizes the workflow document rooted at jobDir. A missing
// document, or one that stays unreadable after the retry budget, yields an
// empty normalized document rather than an error; callers must treat an empty
// document as "no prior state". Only genuine I/O failures are returned.
func Load(jobDir string) (*Job, error) {
	layout := NewLayout(jobDir)
	path := layout.DocumentPath()

	var lastErr error
	delay := loadRetryBackoff
	for attempt := 0; attempt < loadRetryAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(delay)
			delay *= 2
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return emptyJob(), nil
			}
			return nil, fmt.Errorf("read workflow document: %w", err)
		}
		if len(data) == 0 {
			lastErr = errors.New("document empty")
			continue
		}
		job := &Job{}
		if err := json.Unmarshal(data, job); err != nil {
			lastErr = err
			continue
		}
		job.Normalize()
		return job, nil
	}

	_ = lastErr
	return emptyJob(), nil
}

func emptyJob() *Job {
	job := &Job{}
	job.Normalize()
	return job
}

// Save stamps the update timestamp and writes the document atomically via a
// temp file and rename in the same directory. When the rename fails the data
// is written directly, trading atomicity for availability.
func Save(jobDir string, job *Job) error {
	job.Meta.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal workflow document: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return fmt.Errorf("create job directory: %w", err)
	}
	path := NewLayout(jobDir).DocumentPath()

	tmp, err := os.CreateTemp(jobDir, ".workflow-*.json")
	if err != nil {
		return fmt.Errorf("create temp document: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp document: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("chmod temp document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp document: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		if writeErr := os.WriteFile(path, data, 0o644); writeErr != nil {
			return fmt.Errorf("write workflow document: %w", errors.Join(err, writeErr))
		}
	}
	return nil
}

// Exists reports whether a workflow document is present under jobDir.
func Exists(jobDir string) bool {
	info, err := os.Stat(NewLayout(jobDir).DocumentPath())
	return err == nil && !info.IsDir()
}

// ListJobDirs returns the job directories under jobsDir that contain a
// workflow document, sorted by name.
func ListJobDirs(jobsDir string) ([]string, error) {
	entries, err := os.ReadDir(jobsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read jobs directory: %w", err)
	}
	dirs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(jobsDir, entry.Name())
		if Exists(dir) {
			dirs = append(dirs, dir)
		}
	}
	return dirs, nil
}
