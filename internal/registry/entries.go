package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"recut/internal/workflow"
)

// Entry is one job's row in the index: identity plus the counts list and
// status displays need. The workflow document remains the source of truth.
type Entry struct {
	JobID        string
	Title        string
	SourceVideo  string
	ShotCount    int
	StylizeDone  int
	VideoDone    int
	FailedShots  int
	PendingShots int
	CanMerge     bool
	MergeStatus  workflow.StageStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// State reduces the entry to a single display word for job listings.
func (e *Entry) State() string {
	switch {
	case e == nil:
		return ""
	case e.ShotCount == 0:
		return "empty"
	case e.MergeStatus == workflow.StatusSuccess:
		return "merged"
	case e.FailedShots > 0:
		return "failed"
	case e.CanMerge:
		return "ready"
	default:
		return "pending"
	}
}

// Summarize derives an index entry from a workflow document. The merge
// readiness counts are recomputed here rather than read from the document's
// derived summary so a stale document still indexes correctly.
func Summarize(job *workflow.Job) Entry {
	entry := Entry{
		JobID:       job.ID,
		Title:       titleFromSource(job.SourceVideo),
		SourceVideo: job.SourceVideo,
		ShotCount:   len(job.Shots),
		MergeStatus: job.StageState(workflow.StageMerge),
		UpdatedAt:   parseDocumentTime(job.Meta.UpdatedAt),
	}
	for _, shot := range job.Shots {
		if shot == nil {
			continue
		}
		if shot.StageState(workflow.StageStylize) == workflow.StatusSuccess {
			entry.StylizeDone++
		}
		switch shot.StageState(workflow.StageVideoGenerate) {
		case workflow.StatusSuccess:
			entry.VideoDone++
		case workflow.StatusFailed:
			entry.FailedShots++
		default:
			entry.PendingShots++
		}
	}
	entry.CanMerge = entry.ShotCount > 0 && entry.FailedShots == 0 && entry.PendingShots == 0
	return entry
}

// Upsert inserts or refreshes one job's row. The created_at column is written
// on first insert only; later refreshes keep it.
func (s *Store) Upsert(ctx context.Context, entry Entry) error {
	if strings.TrimSpace(entry.JobID) == "" {
		return errors.New("entry job id is empty")
	}
	updated := entry.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	created := entry.CreatedAt
	if created.IsZero() {
		created = updated
	}
	if _, err := s.exec(
		ctx,
		`INSERT INTO jobs (
            job_id, title, source_video, shot_count, stylize_done, video_done,
            failed_shots, pending_shots, can_merge, merge_status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(job_id) DO UPDATE SET
            title = excluded.title,
            source_video = excluded.source_video,
            shot_count = excluded.shot_count,
            stylize_done = excluded.stylize_done,
            video_done = excluded.video_done,
            failed_shots = excluded.failed_shots,
            pending_shots = excluded.pending_shots,
            can_merge = excluded.can_merge,
            merge_status = excluded.merge_status,
            updated_at = excluded.updated_at`,
		entry.JobID,
		entry.Title,
		entry.SourceVideo,
		entry.ShotCount,
		entry.StylizeDone,
		entry.VideoDone,
		entry.FailedShots,
		entry.PendingShots,
		boolToInt(entry.CanMerge),
		string(entry.MergeStatus),
		created.UTC().Format(time.RFC3339Nano),
		updated.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("upsert job entry: %w", err)
	}
	return nil
}

// Get fetches one job's entry by identifier. A missing row returns nil.
func (s *Store) Get(ctx context.Context, jobID string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM jobs WHERE job_id = ?`, jobID)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job entry: %w", err)
	}
	return entry, nil
}

// List returns every indexed job ordered by creation time.
func (s *Store) List(ctx context.Context) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM jobs ORDER BY created_at, job_id`)
	if err != nil {
		return nil, fmt.Errorf("list job entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Remove deletes one job's row.
func (s *Store) Remove(ctx context.Context, jobID string) (bool, error) {
	res, err := s.exec(ctx, `DELETE FROM jobs WHERE job_id = ?`, jobID)
	if err != nil {
		return false, fmt.Errorf("delete job entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Summary aggregates the index for status displays. The buckets are
// disjoint and follow the same priority as Entry.State, so a job counts
// once even when it is both merged and carrying failed shots.
type Summary struct {
	Total     int
	Merged    int
	Mergeable int
	Failing   int
}

// StateCounts expands the summary into the listing-state vocabulary.
func (s Summary) StateCounts() map[string]int {
	if s.Total == 0 {
		return nil
	}
	counts := make(map[string]int, 4)
	if s.Merged > 0 {
		counts["merged"] = s.Merged
	}
	if s.Mergeable > 0 {
		counts["ready"] = s.Mergeable
	}
	if s.Failing > 0 {
		counts["failed"] = s.Failing
	}
	if pending := s.Total - s.Merged - s.Mergeable - s.Failing; pending > 0 {
		counts["pending"] = pending
	}
	return counts
}

// Stats returns index-wide counts.
func (s *Store) Stats(ctx context.Context) (Summary, error) {
	row := s.db.QueryRowContext(ctx, `SELECT
            COUNT(1),
            COALESCE(SUM(CASE WHEN merge_status = ? THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN can_merge != 0 AND merge_status != ? THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN failed_shots > 0 AND merge_status != ? THEN 1 ELSE 0 END), 0)
        FROM jobs`,
		string(workflow.StatusSuccess),
		string(workflow.StatusSuccess),
		string(workflow.StatusSuccess),
	)
	var summary Summary
	if err := row.Scan(&summary.Total, &summary.Merged, &summary.Mergeable, &summary.Failing); err != nil {
		return Summary{}, fmt.Errorf("registry stats: %w", err)
	}
	return summary, nil
}

// Rescan rebuilds the index from the jobs directory: every job directory with
// a readable document is summarized and upserted, and rows whose directories
// vanished are removed. Returns the number of jobs indexed.
func (s *Store) Rescan(ctx context.Context, jobsDir string) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	dirs, err := workflow.ListJobDirs(jobsDir)
	if err != nil {
		return 0, fmt.Errorf("rescan jobs directory: %w", err)
	}

	seen := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return len(seen), err
		}
		job, err := workflow.Load(dir)
		if err != nil {
			return len(seen), fmt.Errorf("rescan %s: %w", filepath.Base(dir), err)
		}
		if job.IsEmpty() {
			continue
		}
		if job.ID == "" {
			job.ID = filepath.Base(dir)
		}
		if err := s.Upsert(ctx, Summarize(job)); err != nil {
			return len(seen), err
		}
		seen = append(seen, job.ID)
	}

	if err := s.pruneExcept(ctx, seen); err != nil {
		return len(seen), err
	}
	return len(seen), nil
}

func (s *Store) pruneExcept(ctx context.Context, jobIDs []string) error {
	if len(jobIDs) == 0 {
		if _, err := s.exec(ctx, `DELETE FROM jobs`); err != nil {
			return fmt.Errorf("prune job entries: %w", err)
		}
		return nil
	}
	placeholders := makePlaceholders(len(jobIDs))
	args := make([]any, len(jobIDs))
	for i, id := range jobIDs {
		args[i] = id
	}
	query := `DELETE FROM jobs WHERE job_id NOT IN (` + placeholders + `)`
	if _, err := s.exec(ctx, query, args...); err != nil {
		return fmt.Errorf("prune job entries: %w", err)
	}
	return nil
}

const entryColumns = "job_id, title, source_video, shot_count, stylize_done, video_done, failed_shots, pending_shots, can_merge, merge_status, created_at, updated_at"

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		jobID        string
		title        sql.NullString
		sourceVideo  sql.NullString
		shotCount    sql.NullInt64
		stylizeDone  sql.NullInt64
		videoDone    sql.NullInt64
		failedShots  sql.NullInt64
		pendingShots sql.NullInt64
		canMerge     sql.NullInt64
		mergeStatus  sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&jobID,
		&title,
		&sourceVideo,
		&shotCount,
		&stylizeDone,
		&videoDone,
		&failedShots,
		&pendingShots,
		&canMerge,
		&mergeStatus,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	entry := &Entry{
		JobID:        jobID,
		Title:        title.String,
		SourceVideo:  sourceVideo.String,
		ShotCount:    int(shotCount.Int64),
		StylizeDone:  int(stylizeDone.Int64),
		VideoDone:    int(videoDone.Int64),
		FailedShots:  int(failedShots.Int64),
		PendingShots: int(pendingShots.Int64),
		CanMerge:     canMerge.Int64 != 0,
		MergeStatus:  workflow.StageStatus(mergeStatus.String),
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		entry.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		entry.UpdatedAt = updated
	}
	return entry, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func parseDocumentTime(value string) time.Time {
	if t, err := parseTimeString(value); err == nil {
		return t
	}
	return time.Now().UTC()
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func titleFromSource(path string) string {
	base := strings.TrimSpace(filepath.Base(path))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "Untitled"
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	cleaned := strings.TrimSpace(base)
	if cleaned == "" {
		return "Untitled"
	}
	return cleaned
}
