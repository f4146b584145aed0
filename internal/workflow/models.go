package workflow

import (
	"fmt"
	"strings"
)

// StageStatus represents the lifecycle of one stage for one shot or job.
type StageStatus string

const (
	StatusNotStarted StageStatus = "NOT_STARTED"
	StatusRunning    StageStatus = "RUNNING"
	StatusSuccess    StageStatus = "SUCCESS"
	StatusFailed     StageStatus = "FAILED"
)

var allStatuses = []StageStatus{
	StatusNotStarted,
	StatusRunning,
	StatusSuccess,
	StatusFailed,
}

var statusSet = func() map[StageStatus]struct{} {
	set := make(map[StageStatus]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []StageStatus {
	cp := make([]StageStatus, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStageStatus converts a string into a known StageStatus.
func ParseStageStatus(value string) (StageStatus, bool) {
	normalized := StageStatus(strings.ToUpper(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether the status is SUCCESS or FAILED.
func (s StageStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Stage names a processing step of the pipeline.
type Stage string

const (
	StageAnalyze       Stage = "analyze"
	StageExtract       Stage = "extract"
	StageStylize       Stage = "stylize"
	StageVideoGenerate Stage = "video_generate"
	StageMerge         Stage = "merge"
)

var jobStages = []Stage{
	StageAnalyze,
	StageExtract,
	StageStylize,
	StageVideoGenerate,
	StageMerge,
}

var shotStages = []Stage{
	StageStylize,
	StageVideoGenerate,
}

// JobStages returns the job-level stage names in pipeline order.
func JobStages() []Stage {
	cp := make([]Stage, len(jobStages))
	copy(cp, jobStages)
	return cp
}

// ShotStages returns the artifact-producing shot stages in dependency order:
// stylize runs before video_generate.
func ShotStages() []Stage {
	cp := make([]Stage, len(shotStages))
	copy(cp, shotStages)
	return cp
}

// ParseShotStage converts a string into a runnable shot stage name.
func ParseShotStage(value string) (Stage, bool) {
	normalized := Stage(strings.ToLower(strings.TrimSpace(value)))
	for _, stage := range shotStages {
		if stage == normalized {
			return stage, true
		}
	}
	return "", false
}

// Asset names used in a shot's assets map.
const (
	AssetFirstFrame    = "first_frame"
	AssetSourceSegment = "source_segment"
	AssetStylizedFrame = "stylized_frame"
	AssetVideo         = "video"
)

// AssetForStage returns the asset key a shot stage produces.
func AssetForStage(stage Stage) (string, bool) {
	switch stage {
	case StageStylize:
		return AssetStylizedFrame, true
	case StageVideoGenerate:
		return AssetVideo, true
	default:
		return "", false
	}
}

// FormatShotID builds the zero-padded shot identifier for a 1-based index.
// The padding keeps lexicographic order aligned with creation order.
func FormatShotID(index int) string {
	return fmt.Sprintf("shot_%02d", index)
}

// Global holds job-wide generation parameters.
type Global struct {
	StylePrompt string `json:"style_prompt"`
	VideoModel  string `json:"video_model"`
}

// Entity is a recurring character or object with a reference image that
// generators use to keep renditions consistent across shots.
type Entity struct {
	Name           string `json:"name,omitempty"`
	ReferenceImage string `json:"reference_image"`
}

// Meta carries free-form document bookkeeping.
type Meta struct {
	UpdatedAt string `json:"updated_at"`
	Attempts  int    `json:"attempts"`
}

// MergeInfo is the derived merge-readiness summary. It is recomputed on every
// load and never trusted from disk.
type MergeInfo struct {
	FailedShots  int  `json:"failed_shots"`
	PendingShots int  `json:"pending_shots"`
	CanMerge     bool `json:"can_merge"`
}

// Shot is one segment of the source video, the unit of stage execution.
type Shot struct {
	ID           string                `json:"shot_id"`
	StartSeconds float64               `json:"start_seconds"`
	EndSeconds   float64               `json:"end_seconds"`
	Description  string                `json:"description"`
	Entities     []string              `json:"entities,omitempty"`
	Assets       map[string]string     `json:"assets"`
	Status       map[Stage]StageStatus `json:"status"`
	Errors       map[Stage]string      `json:"errors,omitempty"`
}

// Job is the persisted workflow document.
type Job struct {
	ID          string                `json:"job_id"`
	SourceVideo string                `json:"source_video"`
	Global      Global                `json:"global"`
	Entities    map[string]Entity     `json:"entities"`
	Stages      map[Stage]StageStatus `json:"global_stages"`
	Shots       []*Shot               `json:"shots"`
	Meta        Meta                  `json:"meta"`
	Merge       MergeInfo             `json:"merge_info"`
}

// NewJob builds an empty document for a fresh job. Every job stage starts as
// NOT_STARTED; shots are appended by the bootstrap path.
func NewJob(id, sourceVideo string, global Global) *Job {
	job := &Job{
		ID:          id,
		SourceVideo: sourceVideo,
		Global:      global,
		Entities:    make(map[string]Entity),
		Stages:      make(map[Stage]StageStatus, len(jobStages)),
		Shots:       make([]*Shot, 0),
	}
	for _, stage := range jobStages {
		job.Stages[stage] = StatusNotStarted
	}
	return job
}

// NewShot builds a shot with empty assets and NOT_STARTED shot stages.
func NewShot(id string, startSeconds, endSeconds float64, description string) *Shot {
	shot := &Shot{
		ID:           id,
		StartSeconds: startSeconds,
		EndSeconds:   endSeconds,
		Description:  description,
		Assets:       make(map[string]string, 4),
		Status:       make(map[Stage]StageStatus, len(shotStages)),
		Errors:       make(map[Stage]string),
	}
	for _, stage := range shotStages {
		shot.Status[stage] = StatusNotStarted
	}
	return shot
}

// Normalize repairs a document decoded from disk: missing maps materialize,
// unknown or absent statuses become NOT_STARTED, and every known stage key is
// present afterwards. Field content is otherwise preserved.
func (j *Job) Normalize() {
	if j.Entities == nil {
		j.Entities = make(map[string]Entity)
	}
	if j.Stages == nil {
		j.Stages = make(map[Stage]StageStatus, len(jobStages))
	}
	for _, stage := range jobStages {
		if status, ok := ParseStageStatus(string(j.Stages[stage])); ok {
			j.Stages[stage] = status
		} else {
			j.Stages[stage] = StatusNotStarted
		}
	}
	if j.Shots == nil {
		j.Shots = make([]*Shot, 0)
	}
	for _, shot := range j.Shots {
		if shot == nil {
			continue
		}
		shot.normalize()
	}
}

func (s *Shot) normalize() {
	if s.Assets == nil {
		s.Assets = make(map[string]string, 4)
	}
	if s.Status == nil {
		s.Status = make(map[Stage]StageStatus, len(shotStages))
	}
	if s.Errors == nil {
		s.Errors = make(map[Stage]string)
	}
	for _, stage := range shotStages {
		if status, ok := ParseStageStatus(string(s.Status[stage])); ok {
			s.Status[stage] = status
		} else {
			s.Status[stage] = StatusNotStarted
		}
	}
}

// IsEmpty reports whether the document carries no prior state.
func (j *Job) IsEmpty() bool {
	return j == nil || (j.ID == "" && len(j.Shots) == 0)
}

// ShotByID returns the shot with the given identifier, or nil.
func (j *Job) ShotByID(id string) *Shot {
	for _, shot := range j.Shots {
		if shot != nil && shot.ID == id {
			return shot
		}
	}
	return nil
}

// StageState returns the job-level status for a stage.
func (j *Job) StageState(stage Stage) StageStatus {
	if status, ok := j.Stages[stage]; ok {
		return status
	}
	return StatusNotStarted
}

// SetStage records a job-level stage status.
func (j *Job) SetStage(stage Stage, status StageStatus) {
	if j.Stages == nil {
		j.Stages = make(map[Stage]StageStatus, len(jobStages))
	}
	j.Stages[stage] = status
}

// RecomputeDerived refreshes the merge summary and the job-level stylize and
// video_generate indicators from the current shot statuses. The analyze,
// extract, and merge indicators are owned by their execution paths and are
// left untouched.
func (j *Job) RecomputeDerived() {
	failed, pending := 0, 0
	for _, shot := range j.Shots {
		switch shot.StageState(StageVideoGenerate) {
		case StatusFailed:
			failed++
		case StatusNotStarted, StatusRunning:
			pending++
		}
	}
	j.Merge = MergeInfo{
		FailedShots:  failed,
		PendingShots: pending,
		CanMerge:     len(j.Shots) > 0 && failed == 0 && pending == 0,
	}
	for _, stage := range shotStages {
		j.SetStage(stage, j.deriveShotStage(stage))
	}
}

func (j *Job) deriveShotStage(stage Stage) StageStatus {
	if len(j.Shots) == 0 {
		return StatusNotStarted
	}
	running, failed, success := 0, 0, 0
	for _, shot := range j.Shots {
		switch shot.StageState(stage) {
		case StatusRunning:
			running++
		case StatusFailed:
			failed++
		case StatusSuccess:
			success++
		}
	}
	switch {
	case running > 0:
		return StatusRunning
	case failed > 0:
		return StatusFailed
	case success == len(j.Shots):
		return StatusSuccess
	default:
		return StatusNotStarted
	}
}

// StageState returns the shot's status for a stage, defaulting to NOT_STARTED.
func (s *Shot) StageState(stage Stage) StageStatus {
	if s == nil {
		return StatusNotStarted
	}
	if status, ok := s.Status[stage]; ok {
		return status
	}
	return StatusNotStarted
}

// Asset returns the relative path recorded for an asset name, or empty.
func (s *Shot) Asset(name string) string {
	if s == nil {
		return ""
	}
	return s.Assets[name]
}

// HasEntity reports whether the shot references the given entity.
func (s *Shot) HasEntity(entityID string) bool {
	for _, id := range s.Entities {
		if id == entityID {
			return true
		}
	}
	return false
}

// MarkRunning transitions a shot stage to RUNNING, clearing the stage error
// and any recorded asset path. The caller removes the artifact file.
func (s *Shot) MarkRunning(stage Stage) {
	s.Status[stage] = StatusRunning
	delete(s.Errors, stage)
	if asset, ok := AssetForStage(stage); ok {
		delete(s.Assets, asset)
	}
}

// MarkSuccess transitions a shot stage to SUCCESS and records its artifact.
func (s *Shot) MarkSuccess(stage Stage, assetPath string) {
	s.Status[stage] = StatusSuccess
	delete(s.Errors, stage)
	if asset, ok := AssetForStage(stage); ok && assetPath != "" {
		s.Assets[asset] = assetPath
	}
}

// MarkFailed transitions a shot stage to FAILED and records the failure
// detail for later inspection.
func (s *Shot) MarkFailed(stage Stage, message string) {
	s.Status[stage] = StatusFailed
	if s.Errors == nil {
		s.Errors = make(map[Stage]string)
	}
	s.Errors[stage] = message
	if asset, ok := AssetForStage(stage); ok {
		delete(s.Assets, asset)
	}
}

// ResetStage returns a shot stage to NOT_STARTED, dropping its asset path and
// error detail. The caller deletes the artifact file.
func (s *Shot) ResetStage(stage Stage) {
	s.Status[stage] = StatusNotStarted
	delete(s.Errors, stage)
	if asset, ok := AssetForStage(stage); ok {
		delete(s.Assets, asset)
	}
}

// ResetDownstream resets every artifact-producing shot stage, used when an
// edit invalidates the shot's rendered content.
func (s *Shot) ResetDownstream() {
	for _, stage := range shotStages {
		s.ResetStage(stage)
	}
}
