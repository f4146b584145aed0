package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// EntityView describes a recurring character or object and its reference
// image in a transport-friendly format.
type EntityView struct {
	Name           string `json:"name,omitempty"`
	ReferenceImage string `json:"referenceImage"`
}

// ShotView is the transport representation of one shot.
type ShotView struct {
	ID           string            `json:"id"`
	StartSeconds float64           `json:"startSeconds"`
	EndSeconds   float64           `json:"endSeconds"`
	Description  string            `json:"description"`
	Entities     []string          `json:"entities,omitempty"`
	Assets       map[string]string `json:"assets,omitempty"`
	Stages       map[string]string `json:"stages"`
	Errors       map[string]string `json:"errors,omitempty"`
}

// MergeSummary reports merge readiness for a job.
type MergeSummary struct {
	FailedShots  int  `json:"failedShots"`
	PendingShots int  `json:"pendingShots"`
	CanMerge     bool `json:"canMerge"`
}

// JobView is the full transport representation of one workflow document.
type JobView struct {
	ID          string                `json:"id"`
	SourceVideo string                `json:"sourceVideo"`
	StylePrompt string                `json:"stylePrompt"`
	VideoModel  string                `json:"videoModel,omitempty"`
	Entities    map[string]EntityView `json:"entities,omitempty"`
	Stages      map[string]string     `json:"stages"`
	Shots       []ShotView            `json:"shots"`
	Merge       MergeSummary          `json:"merge"`
	UpdatedAt   string                `json:"updatedAt,omitempty"`
	Attempts    int                   `json:"attempts,omitempty"`
}

// JobSummary is one row of a job listing.
type JobSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title,omitempty"`
	SourceVideo  string `json:"sourceVideo"`
	ShotCount    int    `json:"shotCount"`
	StylizeDone  int    `json:"stylizeDone"`
	VideoDone    int    `json:"videoDone"`
	FailedShots  int    `json:"failedShots"`
	PendingShots int    `json:"pendingShots"`
	CanMerge     bool   `json:"canMerge"`
	State        string `json:"state"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

// EditResult reports one applied edit operation and how many shots it
// invalidated.
type EditResult struct {
	Op       string `json:"op"`
	Affected int    `json:"affected"`
}

// SkippedDirective reports a chat directive that was declined rather than
// applied.
type SkippedDirective struct {
	Op     string `json:"op"`
	Reason string `json:"reason"`
}

// CheckStatus reports one readiness check outcome.
type CheckStatus struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	JobsDir      string         `json:"jobsDir"`
	RegistryPath string         `json:"registryPath"`
	LockFilePath string         `json:"lockFilePath"`
	JobCount     int            `json:"jobCount"`
	JobStates    map[string]int `json:"jobStates,omitempty"`
	Checks       []CheckStatus  `json:"checks,omitempty"`
}

// CreateJobRequest describes a job to bootstrap from a server-local source
// video.
type CreateJobRequest struct {
	SourceVideo string                `json:"sourceVideo"`
	StylePrompt string                `json:"stylePrompt"`
	VideoModel  string                `json:"videoModel,omitempty"`
	Entities    map[string]EntityView `json:"entities,omitempty"`
}

// ChatRequest carries one natural-language instruction for the director
// agent.
type ChatRequest struct {
	Message string `json:"message"`
}

// JobResponse wraps a single job document.
type JobResponse struct {
	Job JobView `json:"job"`
}

// JobListResponse wraps a collection of job summaries.
type JobListResponse struct {
	Jobs []JobSummary `json:"jobs"`
}

// EditResponse reports an applied edit batch alongside the resulting
// document.
type EditResponse struct {
	Applied []EditResult `json:"applied"`
	Job     JobView      `json:"job"`
}

// ChatResponse reports the agent's applied operations, the directives it
// declined, and the resulting document.
type ChatResponse struct {
	Applied []EditResult       `json:"applied"`
	Skipped []SkippedDirective `json:"skipped,omitempty"`
	Job     JobView            `json:"job"`
}

// RunAccepted acknowledges a stage run that continues in the background.
type RunAccepted struct {
	Status    string   `json:"status"`
	JobID     string   `json:"jobId"`
	Stage     string   `json:"stage"`
	Shots     []string `json:"shots"`
	RequestID string   `json:"requestId"`
}

// MergeResponse reports a completed merge.
type MergeResponse struct {
	JobID  string `json:"jobId"`
	Output string `json:"output"`
}
