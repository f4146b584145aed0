package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"recut/internal/config"
	"recut/internal/logging"
	"recut/internal/media"
	"recut/internal/services/genai"
)

// MockModel is the video model name that routes a job to the local pipeline.
const MockModel = "mock"

// ShotPlan is one planned shot produced by decomposition.
type ShotPlan struct {
	StartSeconds float64
	EndSeconds   float64
	Description  string
}

// Decomposer plans the ordered shot list for a source video at bootstrap.
type Decomposer interface {
	Decompose(ctx context.Context, sourceVideo string, durationSeconds float64) ([]ShotPlan, error)
}

// StylizeRequest carries everything the stylize stage knows about one shot.
// All paths are absolute.
type StylizeRequest struct {
	JobID               string
	ShotID              string
	FirstFramePath      string
	ReferenceImagePaths []string
	StylePrompt         string
	Description         string
	OutputPath          string
}

// Stylizer renders the stylized-frame artifact for one shot.
type Stylizer interface {
	Stylize(ctx context.Context, req StylizeRequest) error
}

// SynthesizeRequest carries everything the video stage knows about one shot.
// All paths are absolute.
type SynthesizeRequest struct {
	JobID             string
	ShotID            string
	StylizedFramePath string
	SourceSegmentPath string
	SourceVideoPath   string
	StylePrompt       string
	Description       string
	OutputPath        string
}

// Synthesizer renders the video artifact for one shot.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesizeRequest) error
}

// Set bundles the collaborators of one pipeline.
type Set struct {
	Name        string
	Decomposer  Decomposer
	Stylizer    Stylizer
	Synthesizer Synthesizer
}

// Settings are the config-derived knobs shared by both pipelines.
type Settings struct {
	SceneThreshold  float64
	MinShotSeconds  float64
	MaxShotSeconds  float64
	MaxShots        int
	FallbackSeconds float64

	PollInterval         time.Duration
	PollTimeout          time.Duration
	VideoDurationSeconds int
	AspectRatio          string

	// PlaceholderSeconds bounds the mock pipeline's stand-in clips.
	PlaceholderSeconds float64
}

// SettingsFromConfig projects the decompose and generation sections into
// Settings.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		SceneThreshold:       cfg.Decompose.SceneThreshold,
		MinShotSeconds:       cfg.Decompose.MinShotSeconds,
		MaxShotSeconds:       cfg.Decompose.MaxShotSeconds,
		MaxShots:             cfg.Decompose.MaxShots,
		FallbackSeconds:      cfg.Decompose.FallbackSeconds,
		PollInterval:         time.Duration(cfg.Generation.PollIntervalSeconds) * time.Second,
		PollTimeout:          time.Duration(cfg.Generation.PollTimeoutSeconds) * time.Second,
		VideoDurationSeconds: cfg.Generation.VideoDurationSeconds,
		AspectRatio:          cfg.Generation.AspectRatio,
		PlaceholderSeconds:   1.0,
	}
}

// planOptions projects Settings onto the media planner.
func (s Settings) planOptions() media.PlanOptions {
	return media.PlanOptions{
		MinShotSeconds: s.MinShotSeconds,
		MaxShotSeconds: s.MaxShotSeconds,
		MaxShots:       s.MaxShots,
	}
}

// Registry selects the pipeline implementation for a job's video model.
type Registry struct {
	mock   Set
	remote *Set
}

// NewRegistry wires the mock pipeline around the media client and, when a
// genai client is provided, the remote pipeline around it. A nil genai
// client leaves the remote pipeline unavailable, which is the normal state
// for keyless installs.
func NewRegistry(mediaClient *media.Client, genaiClient *genai.Client, settings Settings, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	registry := &Registry{
		mock: Set{
			Name:        MockModel,
			Decomposer:  NewLocalDecomposer(mediaClient, settings, logger),
			Stylizer:    NewMockStylizer(logger),
			Synthesizer: NewMockSynthesizer(mediaClient, settings, logger),
		},
	}
	if genaiClient != nil {
		registry.remote = &Set{
			Name:        "remote",
			Decomposer:  NewRemoteDecomposer(genaiClient, mediaClient, settings, logger),
			Stylizer:    NewRemoteStylizer(genaiClient, logger),
			Synthesizer: NewRemoteSynthesizer(genaiClient, settings, logger),
		}
	}
	return registry
}

// For returns the pipeline set serving the given video model. An empty model
// or MockModel selects the mock pipeline; any other model requires the
// remote pipeline to be configured.
func (r *Registry) For(videoModel string) (Set, error) {
	model := strings.ToLower(strings.TrimSpace(videoModel))
	if model == "" || model == MockModel {
		return r.mock, nil
	}
	if r.remote == nil {
		return Set{}, fmt.Errorf("video model %q needs the remote pipeline, which is not configured (missing api key)", videoModel)
	}
	return *r.remote, nil
}

// RemoteAvailable reports whether remote jobs can be served.
func (r *Registry) RemoteAvailable() bool {
	return r.remote != nil
}

var errNoSegments = errors.New("no segments planned")
