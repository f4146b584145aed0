package generation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"recut/internal/fileutil"
	"recut/internal/logging"
	"recut/internal/media"
)

// LocalDecomposer plans shots from ffmpeg scene detection, falling back to
// fixed intervals when detection fails or finds no cuts. Descriptions are
// numbered placeholders; the remote pipeline replaces them with model-written
// ones.
type LocalDecomposer struct {
	media    *media.Client
	settings Settings
	logger   *slog.Logger
}

// NewLocalDecomposer builds the scene-detect decomposer.
func NewLocalDecomposer(mediaClient *media.Client, settings Settings, logger *slog.Logger) *LocalDecomposer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LocalDecomposer{media: mediaClient, settings: settings, logger: logger}
}

// Decompose implements Decomposer.
func (d *LocalDecomposer) Decompose(ctx context.Context, sourceVideo string, durationSeconds float64) ([]ShotPlan, error) {
	segments, err := d.planSegments(ctx, sourceVideo, durationSeconds)
	if err != nil {
		return nil, err
	}
	plans := make([]ShotPlan, len(segments))
	for i, seg := range segments {
		plans[i] = ShotPlan{
			StartSeconds: seg.Start,
			EndSeconds:   seg.End,
			Description:  placeholderDescription(i+1, seg),
		}
	}
	return plans, nil
}

// planSegments runs detection plus fallback and is shared with the remote
// decomposer, which reuses the same timings.
func (d *LocalDecomposer) planSegments(ctx context.Context, sourceVideo string, durationSeconds float64) ([]media.Segment, error) {
	if durationSeconds <= 0 {
		return nil, fmt.Errorf("decompose: source duration %v not usable", durationSeconds)
	}

	logger := logging.WithContext(ctx, d.logger)
	var segments []media.Segment
	changes, err := d.media.SceneChanges(ctx, sourceVideo, d.settings.SceneThreshold)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logging.WarnWithContext(logger, "scene detection failed, using fixed intervals", "scene_detect_fallback",
			logging.Error(err),
			logging.Float64("fallback_interval", d.settings.FallbackSeconds),
		)
		segments = media.FixedSegments(durationSeconds, d.settings.FallbackSeconds, d.settings.MaxShots)
	} else {
		segments = media.PlanSegments(durationSeconds, changes, d.settings.planOptions())
		logger.Debug("scene detection complete",
			logging.Int("scene_changes", len(changes)),
			logging.Int("planned_shots", len(segments)),
			logging.Float64("scene_threshold", d.settings.SceneThreshold),
		)
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("decompose %q: %w", sourceVideo, errNoSegments)
	}
	return segments, nil
}

func placeholderDescription(index int, seg media.Segment) string {
	return fmt.Sprintf("Shot %d: source footage from %.1fs to %.1fs.", index, seg.Start, seg.End)
}

// MockStylizer produces the stylized frame by copying the extracted first
// frame, which keeps the stage graph runnable without any generation API.
type MockStylizer struct {
	logger *slog.Logger
}

// NewMockStylizer builds the copy-through stylizer.
func NewMockStylizer(logger *slog.Logger) *MockStylizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &MockStylizer{logger: logger}
}

// Stylize implements Stylizer.
func (m *MockStylizer) Stylize(ctx context.Context, req StylizeRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(req.FirstFramePath); err != nil {
		return fmt.Errorf("first frame missing: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return fmt.Errorf("stylize output dir: %w", err)
	}
	if err := fileutil.CopyFile(req.FirstFramePath, req.OutputPath); err != nil {
		return fmt.Errorf("copy frame: %w", err)
	}
	logging.WithContext(ctx, m.logger).Debug("mock stylize complete",
		logging.String("output", req.OutputPath),
	)
	return nil
}

// MockSynthesizer produces the shot video by stream-copying the head of the
// shot's own source segment (or of the full source when the segment is
// missing) as a placeholder clip.
type MockSynthesizer struct {
	media    *media.Client
	settings Settings
	logger   *slog.Logger
}

// NewMockSynthesizer builds the placeholder-clip synthesizer.
func NewMockSynthesizer(mediaClient *media.Client, settings Settings, logger *slog.Logger) *MockSynthesizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &MockSynthesizer{media: mediaClient, settings: settings, logger: logger}
}

// Synthesize implements Synthesizer.
func (m *MockSynthesizer) Synthesize(ctx context.Context, req SynthesizeRequest) error {
	source := req.SourceSegmentPath
	if _, err := os.Stat(source); err != nil {
		source = req.SourceVideoPath
	}
	if _, err := os.Stat(source); err != nil {
		return fmt.Errorf("placeholder source missing: %w", err)
	}
	seconds := m.settings.PlaceholderSeconds
	if seconds <= 0 {
		seconds = 1
	}
	if err := m.media.PlaceholderClip(ctx, source, seconds, req.OutputPath); err != nil {
		return err
	}
	logging.WithContext(ctx, m.logger).Debug("mock synthesize complete",
		logging.String("output", req.OutputPath),
	)
	return nil
}
