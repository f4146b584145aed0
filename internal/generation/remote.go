package generation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"recut/internal/logging"
	"recut/internal/media"
	"recut/internal/services/genai"
)

// describeBatchSize bounds how many frames ride in one annotation request.
const describeBatchSize = 8

// ChatAPI is the slice of the genai client the remote decomposer needs.
type ChatAPI interface {
	CompleteJSONParts(ctx context.Context, systemPrompt string, parts ...genai.Part) (string, error)
}

// ImageAPI is the slice of the genai client the remote stylizer needs.
type ImageAPI interface {
	EditImage(ctx context.Context, prompt string, images ...genai.Part) ([]byte, string, error)
}

// RemoteStylizer renders the stylized frame through the image-edit endpoint,
// sending the extracted first frame plus any entity reference images.
type RemoteStylizer struct {
	api    ImageAPI
	logger *slog.Logger
}

// NewRemoteStylizer builds the API-backed stylizer.
func NewRemoteStylizer(api ImageAPI, logger *slog.Logger) *RemoteStylizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &RemoteStylizer{api: api, logger: logger}
}

// Stylize implements Stylizer.
func (r *RemoteStylizer) Stylize(ctx context.Context, req StylizeRequest) error {
	logger := logging.WithContext(ctx, r.logger)
	frame, err := os.ReadFile(req.FirstFramePath)
	if err != nil {
		return fmt.Errorf("first frame missing: %w", err)
	}

	parts := []genai.Part{genai.ImagePart(frame, "image/png")}
	attached := 0
	for _, refPath := range req.ReferenceImagePaths {
		data, err := os.ReadFile(refPath)
		if err != nil {
			// Reference images come from user edits and may point at
			// files that moved; the render proceeds without them.
			logging.WarnWithContext(logger, "reference image unreadable, skipping", "reference_image_missing",
				logging.String("reference_image", refPath),
				logging.Error(err),
			)
			continue
		}
		parts = append(parts, genai.ImagePart(data, imageMIMEType(refPath)))
		attached++
	}

	prompt := buildStylizePrompt(req.StylePrompt, req.Description, attached)
	data, mimeType, err := r.api.EditImage(ctx, prompt, parts...)
	if err != nil {
		return err
	}
	if !strings.EqualFold(mimeType, "image/png") {
		logger.Debug("stylized frame returned with non-png mime type",
			logging.String("mime_type", mimeType),
		)
	}
	if err := writeArtifact(req.OutputPath, data); err != nil {
		return fmt.Errorf("write stylized frame: %w", err)
	}
	return nil
}

// RemoteDecomposer plans timings locally, then annotates each shot with a
// model-written description by sending the shot's opening frame to the chat
// model. Annotation failures degrade to placeholder descriptions rather than
// failing the decomposition.
type RemoteDecomposer struct {
	api      ChatAPI
	local    *LocalDecomposer
	media    *media.Client
	settings Settings
	logger   *slog.Logger
}

// NewRemoteDecomposer builds the annotating decomposer.
func NewRemoteDecomposer(api ChatAPI, mediaClient *media.Client, settings Settings, logger *slog.Logger) *RemoteDecomposer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &RemoteDecomposer{
		api:      api,
		local:    NewLocalDecomposer(mediaClient, settings, logger),
		media:    mediaClient,
		settings: settings,
		logger:   logger,
	}
}

// Decompose implements Decomposer.
func (r *RemoteDecomposer) Decompose(ctx context.Context, sourceVideo string, durationSeconds float64) ([]ShotPlan, error) {
	plans, err := r.local.Decompose(ctx, sourceVideo, durationSeconds)
	if err != nil {
		return nil, err
	}
	if err := r.describe(ctx, sourceVideo, plans); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "shot annotation failed, keeping placeholder descriptions", "describe_fallback",
			logging.Error(err),
			logging.Int("shots_total", len(plans)),
		)
	}
	return plans, nil
}

// describe fills plan descriptions in batches. Each batch extracts one frame
// per shot into a scratch dir, sends them in order, and decodes a JSON array
// of sentences back.
func (r *RemoteDecomposer) describe(ctx context.Context, sourceVideo string, plans []ShotPlan) error {
	scratch, err := os.MkdirTemp("", "recut-describe-*")
	if err != nil {
		return fmt.Errorf("scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	for offset := 0; offset < len(plans); offset += describeBatchSize {
		end := offset + describeBatchSize
		if end > len(plans) {
			end = len(plans)
		}
		if err := r.describeBatch(ctx, sourceVideo, scratch, plans, offset, end); err != nil {
			return err
		}
	}
	return nil
}

func (r *RemoteDecomposer) describeBatch(ctx context.Context, sourceVideo, scratch string, plans []ShotPlan, offset, end int) error {
	parts := make([]genai.Part, 0, (end-offset)*2+1)
	parts = append(parts, genai.TextPart(fmt.Sprintf("Describe these %d frames.", end-offset)))
	for i := offset; i < end; i++ {
		framePath := filepath.Join(scratch, fmt.Sprintf("frame_%03d.png", i))
		if err := r.media.ExtractFrame(ctx, sourceVideo, plans[i].StartSeconds, framePath); err != nil {
			return fmt.Errorf("frame for shot %d: %w", i+1, err)
		}
		data, err := os.ReadFile(framePath)
		if err != nil {
			return fmt.Errorf("frame for shot %d: %w", i+1, err)
		}
		parts = append(parts, genai.TextPart(fmt.Sprintf("Frame %d:", i-offset+1)))
		parts = append(parts, genai.ImagePart(data, "image/png"))
	}

	raw, err := r.api.CompleteJSONParts(ctx, describeSystemPrompt, parts...)
	if err != nil {
		return err
	}
	var sentences []string
	if err := genai.DecodeModelJSON(raw, &sentences); err != nil {
		return fmt.Errorf("decode annotations: %w", err)
	}
	if len(sentences) != end-offset {
		return fmt.Errorf("annotation count mismatch: sent %d frames, got %d sentences", end-offset, len(sentences))
	}
	for i := offset; i < end; i++ {
		if sentence := strings.TrimSpace(sentences[i-offset]); sentence != "" {
			plans[i].Description = sentence
		}
	}
	return nil
}

// imageMIMEType guesses a mime type from the file extension, defaulting to
// PNG, which is what recut's own artifacts are.
func imageMIMEType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}

// writeArtifact lands bytes at path via temp-file-and-rename so a crashed
// write never leaves a partial artifact that reconciliation would read as a
// finished stage.
func writeArtifact(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
