package generation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"recut/internal/fileutil"
	"recut/internal/logging"
	"recut/internal/services/genai"
)

// VideoAPI is the slice of the genai client the remote synthesizer needs.
type VideoAPI interface {
	StartVideo(ctx context.Context, req genai.VideoRequest) (string, error)
	PollOperation(ctx context.Context, operationName string) (genai.VideoOperation, error)
	DownloadVideo(ctx context.Context, uri string) ([]byte, error)
}

// SynthOption configures the remote synthesizer.
type SynthOption func(*RemoteSynthesizer)

// WithSynthSleeper replaces the poll-interval sleep, letting tests run the
// loop without waiting.
func WithSynthSleeper(sleeper func(context.Context, time.Duration) error) SynthOption {
	return func(s *RemoteSynthesizer) {
		if sleeper != nil {
			s.sleep = sleeper
		}
	}
}

// RemoteSynthesizer drives a long-running video operation to completion: it
// starts the operation with the stylized frame as the opening image, polls
// on the configured cadence until done or timed out, and lands the finished
// clip at the shot's video path.
type RemoteSynthesizer struct {
	api      VideoAPI
	settings Settings
	logger   *slog.Logger
	sleep    func(context.Context, time.Duration) error
}

// NewRemoteSynthesizer builds the API-backed synthesizer.
func NewRemoteSynthesizer(api VideoAPI, settings Settings, logger *slog.Logger, opts ...SynthOption) *RemoteSynthesizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	synth := &RemoteSynthesizer{
		api:      api,
		settings: settings,
		logger:   logger,
		sleep:    sleepWithContext,
	}
	for _, opt := range opts {
		opt(synth)
	}
	return synth
}

// Synthesize implements Synthesizer.
func (s *RemoteSynthesizer) Synthesize(ctx context.Context, req SynthesizeRequest) error {
	logger := logging.WithContext(ctx, s.logger)
	frame, err := os.ReadFile(req.StylizedFramePath)
	if err != nil {
		return fmt.Errorf("stylized frame missing: %w", err)
	}

	operationName, err := s.api.StartVideo(ctx, genai.VideoRequest{
		Prompt:          buildVideoPrompt(req.Description, req.StylePrompt),
		ImageData:       frame,
		ImageMIMEType:   "image/png",
		AspectRatio:     s.settings.AspectRatio,
		DurationSeconds: s.settings.VideoDurationSeconds,
	})
	if err != nil {
		return err
	}
	logger.Info("video operation started",
		logging.String("operation_name", operationName),
	)

	operation, err := s.await(ctx, logger, operationName)
	if err != nil {
		return err
	}

	clip, err := s.api.DownloadVideo(ctx, operation.VideoURI)
	if err != nil {
		return fmt.Errorf("download clip: %w", err)
	}
	if err := s.land(clip, req.OutputPath); err != nil {
		return fmt.Errorf("land clip: %w", err)
	}
	return nil
}

// await polls the operation until it completes. A poll that fails for
// transport reasons counts as another pending tick; only the deadline or an
// operation-level error ends the wait early.
func (s *RemoteSynthesizer) await(ctx context.Context, logger *slog.Logger, operationName string) (genai.VideoOperation, error) {
	interval := s.settings.PollInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	timeout := s.settings.PollTimeout
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}

	started := time.Now()
	deadline := started.Add(timeout)
	sampler := logging.NewProgressSampler(0)

	for {
		if err := s.sleep(ctx, interval); err != nil {
			return genai.VideoOperation{}, err
		}

		operation, err := s.api.PollOperation(ctx, operationName)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return genai.VideoOperation{}, ctx.Err()
			}
			logger.Debug("operation poll failed, treating as pending",
				logging.String("operation_name", operationName),
				logging.Error(err),
			)
		case operation.Error != nil:
			return genai.VideoOperation{}, fmt.Errorf("video generation failed: %w", operation.Error)
		case operation.Done:
			return operation, nil
		}

		elapsed := time.Since(started)
		percent := elapsed.Seconds() / timeout.Seconds() * 100
		if percent > 100 {
			percent = 100
		}
		if sampler.ShouldLog(percent, "video_generate") {
			logger.Info("video generation in progress",
				logging.String("operation_name", operationName),
				logging.Float64(logging.FieldProgressPercent, percent),
				logging.Duration("elapsed", elapsed.Round(time.Second)),
			)
		}
		if time.Now().After(deadline) {
			return genai.VideoOperation{}, fmt.Errorf("video generation timed out after %s (operation %s)", timeout, operationName)
		}
	}
}

// land writes the clip through a scratch file and moves it into place so the
// video path only ever holds complete output.
func (s *RemoteSynthesizer) land(clip []byte, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	scratch, err := os.CreateTemp(filepath.Dir(outputPath), ".download-*.mp4")
	if err != nil {
		return err
	}
	if _, err := scratch.Write(clip); err != nil {
		scratch.Close()
		os.Remove(scratch.Name())
		return err
	}
	if err := scratch.Close(); err != nil {
		os.Remove(scratch.Name())
		return err
	}
	if err := fileutil.MoveFile(scratch.Name(), outputPath); err != nil {
		os.Remove(scratch.Name())
		return err
	}
	return nil
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
