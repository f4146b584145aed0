package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ExtractFrame renders the frame at atSeconds from source into dst. The
// destination directory is created if needed.
func (c *Client) ExtractFrame(ctx context.Context, source string, atSeconds float64, dst string) error {
	if err := validateExtract(source, dst); err != nil {
		return fmt.Errorf("extract frame: %w", err)
	}
	if atSeconds < 0 {
		atSeconds = 0
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("extract frame: %w", err)
	}
	args := quietArgs(
		"-ss", formatSeconds(atSeconds),
		"-i", source,
		"-frames:v", "1",
		"-q:v", "2",
		dst,
	)
	if err := c.run(ctx, args, nil); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("extract frame at %ss: %w", formatSeconds(atSeconds), err)
	}
	return nil
}

// ExtractSegment stream-copies [startSeconds, endSeconds) from source into
// dst. The cut lands on the nearest keyframe, which is the expected tradeoff
// for a lossless copy.
func (c *Client) ExtractSegment(ctx context.Context, source string, startSeconds, endSeconds float64, dst string) error {
	if err := validateExtract(source, dst); err != nil {
		return fmt.Errorf("extract segment: %w", err)
	}
	duration := endSeconds - startSeconds
	if duration <= 0 {
		return fmt.Errorf("extract segment: end %s must be after start %s", formatSeconds(endSeconds), formatSeconds(startSeconds))
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("extract segment: %w", err)
	}
	args := quietArgs(
		"-ss", formatSeconds(startSeconds),
		"-i", source,
		"-t", formatSeconds(duration),
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		dst,
	)
	if err := c.run(ctx, args, nil); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("extract segment %s-%s: %w", formatSeconds(startSeconds), formatSeconds(endSeconds), err)
	}
	return nil
}

// PlaceholderClip stream-copies the first seconds of source into dst. The
// mock pipeline uses this as its stand-in for generated video.
func (c *Client) PlaceholderClip(ctx context.Context, source string, seconds float64, dst string) error {
	if err := validateExtract(source, dst); err != nil {
		return fmt.Errorf("placeholder clip: %w", err)
	}
	if seconds <= 0 {
		seconds = 1
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("placeholder clip: %w", err)
	}
	args := quietArgs(
		"-i", source,
		"-t", formatSeconds(seconds),
		"-c", "copy",
		dst,
	)
	if err := c.run(ctx, args, nil); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("placeholder clip: %w", err)
	}
	return nil
}

func validateExtract(source, dst string) error {
	if source == "" {
		return errors.New("empty source path")
	}
	if dst == "" {
		return errors.New("empty destination path")
	}
	return nil
}

// formatSeconds renders a duration for ffmpeg arguments with millisecond
// precision and no exponent notation.
func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 3, 64)
}
