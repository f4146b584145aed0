package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Inspect runs ffprobe against path and decodes its JSON report. An empty
// binary falls back to "ffprobe" on PATH.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	if binary = strings.TrimSpace(binary); binary == "" {
		binary = "ffprobe"
	}
	if path = strings.TrimSpace(path); path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	args := []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path}
	output, err := exec.CommandContext(ctx, binary, args...).CombinedOutput()
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(output)))
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// Result is the decoded ffprobe report for one container.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream carries the per-stream properties recut reads.
type Stream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Duration  string `json:"duration"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// Format carries container-level metadata. ffprobe encodes numeric values as
// strings and they stay strings here; the Result helpers parse them.
type Format struct {
	Filename   string `json:"filename"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	FormatName string `json:"format_name"`
}

// FirstVideoStream returns the first video stream, if any.
func (r Result) FirstVideoStream() (Stream, bool) {
	for _, s := range r.Streams {
		if s.isType("video") {
			return s, true
		}
	}
	return Stream{}, false
}

// VideoStreamCount reports how many video streams the container carries.
func (r Result) VideoStreamCount() int { return r.countType("video") }

// AudioStreamCount reports how many audio streams the container carries.
func (r Result) AudioStreamCount() int { return r.countType("audio") }

func (r Result) countType(kind string) int {
	n := 0
	for _, s := range r.Streams {
		if s.isType(kind) {
			n++
		}
	}
	return n
}

func (s Stream) isType(kind string) bool {
	return strings.EqualFold(s.CodecType, kind)
}

// Dimensions returns the width and height of the first video stream, or
// zeros when the container carries no video.
func (r Result) Dimensions() (width, height int) {
	if s, ok := r.FirstVideoStream(); ok {
		return s.Width, s.Height
	}
	return 0, 0
}

// DurationSeconds returns the container duration in seconds. An absent value
// reads as 0 and a malformed one as NaN.
func (r Result) DurationSeconds() float64 {
	return numeric(r.Format.Duration)
}

// SizeBytes returns the container size in bytes, or 0 when ffprobe did not
// report a usable value.
func (r Result) SizeBytes() int64 {
	v := numeric(r.Format.Size)
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return int64(v)
}

// numeric parses ffprobe's string-encoded numbers. Absent values read as 0;
// values that are present but unparsable read as NaN so callers can tell the
// two apart.
func numeric(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
