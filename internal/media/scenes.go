package media

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// showinfo timestamps look like "... pts_time:4.004 ...".
var ptsTimePattern = regexp.MustCompile(`pts_time:([0-9]+(?:\.[0-9]+)?)`)

// SceneChanges runs ffmpeg scene detection against source and returns the
// timestamps (seconds) where a cut scoring above threshold was found. The
// timestamps are sorted and deduplicated; an empty slice means no cuts
// cleared the threshold.
func (c *Client) SceneChanges(ctx context.Context, source string, threshold float64) ([]float64, error) {
	if source == "" {
		return nil, errors.New("scene detect: empty source path")
	}
	if threshold <= 0 || threshold >= 1 {
		return nil, fmt.Errorf("scene detect: threshold %v out of range (0, 1)", threshold)
	}

	// showinfo reports through the log callback at info level, so this is
	// the one invocation that cannot run with -loglevel error.
	args := []string{
		"-hide_banner",
		"-nostats",
		"-i", source,
		"-vf", fmt.Sprintf("select='gt(scene,%s)',showinfo", strconv.FormatFloat(threshold, 'f', -1, 64)),
		"-f", "null",
		"-",
	}

	var stamps []float64
	collect := func(line string) {
		if ts, ok := parseShowinfoTimestamp(line); ok {
			stamps = append(stamps, ts)
		}
	}
	if err := c.run(ctx, args, collect); err != nil {
		return nil, fmt.Errorf("scene detect: %w", err)
	}
	return dedupeTimestamps(stamps), nil
}

// parseShowinfoTimestamp extracts the pts_time value from one showinfo line.
func parseShowinfoTimestamp(line string) (float64, bool) {
	match := ptsTimePattern.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func dedupeTimestamps(stamps []float64) []float64 {
	if len(stamps) == 0 {
		return nil
	}
	sort.Float64s(stamps)
	out := stamps[:1]
	for _, ts := range stamps[1:] {
		if ts != out[len(out)-1] {
			out = append(out, ts)
		}
	}
	return out
}
