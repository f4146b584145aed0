package media

import (
	"math"
)

// Segment is a half-open [Start, End) slice of the source timeline, in
// seconds.
type Segment struct {
	Start float64
	End   float64
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// PlanOptions bound the shot plan produced from raw scene-change timestamps.
type PlanOptions struct {
	MinShotSeconds float64
	MaxShotSeconds float64
	MaxShots       int
}

// PlanSegments turns scene-change timestamps into an ordered shot plan
// covering [0, duration). Segments shorter than MinShotSeconds are merged
// into their neighbor, segments longer than MaxShotSeconds are split into
// equal chunks, and the plan is capped at MaxShots by extending the final
// segment to the end of the timeline.
func PlanSegments(duration float64, changes []float64, opts PlanOptions) []Segment {
	if duration <= 0 {
		return nil
	}

	boundaries := []float64{0}
	for _, ts := range changes {
		if ts <= 0 || ts >= duration {
			continue
		}
		boundaries = append(boundaries, ts)
	}
	boundaries = append(boundaries, duration)

	raw := make([]Segment, 0, len(boundaries)-1)
	for i := 1; i < len(boundaries); i++ {
		start, end := boundaries[i-1], boundaries[i]
		if end <= start {
			continue
		}
		raw = append(raw, Segment{Start: start, End: end})
	}

	merged := mergeShort(raw, opts.MinShotSeconds)
	split := splitLong(merged, opts.MaxShotSeconds)
	capped := capCount(split, opts.MaxShots, duration)

	for i := range capped {
		capped[i].Start = roundSeconds(capped[i].Start)
		capped[i].End = roundSeconds(capped[i].End)
	}
	return capped
}

// FixedSegments slices [0, duration) into equal intervals of roughly `every`
// seconds, capped at maxShots. The fallback when scene detection finds no
// usable cuts.
func FixedSegments(duration, every float64, maxShots int) []Segment {
	if duration <= 0 {
		return nil
	}
	if every <= 0 {
		every = duration
	}
	count := int(math.Ceil(duration / every))
	if count < 1 {
		count = 1
	}
	if maxShots > 0 && count > maxShots {
		count = maxShots
	}
	length := duration / float64(count)
	segments := make([]Segment, count)
	for i := 0; i < count; i++ {
		segments[i] = Segment{
			Start: roundSeconds(float64(i) * length),
			End:   roundSeconds(float64(i+1) * length),
		}
	}
	segments[count-1].End = roundSeconds(duration)
	return segments
}

// mergeShort folds segments below min into their predecessor. A short leading
// segment is folded forward instead. A plan with a single short segment stays
// as-is: the whole source may simply be shorter than min.
func mergeShort(segments []Segment, min float64) []Segment {
	if min <= 0 || len(segments) < 2 {
		return segments
	}
	merged := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		if len(merged) > 0 && seg.Duration() < min {
			merged[len(merged)-1].End = seg.End
			continue
		}
		merged = append(merged, seg)
	}
	if len(merged) > 1 && merged[0].Duration() < min {
		merged[1].Start = merged[0].Start
		merged = merged[1:]
	}
	return merged
}

// splitLong breaks segments above max into equal chunks no longer than max.
func splitLong(segments []Segment, max float64) []Segment {
	if max <= 0 {
		return segments
	}
	split := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		dur := seg.Duration()
		if dur <= max {
			split = append(split, seg)
			continue
		}
		chunks := int(math.Ceil(dur / max))
		length := dur / float64(chunks)
		for i := 0; i < chunks; i++ {
			chunk := Segment{
				Start: seg.Start + float64(i)*length,
				End:   seg.Start + float64(i+1)*length,
			}
			if i == chunks-1 {
				chunk.End = seg.End
			}
			split = append(split, chunk)
		}
	}
	return split
}

// capCount truncates the plan to maxShots, extending the last kept segment to
// the end of the timeline so coverage stays complete.
func capCount(segments []Segment, maxShots int, duration float64) []Segment {
	if maxShots <= 0 || len(segments) <= maxShots {
		return segments
	}
	capped := segments[:maxShots]
	capped[maxShots-1].End = duration
	return capped
}

func roundSeconds(value float64) float64 {
	return math.Round(value*1000) / 1000
}
