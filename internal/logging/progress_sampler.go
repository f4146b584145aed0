package logging

import (
	"math"
	"strings"
)

// ProgressSampler suppresses repetitive progress logs while preserving signal
// when stages or percentage buckets change. The video synthesis poll loop
// uses it so a fifteen-minute operation does not emit ninety identical lines.
type ProgressSampler struct {
	step       float64
	stage      string
	nextEmitAt float64
}

// NewProgressSampler constructs a sampler that emits when the percent crosses
// step-sized boundaries (default 5%) or when the stage changes.
func NewProgressSampler(step float64) *ProgressSampler {
	if step <= 0 {
		step = 5
	}
	return &ProgressSampler{step: step}
}

// ShouldLog reports whether a progress event should be logged. Percent can be
// negative to indicate "unknown"; stage is trimmed before comparison.
func (s *ProgressSampler) ShouldLog(percent float64, stage string) bool {
	if s == nil {
		return true
	}
	if stage = strings.TrimSpace(stage); stage != "" && stage != s.stage {
		s.stage = stage
		s.advance(percent)
		return true
	}
	if percent >= 0 && percent >= s.nextEmitAt {
		s.advance(percent)
		return true
	}
	return false
}

// advance moves the emission threshold past percent so the next event in the
// same step window stays quiet.
func (s *ProgressSampler) advance(percent float64) {
	if percent < 0 {
		s.nextEmitAt = 0
		return
	}
	s.nextEmitAt = (math.Floor(percent/s.step) + 1) * s.step
}

// Reset clears the sampler state (e.g. when a new shot starts).
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.stage = ""
	s.nextEmitAt = 0
}
