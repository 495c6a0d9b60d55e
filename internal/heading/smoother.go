// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package heading

import "math"

// Default smoothing parameters. Rotation speed is in degrees per sample.
const (
	DefaultFastThreshold = 5.0
	DefaultSlowThreshold = 1.0
	DefaultKFast         = 0.30
	DefaultKSlow         = 0.10
	DefaultK             = 0.15
)

// SmootherConfig selects the smoothing factor from the rotation speed.
// Above FastThreshold KFast applies, below SlowThreshold KSlow, otherwise K.
type SmootherConfig struct {
	FastThreshold float64
	SlowThreshold float64
	KFast         float64
	KSlow         float64
	K             float64
}

// DefaultSmootherConfig returns the standard thresholds and factors.
func DefaultSmootherConfig() SmootherConfig {
	return SmootherConfig{
		FastThreshold: DefaultFastThreshold,
		SlowThreshold: DefaultSlowThreshold,
		KFast:         DefaultKFast,
		KSlow:         DefaultKSlow,
		K:             DefaultK,
	}
}

// Smoother is an adaptive exponential smoother for headings. Every step takes
// the short arc, so the output never spins the long way across 0/360.
type Smoother struct {
	cfg SmootherConfig

	raw         float64
	smoothed    float64
	previousRaw float64
}

// NewSmoother creates a smoother starting at 0 degrees.
// Zero-valued fields of cfg fall back to the defaults.
func NewSmoother(cfg SmootherConfig) *Smoother {
	def := DefaultSmootherConfig()
	if cfg.FastThreshold == 0 {
		cfg.FastThreshold = def.FastThreshold
	}
	if cfg.SlowThreshold == 0 {
		cfg.SlowThreshold = def.SlowThreshold
	}
	if cfg.KFast == 0 {
		cfg.KFast = def.KFast
	}
	if cfg.KSlow == 0 {
		cfg.KSlow = def.KSlow
	}
	if cfg.K == 0 {
		cfg.K = def.K
	}
	return &Smoother{cfg: cfg}
}

// Factor returns the smoothing factor for a given rotation speed.
func (s *Smoother) Factor(rotationSpeed float64) float64 {
	switch {
	case rotationSpeed > s.cfg.FastThreshold:
		return s.cfg.KFast
	case rotationSpeed < s.cfg.SlowThreshold:
		return s.cfg.KSlow
	default:
		return s.cfg.K
	}
}

// Update integrates a new raw heading and returns the smoothed heading.
func (s *Smoother) Update(raw float64) float64 {
	raw = Normalize360(raw)

	delta := ShortestDelta(raw, s.previousRaw)
	k := s.Factor(math.Abs(delta))

	// raw unwrapped next to the smoothed heading
	target := Normalize360(s.smoothed + ShortestDelta(raw, s.smoothed))
	diff := ShortestDelta(target, s.smoothed)
	s.smoothed = Normalize360(s.smoothed + diff*k)

	s.raw = raw
	s.previousRaw = raw
	return s.smoothed
}

// Value returns the current smoothed heading.
func (s *Smoother) Value() float64 { return s.smoothed }

// Raw returns the last raw heading passed to Update.
func (s *Smoother) Raw() float64 { return s.raw }

// PreviousRaw returns the raw heading the next delta is measured against.
func (s *Smoother) PreviousRaw() float64 { return s.previousRaw }

// Reset returns the smoother to 0 degrees.
func (s *Smoother) Reset() {
	s.raw, s.smoothed, s.previousRaw = 0, 0, 0
}
