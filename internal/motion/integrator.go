// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package motion

import (
	"math"
	"time"
)

// MaxStep is the longest gap between samples that is still integrated.
// Longer gaps come from sleep/resume or a backgrounded tab.
const MaxStep = time.Second

// Integrator accumulates the azimuth rotation rate over time.
// Its output is advisory; it does not drive the displayed heading.
type Integrator struct {
	azimuth  float64
	last     time.Time
	haveLast bool
}

// Add integrates one sample. It reports whether the sample moved the
// accumulated azimuth. Samples without an azimuth rate are ignored entirely;
// samples with an out-of-range step or a non-finite result only refresh the
// timestamp.
func (g *Integrator) Add(s Sample) bool {
	rate, ok := s.AzimuthRate()
	if !ok {
		return false
	}

	prev, hadPrev := g.last, g.haveLast
	g.last, g.haveLast = s.Time, true
	if !hadPrev {
		return false
	}

	dt := s.Time.Sub(prev)
	if dt <= 0 || dt >= MaxStep {
		return false
	}
	next := g.azimuth + rate*dt.Seconds()
	if math.IsInf(next, 0) || math.IsNaN(next) {
		return false
	}
	g.azimuth = next
	return true
}

// Azimuth returns the accumulated rotation in degrees (not wrapped).
func (g *Integrator) Azimuth() float64 { return g.azimuth }

// LastSample returns the timestamp of the last sample carrying a rate.
func (g *Integrator) LastSample() time.Time { return g.last }

// Reset clears the accumulated rotation and the timestamp.
func (g *Integrator) Reset() {
	*g = Integrator{}
}
