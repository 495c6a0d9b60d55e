// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package heading

import (
	"math"

	"github.com/relabs-tech/web_compass/internal/orientation"
)

const (
	// FlatLimitDeg is the pitch/roll magnitude below which the device counts as flat.
	FlatLimitDeg = 45.0

	// CorrectionAccuracy is the calibration accuracy above which Correction is applied.
	CorrectionAccuracy = 0.5
)

// Correction maps an uncalibrated heading to a calibrated one.
type Correction func(heading float64) float64

// IdentityCorrection leaves the heading unchanged. It is the default until a
// magnetometer offset model exists.
func IdentityCorrection(h float64) float64 { return h }

// Estimator converts orientation samples into a raw heading.
// Fields missing from a sample keep their last known value.
type Estimator struct {
	correction Correction

	azimuth, pitch, roll float64
	haveAzimuth          bool
	tilted               bool
}

// NewEstimator returns an estimator using c as the calibration correction.
// A nil c means IdentityCorrection.
func NewEstimator(c Correction) *Estimator {
	if c == nil {
		c = IdentityCorrection
	}
	return &Estimator{correction: c}
}

// Estimate folds s into the held state and returns the raw heading.
// accuracy is the current calibration accuracy in [0,1].
// ok is false until an azimuth has been seen at least once.
func (e *Estimator) Estimate(s orientation.Sample, accuracy float64) (raw float64, ok bool) {
	if s.Azimuth != nil {
		e.azimuth = *s.Azimuth
		e.haveAzimuth = true
	}
	if s.Pitch != nil {
		e.pitch = *s.Pitch
	}
	if s.Roll != nil {
		e.roll = *s.Roll
	}
	if !e.haveAzimuth {
		return 0, false
	}

	e.tilted = !IsFlat(e.pitch, e.roll)
	if e.tilted {
		raw = TiltCompensated(e.azimuth, e.pitch)
	} else {
		raw = Normalize360(e.azimuth)
	}

	if accuracy > CorrectionAccuracy {
		raw = Normalize360(e.correction(raw))
	}
	return raw, true
}

// Tilted reports whether the last estimate took the tilt-compensated branch.
func (e *Estimator) Tilted() bool { return e.tilted }

// IsFlat reports whether the device is held roughly level.
func IsFlat(pitch, roll float64) bool {
	return math.Abs(pitch) < FlatLimitDeg && math.Abs(roll) < FlatLimitDeg
}

// TiltCompensated projects the north vector onto the device plane.
// Only pitch enters the projection; roll is ignored. This is an approximation,
// not a full rotation-matrix compensation.
func TiltCompensated(azimuth, pitch float64) float64 {
	az := toRad(azimuth)
	p := toRad(pitch)

	northX := math.Sin(az) * math.Cos(p)
	northY := math.Cos(az) * math.Cos(p)

	return Normalize360(toDeg(math.Atan2(northX, northY)))
}
