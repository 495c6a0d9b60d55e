// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package motion holds gyroscope/accelerometer samples and the gyro integrator.
package motion

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Rotation is a rotation rate in degrees per second around the device axes.
type Rotation struct {
	Alpha *float64 `json:"alpha"` // around z (azimuth)
	Beta  *float64 `json:"beta"`  // around x
	Gamma *float64 `json:"gamma"` // around y
}

// Vector is an acceleration in m/s².
type Vector struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

// Sample is one motion event. Any part may be missing.
type Sample struct {
	RotationRate *Rotation `json:"rotation_rate,omitempty"`
	Acceleration *Vector   `json:"acceleration_including_gravity,omitempty"`
	Time         time.Time `json:"time"`
}

// RateSum returns |alpha|+|beta|+|gamma| over the axes that are present.
// ok is false when no rotation rate was reported.
func (s Sample) RateSum() (sum float64, ok bool) {
	r := s.RotationRate
	if r == nil {
		return 0, false
	}
	var present []float64
	for _, v := range []*float64{r.Alpha, r.Beta, r.Gamma} {
		if v != nil {
			present = append(present, *v)
		}
	}
	if len(present) == 0 {
		return 0, false
	}
	return floats.Norm(present, 1), true
}

// AccelMagnitude returns the Euclidean norm of the acceleration vector.
// ok is false unless all three components are present.
func (s Sample) AccelMagnitude() (mag float64, ok bool) {
	a := s.Acceleration
	if a == nil || a.X == nil || a.Y == nil || a.Z == nil {
		return 0, false
	}
	mag = floats.Norm([]float64{*a.X, *a.Y, *a.Z}, 2)
	if math.IsNaN(mag) {
		return 0, false
	}
	return mag, true
}

// AzimuthRate returns the rotation rate around the vertical axis, if present.
func (s Sample) AzimuthRate() (float64, bool) {
	if s.RotationRate == nil || s.RotationRate.Alpha == nil {
		return 0, false
	}
	return *s.RotationRate.Alpha, true
}

func f(v float64) *float64 { return &v }

// NewSample builds a fully populated sample taken at t.
func NewSample(alpha, beta, gamma, ax, ay, az float64, t time.Time) Sample {
	return Sample{
		RotationRate: &Rotation{Alpha: f(alpha), Beta: f(beta), Gamma: f(gamma)},
		Acceleration: &Vector{X: f(ax), Y: f(ay), Z: f(az)},
		Time:         t,
	}
}
