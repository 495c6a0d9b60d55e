// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package heading turns raw orientation samples into a smoothed compass heading.
//
// All angles are in degrees, 0 = North, increasing clockwise.
package heading

import "math"

// Directions is the ordered 8-point compass rose used by Cardinal.
var Directions = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// Normalize360 maps any finite angle into [0, 360).
func Normalize360(x float64) float64 {
	r := math.Mod(x, 360)
	if r < 0 {
		r += 360
	}
	// -1e-15 + 360 rounds to 360 in float64
	if r >= 360 {
		r -= 360
	}
	return r
}

// ShortestDelta returns the signed difference a-b along the shorter arc,
// in (-180, 180]. 359 and 1 are 2 degrees apart, not 358.
func ShortestDelta(a, b float64) float64 {
	d := Normalize360(a - b)
	if d > 180 {
		d -= 360
	}
	return d
}

// Cardinal buckets a heading into one of the 8 compass directions.
func Cardinal(h float64) string {
	idx := int(math.Round(Normalize360(h)/45)) % 8
	return Directions[idx]
}

func toRad(deg float64) float64 { return deg * math.Pi / 180.0 }

func toDeg(rad float64) float64 { return rad * 180.0 / math.Pi }
