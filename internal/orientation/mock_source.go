// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"

	"github.com/benbjohnson/clock"

	"github.com/relabs-tech/web_compass/internal/motion"
)

const gravity = 9.80665

type mockSource struct {
	clk   clock.Clock
	start float64
}

// NewMockSource creates a mock source that slowly turns the device
// (30°/s) while rocking it in pitch and roll. A nil clk means the wall clock.
func NewMockSource(clk clock.Clock) Source {
	if clk == nil {
		clk = clock.New()
	}
	return &mockSource{clk: clk, start: seconds(clk)}
}

func seconds(clk clock.Clock) float64 {
	return float64(clk.Now().UnixNano()) / 1e9
}

func (m *mockSource) Next() (Frame, error) {
	now := m.clk.Now()
	t := seconds(m.clk) - m.start

	azimuth := math.Mod(t*30, 360)
	pitch := 15 * math.Cos(t*0.7)
	roll := 20 * math.Sin(t)

	p, r := pitch*math.Pi/180, roll*math.Pi/180
	ax := -gravity * math.Sin(p)
	ay := gravity * math.Sin(r) * math.Cos(p)
	az := gravity * math.Cos(r) * math.Cos(p)

	return Frame{
		Orientation: NewSample(azimuth, pitch, roll),
		Motion: motion.NewSample(
			30,                      // alpha
			-15*0.7*math.Sin(t*0.7), // beta, d(pitch)/dt
			20*math.Cos(t),          // gamma, d(roll)/dt
			ax, ay, az,
			now,
		),
	}, nil
}
