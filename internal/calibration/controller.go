// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package calibration implements the timed "figure-eight" calibration gate.
//
// This is a motion heuristic, not a magnetometer model: while a window is
// open, orientation and motion samples add to a score, the score becomes an
// accuracy in [0,1], and when the window closes the accuracy decides whether
// the heading is trusted.
package calibration

import (
	"fmt"
	"math"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/relabs-tech/web_compass/internal/motion"
)

// State of the calibration window.
type State int

const (
	Idle State = iota
	Active
	Finalized
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case Finalized:
		return "finalized"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Status messages shown to the user.
const (
	TextCalibrating = "Calibrating: move the device in a figure-eight"
	TextCalibrated  = "Compass calibrated"
	TextIncomplete  = "Calibration incomplete: move the device in a figure-eight"
)

// Config tunes the calibration window and scoring.
type Config struct {
	Duration  time.Duration // window length
	HideAfter time.Duration // how long "calibrated" stays visible

	WarmupSamples   int     // orientation samples before accuracy starts moving
	FullScore       int     // score that maps to accuracy 1.0
	PassAccuracy    float64 // accuracy above which the window counts as calibrated
	RotationRateMin float64 // summed |rate| in °/s that counts as deliberate motion
	GravityLow      float64 // resting band for |acceleration| in m/s²
	GravityHigh     float64

	OrientationScore int
	RotationScore    int
	ShakeScore       int
}

// DefaultConfig returns the standard 5 s window.
func DefaultConfig() Config {
	return Config{
		Duration:         5 * time.Second,
		HideAfter:        2 * time.Second,
		WarmupSamples:    10,
		FullScore:        100,
		PassAccuracy:     0.3,
		RotationRateMin:  10,
		GravityLow:       8,
		GravityHigh:      12,
		OrientationScore: 1,
		RotationScore:    3,
		ShakeScore:       2,
	}
}

// Status is a snapshot for the display.
type Status struct {
	State      State   `json:"-"`
	Active     bool    `json:"active"`
	Accuracy   float64 `json:"accuracy"`
	Calibrated bool    `json:"calibrated"`
	Text       string  `json:"text"`
	Visible    bool    `json:"visible"`
}

// Controller is the calibration state machine. It is not safe for concurrent
// use; the owner feeds samples and calls Tick from a single goroutine.
type Controller struct {
	cfg Config
	clk clock.Clock

	state        State
	score        int
	orientations int
	accuracy     float64
	calibrated   bool

	deadline    time.Time
	finalizedAt time.Time
	hideSeen    bool
}

// New creates an idle controller. A nil clk means the wall clock.
func New(cfg Config, clk clock.Clock) *Controller {
	def := DefaultConfig()
	if cfg.Duration <= 0 {
		cfg.Duration = def.Duration
	}
	if cfg.HideAfter <= 0 {
		cfg.HideAfter = def.HideAfter
	}
	if cfg.WarmupSamples <= 0 {
		cfg.WarmupSamples = def.WarmupSamples
	}
	if cfg.FullScore <= 0 {
		cfg.FullScore = def.FullScore
	}
	if cfg.PassAccuracy <= 0 {
		cfg.PassAccuracy = def.PassAccuracy
	}
	if cfg.RotationRateMin <= 0 {
		cfg.RotationRateMin = def.RotationRateMin
	}
	if cfg.GravityLow <= 0 {
		cfg.GravityLow = def.GravityLow
	}
	if cfg.GravityHigh <= 0 {
		cfg.GravityHigh = def.GravityHigh
	}
	if cfg.OrientationScore <= 0 {
		cfg.OrientationScore = def.OrientationScore
	}
	if cfg.RotationScore <= 0 {
		cfg.RotationScore = def.RotationScore
	}
	if cfg.ShakeScore <= 0 {
		cfg.ShakeScore = def.ShakeScore
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Controller{cfg: cfg, clk: clk}
}

// Start opens a new calibration window and returns its deadline.
// Calling Start while a window is open supersedes it: the score is reset and
// only the new deadline can finalize.
func (c *Controller) Start() time.Time {
	c.state = Active
	c.score = 0
	c.orientations = 0
	c.accuracy = 0
	c.calibrated = false
	c.finalizedAt = time.Time{}
	c.hideSeen = false
	c.deadline = c.clk.Now().Add(c.cfg.Duration)
	return c.deadline
}

// ObserveOrientation scores one orientation sample.
func (c *Controller) ObserveOrientation() {
	if !c.active() {
		return
	}
	c.orientations++
	c.score += c.cfg.OrientationScore
	if c.orientations > c.cfg.WarmupSamples {
		acc := math.Min(1, float64(c.score)/float64(c.cfg.FullScore))
		// accuracy never goes down while the window is open
		if acc > c.accuracy {
			c.accuracy = acc
		}
	}
}

// ObserveMotion scores one motion sample: deliberate rotation and waving the
// device both count.
func (c *Controller) ObserveMotion(s motion.Sample) {
	if !c.active() {
		return
	}
	if sum, ok := s.RateSum(); ok && sum > c.cfg.RotationRateMin {
		c.score += c.cfg.RotationScore
	}
	if mag, ok := s.AccelMagnitude(); ok && (mag < c.cfg.GravityLow || mag > c.cfg.GravityHigh) {
		c.score += c.cfg.ShakeScore
	}
}

// Tick finalizes the window once its deadline has passed. It reports whether
// the visible status changed (window closed or "calibrated" got hidden).
func (c *Controller) Tick() bool {
	now := c.clk.Now()
	switch c.state {
	case Active:
		if now.Before(c.deadline) {
			return false
		}
		c.state = Finalized
		c.finalizedAt = c.deadline
		c.calibrated = c.accuracy > c.cfg.PassAccuracy
		return true
	case Finalized:
		if c.calibrated && !c.hideSeen && c.hidden(now) {
			c.hideSeen = true
			return true
		}
	}
	return false
}

// NextWake returns when Tick should next be called, if ever.
func (c *Controller) NextWake() (time.Time, bool) {
	switch c.state {
	case Active:
		return c.deadline, true
	case Finalized:
		if c.calibrated && !c.hideSeen {
			return c.hideAt(), true
		}
	}
	return time.Time{}, false
}

// Status returns the current display state.
func (c *Controller) Status() Status {
	st := Status{
		State:      c.state,
		Active:     c.state == Active,
		Accuracy:   c.accuracy,
		Calibrated: c.calibrated,
	}
	switch c.state {
	case Active:
		st.Text = fmt.Sprintf("%s (%d%%)", TextCalibrating, int(math.Round(c.accuracy*100)))
		st.Visible = true
	case Finalized:
		if c.calibrated {
			st.Text = TextCalibrated
			st.Visible = !c.hidden(c.clk.Now())
		} else {
			st.Text = TextIncomplete
			st.Visible = true
		}
	}
	return st
}

// Accuracy returns the current accuracy in [0,1].
func (c *Controller) Accuracy() float64 { return c.accuracy }

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Score returns the accumulated score of the current window.
func (c *Controller) Score() int { return c.score }

// Deadline returns the end of the current or last window.
func (c *Controller) Deadline() time.Time { return c.deadline }

// active reports whether samples still count, closing an expired window first.
func (c *Controller) active() bool {
	if c.state == Active && !c.clk.Now().Before(c.deadline) {
		c.Tick()
	}
	return c.state == Active
}

func (c *Controller) hideAt() time.Time { return c.finalizedAt.Add(c.cfg.HideAfter) }

func (c *Controller) hidden(now time.Time) bool {
	return c.calibrated && !now.Before(c.hideAt())
}
