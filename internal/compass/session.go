// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package compass wires the heading pipeline, calibration and gyro integration
// into one session that a transport (websocket, MQTT, console) can drive.
package compass

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/relabs-tech/web_compass/internal/calibration"
	"github.com/relabs-tech/web_compass/internal/heading"
	"github.com/relabs-tech/web_compass/internal/motion"
	"github.com/relabs-tech/web_compass/internal/orientation"
)

// User-visible messages for the sensor gate.
const (
	MsgUnsupported      = "Your device does not support the compass."
	MsgPermissionDenied = "Permission denied. Enable orientation access in your browser settings."
	MsgPermissionError  = "Error requesting permission."
)

var (
	ErrUnsupported       = errors.New("compass: orientation sensors not supported")
	ErrPermissionDenied  = errors.New("compass: orientation permission denied")
	ErrPermissionRequest = errors.New("compass: orientation permission request failed")
)

// PermissionGate asks the platform for access to the orientation sensors.
// It returns true when access was granted.
type PermissionGate interface {
	Request(ctx context.Context) (bool, error)
}

// PermissionFunc adapts a function to PermissionGate.
type PermissionFunc func(ctx context.Context) (bool, error)

func (f PermissionFunc) Request(ctx context.Context) (bool, error) { return f(ctx) }

// Reading is what the display renders after each processed sample.
type Reading struct {
	Session     string  `json:"session"`
	RotationDeg float64 `json:"rotation_deg"` // dial rotation, -heading
	Heading     float64 `json:"heading"`
	RawHeading  float64 `json:"raw_heading"`
	DegreeText  string  `json:"degree_text"`
	Cardinal    string  `json:"cardinal"`
	Tilted      bool    `json:"tilted"`

	CalibrationStatus string  `json:"calibration_status"`
	StatusVisible     bool    `json:"status_visible"`
	Calibrating       bool    `json:"calibrating"`
	Calibrated        bool    `json:"calibrated"`
	Accuracy          float64 `json:"accuracy"`

	GyroAzimuth float64   `json:"gyro_azimuth"`
	Time        time.Time `json:"time"`
}

// Display receives everything the session wants shown.
type Display interface {
	Render(Reading)
	ShowMessage(msg string) // empty msg hides the message
}

// Config bundles the tunables of a session.
type Config struct {
	Smoother    heading.SmootherConfig
	Calibration calibration.Config
	Correction  heading.Correction
}

// DefaultConfig returns the standard smoothing and calibration settings.
func DefaultConfig() Config {
	return Config{
		Smoother:    heading.DefaultSmootherConfig(),
		Calibration: calibration.DefaultConfig(),
	}
}

// Session owns the state of one compass. It is not safe for concurrent use:
// samples, ticks and starts must come from one goroutine, in order.
type Session struct {
	id      string
	clk     clock.Clock
	display Display

	estimator  *heading.Estimator
	smoother   *heading.Smoother
	calib      *calibration.Controller
	integrator motion.Integrator

	started     bool
	haveHeading bool
	last        Reading
}

// NewSession creates a session. A nil clk means the wall clock; a nil display
// discards output.
func NewSession(cfg Config, clk clock.Clock, display Display) *Session {
	if clk == nil {
		clk = clock.New()
	}
	if display == nil {
		display = nopDisplay{}
	}
	return &Session{
		id:        uuid.NewString(),
		clk:       clk,
		display:   display,
		estimator: heading.NewEstimator(cfg.Correction),
		smoother:  heading.NewSmoother(cfg.Smoother),
		calib:     calibration.New(cfg.Calibration, clk),
	}
}

// ID identifies the session in logs and readings.
func (s *Session) ID() string { return s.id }

// Started reports whether samples are being processed.
func (s *Session) Started() bool { return s.started }

// Start opens the sensor pipeline. supported=false means the platform has no
// orientation sensor at all. A nil gate means no permission is needed.
// Failures are shown on the display and never retried here.
func (s *Session) Start(ctx context.Context, supported bool, gate PermissionGate) error {
	if !supported {
		s.display.ShowMessage(MsgUnsupported)
		return ErrUnsupported
	}
	if gate != nil {
		granted, err := gate.Request(ctx)
		if err != nil {
			s.display.ShowMessage(MsgPermissionError)
			return fmt.Errorf("%w: %w", ErrPermissionRequest, err)
		}
		if !granted {
			s.display.ShowMessage(MsgPermissionDenied)
			return ErrPermissionDenied
		}
	}

	s.started = true
	s.display.ShowMessage("")
	s.calib.Start()
	return nil
}

// Recalibrate opens a new calibration window, replacing any pending one.
func (s *Session) Recalibrate() {
	if !s.started {
		return
	}
	s.calib.Start()
	s.emit()
}

// HandleOrientation runs one orientation sample through the pipeline.
// ok is false when the sample produced no reading (not started, or no
// azimuth seen yet).
func (s *Session) HandleOrientation(sample orientation.Sample) (r Reading, ok bool) {
	if !s.started {
		return Reading{}, false
	}

	// score first so an expired window is closed before the gate is read
	s.calib.ObserveOrientation()

	raw, ok := s.estimator.Estimate(sample, s.calib.Accuracy())
	if !ok {
		return Reading{}, false
	}
	s.smoother.Update(raw)
	s.haveHeading = true

	return s.emit(), true
}

// HandleMotion feeds calibration scoring and the gyro integrator.
// A zero sample time is replaced by the session clock.
func (s *Session) HandleMotion(sample motion.Sample) {
	if !s.started {
		return
	}
	if sample.Time.IsZero() {
		sample.Time = s.clk.Now()
	}

	before := s.calib.Status()
	s.calib.ObserveMotion(sample)
	s.integrator.Add(sample)
	if s.haveHeading && before.Text != s.calib.Status().Text {
		s.emit()
	}
}

// Tick closes an expired calibration window or hides the "calibrated"
// status, rendering when something visible changed.
func (s *Session) Tick() bool {
	if !s.calib.Tick() {
		return false
	}
	s.emit()
	return true
}

// NextWake returns when Tick should next be called, if ever.
func (s *Session) NextWake() (time.Time, bool) {
	return s.calib.NextWake()
}

// Reading returns the last reading and whether there is one.
func (s *Session) Reading() (Reading, bool) {
	return s.last, s.haveHeading
}

// Calibration returns the calibration status.
func (s *Session) Calibration() calibration.Status {
	return s.calib.Status()
}

// GyroAzimuth returns the integrated gyro rotation.
func (s *Session) GyroAzimuth() float64 {
	return s.integrator.Azimuth()
}

func (s *Session) emit() Reading {
	smoothed := s.smoother.Value()
	st := s.calib.Status()

	r := Reading{
		Session:     s.id,
		RotationDeg: -smoothed,
		Heading:     smoothed,
		RawHeading:  s.smoother.Raw(),
		DegreeText:  DegreeText(smoothed),
		Cardinal:    heading.Cardinal(smoothed),
		Tilted:      s.estimator.Tilted(),

		CalibrationStatus: st.Text,
		StatusVisible:     st.Visible,
		Calibrating:       st.Active,
		Calibrated:        st.Calibrated,
		Accuracy:          st.Accuracy,

		GyroAzimuth: s.integrator.Azimuth(),
		Time:        s.clk.Now(),
	}
	s.last = r
	if s.haveHeading {
		s.display.Render(r)
	}
	return r
}

// DegreeText formats a heading as whole degrees, e.g. "3°". A value that
// rounds to 360 is shown as 0.
func DegreeText(h float64) string {
	d := int(math.Round(heading.Normalize360(h))) % 360
	return fmt.Sprintf("%d°", d)
}

type nopDisplay struct{}

func (nopDisplay) Render(Reading)     {}
func (nopDisplay) ShowMessage(string) {}
