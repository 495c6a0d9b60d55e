package compass

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/web_compass/internal/calibration"
	"github.com/relabs-tech/web_compass/internal/motion"
	"github.com/relabs-tech/web_compass/internal/orientation"
)

type recordingDisplay struct {
	readings []Reading
	messages []string
}

func (d *recordingDisplay) Render(r Reading)       { d.readings = append(d.readings, r) }
func (d *recordingDisplay) ShowMessage(msg string) { d.messages = append(d.messages, msg) }

func newStartedSession(t *testing.T, cfg Config) (*Session, *recordingDisplay, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock()
	d := &recordingDisplay{}
	s := NewSession(cfg, clk, d)
	require.NoError(t, s.Start(context.Background(), true, nil))
	return s, d, clk
}

func TestSession_UnsupportedPlatform(t *testing.T) {
	t.Parallel()

	d := &recordingDisplay{}
	s := NewSession(DefaultConfig(), clock.NewMock(), d)

	err := s.Start(context.Background(), false, nil)
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Equal(t, []string{MsgUnsupported}, d.messages)
	assert.False(t, s.Started())

	_, ok := s.HandleOrientation(orientation.NewSample(10, 0, 0))
	assert.False(t, ok)
	assert.Empty(t, d.readings)
}

func TestSession_PermissionDenied(t *testing.T) {
	t.Parallel()

	d := &recordingDisplay{}
	s := NewSession(DefaultConfig(), clock.NewMock(), d)
	gate := PermissionFunc(func(context.Context) (bool, error) { return false, nil })

	err := s.Start(context.Background(), true, gate)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, []string{MsgPermissionDenied}, d.messages)
	assert.False(t, s.Started())
}

func TestSession_PermissionError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	d := &recordingDisplay{}
	s := NewSession(DefaultConfig(), clock.NewMock(), d)
	gate := PermissionFunc(func(context.Context) (bool, error) { return false, boom })

	err := s.Start(context.Background(), true, gate)
	assert.ErrorIs(t, err, ErrPermissionRequest)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{MsgPermissionError}, d.messages)
	assert.False(t, s.Started())
}

func TestSession_PermissionGranted(t *testing.T) {
	t.Parallel()

	d := &recordingDisplay{}
	s := NewSession(DefaultConfig(), clock.NewMock(), d)
	gate := PermissionFunc(func(context.Context) (bool, error) { return true, nil })

	require.NoError(t, s.Start(context.Background(), true, gate))
	assert.True(t, s.Started())
	assert.Equal(t, []string{""}, d.messages)
	assert.Equal(t, calibration.Active, s.Calibration().State)
}

func TestSession_FirstSampleEndToEnd(t *testing.T) {
	t.Parallel()

	s, d, _ := newStartedSession(t, DefaultConfig())
	r, ok := s.HandleOrientation(orientation.NewSample(10, 0, 0))
	require.True(t, ok)

	want := Reading{
		RotationDeg:       -3,
		Heading:           3,
		RawHeading:        10,
		DegreeText:        "3°",
		Cardinal:          "N",
		CalibrationStatus: calibration.TextCalibrating + " (0%)",
		StatusVisible:     true,
		Calibrating:       true,
	}
	opts := cmp.Options{
		cmpopts.IgnoreFields(Reading{}, "Session", "Time"),
		cmpopts.EquateApprox(0, 1e-9),
	}
	if diff := cmp.Diff(want, r, opts); diff != "" {
		t.Fatalf("reading mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, d.readings, 1)
	assert.Equal(t, s.ID(), d.readings[0].Session)
}

func TestSession_TiltedSampleUsesProjection(t *testing.T) {
	t.Parallel()

	s, _, _ := newStartedSession(t, DefaultConfig())
	r, ok := s.HandleOrientation(orientation.NewSample(90, 60, 0))
	require.True(t, ok)
	assert.True(t, r.Tilted)
	assert.InDelta(t, 90.0, r.RawHeading, 1e-9)
}

func TestSession_NoReadingBeforeAzimuth(t *testing.T) {
	t.Parallel()

	s, d, _ := newStartedSession(t, DefaultConfig())
	_, ok := s.HandleOrientation(orientation.Sample{Pitch: orientation.Float(3)})
	assert.False(t, ok)
	assert.Empty(t, d.readings)

	_, have := s.Reading()
	assert.False(t, have)
}

func TestSession_CalibrationCorrectionGate(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Correction = func(h float64) float64 { return h + 10 }
	s, _, _ := newStartedSession(t, cfg)

	var r Reading
	for i := 1; i <= 50; i++ {
		r, _ = s.HandleOrientation(orientation.NewSample(0, 0, 0))
	}
	assert.InDelta(t, 0.5, r.Accuracy, 1e-9)
	assert.Equal(t, 0.0, r.RawHeading)

	r, _ = s.HandleOrientation(orientation.NewSample(0, 0, 0))
	assert.InDelta(t, 10.0, r.RawHeading, 1e-9)
}

func TestSession_CalibrationExpiresIncomplete(t *testing.T) {
	t.Parallel()

	s, d, clk := newStartedSession(t, DefaultConfig())
	for i := 0; i < 5; i++ {
		s.HandleOrientation(orientation.NewSample(90, 0, 0))
	}
	n := len(d.readings)

	clk.Add(5 * time.Second)
	require.True(t, s.Tick())
	require.Len(t, d.readings, n+1)

	last := d.readings[n]
	assert.Equal(t, calibration.TextIncomplete, last.CalibrationStatus)
	assert.False(t, last.Calibrated)
	assert.False(t, last.Calibrating)
	assert.LessOrEqual(t, last.Accuracy, 0.3)
}

func TestSession_MotionFeedsIntegratorAndScore(t *testing.T) {
	t.Parallel()

	s, _, clk := newStartedSession(t, DefaultConfig())
	t0 := clk.Now()
	s.HandleMotion(motion.NewSample(20, 0, 0, 0, 0, 20, t0))
	s.HandleMotion(motion.NewSample(20, 0, 0, 0, 0, 20, t0.Add(500*time.Millisecond)))

	assert.InDelta(t, 10.0, s.GyroAzimuth(), 1e-9)
	assert.Equal(t, 10, s.calib.Score())
}

func TestSession_RecalibrateRestartsWindow(t *testing.T) {
	t.Parallel()

	s, _, clk := newStartedSession(t, DefaultConfig())
	s.HandleOrientation(orientation.NewSample(0, 0, 0))
	clk.Add(6 * time.Second)
	s.Tick()
	require.Equal(t, calibration.Finalized, s.Calibration().State)

	s.Recalibrate()
	assert.Equal(t, calibration.Active, s.Calibration().State)
	wake, ok := s.NextWake()
	require.True(t, ok)
	assert.Equal(t, clk.Now().Add(5*time.Second), wake)
}

func TestDegreeText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "3°", DegreeText(3.0000001))
	assert.Equal(t, "0°", DegreeText(359.6))
	assert.Equal(t, "359°", DegreeText(359.4))
	assert.Equal(t, "180°", DegreeText(179.5))
}
