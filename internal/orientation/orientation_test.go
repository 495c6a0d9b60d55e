package orientation

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTiltFromAccel(t *testing.T) {
	t.Parallel()

	pitch, roll := TiltFromAccel(0, 0, 1)
	assert.InDelta(t, 0, pitch, 1e-9)
	assert.InDelta(t, 0, roll, 1e-9)

	pitch, roll = TiltFromAccel(-1, 0, 0)
	assert.InDelta(t, 90, pitch, 1e-9)
	assert.InDelta(t, 0, roll, 1e-9)

	pitch, roll = TiltFromAccel(0, 1, 1)
	assert.InDelta(t, 0, pitch, 1e-9)
	assert.InDelta(t, 45, roll, 1e-9)
}

func TestSampleFromAccel_HasNoAzimuth(t *testing.T) {
	t.Parallel()

	s := SampleFromAccel(0, 0, 9.8)
	assert.Nil(t, s.Azimuth)
	require.NotNil(t, s.Pitch)
	require.NotNil(t, s.Roll)
}

func TestMockSource_TurnsAt30DegPerSecond(t *testing.T) {
	t.Parallel()

	clk := clock.NewMock()
	src := NewMockSource(clk)

	f0, err := src.Next()
	require.NoError(t, err)
	require.NotNil(t, f0.Orientation.Azimuth)
	assert.InDelta(t, 0, *f0.Orientation.Azimuth, 1e-9)

	clk.Add(2 * time.Second)
	f1, err := src.Next()
	require.NoError(t, err)
	assert.InDelta(t, 60, *f1.Orientation.Azimuth, 1e-6)
	assert.Equal(t, clk.Now(), f1.Motion.Time)

	rate, ok := f1.Motion.AzimuthRate()
	require.True(t, ok)
	assert.Equal(t, 30.0, rate)

	// Gravity stays in the resting band while only rocking.
	mag, ok := f1.Motion.AccelMagnitude()
	require.True(t, ok)
	assert.InDelta(t, gravity, mag, 1e-9)

	// Pitch/roll derived from the mock's accelerometer agree with its orientation.
	pitch, roll := TiltFromAccel(*f1.Motion.Acceleration.X, *f1.Motion.Acceleration.Y, *f1.Motion.Acceleration.Z)
	assert.InDelta(t, *f1.Orientation.Pitch, pitch, 1e-6)
	assert.InDelta(t, *f1.Orientation.Roll, roll, 1e-6)
}

func TestFrameFromRaw(t *testing.T) {
	t.Parallel()

	clk := clock.NewMock()
	f := FrameFromRaw(0, 0, accelLSBPerG, 0, 0, 2*gyroLSBPerDegS, clk)

	mag, ok := f.Motion.AccelMagnitude()
	require.True(t, ok)
	assert.InDelta(t, gravity, mag, 1e-9)

	rate, ok := f.Motion.AzimuthRate()
	require.True(t, ok)
	assert.InDelta(t, 2.0, rate, 1e-9)

	assert.Nil(t, f.Orientation.Azimuth)
	assert.InDelta(t, 0, *f.Orientation.Pitch, 1e-9)
}
