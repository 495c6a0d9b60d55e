package heading

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/web_compass/internal/orientation"
)

func TestEstimator_FlatPassthrough(t *testing.T) {
	t.Parallel()

	e := NewEstimator(nil)
	raw, ok := e.Estimate(orientation.NewSample(10, 0, 0), 0)
	require.True(t, ok)
	assert.Equal(t, 10.0, raw)
	assert.False(t, e.Tilted())
}

func TestEstimator_NoAzimuthYet(t *testing.T) {
	t.Parallel()

	e := NewEstimator(nil)
	_, ok := e.Estimate(orientation.Sample{Pitch: orientation.Float(5)}, 0)
	assert.False(t, ok)
}

func TestEstimator_SampleAndHold(t *testing.T) {
	t.Parallel()

	e := NewEstimator(nil)
	_, ok := e.Estimate(orientation.NewSample(200, 120, 0), 0)
	require.True(t, ok)
	require.True(t, e.Tilted())

	// Only azimuth changes; pitch 120 is held, so the tilted branch stays active.
	raw, ok := e.Estimate(orientation.Sample{Azimuth: orientation.Float(30)}, 0)
	require.True(t, ok)
	assert.True(t, e.Tilted())
	assert.InDelta(t, 210.0, raw, 1e-9)

	// Empty sample re-emits the held heading.
	raw2, ok := e.Estimate(orientation.Sample{}, 0)
	require.True(t, ok)
	assert.InDelta(t, raw, raw2, 1e-12)
}

func TestEstimator_TiltedBranchUsesProjection(t *testing.T) {
	t.Parallel()

	e := NewEstimator(nil)
	raw, ok := e.Estimate(orientation.NewSample(90, 60, 0), 0)
	require.True(t, ok)
	assert.True(t, e.Tilted())

	az, p := 90*math.Pi/180, 60*math.Pi/180
	want := Normalize360(math.Atan2(math.Sin(az)*math.Cos(p), math.Cos(az)*math.Cos(p)) * 180 / math.Pi)
	assert.InDelta(t, want, raw, 1e-9)
	assert.InDelta(t, TiltCompensated(90, 60), raw, 1e-12)
}

func TestTiltCompensated_PastVerticalFlipsHeading(t *testing.T) {
	t.Parallel()

	// cos(pitch) < 0 turns the projected north vector around.
	assert.InDelta(t, 270.0, TiltCompensated(90, 150), 1e-9)
	assert.InDelta(t, 90.0, TiltCompensated(90, 60), 1e-9)
}

// Roll does not enter the projection. This is a known approximation.
func TestEstimator_RollOnlyTiltIgnoresRoll(t *testing.T) {
	t.Parallel()

	e := NewEstimator(nil)
	raw, ok := e.Estimate(orientation.NewSample(135, 0, 80), 0)
	require.True(t, ok)
	assert.True(t, e.Tilted())
	assert.InDelta(t, 135.0, raw, 1e-9)
}

func TestEstimator_CorrectionGate(t *testing.T) {
	t.Parallel()

	calls := 0
	e := NewEstimator(func(h float64) float64 {
		calls++
		return h + 5
	})

	raw, _ := e.Estimate(orientation.NewSample(358, 0, 0), 0.5)
	assert.Equal(t, 358.0, raw)
	assert.Equal(t, 0, calls)

	raw, _ = e.Estimate(orientation.NewSample(358, 0, 0), 0.51)
	assert.InDelta(t, 3.0, raw, 1e-9)
	assert.Equal(t, 1, calls)
}

func TestIsFlat(t *testing.T) {
	t.Parallel()

	assert.True(t, IsFlat(44.9, -44.9))
	assert.False(t, IsFlat(45, 0))
	assert.False(t, IsFlat(0, -45))
}
