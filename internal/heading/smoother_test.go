package heading

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmoother_FirstSampleFastBranch(t *testing.T) {
	t.Parallel()

	s := NewSmoother(SmootherConfig{})
	got := s.Update(10)

	assert.InDelta(t, 3.0, got, 1e-9)
	assert.Equal(t, 10.0, s.PreviousRaw())
	assert.Equal(t, 10.0, s.Raw())
}

func TestSmoother_Factor(t *testing.T) {
	t.Parallel()

	s := NewSmoother(DefaultSmootherConfig())
	assert.Equal(t, 0.30, s.Factor(5.1))
	assert.Equal(t, 0.15, s.Factor(5))
	assert.Equal(t, 0.15, s.Factor(1))
	assert.Equal(t, 0.10, s.Factor(0.99))
	assert.Equal(t, 0.10, s.Factor(0))
}

func TestSmoother_ConvergesForEveryBranch(t *testing.T) {
	t.Parallel()

	// The first step from 0 lands in a different factor branch for each target.
	for _, target := range []float64{0.5, 3, 120, 359.5, 200} {
		s := NewSmoother(SmootherConfig{})
		for i := 0; i < 500; i++ {
			s.Update(target)
		}
		assert.InDelta(t, 0, ShortestDelta(s.Value(), target), 1e-6, "target=%v", target)
	}
}

func TestSmoother_WrapAroundNeverTakesLongArc(t *testing.T) {
	t.Parallel()

	s := NewSmoother(SmootherConfig{})
	for i := 0; i < 200; i++ {
		s.Update(358)
	}
	require.InDelta(t, 0, ShortestDelta(s.Value(), 358), 1e-6)

	prev := s.Value()
	for _, raw := range []float64{359, 1, 3, 5, 359, 357} {
		cur := s.Update(raw)
		step := ShortestDelta(cur, prev)
		assert.Less(t, math.Abs(step), 5.0, "raw=%v prev=%v cur=%v", raw, prev, cur)
		assert.GreaterOrEqual(t, cur, 0.0)
		assert.Less(t, cur, 360.0)
		prev = cur
	}
}

func TestSmoother_CustomConfigAndReset(t *testing.T) {
	t.Parallel()

	s := NewSmoother(SmootherConfig{KFast: 1})
	assert.InDelta(t, 90.0, s.Update(90), 1e-9)

	s.Reset()
	assert.Equal(t, 0.0, s.Value())
	assert.Equal(t, 0.0, s.PreviousRaw())
}
