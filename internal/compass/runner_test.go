package compass

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/web_compass/internal/calibration"
	"github.com/relabs-tech/web_compass/internal/orientation"
)

type syncDisplay struct {
	mu       sync.Mutex
	readings []Reading
}

func (d *syncDisplay) Render(r Reading) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readings = append(d.readings, r)
}

func (d *syncDisplay) ShowMessage(string) {}

func (d *syncDisplay) last() (Reading, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.readings) == 0 {
		return Reading{}, 0
	}
	return d.readings[len(d.readings)-1], len(d.readings)
}

func TestRunner_DrivesCalibrationTimer(t *testing.T) {
	clk := clock.NewMock()
	d := &syncDisplay{}
	s := NewSession(DefaultConfig(), clk, d)
	r := NewRunner(s, clk)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	var startErr error
	require.NoError(t, r.Do(ctx, func(s *Session) {
		startErr = s.Start(ctx, true, nil)
	}))
	require.NoError(t, startErr)
	for i := 0; i < 120; i++ {
		require.NoError(t, r.Orientation(ctx, orientation.NewSample(45, 0, 0)))
	}
	got, _ := d.last()
	require.True(t, got.Calibrating)

	clk.Add(5 * time.Second)
	require.Eventually(t, func() bool {
		got, _ := d.last()
		return got.CalibrationStatus == calibration.TextCalibrated && got.StatusVisible
	}, time.Second, 5*time.Millisecond)

	clk.Add(2 * time.Second)
	require.Eventually(t, func() bool {
		got, _ := d.last()
		return got.Calibrated && !got.StatusVisible
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
}

func TestRunner_DoHonoursContext(t *testing.T) {
	t.Parallel()

	s := NewSession(DefaultConfig(), clock.NewMock(), nil)
	r := NewRunner(s, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := r.Do(ctx, func(*Session) {})
	assert.ErrorIs(t, err, context.Canceled)
}
