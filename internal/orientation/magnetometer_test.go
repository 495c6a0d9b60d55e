package orientation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func TestHMC5983_InitAndSense(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x1E, W: []byte{0x0A}, R: []byte("H43")},
			{Addr: 0x1E, W: []byte{0x00, 0xF0}},
			{Addr: 0x1E, W: []byte{0x01, 0x20}},
			{Addr: 0x1E, W: []byte{0x02, 0x00}},
			// X=1090, Z=-545, Y=0
			{Addr: 0x1E, W: []byte{0x03}, R: []byte{0x04, 0x42, 0xFD, 0xDF, 0x00, 0x00}},
		},
	}
	defer func() { assert.NoError(t, bus.Close()) }()

	h, err := NewHMC5983(bus, 0)
	require.NoError(t, err)

	x, y, z, err := h.Sense()
	require.NoError(t, err)
	assert.InDelta(t, 100, x, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)
	assert.InDelta(t, -50, z, 1e-9)
}

func TestHMC5983_RejectsWrongID(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x1E, W: []byte{0x0A}, R: []byte("XYZ")},
		},
	}
	_, err := NewHMC5983(bus, HMC5983DefaultAddr)
	assert.ErrorContains(t, err, "unexpected id")
}

func TestAzimuthFromMag_Flat(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0, AzimuthFromMag(20, 0, -40, 0, 0), 1e-9)
	assert.InDelta(t, 90, AzimuthFromMag(0, -20, -40, 0, 0), 1e-9)
	assert.InDelta(t, 180, AzimuthFromMag(-20, 0, -40, 0, 0), 1e-9)
	assert.InDelta(t, 270, AzimuthFromMag(0, 20, -40, 0, 0), 1e-9)
}

type fakeMag struct {
	x, y, z float64
	err     error
	calls   int
}

func (f *fakeMag) Sense() (float64, float64, float64, error) {
	f.calls++
	return f.x, f.y, f.z, f.err
}

type fixedSource struct{ f Frame }

func (s fixedSource) Next() (Frame, error) { return s.f, nil }

func TestWithMagnetometer(t *testing.T) {
	t.Parallel()

	mag := &fakeMag{x: 0, y: -20, z: -40}
	src := WithMagnetometer(fixedSource{Frame{Orientation: SampleFromAccel(0, 0, 9.8)}}, mag)
	f, err := src.Next()
	require.NoError(t, err)
	require.NotNil(t, f.Orientation.Azimuth)
	assert.InDelta(t, 90, *f.Orientation.Azimuth, 1e-9)

	// an azimuth already present is kept and the chip is not read
	src = WithMagnetometer(fixedSource{Frame{Orientation: NewSample(12, 0, 0)}}, mag)
	f, err = src.Next()
	require.NoError(t, err)
	assert.Equal(t, 12.0, *f.Orientation.Azimuth)
	assert.Equal(t, 1, mag.calls)

	broken := &fakeMag{err: errors.New("nack")}
	_, err = WithMagnetometer(fixedSource{Frame{}}, broken).Next()
	assert.Error(t, err)
}
