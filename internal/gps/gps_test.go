package gps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	rmcValid = "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"
	ggaValid = "$GPGGA,123520,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*4D"
	rmcVoid  = "$GPRMC,123521,V,,,,,,,230394,,*38"
	gsv      = "$GPGSV,1,1,00*79"
)

func TestDecoder_RMC(t *testing.T) {
	t.Parallel()

	var d Decoder
	fix, ok, err := d.Apply(rmcValid + "\r\n")
	require.NoError(t, err)
	require.True(t, ok)

	assert.True(t, fix.Valid())
	assert.Equal(t, "nmea", fix.Source)
	assert.InDelta(t, 48.1173, fix.Latitude, 1e-4)
	assert.InDelta(t, 11.516667, fix.Longitude, 1e-4)
	assert.InDelta(t, 22.4, fix.SpeedKnots, 1e-9)
	assert.InDelta(t, 84.4, fix.CourseDeg, 1e-9)

	lat, lon := fix.Coordinates()
	assert.Equal(t, "48.117300", lat)
	assert.Equal(t, "11.516667", lon)
}

func TestDecoder_GGAEnrichesNextFix(t *testing.T) {
	t.Parallel()

	var d Decoder
	_, ok, err := d.Apply(ggaValid)
	require.NoError(t, err)
	assert.False(t, ok)

	fix, ok, err := d.Apply(rmcValid)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 545.4, fix.Altitude, 1e-9)
	assert.Equal(t, int64(8), fix.Satellites)
}

func TestDecoder_IgnoresNoise(t *testing.T) {
	t.Parallel()

	var d Decoder
	for _, line := range []string{"", "garbage", "  ", gsv} {
		_, ok, err := d.Apply(line)
		assert.NoError(t, err, line)
		assert.False(t, ok, line)
	}

	_, ok, err := d.Apply("$GPRMC,123519,A*00")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestDecoder_VoidFixIsNotValid(t *testing.T) {
	t.Parallel()

	var d Decoder
	fix, ok, _ := d.Apply(rmcVoid)
	assert.False(t, ok && fix.Valid())
}

func TestFromBrowser(t *testing.T) {
	t.Parallel()

	f := FromBrowser(45.4642036, -9.19)
	assert.True(t, f.Valid())
	lat, lon := f.Coordinates()
	assert.Equal(t, "45.464204", lat)
	assert.Equal(t, "-9.190000", lon)
}
