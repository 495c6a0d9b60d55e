// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"encoding/binary"
	"fmt"
	"math"

	"periph.io/x/conn/v3/i2c"
)

// Magnetometer reports the magnetic field in µT on the device axes.
type Magnetometer interface {
	Sense() (x, y, z float64, err error)
}

// HMC5983 register map.
const (
	hmcConfigA = 0x00
	hmcConfigB = 0x01
	hmcMode    = 0x02
	hmcDataX   = 0x03
	hmcIDA     = 0x0A

	// HMC5983DefaultAddr is the fixed 7-bit I2C address of the chip.
	HMC5983DefaultAddr = 0x1E

	hmcTempComp8Avg15Hz = 0xF0
	hmcGain1_3Ga        = 0x20
	hmcContinuous       = 0x00
	hmcLSBPerGauss      = 1090.0
)

// HMC5983 is a minimal driver for the Honeywell HMC5983 three-axis compass.
type HMC5983 struct {
	dev *i2c.Dev
}

// NewHMC5983 checks the identification registers and puts the chip in
// continuous mode at 15 Hz, 8-sample averaging and ±1.3 Ga.
func NewHMC5983(bus i2c.Bus, addr uint16) (*HMC5983, error) {
	if addr == 0 {
		addr = HMC5983DefaultAddr
	}
	d := &i2c.Dev{Bus: bus, Addr: addr}

	id := make([]byte, 3)
	if err := d.Tx([]byte{hmcIDA}, id); err != nil {
		return nil, fmt.Errorf("hmc5983 id read: %w", err)
	}
	if string(id) != "H43" {
		return nil, fmt.Errorf("hmc5983: unexpected id %q at 0x%X", id, addr)
	}

	for _, w := range [][]byte{
		{hmcConfigA, hmcTempComp8Avg15Hz},
		{hmcConfigB, hmcGain1_3Ga},
		{hmcMode, hmcContinuous},
	} {
		if _, err := d.Write(w); err != nil {
			return nil, fmt.Errorf("hmc5983 write reg 0x%02X: %w", w[0], err)
		}
	}
	return &HMC5983{dev: d}, nil
}

// Sense reads one field sample. The chip orders its data registers X, Z, Y.
func (h *HMC5983) Sense() (x, y, z float64, err error) {
	buf := make([]byte, 6)
	if err := h.dev.Tx([]byte{hmcDataX}, buf); err != nil {
		return 0, 0, 0, fmt.Errorf("hmc5983 data read: %w", err)
	}
	toMicroTesla := func(b []byte) float64 {
		return float64(int16(binary.BigEndian.Uint16(b))) / hmcLSBPerGauss * 100
	}
	return toMicroTesla(buf[0:2]), toMicroTesla(buf[4:6]), toMicroTesla(buf[2:4]), nil
}

// AzimuthFromMag returns the tilt-compensated magnetic azimuth in [0,360)
// for a field (mx,my,mz) measured at the given pitch and roll in degrees.
func AzimuthFromMag(mx, my, mz, pitch, roll float64) float64 {
	p := pitch * math.Pi / 180
	r := roll * math.Pi / 180

	xh := mx*math.Cos(p) + my*math.Sin(p)*math.Sin(r) + mz*math.Sin(p)*math.Cos(r)
	yh := my*math.Cos(r) - mz*math.Sin(r)

	az := math.Atan2(-yh, xh) * 180 / math.Pi
	if az < 0 {
		az += 360
	}
	if az >= 360 {
		az -= 360
	}
	return az
}

type magSource struct {
	src Source
	mag Magnetometer
}

// WithMagnetometer fills in the azimuth of frames from src that lack one,
// using mag and the frame's pitch and roll.
func WithMagnetometer(src Source, mag Magnetometer) Source {
	return &magSource{src: src, mag: mag}
}

func (m *magSource) Next() (Frame, error) {
	f, err := m.src.Next()
	if err != nil {
		return Frame{}, err
	}
	if f.Orientation.Azimuth != nil {
		return f, nil
	}

	x, y, z, err := m.mag.Sense()
	if err != nil {
		return Frame{}, err
	}
	var pitch, roll float64
	if f.Orientation.Pitch != nil {
		pitch = *f.Orientation.Pitch
	}
	if f.Orientation.Roll != nil {
		roll = *f.Orientation.Roll
	}
	f.Orientation.Azimuth = Float(AzimuthFromMag(x, y, z, pitch, roll))
	return f, nil
}
