package orientation

import (
	"math"

	"github.com/relabs-tech/web_compass/internal/motion"
)

// Sample is one orientation reading as reported by a device.
// A nil field means the sensor did not report it for this event.
type Sample struct {
	Azimuth *float64 `json:"azimuth"` // [0,360), 0 = North
	Pitch   *float64 `json:"pitch"`   // [-180,180]
	Roll    *float64 `json:"roll"`    // [-90,90]
}

// Frame is one poll of a device: its orientation and its motion.
type Frame struct {
	Orientation Sample        `json:"orientation"`
	Motion      motion.Sample `json:"motion"`
}

// Source is anything that can provide frames over time:
// mock source, IMU source, maybe replay source from file, etc.
type Source interface {
	Next() (Frame, error)
}

// Float returns a pointer to v, for building samples.
func Float(v float64) *float64 {
	return &v
}

// NewSample builds a sample with every field present.
func NewSample(azimuth, pitch, roll float64) Sample {
	return Sample{Azimuth: Float(azimuth), Pitch: Float(pitch), Roll: Float(roll)}
}

// TiltFromAccel computes pitch and roll (degrees) from accelerometer data only.
// Units do not matter, only ratios.
//
// Uses simple tilt formulas:
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func TiltFromAccel(ax, ay, az float64) (pitch, roll float64) {
	rollRad := math.Atan2(ay, az)
	pitchRad := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))

	return pitchRad * 180.0 / math.Pi, rollRad * 180.0 / math.Pi
}

// SampleFromAccel builds an orientation sample with pitch/roll from the
// accelerometer and no azimuth. Consumers hold the last known azimuth.
func SampleFromAccel(ax, ay, az float64) Sample {
	pitch, roll := TiltFromAccel(ax, ay, az)
	return Sample{Pitch: Float(pitch), Roll: Float(roll)}
}
