package orientation

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/web_compass/internal/motion"
)

// Default full-scale ranges after Init: ±2 g and ±250 °/s.
const (
	accelLSBPerG   = 16384.0
	gyroLSBPerDegS = 131.0
)

type imuSource struct {
	imu *mpu9250.MPU9250
	clk clock.Clock
}

// NewIMUSource initializes an MPU9250 over SPI and returns a Source that
// reports pitch/roll from the accelerometer plus gyro and accel motion data.
// The MPU9250 path has no azimuth: consumers keep the last known one.
func NewIMUSource(spiDev, csPin string) (Source, error) {
	// Initialize periph host once.
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU SPI transport (%s): %w", spiDev, err)
	}

	imu, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("IMU new device: %w", err)
	}

	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("IMU init: %w", err)
	}

	if _, err := imu.SelfTest(); err != nil {
		return nil, fmt.Errorf("IMU self-test: %w", err)
	}
	if err := imu.Calibrate(); err != nil {
		return nil, fmt.Errorf("IMU calibrate: %w", err)
	}

	return &imuSource{imu: imu, clk: clock.New()}, nil
}

// Next reads accelerometer and gyroscope and converts them to SI-ish units:
// m/s² for acceleration, °/s for rotation rate.
func (s *imuSource) Next() (Frame, error) {
	ax, err := s.imu.GetAccelerationX()
	if err != nil {
		return Frame{}, fmt.Errorf("IMU acc X: %w", err)
	}
	ay, err := s.imu.GetAccelerationY()
	if err != nil {
		return Frame{}, fmt.Errorf("IMU acc Y: %w", err)
	}
	az, err := s.imu.GetAccelerationZ()
	if err != nil {
		return Frame{}, fmt.Errorf("IMU acc Z: %w", err)
	}
	gx, err := s.imu.GetRotationX()
	if err != nil {
		return Frame{}, fmt.Errorf("IMU gyro X: %w", err)
	}
	gy, err := s.imu.GetRotationY()
	if err != nil {
		return Frame{}, fmt.Errorf("IMU gyro Y: %w", err)
	}
	gz, err := s.imu.GetRotationZ()
	if err != nil {
		return Frame{}, fmt.Errorf("IMU gyro Z: %w", err)
	}

	return FrameFromRaw(
		float64(ax), float64(ay), float64(az),
		float64(gx), float64(gy), float64(gz),
		s.clk,
	), nil
}

// FrameFromRaw converts raw MPU9250 counts at the default ranges into a frame.
// Gyro Z is the rotation around the vertical axis (alpha).
func FrameFromRaw(ax, ay, az, gx, gy, gz float64, clk clock.Clock) Frame {
	fx := ax / accelLSBPerG * gravity
	fy := ay / accelLSBPerG * gravity
	fz := az / accelLSBPerG * gravity

	return Frame{
		Orientation: SampleFromAccel(fx, fy, fz),
		Motion: motion.NewSample(
			gz/gyroLSBPerDegS,
			gx/gyroLSBPerDegS,
			gy/gyroLSBPerDegS,
			fx, fy, fz,
			clk.Now(),
		),
	}
}
