// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/benbjohnson/clock"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/web_compass/internal/config"
	"github.com/relabs-tech/web_compass/internal/orientation"
)

// openSource picks the mock or MPU9250 source and, when configured, adds the
// HMC5983 for azimuth. The returned closer releases the I2C bus.
func openSource(cfg *config.Config, clk clock.Clock) (orientation.Source, func(), error) {
	closer := func() {}

	var src orientation.Source
	if cfg.UseMockSource {
		log.Println("sensor: using mock orientation source")
		src = orientation.NewMockSource(clk)
	} else {
		imu, err := orientation.NewIMUSource(cfg.IMUSPIDevice, cfg.IMUCSPin)
		if err != nil {
			return nil, closer, fmt.Errorf("IMU init: %w", err)
		}
		log.Printf("sensor: using MPU9250 on %s (CS %s)", cfg.IMUSPIDevice, cfg.IMUCSPin)
		src = imu
	}

	if !cfg.UseMagnetometer {
		return src, closer, nil
	}

	if _, err := host.Init(); err != nil {
		return nil, closer, fmt.Errorf("periph host init: %w", err)
	}
	bus, err := i2creg.Open(cfg.MagI2CBus)
	if err != nil {
		return nil, closer, fmt.Errorf("i2c open failed on bus %s: %w", cfg.MagI2CBus, err)
	}
	mag, err := orientation.NewHMC5983(bus, cfg.MagI2CAddr)
	if err != nil {
		bus.Close()
		return nil, closer, err
	}
	log.Printf("sensor: HMC5983 magnetometer on bus %s addr 0x%X", cfg.MagI2CBus, cfg.MagI2CAddr)
	return orientation.WithMagnetometer(src, mag), func() { bus.Close() }, nil
}

// pumpFrames polls src every interval until ctx is done and hands each frame
// to sink. Read errors are logged and the tick is skipped.
func pumpFrames(ctx context.Context, clk clock.Clock, interval time.Duration, src orientation.Source, sink func(orientation.Frame)) error {
	ticker := clk.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			f, err := src.Next()
			if err != nil {
				log.Printf("sensor: read error: %v", err)
				continue
			}
			sink(f)
		}
	}
}

// RunSensorProducer reads the configured source and publishes orientation
// and motion samples to MQTT until ctx is cancelled.
func RunSensorProducer(ctx context.Context) error {
	log.Println("starting web-compass sensor producer")

	cfg := config.Get()
	clk := clock.New()

	src, closeSrc, err := openSource(cfg, clk)
	if err != nil {
		return err
	}
	defer closeSrc()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDProducer)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Printf("sensor: connected to MQTT broker at %s, publishing every %d ms", cfg.MQTTBroker, cfg.SampleInterval)

	var n int
	err = pumpFrames(ctx, clk, time.Duration(cfg.SampleInterval)*time.Millisecond, src, func(f orientation.Frame) {
		if err := publishJSON(client, cfg.TopicOrientation, f.Orientation); err != nil {
			log.Printf("sensor: %v", err)
			return
		}
		if err := publishJSON(client, cfg.TopicMotion, f.Motion); err != nil {
			log.Printf("sensor: %v", err)
			return
		}
		n++
		if n%100 == 0 {
			log.Printf("sensor: published %d frames, last azimuth=%s pitch=%s roll=%s",
				n, fmtAngle(f.Orientation.Azimuth), fmtAngle(f.Orientation.Pitch), fmtAngle(f.Orientation.Roll))
		}
	})
	log.Println("sensor: shutting down")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func fmtAngle(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}
