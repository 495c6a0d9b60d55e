package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/relabs-tech/web_compass/internal/compass"
	"github.com/relabs-tech/web_compass/internal/config"
	"github.com/relabs-tech/web_compass/internal/gps"
	"github.com/relabs-tech/web_compass/internal/orientation"
)

// consoleDisplay prints readings and messages as single lines.
type consoleDisplay struct {
	w io.Writer
}

func (d consoleDisplay) Render(r compass.Reading) {
	printReading(d.w, r)
}

func (d consoleDisplay) ShowMessage(msg string) {
	if msg == "" {
		return
	}
	fmt.Fprintf(d.w, "[MSG ]  %s\n", msg)
}

func printReading(w io.Writer, r compass.Reading) {
	status := ""
	if r.StatusVisible {
		status = "  | " + r.CalibrationStatus
	}
	tilt := ""
	if r.Tilted {
		tilt = " (tilt)"
	}
	fmt.Fprintf(w,
		"[HEAD]  %5s %-2s  raw=%6.2f  gyro=%7.2f  acc=%3.0f%%%s%s\n",
		r.DegreeText, r.Cardinal, r.RawHeading, r.GyroAzimuth, r.Accuracy*100, tilt, status,
	)
}

func printFix(w io.Writer, f gps.Fix) {
	lat, lon := f.Coordinates()
	fmt.Fprintf(w,
		"[GPS ]  time=%s date=%s lat=%s lon=%s alt=%.1fm sats=%d speed=%.1fkn course=%.1f° validity=%s\n",
		f.Time, f.Date, lat, lon, f.Altitude, f.Satellites, f.SpeedKnots, f.CourseDeg, f.Validity,
	)
}

// RunMockConsole runs a local compass session on the mock source and prints
// every reading. No broker is needed. A nil cfg uses the defaults.
func RunMockConsole(ctx context.Context, cfg *config.Config) error {
	if cfg == nil {
		cfg = config.Defaults()
	}
	clk := clock.New()

	session := compass.NewSession(sessionConfig(cfg), clk, consoleDisplay{w: os.Stdout})
	runner := compass.NewRunner(session, clk)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- runner.Run(ctx) }()

	var startErr error
	if err := runner.Do(ctx, func(s *compass.Session) {
		startErr = s.Start(ctx, true, nil)
	}); err != nil {
		return err
	}
	if startErr != nil {
		return startErr
	}
	log.Printf("console: session %s started", session.ID())

	src := orientation.NewMockSource(clk)
	err := pumpFrames(ctx, clk, time.Duration(cfg.SampleInterval)*time.Millisecond, src, func(f orientation.Frame) {
		// motion first so calibration sees the rates before the heading is drawn
		if err := runner.Motion(ctx, f.Motion); err != nil {
			return
		}
		_ = runner.Orientation(ctx, f.Orientation)
	})
	cancel()
	<-runErr
	return err
}
