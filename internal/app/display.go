package app

import (
	"context"
	"fmt"
	"image"
	"log"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/web_compass/internal/compass"
	"github.com/relabs-tech/web_compass/internal/config"
	"github.com/relabs-tech/web_compass/internal/gps"
)

const (
	oledW = 128
	oledH = 64

	// compass rose on the right half
	roseX = 98
	roseY = 32
	roseR = 29
)

// DisplayData holds the latest data for display
type DisplayData struct {
	mu sync.RWMutex

	reading     compass.Reading
	haveReading bool

	fix     gps.Fix
	haveFix bool
}

func (d *DisplayData) setReading(r compass.Reading) {
	d.mu.Lock()
	d.reading, d.haveReading = r, true
	d.mu.Unlock()
}

func (d *DisplayData) setFix(f gps.Fix) {
	d.mu.Lock()
	d.fix, d.haveFix = f, true
	d.mu.Unlock()
}

// snapshot returns copies so rendering never holds the lock.
func (d *DisplayData) snapshot() (*compass.Reading, *gps.Fix) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var (
		r *compass.Reading
		f *gps.Fix
	)
	if d.haveReading {
		rc := d.reading
		r = &rc
	}
	if d.haveFix {
		fc := d.fix
		f = &fc
	}
	return r, f
}

// RunDisplay shows the published heading and GPS position on an SSD1306
// OLED until ctx is cancelled.
func RunDisplay(ctx context.Context) error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	opts := ssd1306.DefaultOpts
	dev, err := ssd1306.NewI2C(bus, &opts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	defer dev.Halt()
	log.Println("display: SSD1306 initialized")

	if err := dev.Draw(dev.Bounds(), renderSplash(), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &DisplayData{}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	if err := subscribeJSON(client, cfg.TopicHeading, "display", data.setReading); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicGPS, "display", data.setFix); err != nil {
		return err
	}

	interval := time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond
	log.Println("display: starting update loop")
	refreshDisplay(ctx, clock.New(), interval, data, func(img *image1bit.VerticalLSB) error {
		return dev.Draw(dev.Bounds(), img, image.Point{})
	})
	return nil
}

// refreshDisplay redraws the latest data every interval until ctx is done.
func refreshDisplay(ctx context.Context, clk clock.Clock, interval time.Duration, data *DisplayData, draw func(*image1bit.VerticalLSB) error) {
	ticker := clk.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r, f := data.snapshot()
			if err := draw(renderHeading(r, f)); err != nil {
				log.Printf("display: error updating display: %v", err)
			}
		}
	}
}

func newFrame() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, oledW, oledH))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

func drawText(d *font.Drawer, x, y int, s string) {
	d.Dot = fixed.P(x, y)
	d.DrawString(s)
}

// renderHeading draws the text block on the left and the rose on the right.
// A nil reading shows a waiting screen.
func renderHeading(r *compass.Reading, f *gps.Fix) *image1bit.VerticalLSB {
	img, drawer := newFrame()

	if r == nil {
		drawText(drawer, 0, 26, "Compass")
		drawText(drawer, 0, 39, "Waiting...")
		return img
	}

	drawText(drawer, 0, 13, r.DegreeText+" "+r.Cardinal)
	switch {
	case r.Calibrating:
		drawText(drawer, 0, 26, fmt.Sprintf("Cal %3.0f%%", r.Accuracy*100))
	case r.StatusVisible && r.Calibrated:
		drawText(drawer, 0, 26, "Cal OK")
	case r.StatusVisible:
		drawText(drawer, 0, 26, "Cal failed")
	case r.Tilted:
		drawText(drawer, 0, 26, "Tilted")
	}

	if f != nil && f.Valid() {
		drawText(drawer, 0, 50, fmt.Sprintf("%.3f", f.Latitude))
		drawText(drawer, 0, 63, fmt.Sprintf("%.3f", f.Longitude))
	}

	drawRose(img, r.Heading)
	return img
}

// drawRose draws the ring and a needle from the centre towards north,
// rotated by -heading like the dial on the web page.
func drawRose(img *image1bit.VerticalLSB, heading float64) {
	for a := 0; a < 360; a += 4 {
		rad := float64(a) * math.Pi / 180
		img.SetBit(roseX+int(math.Round(roseR*math.Sin(rad))), roseY-int(math.Round(roseR*math.Cos(rad))), image1bit.On)
	}

	rad := -heading * math.Pi / 180
	for l := 0; l <= roseR-4; l++ {
		x := roseX + int(math.Round(float64(l)*math.Sin(rad)))
		y := roseY - int(math.Round(float64(l)*math.Cos(rad)))
		img.SetBit(x, y, image1bit.On)
	}
}

func renderSplash() *image1bit.VerticalLSB {
	img, drawer := newFrame()
	drawText(drawer, 20, 26, "Web Compass")
	drawText(drawer, 5, 43, "Waiting for")
	drawText(drawer, 30, 56, "heading")
	return img
}
