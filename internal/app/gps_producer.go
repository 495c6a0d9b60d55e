package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/web_compass/internal/config"
	"github.com/relabs-tech/web_compass/internal/gps"
)

// RunGPSProducer opens the GPS serial port, parses NMEA sentences, and
// publishes combined GPS fixes as JSON to the configured GPS topic.
func RunGPSProducer(ctx context.Context) error {
	cfg := config.Get()

	// ---- 1) Connect to MQTT broker ----
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDGPS)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Printf("GPS producer connected to MQTT broker at %s", cfg.MQTTBroker)

	// ---- 2) Open GPS serial port ----
	serialOpts := serial.OpenOptions{
		PortName:              cfg.GPSSerialPort,
		BaudRate:              uint(cfg.GPSBaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return fmt.Errorf("open GPS serial port %s: %w", serialOpts.PortName, err)
	}
	log.Printf("GPS serial port opened on %s at %d baud", serialOpts.PortName, serialOpts.BaudRate)

	return readPort(ctx, port, func(fix gps.Fix) {
		if err := publishJSON(client, cfg.TopicGPS, fix); err != nil {
			log.Printf("GPS %v", err)
			return
		}
		log.Printf("published GPS fix: %+v", fix)
	})
}

// readPort streams fixes from port and closes it exactly once, when the
// stream ends or when ctx is done (which also unblocks a pending read).
func readPort(ctx context.Context, port io.ReadCloser, publish func(gps.Fix)) error {
	var once sync.Once
	closePort := func() { once.Do(func() { port.Close() }) }
	defer closePort()

	stop := context.AfterFunc(ctx, closePort)
	defer stop()

	err := streamFixes(ctx, port, publish)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// streamFixes decodes NMEA lines from r and calls publish for every
// completed fix until r ends or ctx is done.
func streamFixes(ctx context.Context, r io.Reader, publish func(gps.Fix)) error {
	reader := bufio.NewReader(r)
	var dec gps.Decoder

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err == io.EOF && strings.TrimSpace(line) == "" {
				return nil
			}
			if err != io.EOF {
				log.Printf("GPS read error: %v", err)
				return err
			}
		}

		fix, ok, perr := dec.Apply(line)
		if perr != nil {
			// noisy GPS or partial sentences
			continue
		}
		if ok {
			publish(fix)
		}
		if err == io.EOF {
			return nil
		}
	}
}
