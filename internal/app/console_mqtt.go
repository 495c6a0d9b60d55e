package app

import (
	"context"
	"log"
	"os"

	"github.com/relabs-tech/web_compass/internal/compass"
	"github.com/relabs-tech/web_compass/internal/config"
	"github.com/relabs-tech/web_compass/internal/gps"
)

// RunConsoleMQTT prints the headings and GPS fixes published on the broker
// until ctx is cancelled.
func RunConsoleMQTT(ctx context.Context) error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	if err := subscribeJSON(client, cfg.TopicHeading, "console", func(r compass.Reading) {
		printReading(os.Stdout, r)
	}); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicGPS, "console", func(f gps.Fix) {
		printFix(os.Stdout, f)
	}); err != nil {
		return err
	}

	<-ctx.Done()

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
