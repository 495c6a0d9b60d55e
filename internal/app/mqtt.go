package app

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/relabs-tech/web_compass/internal/calibration"
	"github.com/relabs-tech/web_compass/internal/compass"
	"github.com/relabs-tech/web_compass/internal/config"
	"github.com/relabs-tech/web_compass/internal/heading"
)

// connectMQTT connects to the broker. The client ID gets a random suffix so
// several instances of one command can share a broker.
func connectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID + "-" + uuid.NewString()[:8]).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect %s: %w", broker, token.Error())
	}
	return client, nil
}

// publishJSON marshals v and publishes it as a retained message.
func publishJSON(client mqtt.Client, topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal (%s): %w", topic, err)
	}
	if token := client.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT publish (%s): %w", topic, token.Error())
	}
	return nil
}

// subscribeJSON decodes every message on topic into a fresh T.
func subscribeJSON[T any](client mqtt.Client, topic, who string, handle func(T)) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var v T
		if err := json.Unmarshal(msg.Payload(), &v); err != nil {
			log.Printf("%s: %s unmarshal error: %v", who, topic, err)
			return
		}
		handle(v)
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("MQTT subscribe %s: %w", topic, token.Error())
	}
	log.Printf("%s: subscribed to %s", who, topic)
	return nil
}

// sessionConfig maps the file configuration onto a compass session.
func sessionConfig(cfg *config.Config) compass.Config {
	c := compass.DefaultConfig()
	if cfg == nil {
		return c
	}
	c.Smoother = heading.SmootherConfig{
		FastThreshold: cfg.SmoothingFastThreshold,
		SlowThreshold: cfg.SmoothingSlowThreshold,
		KFast:         cfg.SmoothingKFast,
		KSlow:         cfg.SmoothingKSlow,
		K:             cfg.SmoothingK,
	}
	c.Calibration = calibration.DefaultConfig()
	c.Calibration.Duration = time.Duration(cfg.CalibrationDuration) * time.Millisecond
	c.Calibration.HideAfter = time.Duration(cfg.CalibrationHideDelay) * time.Millisecond
	return c
}
