package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDGPS      string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string

	// Topics
	TopicOrientation string
	TopicMotion      string
	TopicHeading     string
	TopicGPS         string

	// IMU Hardware
	UseMockSource bool
	IMUSPIDevice  string
	IMUCSPin      string

	// Magnetometer (HMC5983 on I2C)
	UseMagnetometer bool
	MagI2CBus       string
	MagI2CAddr      uint16

	// GPS
	GPSSerialPort string
	GPSBaudRate   int

	// Timing
	SampleInterval int // milliseconds

	// Heading smoothing
	SmoothingFastThreshold float64 // °/sample
	SmoothingSlowThreshold float64 // °/sample
	SmoothingKFast         float64
	SmoothingKSlow         float64
	SmoothingK             float64

	// Calibration
	CalibrationDuration  int // milliseconds
	CalibrationHideDelay int // milliseconds

	// Web Server
	WebServerPort int
	WebStaticDir  string

	// Display
	DisplayUpdateInterval int // milliseconds
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: unexported so other packages cannot modify config without proper locking.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access. Write lock for initialization,
//     read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Defaults returns a Config with every optional value filled in.
func Defaults() *Config {
	return &Config{
		MQTTBroker:           "tcp://localhost:1883",
		MQTTClientIDProducer: "compass-sensor-producer",
		MQTTClientIDGPS:      "compass-gps-producer",
		MQTTClientIDConsole:  "compass-console",
		MQTTClientIDWeb:      "compass-web",
		MQTTClientIDDisplay:  "compass-display",

		TopicOrientation: "compass/orientation",
		TopicMotion:      "compass/motion",
		TopicHeading:     "compass/heading",
		TopicGPS:         "compass/gps",

		UseMockSource: true,
		IMUSPIDevice:  "/dev/spidev0.0",
		IMUCSPin:      "8",

		MagI2CBus:  "1",
		MagI2CAddr: 0x1E,

		GPSSerialPort: "/dev/serial0",
		GPSBaudRate:   9600,

		SampleInterval: 50,

		SmoothingFastThreshold: 5,
		SmoothingSlowThreshold: 1,
		SmoothingKFast:         0.30,
		SmoothingKSlow:         0.10,
		SmoothingK:             0.15,

		CalibrationDuration:  5000,
		CalibrationHideDelay: 2000,

		WebServerPort: 8080,
		WebStaticDir:  "web",

		DisplayUpdateInterval: 200,
	}
}

// Load reads the configuration file and returns a Config struct.
// Files ending in .yaml or .yml are parsed as YAML with the same keys;
// anything else is KEY=VALUE lines.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Defaults()

	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		if err := cfg.loadYAML(file); err != nil {
			return nil, err
		}
	default:
		if err := cfg.loadKeyValue(file); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadKeyValue(file *os.File) error {
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := c.setValue(key, value); err != nil {
			return fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// loadYAML accepts a flat mapping; keys may be lowercase.
func (c *Config) loadYAML(file *os.File) error {
	var raw map[string]yaml.Node
	if err := yaml.NewDecoder(file).Decode(&raw); err != nil {
		return fmt.Errorf("error reading yaml config: %w", err)
	}
	for key, node := range raw {
		if node.Kind != yaml.ScalarNode {
			return fmt.Errorf("config key %q: expected a scalar value", key)
		}
		if err := c.setValue(strings.ToUpper(key), node.Value); err != nil {
			return err
		}
	}
	return nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_ORIENTATION":
		c.TopicOrientation = value
	case "TOPIC_MOTION":
		c.TopicMotion = value
	case "TOPIC_HEADING":
		c.TopicHeading = value
	case "TOPIC_GPS":
		c.TopicGPS = value

	// IMU Hardware
	case "USE_MOCK_SOURCE":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid USE_MOCK_SOURCE %q: %w", value, err)
		}
		c.UseMockSource = b
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value

	// Magnetometer
	case "USE_MAGNETOMETER":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid USE_MAGNETOMETER %q: %w", value, err)
		}
		c.UseMagnetometer = b
	case "MAG_I2C_BUS":
		c.MagI2CBus = value
	case "MAG_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid MAG_I2C_ADDR %q: %w", value, err)
		}
		c.MagI2CAddr = uint16(addr)

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		c.GPSBaudRate = rate

	// Timing
	case "SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SAMPLE_INTERVAL %q: %w", value, err)
		}
		c.SampleInterval = interval

	// Heading smoothing
	case "SMOOTHING_FAST_THRESHOLD":
		return parseFloat(key, value, &c.SmoothingFastThreshold)
	case "SMOOTHING_SLOW_THRESHOLD":
		return parseFloat(key, value, &c.SmoothingSlowThreshold)
	case "SMOOTHING_K_FAST":
		return parseFactor(key, value, &c.SmoothingKFast)
	case "SMOOTHING_K_SLOW":
		return parseFactor(key, value, &c.SmoothingKSlow)
	case "SMOOTHING_K":
		return parseFactor(key, value, &c.SmoothingK)

	// Calibration
	case "CALIBRATION_DURATION":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CALIBRATION_DURATION %q: %w", value, err)
		}
		c.CalibrationDuration = ms
	case "CALIBRATION_HIDE_DELAY":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CALIBRATION_HIDE_DELAY %q: %w", value, err)
		}
		c.CalibrationHideDelay = ms

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port
	case "WEB_STATIC_DIR":
		c.WebStaticDir = value

	// Display
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

func parseFloat(key, value string, dst *float64) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = v
	return nil
}

// parseFactor parses a smoothing factor, which must lie in (0,1].
func parseFactor(key, value string, dst *float64) error {
	var v float64
	if err := parseFloat(key, value, &v); err != nil {
		return err
	}
	if v <= 0 || v > 1 {
		return fmt.Errorf("%s must be in (0,1], got %v", key, v)
	}
	*dst = v
	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicOrientation == "" || c.TopicMotion == "" || c.TopicHeading == "" || c.TopicGPS == "" {
		return fmt.Errorf("TOPIC_ORIENTATION, TOPIC_MOTION, TOPIC_HEADING and TOPIC_GPS are required")
	}
	if !c.UseMockSource && c.IMUSPIDevice == "" {
		return fmt.Errorf("IMU_SPI_DEVICE is required unless USE_MOCK_SOURCE=true")
	}
	// the MPU9250 alone reports no azimuth
	if !c.UseMockSource && !c.UseMagnetometer {
		return fmt.Errorf("USE_MAGNETOMETER=true is required unless USE_MOCK_SOURCE=true")
	}
	if c.SampleInterval <= 0 {
		return fmt.Errorf("SAMPLE_INTERVAL must be positive")
	}
	if c.SmoothingSlowThreshold >= c.SmoothingFastThreshold {
		return fmt.Errorf("SMOOTHING_SLOW_THRESHOLD (%v) must be below SMOOTHING_FAST_THRESHOLD (%v)",
			c.SmoothingSlowThreshold, c.SmoothingFastThreshold)
	}
	if c.CalibrationDuration <= 0 {
		return fmt.Errorf("CALIBRATION_DURATION must be positive")
	}
	if c.WebServerPort <= 0 || c.WebServerPort > 65535 {
		return fmt.Errorf("WEB_SERVER_PORT must be 1-65535, got %d", c.WebServerPort)
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
