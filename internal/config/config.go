// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDCounter  string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string

	// Topics
	TopicSamples string // merged imu.Sample JSON
	TopicCycle   string // repetition events
	TopicState   string // posture state changes
	TopicResult  string // final session result
	TopicControl string // start/stop/pause/resume commands

	// Sampling and session
	SampleRateHz          int
	SessionDurationMs     int64
	CalibrationDurationMs int64
	CalibrationMinSamples int
	DetectorMode          string // "fusion", "peak" or "both"
	PeakAxis              string // "gyro_x", "gyro_y" or "gyro_z"

	// Sample source: "mock", "serial" or "mpu9250"
	Source string

	// Serial IMU bridge
	SerialPort     string
	SerialBaudRate int

	// IMU Hardware
	IMUSPIDevice string
	IMUCSPin     string

	// Web Server
	WebServerPort int

	// Display
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int // milliseconds

	// Export
	ExportDir string
}

// Default returns the values used for keys missing from the file.
func Default() *Config {
	return &Config{
		MQTTClientIDProducer:  "sts-producer",
		MQTTClientIDCounter:   "sts-counter",
		MQTTClientIDConsole:   "sts-console",
		MQTTClientIDWeb:       "sts-web",
		MQTTClientIDDisplay:   "sts-display",
		TopicSamples:          "sts/samples",
		TopicCycle:            "sts/cycle",
		TopicState:            "sts/state",
		TopicResult:           "sts/result",
		TopicControl:          "sts/control",
		SampleRateHz:          50,
		SessionDurationMs:     30000,
		CalibrationDurationMs: 2000,
		CalibrationMinSamples: 30,
		DetectorMode:          "both",
		PeakAxis:              "gyro_y",
		Source:                "mock",
		SerialBaudRate:        115200,
		WebServerPort:         8080,
		DisplayI2CAddr:        0x3C,
		DisplayUpdateInterval: 200,
		ExportDir:             "exports",
	}
}

// Package-level state for the singleton: InitGlobal sets it once, Get reads
// it under a read lock.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines on top of Default().
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
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
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseInt(key, value string, lo, hi int) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%s must be %d-%d, got %d", key, lo, hi, v)
	}
	return v, nil
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", key, strings.Join(allowed, "|"), value)
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_COUNTER":
		c.MQTTClientIDCounter = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_SAMPLES":
		c.TopicSamples = value
	case "TOPIC_CYCLE":
		c.TopicCycle = value
	case "TOPIC_STATE":
		c.TopicState = value
	case "TOPIC_RESULT":
		c.TopicResult = value
	case "TOPIC_CONTROL":
		c.TopicControl = value

	// Sampling and session
	case "SAMPLE_RATE_HZ":
		v, err := parseInt(key, value, 1, 1000)
		if err != nil {
			return err
		}
		c.SampleRateHz = v
	case "SESSION_DURATION_MS":
		v, err := parseInt(key, value, 1000, 600000)
		if err != nil {
			return err
		}
		c.SessionDurationMs = int64(v)
	case "CALIBRATION_DURATION_MS":
		v, err := parseInt(key, value, 100, 60000)
		if err != nil {
			return err
		}
		c.CalibrationDurationMs = int64(v)
	case "CALIBRATION_MIN_SAMPLES":
		v, err := parseInt(key, value, 1, 10000)
		if err != nil {
			return err
		}
		c.CalibrationMinSamples = v
	case "DETECTOR_MODE":
		if err := oneOf(key, value, "fusion", "peak", "both"); err != nil {
			return err
		}
		c.DetectorMode = value
	case "PEAK_AXIS":
		if err := oneOf(key, value, "gyro_x", "gyro_y", "gyro_z"); err != nil {
			return err
		}
		c.PeakAxis = value

	case "SOURCE":
		if err := oneOf(key, value, "mock", "serial", "mpu9250"); err != nil {
			return err
		}
		c.Source = value

	// Serial IMU bridge
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SERIAL_BAUD_RATE %q: %w", value, err)
		}
		c.SerialBaudRate = rate

	// IMU Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := parseInt(key, value, 1, 65535)
		if err != nil {
			return err
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, err)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	// Export
	case "EXPORT_DIR":
		c.ExportDir = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicSamples == "" {
		return fmt.Errorf("TOPIC_SAMPLES is required")
	}
	switch c.Source {
	case "serial":
		if c.SerialPort == "" {
			return fmt.Errorf("SERIAL_PORT is required when SOURCE=serial")
		}
		if c.SerialBaudRate == 0 {
			return fmt.Errorf("SERIAL_BAUD_RATE is required when SOURCE=serial")
		}
	case "mpu9250":
		if c.IMUSPIDevice == "" || c.IMUCSPin == "" {
			return fmt.Errorf("IMU_SPI_DEVICE and IMU_CS_PIN are required when SOURCE=mpu9250")
		}
	}
	if c.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be positive")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Only the first call has any effect.
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
