// Package config loads the daemon configuration from YAML.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/bulb-driver/internal/color"
)

// Config represents the daemon configuration
type Config struct {
	MQTT        MQTTConfig        `yaml:"mqtt"`
	GPIO        GPIOConfig        `yaml:"gpio"`
	HTTP        HTTPConfig        `yaml:"http"`
	Log         LogConfig         `yaml:"log"`
	Heartbeat   Duration          `yaml:"heartbeat"` // 0 disables heartbeats
	Calibration color.Calibration `yaml:"calibration"`
}

// MQTTConfig contains broker connection settings
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	TopicPrefix string `yaml:"topic_prefix"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	ClientID    string `yaml:"client_id"` // empty = generated
	BufferSize  int    `yaml:"buffer_size"`
}

// GPIOConfig contains the drive line settings
type GPIOConfig struct {
	Chip   string     `yaml:"chip"`
	Period Duration   `yaml:"period"` // software PWM period
	Pins   PinsConfig `yaml:"pins"`
}

// PinsConfig holds the BCM line offset of each channel
type PinsConfig struct {
	Red   int `yaml:"red"`
	Green int `yaml:"green"`
	Blue  int `yaml:"blue"`
	Warm  int `yaml:"warm"`
	Cold  int `yaml:"cold"`
	Night int `yaml:"night"`
}

// Map returns the pins keyed by channel.
func (p PinsConfig) Map() map[color.Channel]int {
	return map[color.Channel]int{
		color.ChannelRed:   p.Red,
		color.ChannelGreen: p.Green,
		color.ChannelBlue:  p.Blue,
		color.ChannelWarm:  p.Warm,
		color.ChannelCold:  p.Cold,
		color.ChannelNight: p.Night,
	}
}

// HTTPConfig contains status server settings
type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables the server
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	JSON   bool   `yaml:"json"`
	Colors bool   `yaml:"colors"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker:      "tcp://192.168.1.200:1883",
			TopicPrefix: "home/bulb",
			BufferSize:  100,
		},
		GPIO: GPIOConfig{
			Chip:   "gpiochip0",
			Period: Duration(10 * time.Millisecond),
			Pins: PinsConfig{
				Red:   18,
				Green: 13,
				Blue:  12,
				Warm:  19,
				Cold:  26,
				Night: 16,
			},
		},
		HTTP:        HTTPConfig{Addr: ":80"},
		Log:         LogConfig{Level: "info", Colors: true},
		Heartbeat:   Duration(15 * time.Minute),
		Calibration: color.DefaultCalibration(),
	}
}

// Load reads the configuration file at path on top of the defaults.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the daemon cannot run without.
func (c *Config) Validate() error {
	if c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required")
	}
	if c.MQTT.TopicPrefix == "" {
		return fmt.Errorf("mqtt.topic_prefix is required")
	}
	if c.MQTT.BufferSize <= 0 {
		return fmt.Errorf("mqtt.buffer_size must be positive, got %d", c.MQTT.BufferSize)
	}
	if c.GPIO.Period.Duration() <= 0 {
		return fmt.Errorf("gpio.period must be positive")
	}
	seen := make(map[int]color.Channel)
	for _, ch := range color.Channels {
		pin := c.GPIO.Pins.Map()[ch]
		if pin < 0 {
			return fmt.Errorf("gpio.pins.%s must not be negative", ch)
		}
		if other, dup := seen[pin]; dup {
			return fmt.Errorf("gpio.pins.%s and gpio.pins.%s share line %d", other, ch, pin)
		}
		seen[pin] = ch
	}
	if err := c.Calibration.Validate(); err != nil {
		return fmt.Errorf("calibration: %w", err)
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if val := os.Getenv(parts[1]); val != "" {
			return val
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}
