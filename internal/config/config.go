package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/berfenger/pzem2mqtt/pkg/pzem004t"

	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel zapcore.Level
	Serial   SerialConfig  `mapstructure:"serial"`
	MQTT     MQTTConfig    `mapstructure:"mqtt"`
	Monitor  MonitorConfig `mapstructure:"monitor"`

	Port    uint `mapstructure:"port"`
	HttpLog bool `mapstructure:"http_log"`
}

type SerialConfig struct {
	Port              string
	BaudRate          int    `mapstructure:"baud_rate"`
	Address           uint   `mapstructure:"address"`
	ReadTimeoutMillis uint32 `mapstructure:"read_timeout_millis"`
}

type MonitorConfig struct {
	PollIntervalMillis uint32 `mapstructure:"poll_interval_millis"`
	ParamsRefreshTicks uint   `mapstructure:"params_refresh_ticks"`
	EnergyResetCron    string `mapstructure:"energy_reset_cron"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	ClientId          string `mapstructure:"client_id"`
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

var topicRegexp = regexp.MustCompile(`^[a-z0-9_]+$`)

// CheckMQTTTopic lowercases a topic segment and rejects anything that would
// break the topic scheme or a discovery path.
func CheckMQTTTopic(topic string) (string, error) {
	topic = strings.ToLower(topic)
	if !topicRegexp.MatchString(topic) {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return topic, nil
}

// Validate normalizes the MQTT topics and rejects values the bridge cannot
// run with. It mutates the receiver so the topic fixes stick.
func (c *Config) Validate() error {
	baseTopic, err := CheckMQTTTopic(c.MQTT.BaseTopic)
	if err != nil {
		return fmt.Errorf("mqtt.base_topic: %w", err)
	}
	c.MQTT.BaseTopic = baseTopic

	discoveryTopic, err := CheckMQTTTopic(c.MQTT.HADiscoveryTopic)
	if err != nil {
		return fmt.Errorf("mqtt.ha_discovery_topic: %w", err)
	}
	c.MQTT.HADiscoveryTopic = discoveryTopic

	if c.Serial.BaudRate <= 0 {
		return errors.New("serial.baud_rate must be > 0")
	}
	if c.Serial.Address < uint(pzem004t.AddressMin) || c.Serial.Address > uint(pzem004t.AddressUniversal) {
		return fmt.Errorf("serial.address must be between %d and %d", pzem004t.AddressMin, pzem004t.AddressUniversal)
	}
	if c.Serial.ReadTimeoutMillis < 50 {
		return errors.New("serial.read_timeout_millis must be >= 50")
	}
	if c.Monitor.PollIntervalMillis < 1000 {
		return errors.New("monitor.poll_interval_millis must be >= 1000")
	}
	if c.Monitor.ParamsRefreshTicks == 0 {
		return errors.New("monitor.params_refresh_ticks must be > 0")
	}
	if c.Monitor.EnergyResetCron != "" {
		if _, err := quartz.NewCronTrigger(c.Monitor.EnergyResetCron); err != nil {
			return fmt.Errorf("monitor.energy_reset_cron is not a valid cron expression: %w", err)
		}
	}
	return nil
}

// ReadTimeout is the per-exchange serial read deadline.
func (c SerialConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMillis) * time.Millisecond
}

// PollInterval is the measurement poll period.
func (c MonitorConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMillis) * time.Millisecond
}

// ParseLogLevel maps the log_level config value to a zap level. Unknown
// values fall back to info.
func ParseLogLevel(level string) zapcore.Level {
	switch level {
	case "trace", "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
