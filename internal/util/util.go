package util

import (
	"github.com/berfenger/pzem2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Serial: config.SerialConfig{
			Port:              "/dev/ttyUSB0",
			BaudRate:          9600,
			Address:           0xF8,
			ReadTimeoutMillis: 500,
		},
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "pzem2mqtt",
		},
		Monitor: config.MonitorConfig{
			PollIntervalMillis: 5000,
			ParamsRefreshTicks: 10,
		},
		Port: 8080,
	}
}
