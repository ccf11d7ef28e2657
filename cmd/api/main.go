package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "github.com/berfenger/pzem2mqtt/internal/adapter/actor"
	"github.com/berfenger/pzem2mqtt/internal/config"
	"github.com/berfenger/pzem2mqtt/internal/core/actor"
	"github.com/berfenger/pzem2mqtt/internal/core/domain"
	"github.com/berfenger/pzem2mqtt/internal/server"
	"github.com/berfenger/pzem2mqtt/internal/util/actorutil"
	"github.com/berfenger/pzem2mqtt/pkg/pzem004t"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, logger *zap.Logger, done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	logger.Info("shutting down gracefully, press Ctrl+C again to force")

	// give in-flight requests a moment to finish
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())
	defer logger.Sync()

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	// init Meter actor provider
	meterProv, err := meterActorProvider(cfg, logger)
	if err != nil {
		logger.Fatal("meter init failed", zap.Error(err))
	}

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, meterProv, mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		logger.Fatal("master spawn failed", zap.Error(err))
	}

	apiServer := server.NewServer(*cfg, ctx, pid)
	done := make(chan bool, 1)

	go gracefulShutdown(apiServer, logger, done)

	err = apiServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// wait for the graceful shutdown to complete
	<-done
	logger.Info("graceful shutdown complete")

	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => PZEM2MQTT_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("PZEM2MQTT_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("pzem2mqtt")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	cfg.LogLevel = config.ParseLogLevel(viper.GetString("log_level"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func meterActorProvider(cfg *config.Config, logger *zap.Logger) (actor.MeterActorProvider, error) {

	meter, err := pzem004t.CreateSerialDevice(cfg.Serial.Port, cfg.Serial.BaudRate,
		uint8(cfg.Serial.Address), logger, nil)

	if err != nil {
		return nil, err
	}

	readTimeout := cfg.Serial.ReadTimeout()

	return func() *adactor.MeterActor {
		return adactor.NewMeterActor(meter, readTimeout, logger)
	}, nil
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(stream *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg.MQTT, stream, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("mqtt.client_id", "pzem2mqtt")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "pzem2mqtt")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("serial.port", "/dev/ttyUSB0")
	viper.SetDefault("serial.baud_rate", 9600)
	viper.SetDefault("serial.address", 248)
	viper.SetDefault("serial.read_timeout_millis", 500)
	viper.SetDefault("monitor.poll_interval_millis", 5000)
	viper.SetDefault("monitor.params_refresh_ticks", 10)
	viper.SetDefault("monitor.energy_reset_cron", "")
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
