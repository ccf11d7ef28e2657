package actorutil

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/berfenger/pzem2mqtt/internal/core/domain"
	"github.com/berfenger/pzem2mqtt/internal/mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ReenterWithRecover reenters the actor with the future result, mapping a
// failed future through fallback so the waiting state always gets a message.
func ReenterWithRecover(ctx actor.Context, future *actor.Future, fallback func(error) any) {
	ctx.ReenterAfter(future, func(res any, err error) {
		if err != nil {
			res = fallback(err)
		}
		ctx.Send(ctx.Self(), res)
	})
}

// NewActorSystemWithZapLogger routes protoactor's slog output through the
// zap logger the rest of the process uses, matching its level.
func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	out := zap.NewStdLog(logger).Writer()
	level := slogLevel(logger.Level())
	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {
		return slog.New(tint.NewHandler(out, &tint.Options{
			Level:      level,
			TimeFormat: time.DateTime,
		}))
	}))
}

func slogLevel(level zapcore.Level) slog.Level {
	switch {
	case level <= zap.DebugLevel:
		return slog.LevelDebug
	case level == zap.InfoLevel:
		return slog.LevelInfo
	case level == zap.WarnLevel:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// ActorLogger tags a logger with the actor id so every line tells which
// actor wrote it.
func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

// ParsedMQTTCommandToCommand maps an incoming MQTT command to the domain
// request the monitor actor understands. Unknown device ids map to nil.
func ParsedMQTTCommandToCommand(cmd mqtt.ParsedMQTTCommand) (domain.ActorRequest, error) {
	switch cmd.DeviceId {
	case domain.SWITCH_ID_ENERGY_RESET:
		return domain.MeterResetEnergyRequest{
			Enable: cmd.Payload == "on",
		}, nil
	case domain.INPUT_NUMBER_ID_ALARM_THRESHOLD:
		value, err := strconv.ParseUint(cmd.Payload, 10, 16)
		if err != nil {
			return nil, err
		}
		return domain.MeterSetAlarmThresholdRequest{
			ThresholdWatt: uint16(value),
		}, nil
	default:
		return nil, nil
	}
}
