package actor

import (
	"testing"
	"time"

	adactor "github.com/berfenger/pzem2mqtt/internal/adapter/actor"
	"github.com/berfenger/pzem2mqtt/internal/core/domain"
	"github.com/berfenger/pzem2mqtt/internal/util"
	"github.com/berfenger/pzem2mqtt/pkg/pzem004t"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMasterActor(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	meter, err := pzem004t.CreateTestMeter()
	if err != nil {
		t.Error(err)
		return
	}

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, func() *adactor.MeterActor {
			return adactor.NewMeterActor(meter, 500*time.Millisecond, logger)
		}, func(stream *eventstream.EventStream) *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(cfg.MQTT, stream, logger)
		}, logger)
	})
	pid, err := context.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		t.Error(err)
		return
	}

	time.Sleep(2 * time.Second)

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	healthResp, ok := res.(domain.ActorHealthResponse)
	assert.True(t, ok)
	assert.Equal(t, domain.ACTOR_ID_MASTER, healthResp.Id)
	assert.True(t, healthResp.Healthy, "healthy is true")

	context.Stop(pid)

	as.Shutdown()
}
