package actor

import (
	"errors"
	"sync"
	"testing"
	"time"

	adactor "github.com/berfenger/pzem2mqtt/internal/adapter/actor"
	"github.com/berfenger/pzem2mqtt/internal/core/domain"
	"github.com/berfenger/pzem2mqtt/internal/util"
	"github.com/berfenger/pzem2mqtt/internal/util/actorutil"
	"github.com/berfenger/pzem2mqtt/pkg/pzem004t"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMonitorFlow(t *testing.T) {

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	cfg := util.LoadTestConfig()
	cfg.Monitor.PollIntervalMillis = 1000

	meter, err := pzem004t.CreateTestMeter()
	if err != nil {
		t.Error(err)
		return
	}

	// meter actor
	meterProps := actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewMeterActor(meter, 500*time.Millisecond, logger)
	})
	meterActorPID := context.Spawn(meterProps)

	// collect published events
	es := eventstream.EventStream{}
	collector := &eventCollector{}
	sub := es.Subscribe(collector.collect)
	defer es.Unsubscribe(sub)

	// monitor actor
	monitorProps := actor.PropsFromProducer(func() actor.Actor {
		return NewMonitorActor(&cfg, meterActorPID, &es, logger)
	})
	monitorActorPID := context.Spawn(monitorProps)

	time.Sleep(2 * time.Second)

	hcr, err := healthCheck(context, monitorActorPID)
	if err != nil {
		t.Error(err)
		return
	}
	assert.True(t, hcr.Healthy, "actor should be healthy")
	assert.Equal(t, "polling", hcr.State, "actor state should be polling")

	// measurement events published on tick
	assert.True(t, collector.hasFloatEvent(domain.SENSOR_ID_METER_VOLTAGE, 231.2), "voltage event")
	assert.True(t, collector.hasFloatEvent(domain.SENSOR_ID_METER_CURRENT, 0.5), "current event")
	assert.True(t, collector.hasFloatEvent(domain.SENSOR_ID_METER_POWER, 115.7), "power event")
	assert.True(t, collector.hasFloatEvent(domain.SENSOR_ID_METER_FREQUENCY, 49.9), "frequency event")
	assert.True(t, collector.hasBinaryEvent(domain.SENSOR_ID_METER_ALARM, false), "alarm event")
	assert.True(t, collector.hasInputNumberEvent(domain.INPUT_NUMBER_ID_ALARM_THRESHOLD, 2300), "threshold event")

	// energy reset command flips the switch on and back off
	context.Send(monitorActorPID, domain.MeterResetEnergyRequest{Enable: true})

	time.Sleep(500 * time.Millisecond)

	hcr, err = healthCheck(context, monitorActorPID)
	if err != nil {
		t.Error(err)
		return
	}
	assert.True(t, hcr.Healthy, "actor should be healthy")
	assert.Equal(t, "polling", hcr.State, "actor state should be polling")
	assert.True(t, collector.hasSwitchEvent(domain.SWITCH_ID_ENERGY_RESET, true), "reset switch on event")
	assert.True(t, collector.hasSwitchEvent(domain.SWITCH_ID_ENERGY_RESET, false), "reset switch off event")

	// alarm threshold command
	context.Send(monitorActorPID, domain.MeterSetAlarmThresholdRequest{ThresholdWatt: 4600})

	time.Sleep(500 * time.Millisecond)

	hcr, err = healthCheck(context, monitorActorPID)
	if err != nil {
		t.Error(err)
		return
	}
	assert.True(t, hcr.Healthy, "actor should be healthy")
	assert.Equal(t, "polling", hcr.State, "actor state should be polling")
	assert.True(t, collector.hasInputNumberEvent(domain.INPUT_NUMBER_ID_ALARM_THRESHOLD, 4600), "threshold update event")

	context.Stop(monitorActorPID)
	context.Stop(meterActorPID)

	as.Shutdown()
}

func healthCheck(ctx *actor.RootContext, pid *actor.PID) (*domain.ActorHealthResponse, error) {
	resp, err := ctx.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	if err != nil {
		return nil, err
	}
	hcr, ok := resp.(domain.ActorHealthResponse)
	if !ok {
		return nil, errors.New("unexpected response type")
	}
	return &hcr, nil
}

type eventCollector struct {
	mu     sync.Mutex
	events []any
}

func (c *eventCollector) collect(value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, value)
}

func (c *eventCollector) hasFloatEvent(id string, value float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.events {
		if ev, ok := e.(domain.FloatSensorUpdateEvent); ok && ev.Id == id && ev.Value == value {
			return true
		}
	}
	return false
}

func (c *eventCollector) hasBinaryEvent(id string, value bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.events {
		if ev, ok := e.(domain.BinarySensorUpdateEvent); ok && ev.Id == id && ev.Value == value {
			return true
		}
	}
	return false
}

func (c *eventCollector) hasSwitchEvent(id string, value bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.events {
		if ev, ok := e.(domain.SwitchSensorUpdateEvent); ok && ev.Id == id && ev.Value == value {
			return true
		}
	}
	return false
}

func (c *eventCollector) hasInputNumberEvent(id string, value float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.events {
		if ev, ok := e.(domain.InputNumberSensorUpdateEvent); ok && ev.Id == id && ev.Value == value {
			return true
		}
	}
	return false
}
