package actor

import (
	"testing"
	"time"

	"github.com/berfenger/pzem2mqtt/internal/core/domain"
	"github.com/berfenger/pzem2mqtt/internal/util/actorutil"
	"github.com/berfenger/pzem2mqtt/pkg/pzem004t"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestGetMeterInfoMeterActor(t *testing.T) {

	assert := assert.New(t)

	meter, err := pzem004t.CreateTestMeter()
	if err != nil {
		t.Error(err)
		return
	}

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewMeterActor(meter, 500*time.Millisecond, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	msg := domain.GetMeterInfoRequest{}
	result, err := context.RequestFuture(pid, msg, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.GetMeterInfoResponse)

	assert.False(resp.HasResponseError(), "no response error")
	assert.Equal(resp.Meter.Address, uint8(0x01), "meter address")
	assert.Equal(resp.Meter.AlarmThresholdWatt, uint16(2300), "alarm threshold")

	context.Stop(pid)

	as.Shutdown()
}

func TestGetMeasurementsMeterActor(t *testing.T) {

	assert := assert.New(t)

	meter, err := pzem004t.CreateTestMeter()
	if err != nil {
		t.Error(err)
		return
	}

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewMeterActor(meter, 500*time.Millisecond, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	msg := domain.GetMeasurementsRequest{}

	result, err := context.RequestFuture(pid, msg, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.GetMeasurementsResponse)

	assert.False(resp.HasResponseError(), "no response error")
	assert.Equal(resp.Measurement.Voltage, 231.2, "voltage")
	assert.Equal(resp.Measurement.Current, 0.5, "current")
	assert.Equal(resp.Measurement.Power, 115.7, "power")
	assert.True(resp.Measurement.Energy > 0, "energy bounds")
	assert.Equal(resp.Measurement.Frequency, 49.9, "frequency")
	assert.Equal(resp.Measurement.PowerFactor, 0.98, "power factor")
	assert.False(resp.Measurement.Alarm, "alarm")

	context.Stop(pid)

	as.Shutdown()
}

func TestResetEnergyMeterActor(t *testing.T) {

	assert := assert.New(t)

	meter, err := pzem004t.CreateTestMeter()
	if err != nil {
		t.Error(err)
		return
	}

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewMeterActor(meter, 500*time.Millisecond, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	result, err := context.RequestFuture(pid, domain.ResetEnergyRequest{}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.ResetEnergyResponse)

	assert.False(resp.HasResponseError(), "no response error")

	result, err = context.RequestFuture(pid, domain.GetMeasurementsRequest{}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	mResp := result.(domain.GetMeasurementsResponse)

	assert.Equal(mResp.Measurement.Energy, float64(0), "energy after reset")

	context.Stop(pid)

	as.Shutdown()
}

func TestSetAlarmThresholdMeterActor(t *testing.T) {

	assert := assert.New(t)

	meter, err := pzem004t.CreateTestMeter()
	if err != nil {
		t.Error(err)
		return
	}

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewMeterActor(meter, 500*time.Millisecond, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	result, err := context.RequestFuture(pid, domain.SetAlarmThresholdRequest{ThresholdWatt: 4600}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.SetAlarmThresholdResponse)

	assert.False(resp.HasResponseError(), "no response error")
	assert.Equal(resp.ThresholdWatt, uint16(4600), "threshold echo")

	result, err = context.RequestFuture(pid, domain.GetAlarmThresholdRequest{}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	gResp := result.(domain.GetAlarmThresholdResponse)

	assert.Equal(gResp.ThresholdWatt, uint16(4600), "threshold readback")

	context.Stop(pid)

	as.Shutdown()
}
