package events

import (
	"testing"

	"github.com/berfenger/pzem2mqtt/internal/core/domain"
	"github.com/berfenger/pzem2mqtt/pkg/pzem004t"

	"github.com/stretchr/testify/assert"
)

func TestMeasurementToUpdateEvents(t *testing.T) {

	assert := assert.New(t)

	m := &pzem004t.Measurement{
		Voltage:     231.2,
		Current:     0.545,
		Power:       115.7,
		Energy:      12.345,
		Frequency:   49.9,
		PowerFactor: 0.98,
		Alarm:       true,
	}

	evs := MeasurementToUpdateEvents(m)
	assert.Len(evs, 7)

	floats := map[string]domain.FloatSensorUpdateEvent{}
	for _, e := range evs {
		if fe, ok := e.(domain.FloatSensorUpdateEvent); ok {
			floats[fe.SensorId()] = fe
		}
	}
	assert.Len(floats, 6)

	assert.Equal(231.2, floats[domain.SENSOR_ID_METER_VOLTAGE].Value)
	assert.Equal(uint(1), floats[domain.SENSOR_ID_METER_VOLTAGE].Decimals)

	assert.Equal(0.545, floats[domain.SENSOR_ID_METER_CURRENT].Value)
	assert.Equal(uint(3), floats[domain.SENSOR_ID_METER_CURRENT].Decimals)

	assert.Equal(115.7, floats[domain.SENSOR_ID_METER_POWER].Value)
	assert.Equal(uint(1), floats[domain.SENSOR_ID_METER_POWER].Decimals)

	assert.Equal(12.345, floats[domain.SENSOR_ID_METER_ENERGY].Value)
	assert.Equal(uint(3), floats[domain.SENSOR_ID_METER_ENERGY].Decimals)

	assert.Equal(49.9, floats[domain.SENSOR_ID_METER_FREQUENCY].Value)
	assert.Equal(uint(1), floats[domain.SENSOR_ID_METER_FREQUENCY].Decimals)

	assert.Equal(0.98, floats[domain.SENSOR_ID_METER_POWER_FACTOR].Value)
	assert.Equal(uint(2), floats[domain.SENSOR_ID_METER_POWER_FACTOR].Decimals)

	// live readings are not retained
	assert.False(floats[domain.SENSOR_ID_METER_VOLTAGE].Retained())

	alarm, ok := evs[6].(domain.BinarySensorUpdateEvent)
	assert.True(ok)
	assert.Equal(domain.SENSOR_ID_METER_ALARM, alarm.SensorId())
	assert.True(alarm.Value)
}

func TestAlarmThresholdUpdateEvents(t *testing.T) {

	assert := assert.New(t)

	evs := AlarmThresholdUpdateEvents(2300)
	assert.Len(evs, 1)

	ev, ok := evs[0].(domain.InputNumberSensorUpdateEvent)
	assert.True(ok)
	assert.Equal(domain.INPUT_NUMBER_ID_ALARM_THRESHOLD, ev.SensorId())
	assert.Equal(float64(2300), ev.Value)
	// the threshold must survive a broker restart
	assert.True(ev.Retained())
}

func TestEnergyResetSwitchUpdateEvents(t *testing.T) {

	assert := assert.New(t)

	ev, ok := EnergyResetSwitchUpdateEvents(true).(domain.SwitchSensorUpdateEvent)
	assert.True(ok)
	assert.Equal(domain.SWITCH_ID_ENERGY_RESET, ev.SensorId())
	assert.True(ev.Value)
	assert.True(ev.Retained())

	ev, ok = EnergyResetSwitchUpdateEvents(false).(domain.SwitchSensorUpdateEvent)
	assert.True(ok)
	assert.False(ev.Value)
}
