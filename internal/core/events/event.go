package events

import (
	. "github.com/berfenger/pzem2mqtt/internal/core/domain"

	"github.com/berfenger/pzem2mqtt/pkg/pzem004t"
)

func MeasurementToUpdateEvents(m *pzem004t.Measurement) []any {
	var events []any

	// Line voltage
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_METER_VOLTAGE,
		},
		Value:    m.Voltage,
		Decimals: 1,
	})
	// Load current
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_METER_CURRENT,
		},
		Value:    m.Current,
		Decimals: 3,
	})
	// Active power
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_METER_POWER,
		},
		Value:    m.Power,
		Decimals: 1,
	})
	// Accumulated energy
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_METER_ENERGY,
		},
		Value:    m.Energy,
		Decimals: 3,
	})
	// Line frequency
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_METER_FREQUENCY,
		},
		Value:    m.Frequency,
		Decimals: 1,
	})
	// Power factor
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_METER_POWER_FACTOR,
		},
		Value:    m.PowerFactor,
		Decimals: 2,
	})
	// Power alarm
	events = append(events, BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_METER_ALARM,
		},
		Value: m.Alarm,
	})

	return events
}

func AlarmThresholdUpdateEvents(thresholdWatt uint16) []any {
	var events []any
	events = append(events, InputNumberSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: INPUT_NUMBER_ID_ALARM_THRESHOLD,
		},
		Value: float64(thresholdWatt),
	})
	return events
}

func EnergyResetSwitchUpdateEvents(on bool) any {
	return SwitchSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SWITCH_ID_ENERGY_RESET,
		},
		Value: on,
	}
}
