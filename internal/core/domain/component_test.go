package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeterSensors(t *testing.T) {

	assert := assert.New(t)

	device := MeterDevice("pzem2mqtt", &MeterInfo{Address: 0x01, AlarmThresholdWatt: 2300})
	sensors := MeterSensors(device)

	assert.Len(sensors, 7)

	ids := make([]string, 0, len(sensors))
	for _, s := range sensors {
		ids = append(ids, s.Id)
		assert.Equal(device.Id, s.Device.Id)
		assert.Equal(uniqueId(device.Id, s.Id), s.UniqueId)
	}
	assert.Equal([]string{
		SENSOR_ID_METER_VOLTAGE,
		SENSOR_ID_METER_CURRENT,
		SENSOR_ID_METER_POWER,
		SENSOR_ID_METER_ENERGY,
		SENSOR_ID_METER_FREQUENCY,
		SENSOR_ID_METER_POWER_FACTOR,
		SENSOR_ID_METER_ALARM,
	}, ids)

	voltage := sensors[0]
	assert.Equal(SENSOR_TYPE_SENSOR, voltage.SensorType)
	assert.Equal(DEVICE_CLASS_VOLTAGE, voltage.DeviceClass)
	assert.Equal("V", voltage.UnitOfMeasurement)

	// the energy counter accumulates, the rest are point measurements
	energy := sensors[3]
	assert.Equal(STATE_CLASS_TOTAL_INCREASING, energy.StateClass)

	// frequency and power factor are noise for most users
	frequency := sensors[4]
	assert.NotNil(frequency.EnabledByDefault)
	assert.False(*frequency.EnabledByDefault)

	alarm := sensors[6]
	assert.Equal(SENSOR_TYPE_BINARY, alarm.SensorType)
	assert.Equal(DEVICE_CLASS_PROBLEM, alarm.DeviceClass)
}

func TestBridgeSensors(t *testing.T) {

	assert := assert.New(t)

	device := BridgeDevice("pzem2mqtt")
	sensors := BridgeSensors(device)

	assert.Len(sensors, 1)
	assert.Equal(SENSOR_ID_BRIDGE_STATE, sensors[0].Id)
	assert.Equal(SENSOR_TYPE_BINARY, sensors[0].SensorType)
	assert.Equal(DEVICE_CLASS_CONNECTIVITY, sensors[0].DeviceClass)
	assert.Equal(ENTITY_CLASS_DIAGNOSTIC, sensors[0].EntityCategory)
}

func TestMeterControls(t *testing.T) {

	assert := assert.New(t)

	info := &MeterInfo{Address: 0x07, AlarmThresholdWatt: 4600}
	device := MeterDevice("pzem2mqtt", info)

	switches := MeterSwitches(device)
	assert.Len(switches, 1)
	assert.Equal(SWITCH_ID_ENERGY_RESET, switches[0].Id)

	numbers := MeterInputNumbers(device, info)
	assert.Len(numbers, 1)
	threshold := numbers[0]
	assert.Equal(INPUT_NUMBER_ID_ALARM_THRESHOLD, threshold.Id)
	assert.Equal(float64(0), threshold.Min)
	assert.Equal(float64(25000), threshold.Max)
	assert.Equal(float64(1), threshold.Step)
	assert.Equal(INPUT_NUMBER_MODE_BOX, threshold.Mode)
	assert.Equal(float64(4600), threshold.InitialValue)
}

func TestDeviceIdentity(t *testing.T) {

	assert := assert.New(t)

	// ids are stable for a base topic and distinct across topics
	assert.Equal(BridgeDevice("pzem2mqtt").Id, BridgeDevice("pzem2mqtt").Id)
	assert.NotEqual(BridgeDevice("pzem2mqtt").Id, BridgeDevice("other").Id)

	// meters on the same bus differ by address
	a := MeterDevice("pzem2mqtt", &MeterInfo{Address: 0x01})
	b := MeterDevice("pzem2mqtt", &MeterInfo{Address: 0x02})
	assert.NotEqual(a.Id, b.Id)

	// IdDevice keeps just enough to reference the device
	ref := IdDevice(a)
	assert.Equal(a.Id, ref.Id)
	assert.Equal(a.Name, ref.Name)
	assert.Empty(ref.Manufacturer)
	assert.Empty(ref.Model)
}

func TestHashHelpers(t *testing.T) {

	assert := assert.New(t)

	assert.Len(md5HashShort("pzem2mqtt"), 8)
	assert.Equal(md5HashShort("pzem2mqtt"), md5HashShort("pzem2mqtt"))
	assert.Equal("uid_dev_sensor", uniqueId("dev", "sensor"))
}
