package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/carlmjohnson/versioninfo"
)

type Device struct {
	Id           string
	Name         string
	Version      string
	Model        string
	Manufacturer string
	ViaDevice    string
}

type GenericSensor struct {
	Device            Device
	Id                string
	SensorType        string
	Name              string
	UniqueId          string
	UnitOfMeasurement string
	StateClass        string // measurement, duration, total_increasing (for acc energy)
	DeviceClass       string // voltage, current, power, energy
	EntityCategory    string // diagnostic, config, nil
	EnabledByDefault  *bool
	Icon              string
}

type GenericSwitch struct {
	Device   Device
	Id       string
	Name     string
	UniqueId string
	Icon     string
}

type GenericInputNumber struct {
	Device       Device
	Id           string
	Name         string
	UniqueId     string
	Icon         string
	Max          float64
	Min          float64
	Step         float64
	Mode         string
	InitialValue float64
}

const (
	SENSOR_ID_BRIDGE_STATE          = "bridge"
	SENSOR_ID_METER_VOLTAGE         = "meter_voltage"
	SENSOR_ID_METER_CURRENT         = "meter_current"
	SENSOR_ID_METER_POWER           = "meter_power"
	SENSOR_ID_METER_ENERGY          = "meter_energy"
	SENSOR_ID_METER_FREQUENCY       = "meter_frequency"
	SENSOR_ID_METER_POWER_FACTOR    = "meter_power_factor"
	SENSOR_ID_METER_ALARM           = "meter_alarm"
	SWITCH_ID_ENERGY_RESET          = "energy_reset"
	INPUT_NUMBER_ID_ALARM_THRESHOLD = "alarm_threshold"
	STATE_CLASS_MEASUREMENT         = "measurement"
	STATE_CLASS_TOTAL_INCREASING    = "total_increasing"
	DEVICE_CLASS_CURRENT            = "current"
	DEVICE_CLASS_ENERGY             = "energy"
	DEVICE_CLASS_FREQUENCY          = "frequency"
	DEVICE_CLASS_POWER              = "power"
	DEVICE_CLASS_POWER_FACTOR       = "power_factor"
	DEVICE_CLASS_PROBLEM            = "problem"
	DEVICE_CLASS_VOLTAGE            = "voltage"
	DEVICE_CLASS_CONNECTIVITY       = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC         = "diagnostic"
	ENTITY_CLASS_CONFIG             = "config"
	SENSOR_TYPE_SENSOR              = "sensor"
	SENSOR_TYPE_BINARY              = "binary_sensor"
	INPUT_NUMBER_MODE_BOX           = "box"
	INPUT_NUMBER_MODE_SLIDER        = "slider"
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("pzem2mqtt_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "berfenger",
		Model:        "pzem2mqtt",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("pzem2mqtt %s", md5HashShort(baseTopic)),
	}
}

func MeterDevice(baseTopic string, info *MeterInfo) Device {
	return Device{
		Id:           fmt.Sprintf("pzem_meter_%s", md5HashShort(fmt.Sprintf("%s_%d", baseTopic, info.Address))),
		Manufacturer: "Peacefair",
		Model:        "PZEM-004T",
		Name:         fmt.Sprintf("PZEM-004T %02X", info.Address),
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func MeterSensors(meterDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Line voltage
	sensors = append(sensors, GenericSensor{
		Device:            meterDevice,
		Id:                SENSOR_ID_METER_VOLTAGE,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Voltage",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_VOLTAGE,
		UnitOfMeasurement: "V",
		UniqueId:          uniqueId(meterDevice.Id, SENSOR_ID_METER_VOLTAGE),
	})

	// Load current
	sensors = append(sensors, GenericSensor{
		Device:            meterDevice,
		Id:                SENSOR_ID_METER_CURRENT,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Current",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_CURRENT,
		UnitOfMeasurement: "A",
		UniqueId:          uniqueId(meterDevice.Id, SENSOR_ID_METER_CURRENT),
	})

	// Active power
	sensors = append(sensors, GenericSensor{
		Device:            meterDevice,
		Id:                SENSOR_ID_METER_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		UniqueId:          uniqueId(meterDevice.Id, SENSOR_ID_METER_POWER),
	})

	// Accumulated energy
	sensors = append(sensors, GenericSensor{
		Device:            meterDevice,
		Id:                SENSOR_ID_METER_ENERGY,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Energy",
		StateClass:        STATE_CLASS_TOTAL_INCREASING,
		DeviceClass:       DEVICE_CLASS_ENERGY,
		UnitOfMeasurement: "kWh",
		UniqueId:          uniqueId(meterDevice.Id, SENSOR_ID_METER_ENERGY),
	})

	// Line frequency
	sensors = append(sensors, GenericSensor{
		Device:            meterDevice,
		Id:                SENSOR_ID_METER_FREQUENCY,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Frequency",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_FREQUENCY,
		UnitOfMeasurement: "Hz",
		Icon:              "mdi:sine-wave",
		EnabledByDefault:  optionalBool(false),
		UniqueId:          uniqueId(meterDevice.Id, SENSOR_ID_METER_FREQUENCY),
	})

	// Power factor
	sensors = append(sensors, GenericSensor{
		Device:           meterDevice,
		Id:               SENSOR_ID_METER_POWER_FACTOR,
		SensorType:       SENSOR_TYPE_SENSOR,
		Name:             "Power factor",
		StateClass:       STATE_CLASS_MEASUREMENT,
		DeviceClass:      DEVICE_CLASS_POWER_FACTOR,
		EnabledByDefault: optionalBool(false),
		UniqueId:         uniqueId(meterDevice.Id, SENSOR_ID_METER_POWER_FACTOR),
	})

	// Power alarm
	sensors = append(sensors, GenericSensor{
		Device:      meterDevice,
		Id:          SENSOR_ID_METER_ALARM,
		SensorType:  SENSOR_TYPE_BINARY,
		Name:        "Power alarm",
		DeviceClass: DEVICE_CLASS_PROBLEM,
		Icon:        "mdi:flash-alert",
		UniqueId:    uniqueId(meterDevice.Id, SENSOR_ID_METER_ALARM),
	})

	return sensors
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Bridge connectivity
	sensors = append(sensors, GenericSensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	})

	return sensors
}

func MeterSwitches(meterDevice Device) []GenericSwitch {

	var switches []GenericSwitch

	// Energy counter reset
	switches = append(switches, GenericSwitch{
		Device:   meterDevice,
		Id:       SWITCH_ID_ENERGY_RESET,
		Name:     "Energy reset",
		UniqueId: uniqueId(meterDevice.Id, SWITCH_ID_ENERGY_RESET),
		Icon:     "mdi:restart",
	})

	return switches
}

func MeterInputNumbers(meterDevice Device, info *MeterInfo) []GenericInputNumber {

	var inputNumbers []GenericInputNumber

	// Power alarm threshold
	inputNumbers = append(inputNumbers, GenericInputNumber{
		Device:       meterDevice,
		Id:           INPUT_NUMBER_ID_ALARM_THRESHOLD,
		Name:         "Power alarm threshold",
		UniqueId:     uniqueId(meterDevice.Id, INPUT_NUMBER_ID_ALARM_THRESHOLD),
		Icon:         "mdi:flash-alert",
		Max:          25000,
		Min:          0,
		Step:         1,
		Mode:         INPUT_NUMBER_MODE_BOX,
		InitialValue: float64(info.AlarmThresholdWatt),
	})

	return inputNumbers
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}

func optionalBool(value bool) *bool {
	return &value
}
