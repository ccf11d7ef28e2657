package pzem004t

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildRequest(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(
		[]byte{0xF8, 0x04, 0x00, 0x00, 0x00, 0x0A, 0x64, 0x64},
		buildRequest(0xF8, cmdReadMeasurements, []byte{0x00, 0x00, 0x00, 0x0A}))

	assert.Equal(
		[]byte{0x01, 0x04, 0x00, 0x00, 0x00, 0x0A, 0x70, 0x0D},
		buildRequest(0x01, cmdReadMeasurements, []byte{0x00, 0x00, 0x00, 0x0A}))

	assert.Equal(
		[]byte{0xF8, 0x03, 0x00, 0x01, 0x00, 0x01, 0xC1, 0xA3},
		buildRequest(0xF8, cmdReadParam, []byte{0x00, 0x01, 0x00, 0x01}))

	assert.Equal(
		[]byte{0xF8, 0x42, 0xC2, 0x41},
		buildRequest(0xF8, cmdResetEnergy, nil))
}

func TestDecodeU16(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(uint16(0x0908), decodeU16([]byte{0xF8, 0x04, 0x14, 0x09, 0x08}, 3))
}

func TestDecodeU32LowFirst(t *testing.T) {
	assert := assert.New(t)

	// low word on the wire first, high word after
	assert.Equal(uint32(0x0001002A), decodeU32LowFirst([]byte{0x00, 0x2A, 0x00, 0x01}, 0))
}

func measurementResponse() []byte {
	return []byte{
		0xF8, 0x04, 0x14,
		0x09, 0x08, // voltage 231.2 V
		0x01, 0xF4, 0x00, 0x00, // current 0.5 A
		0x04, 0x85, 0x00, 0x00, // power 115.7 W
		0x00, 0x2A, 0x00, 0x01, // energy 65.578 kWh
		0x01, 0xF3, // frequency 49.9 Hz
		0x00, 0x62, // power factor 0.98
		0x00, 0x00, // alarm clear
		0xF8, 0xB7,
	}
}

func TestDecodeMeasurement(t *testing.T) {
	assert := assert.New(t)

	m := decodeMeasurement(measurementResponse())

	assert.Equal(231.2, m.Voltage)
	assert.Equal(0.5, m.Current)
	assert.Equal(115.7, m.Power)
	assert.Equal(65.578, m.Energy)
	assert.Equal(49.9, m.Frequency)
	assert.Equal(0.98, m.PowerFactor)
	assert.False(m.Alarm)
}

func TestDecodeMeasurementAlarmSet(t *testing.T) {
	assert := assert.New(t)

	resp := measurementResponse()
	resp[21] = 0xFF
	resp[22] = 0xFF
	resp[23] = 0xF9
	resp[24] = 0x07

	assert.True(checkCRC(resp))
	assert.True(decodeMeasurement(resp).Alarm)
}
