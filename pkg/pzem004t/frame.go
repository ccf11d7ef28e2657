package pzem004t

import "encoding/binary"

// Measurement response layout, offsets relative to the frame start:
//
//	[0]     device address
//	[1]     function code
//	[2]     byte count (0x14)
//	[3:5]   voltage, 0.1 V
//	[5:9]   current, 0.001 A (low word first)
//	[9:13]  power, 0.1 W (low word first)
//	[13:17] energy, 1 Wh (low word first)
//	[17:19] frequency, 0.1 Hz
//	[19:21] power factor, 0.01
//	[21:23] alarm flag
//	[23:25] crc
//
// The 32-bit quantities arrive as two big-endian 16-bit words with the low
// word first; this mixed endianness is the sensor's register layout.

// buildRequest assembles [address][function][payload...] and appends the
// CRC16 of those bytes, low byte first on the wire.
func buildRequest(address uint8, function uint8, payload []byte) []byte {
	frame := make([]byte, 0, len(payload)+4)
	frame = append(frame, address, function)
	frame = append(frame, payload...)
	frame = append(frame, 0x00, 0x00)
	writeCRC(frame)
	return frame
}

func writeCRC(frame []byte) {
	crc := crc16(frame[:len(frame)-2])
	frame[len(frame)-2] = byte(crc)
	frame[len(frame)-1] = byte(crc >> 8)
}

// checkCRC recomputes the CRC16 over every byte but the trailing two and
// compares it against the embedded value.
func checkCRC(frame []byte) bool {
	if len(frame) < 4 {
		return false
	}
	crc := crc16(frame[:len(frame)-2])
	return frame[len(frame)-2] == byte(crc) && frame[len(frame)-1] == byte(crc>>8)
}

func decodeU16(frame []byte, offset int) uint16 {
	return binary.BigEndian.Uint16(frame[offset : offset+2])
}

func decodeU32LowFirst(frame []byte, offset int) uint32 {
	low := binary.BigEndian.Uint16(frame[offset : offset+2])
	high := binary.BigEndian.Uint16(frame[offset+2 : offset+4])
	return uint32(high)<<16 | uint32(low)
}

func decodeMeasurement(resp []byte) Measurement {
	return Measurement{
		Voltage: float64(decodeU16(resp, 3)) / 10,
		Current: float64(decodeU32LowFirst(resp, 5)) / 1000,
		// TODO: confirm the power divisor against a live meter; vendor docs
		// disagree on 0.1 W vs 1 W resolution.
		Power:       float64(decodeU32LowFirst(resp, 9)) / 10,
		Energy:      float64(decodeU32LowFirst(resp, 13)) / 1000,
		Frequency:   float64(decodeU16(resp, 17)) / 10,
		PowerFactor: float64(decodeU16(resp, 19)) / 100,
		Alarm:       decodeU16(resp, 21) != 0,
	}
}
