package pzem004t

// crc16 computes the CRC16/MODBUS checksum of data: reflected polynomial
// 0xA001, seed 0xFFFF, no final xor.
func crc16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&0x0001 != 0 {
				crc = (crc >> 1) ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}
