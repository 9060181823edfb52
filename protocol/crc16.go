package protocol

// CRC16 is the CCITT variant used by the Klipper/Anchor framing; trace lines
// reuse it so the host can reject lines garbled on the UART.
func CRC16(data []byte) uint16 {
	return UpdateCRC16(0xFFFF, data)
}

// UpdateCRC16 folds data into a running checksum.
func UpdateCRC16(crc uint16, data []byte) uint16 {
	for _, b := range data {
		b = b ^ uint8(crc&0xFF)
		b = b ^ (b << 4)
		b16 := uint16(b)
		crc = (b16<<8 | crc>>8) ^ (b16 >> 4) ^ (b16 << 3)
	}
	return crc
}
