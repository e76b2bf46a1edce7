package serialcomm

import (
	"bytes"
	"encoding/binary"

	"github.com/sigurn/crc16"
)

const (
	lengthPrefixSize = 4
	crcSize          = 2
)

var crcTable = crc16.MakeTable(crc16.CRC16_MODBUS)

func calculateCRC16(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}

// frame wraps payload for the given framing
func frame(payload []byte, framing Framing) []byte {
	if framing != FramingCRC16 {
		return payload
	}

	buf := bytes.NewBuffer(make([]byte, 0, lengthPrefixSize+len(payload)+crcSize))
	_ = binary.Write(buf, binary.BigEndian, uint32(len(payload)))
	buf.Write(payload)
	_ = binary.Write(buf, binary.BigEndian, calculateCRC16(payload))

	return buf.Bytes()
}
