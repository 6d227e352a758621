package lidar

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// SampleSize is the encoded size of one sample: u32 distance, u16 angle,
// u16 elevation, u8 flags, all little-endian.
const SampleSize = 9

const flagValid = 0x01

// ErrPacketLength is returned when a packet is not a whole number of samples.
var ErrPacketLength = errors.New("lidar packet length is not a multiple of the sample size")

// DecodePacket parses a UDP payload into samples.
func DecodePacket(payload []byte) ([]Sample, error) {
	if len(payload)%SampleSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrPacketLength, len(payload))
	}
	samples := make([]Sample, 0, len(payload)/SampleSize)
	for off := 0; off < len(payload); off += SampleSize {
		b := payload[off : off+SampleSize]
		samples = append(samples, Sample{
			Distance:  binary.LittleEndian.Uint32(b[0:4]),
			Angle:     binary.LittleEndian.Uint16(b[4:6]),
			Elevation: binary.LittleEndian.Uint16(b[6:8]),
			Valid:     b[8]&flagValid != 0,
		})
	}
	return samples, nil
}

// EncodePacket is the inverse of DecodePacket.
func EncodePacket(samples []Sample) []byte {
	out := make([]byte, len(samples)*SampleSize)
	for i, s := range samples {
		b := out[i*SampleSize : (i+1)*SampleSize]
		binary.LittleEndian.PutUint32(b[0:4], s.Distance)
		binary.LittleEndian.PutUint16(b[4:6], s.Angle)
		binary.LittleEndian.PutUint16(b[6:8], s.Elevation)
		if s.Valid {
			b[8] = flagValid
		}
	}
	return out
}
