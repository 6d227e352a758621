// Package network receives LiDAR sample packets, either live over UDP or
// replayed from a pcap capture.
package network

import (
	"sync/atomic"
	"time"

	"github.com/banshee-data/sensor.fusion/internal/sensor/lidar"
)

// Handler receives each decoded packet together with its receive (or
// capture) time. It is called from the reader goroutine; it must not retain
// the slice.
type Handler func(samples []lidar.Sample, at time.Time)

// Stats counts packets seen by a reader.
type Stats struct {
	Packets atomic.Uint64
	Bytes   atomic.Uint64
	Samples atomic.Uint64
	Errors  atomic.Uint64
}

func (s *Stats) record(payload []byte, samples int) {
	s.Packets.Add(1)
	s.Bytes.Add(uint64(len(payload)))
	s.Samples.Add(uint64(samples))
}

// dispatch decodes payload and forwards it to h, counting malformed packets
// instead of failing the reader.
func dispatch(stats *Stats, payload []byte, at time.Time, h Handler) {
	samples, err := lidar.DecodePacket(payload)
	if err != nil {
		stats.Errors.Add(1)
		diagf("dropping malformed packet: %v", err)
		return
	}
	stats.record(payload, len(samples))
	tracef("packet: %d bytes, %d samples", len(payload), len(samples))
	if h != nil {
		h(samples, at)
	}
}
