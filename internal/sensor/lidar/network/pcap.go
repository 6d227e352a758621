package network

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/banshee-data/sensor.fusion/internal/timeutil"
)

// ReplayConfig configures paced pcap replay.
type ReplayConfig struct {
	// SpeedMultiplier scales capture time (1.0 = real-time, 2.0 = twice as
	// fast). Zero or negative means real-time.
	SpeedMultiplier float64

	// Clock paces the replay. Nil uses the wall clock.
	Clock timeutil.Clock
}

// ReadPCAPFile replays LiDAR packets from a pcap capture, passing each UDP
// payload addressed to udpPort (any port when zero) to h with its capture
// timestamp. Packets are delivered as fast as they can be read. It returns
// nil at end of file.
func ReadPCAPFile(ctx context.Context, path string, udpPort int, h Handler) (*Stats, error) {
	return readPCAP(ctx, path, udpPort, h, nil)
}

// ReadPCAPFileRealtime replays a capture like ReadPCAPFile but holds each
// packet back until its capture offset, scaled by cfg.SpeedMultiplier, has
// elapsed on cfg.Clock since the first packet was delivered.
func ReadPCAPFileRealtime(ctx context.Context, path string, udpPort int, h Handler, cfg ReplayConfig) (*Stats, error) {
	speed := cfg.SpeedMultiplier
	if speed <= 0 {
		speed = 1.0
	}
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	diagf("PCAP real-time replay of %s (speed: %.1fx)", path, speed)

	var firstCapture, replayStart time.Time
	pace := func(captureTime time.Time) error {
		if firstCapture.IsZero() {
			firstCapture = captureTime
			replayStart = clock.Now()
			return nil
		}
		offset := time.Duration(float64(captureTime.Sub(firstCapture)) / speed)
		wait := replayStart.Add(offset).Sub(clock.Now())
		if wait <= 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clock.After(wait):
			return nil
		}
	}
	return readPCAP(ctx, path, udpPort, h, pace)
}

// readPCAP walks the capture, calling pace (when set) with each matching
// packet's capture time before dispatching it.
func readPCAP(ctx context.Context, path string, udpPort int, h Handler, pace func(time.Time) error) (*Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PCAP file %s: %w", path, err)
	}
	defer f.Close()

	reader, err := pcapgo.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read PCAP header %s: %w", path, err)
	}

	stats := &Stats{}
	source := gopacket.NewPacketSource(reader, reader.LinkType())
	packets := source.Packets()
	for {
		select {
		case <-ctx.Done():
			diagf("PCAP reader stopping due to context cancellation (processed %d packets)", stats.Packets.Load())
			return stats, ctx.Err()
		case packet, ok := <-packets:
			if !ok {
				diagf("PCAP file reading complete: %d packets, %d samples", stats.Packets.Load(), stats.Samples.Load())
				return stats, nil
			}
			udpLayer := packet.Layer(layers.LayerTypeUDP)
			if udpLayer == nil {
				continue
			}
			udp, ok := udpLayer.(*layers.UDP)
			if !ok || len(udp.Payload) == 0 {
				continue
			}
			if udpPort != 0 && int(udp.DstPort) != udpPort {
				continue
			}
			captureTime := packet.Metadata().Timestamp
			if pace != nil {
				if err := pace(captureTime); err != nil {
					return stats, err
				}
			}
			dispatch(stats, udp.Payload, captureTime, h)
		}
	}
}
