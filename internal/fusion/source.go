package fusion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/banshee-data/sensor.fusion/internal/sensor/auxiliary"
	"github.com/banshee-data/sensor.fusion/internal/sensor/camera"
	"github.com/banshee-data/sensor.fusion/internal/sensor/lidar"
)

// maxPendingLidar bounds the samples held between ticks.
const maxPendingLidar = 1 << 16

// LidarCollector buffers samples from a network reader until the next tick
// drains them. Its Handle method satisfies network.Handler.
type LidarCollector struct {
	mu       sync.Mutex
	pending  []lidar.Sample
	overflow uint64
}

// Handle appends samples, dropping any beyond the pending cap.
func (c *LidarCollector) Handle(samples []lidar.Sample, _ time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	room := maxPendingLidar - len(c.pending)
	if len(samples) > room {
		c.overflow += uint64(len(samples) - room)
		samples = samples[:max(room, 0)]
	}
	c.pending = append(c.pending, samples...)
}

// Drain returns and clears the pending samples.
func (c *LidarCollector) Drain() []lidar.Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.pending
	c.pending = nil
	return out
}

// Overflow reports how many samples were dropped for lack of room.
func (c *LidarCollector) Overflow() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.overflow
}

// ImageReplay feeds still images to the camera channels, one full frame per
// channel per tick. Channel c on tick k gets image (k*NumCameras + c) mod n.
type ImageReplay struct {
	paths []string
	loop  bool
	tick  int
}

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true, ".tif": true, ".tiff": true}

// NewImageReplay lists the images in dir in name order. With loop unset the
// replay is exhausted after every image has been shown once.
func NewImageReplay(dir string, loop bool) (*ImageReplay, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read image directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no images found in %s", dir)
	}
	sort.Strings(paths)
	return &ImageReplay{paths: paths, loop: loop}, nil
}

// Len is the number of images in the replay.
func (r *ImageReplay) Len() int { return len(r.paths) }

// Next decodes the images for the next tick.
func (r *ImageReplay) Next() ([NumCameras][]camera.PixelSample, error) {
	var out [NumCameras][]camera.PixelSample
	first := r.tick * NumCameras
	if !r.loop && first >= len(r.paths) {
		return out, ErrSourceExhausted
	}
	r.tick++
	for c := range out {
		path := r.paths[(first+c)%len(r.paths)]
		samples, err := camera.OpenSamples(c, path)
		if err != nil {
			return out, err
		}
		out[c] = samples
	}
	return out, nil
}

// SensorSource assembles a Batch from whichever inputs are configured.
// Any nil field contributes nothing.
type SensorSource struct {
	Images *ImageReplay
	Lidar  *LidarCollector
	Aux    *auxiliary.Latch
}

// Next implements Source.
func (s *SensorSource) Next(ctx context.Context) (Batch, error) {
	var b Batch
	if err := ctx.Err(); err != nil {
		return b, err
	}
	if s.Images != nil {
		pixels, err := s.Images.Next()
		if err != nil {
			return b, err
		}
		b.Pixels = pixels
	}
	if s.Lidar != nil {
		b.Lidar = s.Lidar.Drain()
	}
	if s.Aux != nil {
		snap := s.Aux.Snapshot()
		b.Radar = snap.Radar
		b.IMU = snap.IMU
	}
	return b, nil
}
