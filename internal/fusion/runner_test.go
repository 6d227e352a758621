package fusion

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sensor.fusion/internal/sensor/auxiliary"
	"github.com/banshee-data/sensor.fusion/internal/sensor/lidar"
	"github.com/banshee-data/sensor.fusion/internal/timeutil"
)

type scriptedSource struct {
	mu      sync.Mutex
	batches []Batch
	errs    []error
	calls   int
}

func (s *scriptedSource) Next(ctx context.Context) (Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return Batch{}, s.errs[i]
	}
	if i >= len(s.batches) {
		return Batch{}, ErrSourceExhausted
	}
	return s.batches[i], nil
}

type recordingSink struct {
	mu      sync.Mutex
	results []Result
	err     error
}

func (s *recordingSink) Consume(_ context.Context, r Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
	return s.err
}

func (s *recordingSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// runWithClock starts r.Run and keeps advancing the clock until Run returns.
func runWithClock(t *testing.T, ctx context.Context, r *Runner, clock *timeutil.MockClock) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case err := <-done:
			return err
		case <-deadline:
			t.Fatal("runner did not stop")
			return nil
		default:
			clock.Advance(r.Interval)
			time.Sleep(time.Millisecond)
		}
	}
}

func TestRunnerMaxTicks(t *testing.T) {
	t.Parallel()

	clock := timeutil.NewMockClock(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	src := &scriptedSource{}
	for i := 0; i < 10; i++ {
		src.batches = append(src.batches, Batch{Lidar: lidarCluster(1000, 0, 1)})
	}
	sink := &recordingSink{}
	r := &Runner{
		Pipeline: newTestPipeline(t, false),
		Source:   src,
		Sinks:    []Sink{sink},
		Clock:    clock,
		Interval: 50 * time.Millisecond,
		MaxTicks: 3,
	}

	require.NoError(t, runWithClock(t, context.Background(), r, clock))
	require.Equal(t, 3, sink.len())
	for i, res := range sink.results {
		assert.Equal(t, uint64(i+1), res.Seq)
		assert.True(t, res.Valid)
		assert.Equal(t, 1, res.Count)
		assert.False(t, res.At.IsZero())
	}
}

func TestRunnerStopsWhenSourceExhausted(t *testing.T) {
	t.Parallel()

	clock := timeutil.NewMockClock(time.Unix(0, 0))
	src := &scriptedSource{batches: make([]Batch, 2)}
	sink := &recordingSink{}
	r := &Runner{Pipeline: newTestPipeline(t, false), Source: src, Sinks: []Sink{sink}, Clock: clock, Interval: time.Second}

	require.NoError(t, runWithClock(t, context.Background(), r, clock))
	assert.Equal(t, 2, sink.len())
}

func TestRunnerSurvivesSourceAndSinkErrors(t *testing.T) {
	t.Parallel()

	clock := timeutil.NewMockClock(time.Unix(0, 0))
	src := &scriptedSource{
		batches: make([]Batch, 3),
		errs:    []error{nil, errors.New("serial hiccup")},
	}
	failing := &recordingSink{err: errors.New("disk full")}
	ok := &recordingSink{}
	r := &Runner{
		Pipeline: newTestPipeline(t, false),
		Source:   src,
		Sinks:    []Sink{failing, ok},
		Clock:    clock,
		Interval: time.Second,
	}

	require.NoError(t, runWithClock(t, context.Background(), r, clock))
	assert.Equal(t, 3, ok.len(), "failed source tick still runs with empty input")
	assert.Equal(t, 3, failing.len())
}

func TestRunnerCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		Pipeline: newTestPipeline(t, false),
		Source:   &scriptedSource{},
		Clock:    timeutil.NewMockClock(time.Unix(0, 0)),
		Interval: time.Hour,
	}
	cancel()
	assert.ErrorIs(t, r.Run(ctx), context.Canceled)
}

func TestSinkFunc(t *testing.T) {
	t.Parallel()

	var got Result
	s := SinkFunc(func(_ context.Context, r Result) error {
		got = r
		return nil
	})
	require.NoError(t, s.Consume(context.Background(), Result{Seq: 9}))
	assert.Equal(t, uint64(9), got.Seq)
}

func TestLidarCollector(t *testing.T) {
	t.Parallel()

	var c LidarCollector
	c.Handle([]lidar.Sample{{Distance: 1, Valid: true}, {Distance: 2, Valid: true}}, time.Now())
	c.Handle([]lidar.Sample{{Distance: 3, Valid: true}}, time.Now())

	got := c.Drain()
	require.Len(t, got, 3)
	assert.Equal(t, uint32(3), got[2].Distance)
	assert.Empty(t, c.Drain())

	c.Handle(make([]lidar.Sample, maxPendingLidar+5), time.Now())
	assert.Equal(t, uint64(5), c.Overflow())
	assert.Len(t, c.Drain(), maxPendingLidar)
}

func writePNG(t *testing.T, path string, shade uint8) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = shade
	}
	img.SetGray(32, 32, color.Gray{Y: 255 - shade})
	require.NoError(t, imaging.Save(img, path))
}

func TestSensorSourceWithImages(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for i, name := range []string{"b.png", "a.png", "c.png"} {
		writePNG(t, filepath.Join(dir, name), uint8(10*i))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	replay, err := NewImageReplay(dir, false)
	require.NoError(t, err)
	assert.Equal(t, 3, replay.Len())

	var latch auxiliary.Latch
	latch.UpdateIMU(auxiliary.IMUSample{GyroZ: 5, Valid: true}, time.Now())
	collector := &LidarCollector{}
	collector.Handle([]lidar.Sample{{Distance: 10, Valid: true}}, time.Now())

	src := &SensorSource{Images: replay, Lidar: collector, Aux: &latch}
	b, err := src.Next(context.Background())
	require.NoError(t, err)
	for c := range b.Pixels {
		require.Len(t, b.Pixels[c], 1024*1024, "channel %d", c)
		assert.Equal(t, c, b.Pixels[c][0].Channel)
	}
	assert.Len(t, b.Lidar, 1)
	assert.Equal(t, int16(5), b.IMU.GyroZ)
	assert.False(t, b.Radar.Valid)

	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, ErrSourceExhausted, "four channels consume three images in one tick")
}

func TestNewImageReplayEmptyDir(t *testing.T) {
	t.Parallel()

	_, err := NewImageReplay(t.TempDir(), true)
	assert.Error(t, err)
}
