package fusion

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sensor.fusion/internal/sensor"
	"github.com/banshee-data/sensor.fusion/internal/sensor/auxiliary"
	"github.com/banshee-data/sensor.fusion/internal/tracking"
)

func TestOrchestratorNoTracks(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, nil)
	assert.False(t, o.Valid(), "invalid until the first tick")
	assert.False(t, o.Last().Valid)

	var in TickInput
	in.Camera[0] = cameraCandidates(9, 100)
	in.Camera[3] = cameraCandidates(2, 5000)
	in.Radar = auxiliary.RadarSample{Range: 900, Velocity: -12, Angle: 100, Valid: true}
	in.IMU = auxiliary.IMUSample{AccelX: 40, GyroZ: -90, Valid: true}

	res := o.Tick(in)
	assert.Equal(t, 0, res.Count)
	assert.Empty(t, res.Objects)
	assert.True(t, res.Valid)
	assert.Equal(t, 1, res.CameraTruncated)
	assert.Equal(t, uint64(1), res.Seq)
}

func TestOrchestratorSingleLidarTrack(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, nil)
	res := o.Tick(TickInput{
		Lidar: lidarSlots([2]int32{100, 200}),
		Radar: auxiliary.RadarSample{Range: 100, Velocity: -40, Angle: 0, Valid: true},
	})

	require.Equal(t, 1, res.Count)
	obj := res.Objects[0]
	assert.Equal(t, int32(80), obj.X)
	assert.Equal(t, int32(160), obj.Y)
	assert.Equal(t, sensor.ClassVehicle, obj.Class)
	assert.NotEmpty(t, obj.TrackID)

	vx, vy := obj.Unpack()
	assert.Equal(t, int32(-20), vx)
	assert.Zero(t, vy)
	assert.Equal(t, int32(-20)<<16, obj.Velocity)
}

func TestOrchestratorCountMatchesActive(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, nil)
	inputs := []TickInput{
		{Lidar: lidarSlots([2]int32{10, 10})},
		{Lidar: lidarSlots([2]int32{10, 10}, [2]int32{50, 50}, [2]int32{90, 90})},
		{},
		{Lidar: lidarSlots([2]int32{10, 10})},
	}
	for i, in := range inputs {
		res := o.Tick(in)
		assert.Equal(t, o.Bank().ActiveCount(), res.Count, "tick %d", i)
		assert.Len(t, res.Objects, res.Count)
		assert.LessOrEqual(t, res.Count, tracking.MaxTracks)
		assert.True(t, res.Valid)
	}
}

func TestOrchestratorReset(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, nil)
	o.Tick(TickInput{Lidar: lidarSlots([2]int32{10, 10}, [2]int32{20, 20})})
	require.True(t, o.Valid())

	res := o.Reset()
	assert.False(t, res.Valid)
	assert.Zero(t, res.Count)
	assert.Equal(t, uint64(1), res.Generation)
	assert.Equal(t, 0, o.Bank().ActiveCount())
	assert.False(t, o.Valid())

	res = o.Tick(TickInput{})
	assert.True(t, res.Valid)
	assert.Zero(t, res.Count)
}

func TestOrchestratorStaleTickDiscarded(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, nil)
	gen := o.Generation()
	o.Reset()

	res := o.tickAt(gen, TickInput{Lidar: lidarSlots([2]int32{10, 10})})
	assert.True(t, res.Discarded)
	assert.False(t, res.Valid)
	assert.Zero(t, res.Count)
	assert.Equal(t, 0, o.Bank().ActiveCount())
}

func TestOrchestratorConcurrentReset(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, nil)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			res := o.Tick(TickInput{Lidar: lidarSlots([2]int32{10, 10}, [2]int32{20, 20})})
			if res.Count < 0 || res.Count > tracking.MaxTracks || res.Count != len(res.Objects) {
				t.Errorf("bad result count %d with %d objects", res.Count, len(res.Objects))
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			o.Reset()
		}
	}()
	wg.Wait()
	assert.Equal(t, uint64(50), o.Generation())
}
