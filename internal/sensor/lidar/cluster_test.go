package lidar

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sensor.fusion/internal/sensor"
)

func TestProject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		sample Sample
		x, y   int32
	}{
		{"ahead", Sample{Distance: 1000, Angle: 0}, 1000, 0},
		{"left", Sample{Distance: 1000, Angle: AngleUnitsPerTurn / 4}, 0, 1000},
		{"behind", Sample{Distance: 1000, Angle: AngleUnitsPerTurn / 2}, -1000, 0},
		{"diagonal", Sample{Distance: 1000, Angle: AngleUnitsPerTurn / 8}, 707, 707},
		{"saturates", Sample{Distance: math.MaxUint32, Angle: 0}, math.MaxInt32, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := tt.sample.Project(false)
			assert.Equal(t, tt.x, x)
			assert.Equal(t, tt.y, y)
		})
	}
}

func TestProjectElevation(t *testing.T) {
	t.Parallel()

	// 60 degrees up halves the ground-plane range.
	s := Sample{Distance: 1000, Angle: 0, Elevation: AngleUnitsPerTurn / 6}
	x, _ := s.Project(true)
	assert.Equal(t, int32(500), x)

	x, _ = s.Project(false)
	assert.Equal(t, int32(1000), x)

	// Negative elevation is symmetric.
	below := int16(-AngleUnitsPerTurn / 6)
	down := Sample{Distance: 1000, Elevation: uint16(below)}
	x, _ = down.Project(true)
	assert.Equal(t, int32(500), x)
}

func TestClustererCentroid(t *testing.T) {
	t.Parallel()

	c := NewClusterer(DefaultDistanceBucket, DefaultAngleBucket, false)
	out := c.Process([]Sample{
		{Distance: 1000, Angle: 0, Valid: true},
		{Distance: 1010, Angle: 0, Valid: true},
		{Distance: 4000, Angle: AngleUnitsPerTurn / 4, Valid: true},
	})

	require.Equal(t, 2, out.Count)
	assert.Equal(t, sensor.Candidate{X: 1005, Y: 0, Class: sensor.ClassVehicle, Modality: sensor.ModalityLidar}, out.Slots[0])
	assert.Equal(t, int32(4000), out.Slots[1].Y)
	for i := out.Count; i < sensor.MaxCandidates; i++ {
		assert.True(t, out.Slots[i].IsSentinel(), "slot %d", i)
	}
	assert.Equal(t, 3, out.Samples)
}

func TestClustererCapsAtEight(t *testing.T) {
	t.Parallel()

	c := NewClusterer(DefaultDistanceBucket, DefaultAngleBucket, false)
	var samples []Sample
	for i := 0; i < 10; i++ {
		samples = append(samples, Sample{Distance: uint32(1000 + i*DefaultDistanceBucket), Valid: true})
	}
	out := c.Process(samples)

	assert.Equal(t, sensor.MaxCandidates, out.Count)
	assert.Equal(t, 2, out.Dropped)
	assert.Equal(t, int32(1000), out.Slots[0].X)
	assert.Equal(t, int32(1000+7*DefaultDistanceBucket), out.Slots[7].X)
}

func TestClustererSkipsInvalidAndZero(t *testing.T) {
	t.Parallel()

	c := NewClusterer(0, 0, false)
	out := c.Process([]Sample{
		{Distance: 500, Valid: false},
		{Distance: 0, Valid: true},
		{Distance: 300, Valid: true},
	})
	assert.Equal(t, 1, out.Invalid)
	assert.Equal(t, 1, out.ZeroDropped)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, int32(300), out.Slots[0].X)
}

func TestClustererFlushResets(t *testing.T) {
	t.Parallel()

	c := NewClusterer(0, 0, false)
	c.Add(Sample{Distance: 300, Valid: true})
	first := c.Flush()
	assert.Equal(t, 1, first.Count)

	second := c.Flush()
	assert.Zero(t, second.Count)
	assert.Zero(t, second.Samples)
}

func TestSlotsFromPositions(t *testing.T) {
	t.Parallel()

	slots := SlotsFromPositions([2]int32{100, 200})
	assert.Equal(t, int32(100), slots[0].X)
	assert.Equal(t, int32(200), slots[0].Y)
	assert.True(t, slots[1].IsSentinel())

	many := make([][2]int32, 12)
	for i := range many {
		many[i] = [2]int32{int32(i + 1), 0}
	}
	slots = SlotsFromPositions(many...)
	assert.Equal(t, int32(8), slots[7].X)
}

func TestCodec(t *testing.T) {
	t.Parallel()

	in := []Sample{
		{Distance: 123456, Angle: 40000, Elevation: 65000, Valid: true},
		{Distance: 7, Angle: 1, Elevation: 2},
	}
	payload := EncodePacket(in)
	require.Len(t, payload, 2*SampleSize)

	out, err := DecodePacket(payload)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = DecodePacket(payload[:SampleSize+3])
	assert.ErrorIs(t, err, ErrPacketLength)
}
