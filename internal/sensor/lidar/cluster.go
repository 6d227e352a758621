package lidar

import (
	"github.com/banshee-data/sensor.fusion/internal/sensor"
)

// Default bucket widths.
const (
	DefaultDistanceBucket = 64
	DefaultAngleBucket    = 1024 // 1/64 of a turn
)

type bucketKey struct {
	distance uint32
	angle    uint16
}

type bucket struct {
	key        bucketKey
	sumX, sumY int64
	n          int64
}

// Output is what the LiDAR channel contributes to a tick.
type Output struct {
	Slots       [sensor.MaxCandidates]sensor.Candidate
	Count       int // non-sentinel slots, always packed at the front
	Samples     int // valid samples accepted this tick
	Invalid     int // samples with the valid bit clear
	Dropped     int // samples whose bucket did not fit in the slots
	ZeroDropped int // buckets whose centroid landed on the sentinel (0,0)
}

// Clusterer groups the tick's samples by (distance, angle) bucket. Buckets
// are numbered in first-seen order, so the output is a deterministic
// function of the sample sequence.
type Clusterer struct {
	DistanceBucket uint32
	AngleBucket    uint16
	UseElevation   bool

	buckets []bucket
	out     Output
}

// NewClusterer returns a Clusterer; zero widths select the defaults.
func NewClusterer(distanceBucket, angleBucket int, useElevation bool) *Clusterer {
	if distanceBucket <= 0 {
		distanceBucket = DefaultDistanceBucket
	}
	if angleBucket <= 0 || angleBucket > AngleUnitsPerTurn-1 {
		angleBucket = DefaultAngleBucket
	}
	return &Clusterer{
		DistanceBucket: uint32(distanceBucket),
		AngleBucket:    uint16(angleBucket),
		UseElevation:   useElevation,
		buckets:        make([]bucket, 0, sensor.MaxCandidates),
	}
}

// Add accumulates one sample. It reports whether the sample was assigned to
// a bucket.
func (c *Clusterer) Add(s Sample) bool {
	if !s.Valid {
		c.out.Invalid++
		return false
	}
	key := bucketKey{distance: s.Distance / c.DistanceBucket, angle: s.Angle / c.AngleBucket}
	idx := -1
	for i := range c.buckets {
		if c.buckets[i].key == key {
			idx = i
			break
		}
	}
	if idx < 0 {
		if len(c.buckets) == sensor.MaxCandidates {
			c.out.Dropped++
			return false
		}
		c.buckets = append(c.buckets, bucket{key: key})
		idx = len(c.buckets) - 1
	}

	x, y := s.Project(c.UseElevation)
	b := &c.buckets[idx]
	b.sumX += int64(x)
	b.sumY += int64(y)
	b.n++
	c.out.Samples++
	return true
}

// AddAll accumulates every sample in order.
func (c *Clusterer) AddAll(samples []Sample) {
	for _, s := range samples {
		c.Add(s)
	}
}

// Flush emits the tick's candidates and clears the clusterer for the next
// tick.
func (c *Clusterer) Flush() Output {
	out := c.out
	for _, b := range c.buckets {
		cand := sensor.Candidate{
			X:        int32(b.sumX / b.n),
			Y:        int32(b.sumY / b.n),
			Class:    sensor.ClassVehicle,
			Modality: sensor.ModalityLidar,
		}
		if cand.X == 0 && cand.Y == 0 {
			out.ZeroDropped++
			continue
		}
		out.Slots[out.Count] = cand
		out.Count++
	}
	c.Reset()
	return out
}

// Process is AddAll followed by Flush.
func (c *Clusterer) Process(samples []Sample) Output {
	c.AddAll(samples)
	return c.Flush()
}

// Reset discards any samples accumulated since the last Flush.
func (c *Clusterer) Reset() {
	c.buckets = c.buckets[:0]
	c.out = Output{}
}

// SlotsFromPositions builds a slot array from explicit positions, leaving
// the remaining slots as sentinels. Positions past the cap are ignored.
func SlotsFromPositions(positions ...[2]int32) [sensor.MaxCandidates]sensor.Candidate {
	var slots [sensor.MaxCandidates]sensor.Candidate
	for i, p := range positions {
		if i == sensor.MaxCandidates {
			break
		}
		slots[i] = sensor.Candidate{X: p[0], Y: p[1], Class: sensor.ClassVehicle, Modality: sensor.ModalityLidar}
	}
	return slots
}
