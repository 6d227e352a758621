package lidar

import "math"

// AngleUnitsPerTurn is the resolution of the 16-bit binary angle fields.
const AngleUnitsPerTurn = 1 << 16

// Sample is one LiDAR return as delivered at the input boundary.
type Sample struct {
	Distance  uint32
	Angle     uint16 // binary angle, 0..65535 over one turn
	Elevation uint16 // binary angle, interpreted as signed (int16)
	Valid     bool
}

// Radians converts a binary angle to radians in [0, 2π).
func Radians(a uint16) float64 {
	return float64(a) * 2 * math.Pi / AngleUnitsPerTurn
}

// ElevationRadians interprets the elevation field as a signed binary angle.
func (s Sample) ElevationRadians() float64 {
	return float64(int16(s.Elevation)) * 2 * math.Pi / AngleUnitsPerTurn
}

// Project maps the sample onto the ground plane as
// x = distance*cos(angle), y = distance*sin(angle), rounded to the nearest
// integer and saturated to the int32 range. When useElevation is set the
// distance is first scaled by cos(elevation).
func (s Sample) Project(useElevation bool) (x, y int32) {
	d := float64(s.Distance)
	if useElevation {
		d *= math.Cos(s.ElevationRadians())
	}
	theta := Radians(s.Angle)
	return saturate(math.Round(d * math.Cos(theta))), saturate(math.Round(d * math.Sin(theta)))
}

func saturate(v float64) int32 {
	switch {
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	default:
		return int32(v)
	}
}
