// Package auxiliary holds the radar and IMU readings that feed the tracker as
// correction and noise-bias inputs. Neither sensor produces candidates.
package auxiliary

import "math"

// RadarSample is one radar return: range and radial velocity along a binary
// angle (65536 units per turn).
type RadarSample struct {
	Range    uint32
	Velocity int16
	Angle    uint16
	Valid    bool
}

// IMUSample is one inertial reading, raw sensor counts.
type IMUSample struct {
	AccelX, AccelY, AccelZ int16
	GyroX, GyroY, GyroZ    int16
	Valid                  bool
}

func radians(a uint16) float64 {
	return float64(a) * 2 * math.Pi / (1 << 16)
}

// Target is the ground-plane position of the radar return.
func (r RadarSample) Target() (x, y int32) {
	theta := radians(r.Angle)
	d := float64(r.Range)
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

// VelocityComponents resolves the radial velocity along the return's angle.
func (r RadarSample) VelocityComponents() (vx, vy int32) {
	theta := radians(r.Angle)
	v := float64(r.Velocity)
	return int32(math.Round(v * math.Cos(theta))), int32(math.Round(v * math.Sin(theta)))
}

func abs16(v int16) int32 {
	if v < 0 {
		return -int32(v)
	}
	return int32(v)
}

// NoiseBias is the extra process noise contributed by vehicle motion:
// (|gz| + |ax| + |ay|) >> shift. An invalid sample contributes nothing.
func (s IMUSample) NoiseBias(shift uint) int32 {
	if !s.Valid {
		return 0
	}
	return (abs16(s.GyroZ) + abs16(s.AccelX) + abs16(s.AccelY)) >> shift
}
