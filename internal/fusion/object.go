package fusion

import (
	"time"

	"github.com/banshee-data/sensor.fusion/internal/fixedpoint"
	"github.com/banshee-data/sensor.fusion/internal/sensor"
	"github.com/banshee-data/sensor.fusion/internal/sensor/auxiliary"
	"github.com/banshee-data/sensor.fusion/internal/tracking"
)

// NumCameras is the fixed number of camera channels.
const NumCameras = 4

// FusedObject is the emitted view of one active track. Velocity packs vx in
// the high 16 bits and vy in the low 16 bits.
type FusedObject struct {
	X        int32        `json:"x"`
	Y        int32        `json:"y"`
	Velocity int32        `json:"velocity"`
	Class    sensor.Class `json:"class"`
	TrackID  string       `json:"track_id"`
}

// Unpack splits Velocity into sign-extended components.
func (o FusedObject) Unpack() (vx, vy int32) {
	return fixedpoint.UnpackVelocity(o.Velocity)
}

func objectFromTrack(t tracking.Track) FusedObject {
	return FusedObject{
		X:        t.X,
		Y:        t.Y,
		Velocity: fixedpoint.PackVelocity(t.VX, t.VY),
		Class:    sensor.ClassVehicle,
		TrackID:  t.ID,
	}
}

// Result is the output of one tick.
type Result struct {
	Seq        uint64        `json:"seq"`
	Generation uint64        `json:"generation"`
	At         time.Time     `json:"at"`
	Objects    []FusedObject `json:"objects"`
	Count      int           `json:"count"`
	Valid      bool          `json:"valid"`

	// Discarded is set when a reset overtook the tick and its candidates
	// were thrown away.
	Discarded bool `json:"discarded,omitempty"`

	Report          tracking.Report `json:"report"`
	CameraTruncated int             `json:"camera_truncated"`
}

// TickInput is everything the orchestrator consumes in one tick.
type TickInput struct {
	Camera [NumCameras][]sensor.Candidate
	Lidar  [tracking.LidarSlots]sensor.Candidate
	Radar  auxiliary.RadarSample
	IMU    auxiliary.IMUSample
}
