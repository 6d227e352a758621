package sensor

import "fmt"

// MaxCandidates is the per-channel cap on candidates offered in one tick.
// Extra candidates are truncated, never queued.
const MaxCandidates = 8

// Class is the object class label carried by candidates and fused objects.
type Class uint8

const (
	ClassNone    Class = 0
	ClassVehicle Class = 1
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassVehicle:
		return "vehicle"
	default:
		return fmt.Sprintf("class(%d)", uint8(c))
	}
}

// Modality identifies which sensor produced a candidate.
type Modality uint8

const (
	ModalityUnknown Modality = iota
	ModalityCamera
	ModalityLidar
)

func (m Modality) String() string {
	switch m {
	case ModalityCamera:
		return "camera"
	case ModalityLidar:
		return "lidar"
	default:
		return "unknown"
	}
}

// Candidate is a transient detection proposal, produced and consumed within
// one tick. A candidate at position (0,0) is the "no candidate" sentinel,
// whatever its labels say.
type Candidate struct {
	X        int32
	Y        int32
	Class    Class
	Modality Modality
}

// IsSentinel reports whether c is an empty "no candidate" slot.
func (c Candidate) IsSentinel() bool {
	return c.X == 0 && c.Y == 0
}

// Truncate caps a candidate list at MaxCandidates and reports how many
// entries were dropped.
func Truncate(c []Candidate) ([]Candidate, int) {
	if len(c) <= MaxCandidates {
		return c, 0
	}
	return c[:MaxCandidates], len(c) - MaxCandidates
}
