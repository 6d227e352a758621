package tracking

import (
	"fmt"
	"strings"

	"github.com/banshee-data/sensor.fusion/internal/config"
	"github.com/banshee-data/sensor.fusion/internal/fixedpoint"
)

// Association selects how LiDAR candidates are paired with tracks.
type Association int

const (
	// Positional corrects track i with LiDAR slot i.
	Positional Association = iota
	// Nearest greedily pairs each candidate with the closest unclaimed track
	// inside the association gate.
	Nearest
)

func (a Association) String() string {
	if a == Nearest {
		return "nearest"
	}
	return "positional"
}

// CapacityPolicy decides what happens when a 17th track is requested.
type CapacityPolicy int

const (
	// Reject drops the newcomer; the bank stays at MaxTracks.
	Reject CapacityPolicy = iota
	// ReplaceWeakest re-seeds the track with the largest positional
	// covariance (cx+cy), lowest index on ties.
	ReplaceWeakest
)

func (p CapacityPolicy) String() string {
	if p == ReplaceWeakest {
		return "replace_weakest"
	}
	return "reject"
}

// Config holds the estimator constants. Noise and variance terms are in the
// same fixed-point units as the state.
type Config struct {
	ProcessNoise             int32 // Q, added to cx and cy every predict
	MeasurementNoise         int32 // R, LiDAR position noise
	VelocityMeasurementNoise int32 // Rv, radar velocity noise
	InitialPositionVariance  int32
	InitialVelocityVariance  int32
	CovarianceFloor          int32
	MaxCovariance            int32

	Overflow        fixedpoint.Policy
	Association     Association
	AssociationGate int32 // Chebyshev, Nearest only
	Capacity        CapacityPolicy

	MaxIdleTicks   int // 0 disables expiry
	CameraSeeding  bool
	CameraSeedGate int32
	RadarGate      int32
	IMUNoiseShift  uint

	ResidualHistory int // per-tick mean residuals kept for Metrics
}

// DefaultConfig loads the estimator constants from the canonical tuning
// defaults file. Panics if the file cannot be found or is inconsistent;
// intended for tests and binaries that ship the file.
func DefaultConfig() Config {
	cfg, err := ConfigFromTuning(config.MustLoadDefaultConfig())
	if err != nil {
		panic(fmt.Sprintf("tracking: invalid default config: %v", err))
	}
	return cfg
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(tc *config.TuningConfig) (Config, error) {
	policy, err := fixedpoint.ParsePolicy(tc.GetOverflowPolicy())
	if err != nil {
		return Config{}, err
	}
	assoc, err := parseAssociation(tc.GetAssociation())
	if err != nil {
		return Config{}, err
	}
	capacity, err := parseCapacityPolicy(tc.GetCapacityPolicy())
	if err != nil {
		return Config{}, err
	}
	return Config{
		ProcessNoise:             int32(tc.GetProcessNoise()),
		MeasurementNoise:         int32(tc.GetMeasurementNoise()),
		VelocityMeasurementNoise: int32(tc.GetVelocityMeasurementNoise()),
		InitialPositionVariance:  int32(tc.GetInitialPositionVariance()),
		InitialVelocityVariance:  int32(tc.GetInitialVelocityVariance()),
		CovarianceFloor:          int32(tc.GetCovarianceFloor()),
		MaxCovariance:            int32(tc.GetMaxCovariance()),
		Overflow:                 policy,
		Association:              assoc,
		AssociationGate:          int32(tc.GetAssociationGate()),
		Capacity:                 capacity,
		MaxIdleTicks:             tc.GetMaxIdleTicks(),
		CameraSeeding:            tc.GetCameraSeeding(),
		CameraSeedGate:           int32(tc.GetCameraSeedGate()),
		RadarGate:                int32(tc.GetRadarGate()),
		IMUNoiseShift:            uint(tc.GetIMUNoiseShift()),
		ResidualHistory:          tc.GetResidualHistoryLength(),
	}, nil
}

func parseAssociation(s string) (Association, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "positional":
		return Positional, nil
	case "nearest":
		return Nearest, nil
	default:
		return Positional, fmt.Errorf("unknown association %q: expected positional or nearest", s)
	}
}

func parseCapacityPolicy(s string) (CapacityPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject":
		return Reject, nil
	case "replace_weakest":
		return ReplaceWeakest, nil
	default:
		return Reject, fmt.Errorf("unknown capacity policy %q: expected reject or replace_weakest", s)
	}
}
