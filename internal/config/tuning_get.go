package config

import (
	"strings"
	"time"
)

// GetTickInterval parses and returns TickInterval as a time.Duration.
func (c *TuningConfig) GetTickInterval() time.Duration {
	if c.TickInterval == nil || *c.TickInterval == "" {
		return 50 * time.Millisecond // default: 20 Hz
	}
	d, err := time.ParseDuration(*c.TickInterval)
	if err != nil || d <= 0 {
		return 50 * time.Millisecond
	}
	return d
}

// GetProcessNoise returns the additive position process noise Q.
func (c *TuningConfig) GetProcessNoise() int {
	if c.ProcessNoise == nil {
		return 16
	}
	return *c.ProcessNoise
}

// GetMeasurementNoise returns the position measurement noise R.
func (c *TuningConfig) GetMeasurementNoise() int {
	if c.MeasurementNoise == nil {
		return 1024
	}
	return *c.MeasurementNoise
}

// GetVelocityMeasurementNoise returns the radar velocity measurement noise.
func (c *TuningConfig) GetVelocityMeasurementNoise() int {
	if c.VelocityMeasurementNoise == nil {
		return 256
	}
	return *c.VelocityMeasurementNoise
}

// GetInitialPositionVariance returns the reset value of cx and cy.
func (c *TuningConfig) GetInitialPositionVariance() int {
	if c.InitialPositionVariance == nil {
		return 0x1000
	}
	return *c.InitialPositionVariance
}

// GetInitialVelocityVariance returns the reset value of cvx and cvy.
func (c *TuningConfig) GetInitialVelocityVariance() int {
	if c.InitialVelocityVariance == nil {
		return 0x0100
	}
	return *c.InitialVelocityVariance
}

// GetCovarianceFloor returns the lower bound applied to every covariance term.
func (c *TuningConfig) GetCovarianceFloor() int {
	if c.CovarianceFloor == nil {
		return 1
	}
	return *c.CovarianceFloor
}

// GetMaxCovariance returns the upper bound applied to every covariance term.
func (c *TuningConfig) GetMaxCovariance() int {
	if c.MaxCovariance == nil {
		return 1 << 24
	}
	return *c.MaxCovariance
}

// GetOverflowPolicy returns the fixed-point narrowing policy name.
func (c *TuningConfig) GetOverflowPolicy() string {
	if c.OverflowPolicy == nil || *c.OverflowPolicy == "" {
		return "saturate"
	}
	return strings.ToLower(strings.TrimSpace(*c.OverflowPolicy))
}

// GetAssociation returns the track/candidate association mode.
func (c *TuningConfig) GetAssociation() string {
	if c.Association == nil || *c.Association == "" {
		return "positional"
	}
	return strings.ToLower(strings.TrimSpace(*c.Association))
}

// GetAssociationGate returns the Chebyshev gate used by nearest association.
func (c *TuningConfig) GetAssociationGate() int {
	if c.AssociationGate == nil {
		return 200
	}
	return *c.AssociationGate
}

// GetCapacityPolicy returns the policy applied when all 16 tracks are active.
func (c *TuningConfig) GetCapacityPolicy() string {
	if c.CapacityPolicy == nil || *c.CapacityPolicy == "" {
		return "reject"
	}
	return strings.ToLower(strings.TrimSpace(*c.CapacityPolicy))
}

// GetMaxIdleTicks returns the idle expiry limit. Zero disables expiry.
func (c *TuningConfig) GetMaxIdleTicks() int {
	if c.MaxIdleTicks == nil {
		return 0
	}
	return *c.MaxIdleTicks
}

// GetCameraSeeding reports whether camera candidates may activate tracks.
// Off by default: only LiDAR slots activate tracks.
func (c *TuningConfig) GetCameraSeeding() bool {
	if c.CameraSeeding == nil {
		return false
	}
	return *c.CameraSeeding
}

// GetCameraSeedGate returns the Chebyshev distance within which a camera
// candidate is considered already covered by an active track.
func (c *TuningConfig) GetCameraSeedGate() int {
	if c.CameraSeedGate == nil {
		return 100
	}
	return *c.CameraSeedGate
}

// GetRadarGate returns the Chebyshev gate for radar velocity correction.
func (c *TuningConfig) GetRadarGate() int {
	if c.RadarGate == nil {
		return 256
	}
	return *c.RadarGate
}

// GetIMUNoiseShift returns the right shift applied to the IMU noise bias.
func (c *TuningConfig) GetIMUNoiseShift() int {
	if c.IMUNoiseShift == nil {
		return 8
	}
	return *c.IMUNoiseShift
}

// GetResidualHistoryLength returns how many per-tick residual means are kept.
func (c *TuningConfig) GetResidualHistoryLength() int {
	if c.ResidualHistoryLength == nil {
		return 512
	}
	return *c.ResidualHistoryLength
}

// GetEdgeThreshold returns the edge magnitude threshold.
func (c *TuningConfig) GetEdgeThreshold() int {
	if c.EdgeThreshold == nil {
		return 128
	}
	return *c.EdgeThreshold
}

// GetCandidateStride returns the sampling stride of the edge map.
func (c *TuningConfig) GetCandidateStride() int {
	if c.CandidateStride == nil {
		return 100
	}
	return *c.CandidateStride
}

// GetLidarDistanceBucket returns the distance bucket width.
func (c *TuningConfig) GetLidarDistanceBucket() int {
	if c.LidarDistanceBucket == nil {
		return 64
	}
	return *c.LidarDistanceBucket
}

// GetLidarAngleBucket returns the angle bucket width in binary angle units.
func (c *TuningConfig) GetLidarAngleBucket() int {
	if c.LidarAngleBucket == nil {
		return 1024
	}
	return *c.LidarAngleBucket
}

// GetLidarUseElevation reports whether projection scales by cos(elevation).
func (c *TuningConfig) GetLidarUseElevation() bool {
	if c.LidarUseElevation == nil {
		return false
	}
	return *c.LidarUseElevation
}
