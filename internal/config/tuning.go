package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig is the root configuration for the fusion pipeline.
// Every field is optional; the Get* accessors supply defaults for anything
// the JSON omits, so partial files are safe.
type TuningConfig struct {
	// Scheduling
	TickInterval *string `json:"tick_interval,omitempty"` // duration string like "50ms"

	// Estimator constants (fixed-point units)
	ProcessNoise             *int    `json:"process_noise,omitempty"`
	MeasurementNoise         *int    `json:"measurement_noise,omitempty"`
	VelocityMeasurementNoise *int    `json:"velocity_measurement_noise,omitempty"`
	InitialPositionVariance  *int    `json:"initial_position_variance,omitempty"`
	InitialVelocityVariance  *int    `json:"initial_velocity_variance,omitempty"`
	CovarianceFloor          *int    `json:"covariance_floor,omitempty"`
	MaxCovariance            *int    `json:"max_covariance,omitempty"`
	OverflowPolicy           *string `json:"overflow_policy,omitempty"`
	Association              *string `json:"association,omitempty"`
	AssociationGate          *int    `json:"association_gate,omitempty"`
	CapacityPolicy           *string `json:"capacity_policy,omitempty"`
	MaxIdleTicks             *int    `json:"max_idle_ticks,omitempty"`
	CameraSeeding            *bool   `json:"camera_seeding,omitempty"`
	CameraSeedGate           *int    `json:"camera_seed_gate,omitempty"`
	RadarGate                *int    `json:"radar_gate,omitempty"`
	IMUNoiseShift            *int    `json:"imu_noise_shift,omitempty"`
	ResidualHistoryLength    *int    `json:"residual_history_length,omitempty"`

	// Camera candidate extraction
	EdgeThreshold   *int `json:"edge_threshold,omitempty"`
	CandidateStride *int `json:"candidate_stride,omitempty"`

	// LiDAR bucketing
	LidarDistanceBucket *int  `json:"lidar_distance_bucket,omitempty"`
	LidarAngleBucket    *int  `json:"lidar_angle_bucket,omitempty"`
	LidarUseElevation   *bool `json:"lidar_use_elevation,omitempty"`
}

// Accepted names for the string-valued policies.
var (
	associationModes = []string{"positional", "nearest"}
	capacityPolicies = []string{"reject", "replace_weakest"}
	overflowPolicies = []string{"saturate", "wrap"}
)

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents up to the repository root.
// Panics if the file cannot be loaded; intended for tests and binaries.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

func oneOf(name string, v *string, allowed []string) error {
	if v == nil || *v == "" {
		return nil
	}
	got := strings.ToLower(strings.TrimSpace(*v))
	for _, a := range allowed {
		if got == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", name, strings.Join(allowed, ", "), *v)
}

func positive(name string, v *int) error {
	if v != nil && *v <= 0 {
		return fmt.Errorf("%s must be positive, got %d", name, *v)
	}
	return nil
}

func nonNegative(name string, v *int) error {
	if v != nil && *v < 0 {
		return fmt.Errorf("%s must be non-negative, got %d", name, *v)
	}
	return nil
}

// Validate checks that the configuration values are usable.
func (c *TuningConfig) Validate() error {
	if c.TickInterval != nil && *c.TickInterval != "" {
		d, err := time.ParseDuration(*c.TickInterval)
		if err != nil {
			return fmt.Errorf("invalid tick_interval '%s': %w", *c.TickInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("tick_interval must be positive, got %s", d)
		}
	}

	// R > 0 is required for the gain to stay below one.
	if err := positive("measurement_noise", c.MeasurementNoise); err != nil {
		return err
	}
	if err := positive("velocity_measurement_noise", c.VelocityMeasurementNoise); err != nil {
		return err
	}
	for _, chk := range []struct {
		name string
		v    *int
	}{
		{"process_noise", c.ProcessNoise},
		{"initial_position_variance", c.InitialPositionVariance},
		{"initial_velocity_variance", c.InitialVelocityVariance},
		{"covariance_floor", c.CovarianceFloor},
		{"max_idle_ticks", c.MaxIdleTicks},
		{"association_gate", c.AssociationGate},
		{"camera_seed_gate", c.CameraSeedGate},
		{"radar_gate", c.RadarGate},
		{"edge_threshold", c.EdgeThreshold},
	} {
		if err := nonNegative(chk.name, chk.v); err != nil {
			return err
		}
	}
	for _, chk := range []struct {
		name string
		v    *int
	}{
		{"max_covariance", c.MaxCovariance},
		{"candidate_stride", c.CandidateStride},
		{"lidar_distance_bucket", c.LidarDistanceBucket},
		{"lidar_angle_bucket", c.LidarAngleBucket},
		{"residual_history_length", c.ResidualHistoryLength},
	} {
		if err := positive(chk.name, chk.v); err != nil {
			return err
		}
	}
	if c.IMUNoiseShift != nil && (*c.IMUNoiseShift < 0 || *c.IMUNoiseShift > 31) {
		return fmt.Errorf("imu_noise_shift must be between 0 and 31, got %d", *c.IMUNoiseShift)
	}
	if c.GetCovarianceFloor() > c.GetMaxCovariance() {
		return fmt.Errorf("covariance_floor %d exceeds max_covariance %d", c.GetCovarianceFloor(), c.GetMaxCovariance())
	}

	if err := oneOf("overflow_policy", c.OverflowPolicy, overflowPolicies); err != nil {
		return err
	}
	if err := oneOf("association", c.Association, associationModes); err != nil {
		return err
	}
	if err := oneOf("capacity_policy", c.CapacityPolicy, capacityPolicies); err != nil {
		return err
	}

	return nil
}
