package fusion

import (
	"image"
	"image/color"
	"testing"

	"github.com/banshee-data/sensor.fusion/internal/config"
	"github.com/banshee-data/sensor.fusion/internal/sensor"
	"github.com/banshee-data/sensor.fusion/internal/sensor/camera"
	"github.com/banshee-data/sensor.fusion/internal/tracking"
)

func testBankConfig() tracking.Config {
	return tracking.Config{
		ProcessNoise:             16,
		MeasurementNoise:         1024,
		VelocityMeasurementNoise: 256,
		InitialPositionVariance:  0x1000,
		InitialVelocityVariance:  0x0100,
		CovarianceFloor:          1,
		MaxCovariance:            1 << 24,
		AssociationGate:          200,
		CameraSeedGate:           100,
		RadarGate:                256,
		IMUNoiseShift:            8,
		ResidualHistory:          64,
	}
}

func newTestOrchestrator(t *testing.T, mutate func(*tracking.Config)) *Orchestrator {
	t.Helper()
	cfg := testBankConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	return NewOrchestrator(tracking.NewBank(cfg))
}

func lidarSlots(points ...[2]int32) [tracking.LidarSlots]sensor.Candidate {
	var out [tracking.LidarSlots]sensor.Candidate
	for i, p := range points {
		out[i] = sensor.Candidate{X: p[0], Y: p[1], Class: sensor.ClassVehicle, Modality: sensor.ModalityLidar}
	}
	return out
}

func cameraCandidates(n int, x0 int32) []sensor.Candidate {
	out := make([]sensor.Candidate, n)
	for i := range out {
		out[i] = sensor.Candidate{X: x0 + int32(i)*1000, Y: 300, Class: sensor.ClassVehicle, Modality: sensor.ModalityCamera}
	}
	return out
}

// squareSamples renders a dark frame with a bright size×size square whose
// top-left corner is at (x, y).
func squareSamples(channel, x, y, size int) []camera.PixelSample {
	img := image.NewGray(image.Rect(0, 0, camera.FrameSize, camera.FrameSize))
	for j := y; j < y+size; j++ {
		for i := x; i < x+size; i++ {
			img.SetGray(i, j, color.Gray{Y: 255})
		}
	}
	return camera.SamplesFromImage(channel, img)
}

func ptrBool(v bool) *bool { return &v }

func tuning(seeding bool) *config.TuningConfig {
	tc := config.EmptyTuningConfig()
	tc.CameraSeeding = ptrBool(seeding)
	return tc
}
