package sensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCandidateSentinel(t *testing.T) {
	t.Parallel()

	assert.True(t, Candidate{}.IsSentinel())
	assert.False(t, Candidate{X: 1}.IsSentinel())
	assert.False(t, Candidate{Y: -1}.IsSentinel())
	assert.True(t, Candidate{Class: ClassVehicle, Modality: ModalityLidar}.IsSentinel())
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	in := make([]Candidate, 11)
	out, dropped := Truncate(in)
	assert.Len(t, out, MaxCandidates)
	assert.Equal(t, 3, dropped)

	out, dropped = Truncate(in[:5])
	assert.Len(t, out, 5)
	assert.Zero(t, dropped)
}

func TestLabels(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "vehicle", ClassVehicle.String())
	assert.Equal(t, "class(9)", Class(9).String())
	assert.Equal(t, "lidar", ModalityLidar.String())
	assert.Equal(t, "camera", ModalityCamera.String())
}
