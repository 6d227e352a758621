package camera

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sensor.fusion/internal/sensor"
)

// squareImage draws a white square with its top-left corner at (x0, y0) on a
// black FrameSize x FrameSize canvas.
func squareImage(x0, y0, size int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, FrameSize, FrameSize))
	for y := y0; y < y0+size; y++ {
		for x := x0; x < x0+size; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return img
}

func TestSamplesFromImageRasterOrder(t *testing.T) {
	t.Parallel()

	samples := SamplesFromImage(2, squareImage(500, 500, 20))
	require.Len(t, samples, FrameSize*FrameSize)

	first, last := samples[0], samples[len(samples)-1]
	assert.Equal(t, PixelSample{Channel: 2, X: 0, Y: 0, RGB: 0, Valid: true}, first)
	assert.Equal(t, uint16(FrameSize-1), last.X)
	assert.Equal(t, uint16(FrameSize-1), last.Y)

	bright := samples[500*FrameSize+500]
	assert.Equal(t, uint32(0xffffff), bright.RGB)
	assert.Equal(t, uint8(255), bright.Gray())
}

func TestSamplesFromImageResizes(t *testing.T) {
	t.Parallel()

	small := image.NewGray(image.Rect(0, 0, 64, 48))
	samples := SamplesFromImage(0, small)
	assert.Len(t, samples, FrameSize*FrameSize)
}

func TestChannelProcessFullFrame(t *testing.T) {
	t.Parallel()

	ch := NewChannel(1, DefaultEdgeThreshold, DefaultStride)
	out := ch.Process(SamplesFromImage(1, squareImage(500, 500, 20)))

	assert.True(t, out.FrameComplete)
	assert.Zero(t, out.Rejected)
	assert.Equal(t, []sensor.Candidate{{X: 500, Y: 500, Class: sensor.ClassVehicle, Modality: sensor.ModalityCamera}}, out.Candidates)
	assert.Equal(t, uint64(1), ch.Buffer().Generation(), "consumed frame is logically reset")
	assert.False(t, ch.Buffer().Complete())
}

func TestChannelPartialFrameYieldsNothing(t *testing.T) {
	t.Parallel()

	ch := NewChannel(0, DefaultEdgeThreshold, DefaultStride)
	samples := SamplesFromImage(0, squareImage(500, 500, 20))

	out := ch.Process(samples[:len(samples)/2])
	assert.False(t, out.FrameComplete)
	assert.Empty(t, out.Candidates)

	out = ch.Process(samples[len(samples)/2:])
	assert.True(t, out.FrameComplete)
	assert.Len(t, out.Candidates, 1)
}

func TestChannelRejectsForeignAndInvalidSamples(t *testing.T) {
	t.Parallel()

	ch := NewChannel(0, DefaultEdgeThreshold, DefaultStride)
	out := ch.Process([]PixelSample{
		{Channel: 3, X: 1, Y: 1, Valid: true},
		{Channel: 0, X: 1, Y: 1, Valid: false},
		{Channel: 0, X: 2000, Y: 1, Valid: true},
		{Channel: 0, X: 1, Y: 1, Valid: true},
	})
	assert.Equal(t, 3, out.Rejected)
	assert.False(t, out.FrameComplete)
	assert.Equal(t, 1, ch.Buffer().Writes())
}

func TestChannelAllInvalidInput(t *testing.T) {
	t.Parallel()

	samples := SamplesFromImage(0, squareImage(500, 500, 20))
	for i := range samples {
		samples[i].Valid = false
	}
	out := NewChannel(0, DefaultEdgeThreshold, DefaultStride).Process(samples)
	assert.False(t, out.FrameComplete)
	assert.Empty(t, out.Candidates)
	assert.Equal(t, len(samples), out.Rejected)
}
