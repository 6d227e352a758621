package camera

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sensor.fusion/internal/sensor"
)

// squareFrame returns a dark frame with a bright size x size square whose
// top-left corner is (x0, y0).
func squareFrame(x0, y0, size int) *Frame {
	f := new(Frame)
	for y := y0; y < y0+size; y++ {
		for x := x0; x < x0+size; x++ {
			f.Set(x, y, 255)
		}
	}
	return f
}

// stripeFrame marks every stride grid point as an edge: columns are bright
// in pairs, so x and x+1 differ from x-1 at every multiple of 100.
func stripeFrame() *Frame {
	f := new(Frame)
	for y := 0; y < FrameSize; y++ {
		for x := 0; x < FrameSize; x++ {
			if (x/2)%2 == 0 {
				f.Set(x, y, 255)
			}
		}
	}
	return f
}

func TestGradientKernels(t *testing.T) {
	t.Parallel()

	f := squareFrame(500, 500, 20)

	gx, gy := Gradient(f, 500, 500)
	assert.Equal(t, 765, gx)
	assert.Equal(t, 765, gy)

	// Inside the square the field is flat.
	gx, gy = Gradient(f, 510, 510)
	assert.Zero(t, gx)
	assert.Zero(t, gy)

	// A single bright dot has no gradient at its own cell.
	dot := new(Frame)
	dot.Set(300, 300, 255)
	gx, gy = Gradient(dot, 300, 300)
	assert.Zero(t, gx)
	assert.Zero(t, gy)
	gx, _ = Gradient(dot, 299, 300)
	assert.Equal(t, 510, gx)
}

func TestDetectBrightSquare(t *testing.T) {
	t.Parallel()

	d := NewEdgeDetector(DefaultEdgeThreshold, DefaultStride)
	candidates, dropped := d.Detect(squareFrame(500, 500, 20))

	require.NotEmpty(t, candidates)
	assert.Zero(t, dropped)
	assert.Contains(t, candidates, sensor.Candidate{
		X: 500, Y: 500, Class: sensor.ClassVehicle, Modality: sensor.ModalityCamera,
	})
}

func TestDetectEmptyFrame(t *testing.T) {
	t.Parallel()

	d := NewEdgeDetector(DefaultEdgeThreshold, DefaultStride)
	candidates, dropped := d.Detect(new(Frame))
	assert.Empty(t, candidates)
	assert.Zero(t, dropped)
}

func TestDetectCapsAtEight(t *testing.T) {
	t.Parallel()

	d := NewEdgeDetector(DefaultEdgeThreshold, DefaultStride)
	candidates, dropped := d.Detect(stripeFrame())

	require.Len(t, candidates, sensor.MaxCandidates)
	// 10x10 interior grid points are edges; border row/column 0 is excluded.
	assert.Equal(t, 100-sensor.MaxCandidates, dropped)

	// Row-major: the first eight hits are on row 100.
	for i, c := range candidates {
		assert.Equal(t, int32(100*(i+1)), c.X)
		assert.Equal(t, int32(100), c.Y)
	}
}

func TestDetectDeterministic(t *testing.T) {
	t.Parallel()

	f := stripeFrame()
	first, _ := NewEdgeDetector(DefaultEdgeThreshold, DefaultStride).Detect(f)
	d := NewEdgeDetector(DefaultEdgeThreshold, DefaultStride)
	for i := 0; i < 3; i++ {
		again, _ := d.Detect(f)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("detection %d differs (-first +again):\n%s", i, diff)
		}
	}
}

func TestDetectThresholdIsStrict(t *testing.T) {
	t.Parallel()

	// A vertical step of height h gives |gx| = 4h at the step; 4*32 = 128
	// sits exactly on the threshold and must not count.
	f := new(Frame)
	for y := 0; y < FrameSize; y++ {
		for x := 101; x < FrameSize; x++ {
			f.Set(x, y, 32)
		}
	}
	d := NewEdgeDetector(DefaultEdgeThreshold, DefaultStride)
	candidates, _ := d.Detect(f)
	assert.Empty(t, candidates)

	for y := 0; y < FrameSize; y++ {
		for x := 101; x < FrameSize; x++ {
			f.Set(x, y, 33)
		}
	}
	candidates, _ = d.Detect(f)
	assert.NotEmpty(t, candidates)
}

func TestEdgeMapImage(t *testing.T) {
	t.Parallel()

	d := NewEdgeDetector(DefaultEdgeThreshold, DefaultStride)
	d.Detect(squareFrame(500, 500, 20))
	img := d.EdgeMap()

	assert.Equal(t, FrameSize, img.Bounds().Dx())
	assert.Equal(t, uint8(255), img.GrayAt(500, 500).Y)
	assert.Equal(t, uint8(0), img.GrayAt(510, 510).Y)
	assert.Equal(t, uint8(0), img.GrayAt(0, 0).Y)
}
