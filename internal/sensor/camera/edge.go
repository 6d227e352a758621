package camera

import (
	"image"

	"github.com/banshee-data/sensor.fusion/internal/sensor"
)

// Default detector parameters.
const (
	DefaultEdgeThreshold = 128
	DefaultStride        = 100
)

const (
	edgeOn  uint8 = 255
	edgeOff uint8 = 0
)

// EdgeDetector computes a thresholded Sobel edge map over a frame and samples
// it on a coarse grid to produce candidates.
//
// The gradient magnitude is approximated by the L1 norm |gx|+|gy|. Border
// cells are never marked.
type EdgeDetector struct {
	Threshold int
	Stride    int

	edges []uint8
}

// NewEdgeDetector returns a detector with its edge map allocated.
// Non-positive stride or negative threshold fall back to the defaults.
func NewEdgeDetector(threshold, stride int) *EdgeDetector {
	if threshold < 0 {
		threshold = DefaultEdgeThreshold
	}
	if stride <= 0 {
		stride = DefaultStride
	}
	return &EdgeDetector{
		Threshold: threshold,
		Stride:    stride,
		edges:     make([]uint8, FrameSize*FrameSize),
	}
}

// Gradient returns the horizontal and vertical Sobel responses at an
// interior cell (x, y).
func Gradient(f *Frame, x, y int) (gx, gy int) {
	p := func(dx, dy int) int { return int(f.At(x+dx, y+dy)) }

	// {-1,0,1; -2,0,2; -1,0,1}
	gx = (p(1, -1) + 2*p(1, 0) + p(1, 1)) - (p(-1, -1) + 2*p(-1, 0) + p(-1, 1))
	// {-1,-2,-1; 0,0,0; 1,2,1}
	gy = (p(-1, 1) + 2*p(0, 1) + p(1, 1)) - (p(-1, -1) + 2*p(0, -1) + p(1, -1))
	return gx, gy
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// threshold fills the edge map from f.
func (d *EdgeDetector) threshold(f *Frame) {
	for i := range d.edges {
		d.edges[i] = edgeOff
	}
	for y := 1; y < FrameSize-1; y++ {
		row := y * FrameSize
		for x := 1; x < FrameSize-1; x++ {
			gx, gy := Gradient(f, x, y)
			if abs(gx)+abs(gy) > d.Threshold {
				d.edges[row+x] = edgeOn
			}
		}
	}
}

// Detect computes the edge map of f and returns the first
// sensor.MaxCandidates stride hits in row-major order. dropped counts hits
// past the cap. The result is a pure function of the frame contents.
func (d *EdgeDetector) Detect(f *Frame) (candidates []sensor.Candidate, dropped int) {
	d.threshold(f)

	for y := 0; y < FrameSize; y += d.Stride {
		for x := 0; x < FrameSize; x += d.Stride {
			if d.edges[y*FrameSize+x] != edgeOn {
				continue
			}
			if len(candidates) == sensor.MaxCandidates {
				dropped++
				continue
			}
			candidates = append(candidates, sensor.Candidate{
				X:        int32(x),
				Y:        int32(y),
				Class:    sensor.ClassVehicle,
				Modality: sensor.ModalityCamera,
			})
		}
	}
	return candidates, dropped
}

// EdgeMap returns a copy of the most recent edge map as a grayscale image.
func (d *EdgeDetector) EdgeMap() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, FrameSize, FrameSize))
	copy(img.Pix, d.edges)
	return img
}
