package camera

import (
	"image"

	"github.com/disintegration/imaging"
)

// SamplesFromImage resamples img to FrameSize x FrameSize and emits it as a
// raster-order pixel feed for the given channel. The last sample is always
// (1023,1023), so feeding the result to a FrameBuffer completes one frame.
func SamplesFromImage(channel int, img image.Image) []PixelSample {
	resized := img
	if b := img.Bounds(); b.Dx() != FrameSize || b.Dy() != FrameSize {
		resized = imaging.Resize(img, FrameSize, FrameSize, imaging.Linear)
	}
	nrgba := imaging.Clone(resized)

	samples := make([]PixelSample, 0, FrameSize*FrameSize)
	for y := 0; y < FrameSize; y++ {
		for x := 0; x < FrameSize; x++ {
			c := nrgba.NRGBAAt(x, y)
			samples = append(samples, PixelSample{
				Channel: channel,
				X:       uint16(x),
				Y:       uint16(y),
				RGB:     uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B),
				Valid:   true,
			})
		}
	}
	return samples
}

// OpenSamples decodes an image file with imaging and converts it with
// SamplesFromImage.
func OpenSamples(channel int, path string) ([]PixelSample, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, err
	}
	return SamplesFromImage(channel, img), nil
}
