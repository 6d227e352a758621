package camera

// FrameSize is the side length of the stored grayscale frame.
const FrameSize = 1024

// AddressSpace is the side length of the pixel address space on the wire.
// Coordinates in [FrameSize, AddressSpace) are accepted but not stored.
const AddressSpace = 2048

// PixelSample is one pixel from the camera input boundary.
type PixelSample struct {
	Channel int
	X       uint16
	Y       uint16
	RGB     uint32 // 24-bit packed 0xRRGGBB
	Valid   bool
}

// Gray converts the packed colour to intensity as (r+g+b)/3, truncating.
func (s PixelSample) Gray() uint8 {
	r := (s.RGB >> 16) & 0xff
	g := (s.RGB >> 8) & 0xff
	b := s.RGB & 0xff
	return uint8((r + g + b) / 3)
}

// Frame is a fixed-size grayscale image stored row-major.
type Frame struct {
	Pix [FrameSize * FrameSize]uint8
}

// At returns the intensity at column x, row y.
func (f *Frame) At(x, y int) uint8 {
	return f.Pix[y*FrameSize+x]
}

// Set stores v at column x, row y.
func (f *Frame) Set(x, y int, v uint8) {
	f.Pix[y*FrameSize+x] = v
}

// FrameBuffer accumulates PixelSamples into an owned Frame.
//
// The frame counts as complete only immediately after the write at
// (1023,1023); any other write clears the flag. Raster order is assumed but
// not enforced: out-of-order delivery lands where its coordinates say and
// may leave a frame that mixes two exposures.
type FrameBuffer struct {
	frame      *Frame
	complete   bool
	generation uint64
	writes     int
}

// NewFrameBuffer allocates the buffer's frame once; it is reused for every
// generation afterwards.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{frame: new(Frame)}
}

// Write stores one sample. It reports whether the sample was stored:
// invalid samples and coordinates outside the stored frame are ignored and
// leave the completion flag untouched.
func (fb *FrameBuffer) Write(s PixelSample) bool {
	if !s.Valid || int(s.X) >= FrameSize || int(s.Y) >= FrameSize {
		return false
	}
	fb.frame.Set(int(s.X), int(s.Y), s.Gray())
	fb.complete = s.X == FrameSize-1 && s.Y == FrameSize-1
	fb.writes++
	return true
}

// Complete reports whether the last stored write was the final pixel.
func (fb *FrameBuffer) Complete() bool {
	return fb.complete
}

// Frame returns the buffer's frame. The caller must not retain it past the
// next Reset.
func (fb *FrameBuffer) Frame() *Frame {
	return fb.frame
}

// Generation counts how many frames have been consumed from this buffer.
func (fb *FrameBuffer) Generation() uint64 {
	return fb.generation
}

// Writes returns the number of samples stored in the current generation.
func (fb *FrameBuffer) Writes() int {
	return fb.writes
}

// Reset logically replaces the frame after it has been consumed. Pixels are
// not cleared; the next raster pass overwrites them.
func (fb *FrameBuffer) Reset() {
	fb.complete = false
	fb.writes = 0
	fb.generation++
}
