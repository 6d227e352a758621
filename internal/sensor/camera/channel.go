package camera

import "github.com/banshee-data/sensor.fusion/internal/sensor"

// Output is what one camera channel contributes to a tick.
type Output struct {
	Channel       int
	Candidates    []sensor.Candidate
	FrameComplete bool
	Dropped       int // stride hits past the candidate cap
	Rejected      int // samples for another channel, invalid, or off-frame
}

// Channel owns one camera's FrameBuffer and EdgeDetector.
type Channel struct {
	ID       int
	buffer   *FrameBuffer
	detector *EdgeDetector
}

// NewChannel allocates the channel's frame and edge map.
func NewChannel(id, threshold, stride int) *Channel {
	return &Channel{
		ID:       id,
		buffer:   NewFrameBuffer(),
		detector: NewEdgeDetector(threshold, stride),
	}
}

// Buffer exposes the channel's frame buffer.
func (c *Channel) Buffer() *FrameBuffer { return c.buffer }

// Detector exposes the channel's edge detector.
func (c *Channel) Detector() *EdgeDetector { return c.detector }

// Process writes the tick's samples into the frame buffer. If the final
// pixel arrives, the frame is run through the detector and then reset; any
// samples after it start the next frame. A tick without a completed frame
// yields no candidates.
func (c *Channel) Process(samples []PixelSample) Output {
	out := Output{Channel: c.ID}
	for _, s := range samples {
		if s.Channel != c.ID || !c.buffer.Write(s) {
			out.Rejected++
			continue
		}
		if !c.buffer.Complete() {
			continue
		}
		// Only the first completed frame in a tick yields candidates.
		if !out.FrameComplete {
			out.Candidates, out.Dropped = c.detector.Detect(c.buffer.Frame())
			out.FrameComplete = true
		}
		c.buffer.Reset()
	}
	return out
}

// Reset discards any partially accumulated frame.
func (c *Channel) Reset() {
	c.buffer.Reset()
}
