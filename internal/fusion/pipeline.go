package fusion

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/sensor.fusion/internal/config"
	"github.com/banshee-data/sensor.fusion/internal/sensor/auxiliary"
	"github.com/banshee-data/sensor.fusion/internal/sensor/camera"
	"github.com/banshee-data/sensor.fusion/internal/sensor/lidar"
)

// Batch is the raw input gathered for one tick.
type Batch struct {
	Pixels [NumCameras][]camera.PixelSample
	Lidar  []lidar.Sample
	Radar  auxiliary.RadarSample
	IMU    auxiliary.IMUSample
}

// StepStats are the producer-side counters for one step.
type StepStats struct {
	FramesCompleted int
	CameraDropped   int // stride hits past the per-channel cap
	PixelsRejected  int
	LidarSamples    int
	LidarInvalid    int
	LidarDropped    int
	LidarZero       int
}

// Pipeline owns one channel per camera and the LiDAR clusterer, and feeds
// their joined output to an Orchestrator.
type Pipeline struct {
	stepMu    sync.Mutex
	cameras   [NumCameras]*camera.Channel
	clusterer *lidar.Clusterer
	orch      *Orchestrator
	lastGen   uint64

	statsMu sync.Mutex
	stats   StepStats

	afterJoin func() // test hook, runs between the barrier and the tick
}

// NewPipeline allocates the per-channel frame buffers once; they are reused
// for every tick.
func NewPipeline(tc *config.TuningConfig, orch *Orchestrator) *Pipeline {
	p := &Pipeline{
		clusterer: lidar.NewClusterer(tc.GetLidarDistanceBucket(), tc.GetLidarAngleBucket(), tc.GetLidarUseElevation()),
		orch:      orch,
		lastGen:   orch.Generation(),
	}
	for i := range p.cameras {
		p.cameras[i] = camera.NewChannel(i, tc.GetEdgeThreshold(), tc.GetCandidateStride())
	}
	return p
}

// Orchestrator returns the wrapped orchestrator.
func (p *Pipeline) Orchestrator() *Orchestrator {
	return p.orch
}

// Camera returns channel i.
func (p *Pipeline) Camera(i int) *camera.Channel {
	return p.cameras[i]
}

// Step runs all producers in parallel, waits for every one of them, and then
// ticks the orchestrator. If Reset is called while the producers run, their
// candidates are discarded and the reset state is returned. The only error is
// ctx cancellation, in which case no tick is applied.
func (p *Pipeline) Step(ctx context.Context, b Batch) (Result, error) {
	p.stepMu.Lock()
	defer p.stepMu.Unlock()

	gen := p.orch.Generation()
	if gen != p.lastGen {
		p.resetProducers()
		p.lastGen = gen
	}

	var (
		g      errgroup.Group
		camOut [NumCameras]camera.Output
		lidOut lidar.Output
	)
	for i, ch := range p.cameras {
		g.Go(func() error {
			camOut[i] = ch.Process(b.Pixels[i])
			return nil
		})
	}
	g.Go(func() error {
		lidOut = p.clusterer.Process(b.Lidar)
		return nil
	})
	_ = g.Wait() // barrier; producers do not fail
	if p.afterJoin != nil {
		p.afterJoin()
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	in := TickInput{Lidar: lidOut.Slots, Radar: b.Radar, IMU: b.IMU}
	var st StepStats
	for i, out := range camOut {
		in.Camera[i] = out.Candidates
		if out.FrameComplete {
			st.FramesCompleted++
		}
		st.CameraDropped += out.Dropped
		st.PixelsRejected += out.Rejected
	}
	st.LidarSamples = lidOut.Samples
	st.LidarInvalid = lidOut.Invalid
	st.LidarDropped = lidOut.Dropped
	st.LidarZero = lidOut.ZeroDropped
	p.accumulate(st)

	res := p.orch.tickAt(gen, in)
	if res.Discarded {
		p.resetProducers()
	}
	return res, nil
}

func (p *Pipeline) resetProducers() {
	for _, ch := range p.cameras {
		ch.Reset()
	}
	p.clusterer.Reset()
}

// Reset clears the orchestrator immediately. A Step already past its
// generation check finishes its producers but its candidates are dropped.
func (p *Pipeline) Reset() Result {
	return p.orch.Reset()
}

func (p *Pipeline) accumulate(st StepStats) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	p.stats.FramesCompleted += st.FramesCompleted
	p.stats.CameraDropped += st.CameraDropped
	p.stats.PixelsRejected += st.PixelsRejected
	p.stats.LidarSamples += st.LidarSamples
	p.stats.LidarInvalid += st.LidarInvalid
	p.stats.LidarDropped += st.LidarDropped
	p.stats.LidarZero += st.LidarZero
}

// Stats returns producer counters accumulated over every step.
func (p *Pipeline) Stats() StepStats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.stats
}
