package fusion

import (
	"sync"

	"github.com/banshee-data/sensor.fusion/internal/sensor"
	"github.com/banshee-data/sensor.fusion/internal/tracking"
)

// Orchestrator runs ticks against a track bank. It is the only caller that
// mutates the bank; everyone else reads snapshots.
type Orchestrator struct {
	mu         sync.Mutex
	bank       *tracking.Bank
	valid      bool
	seq        uint64
	generation uint64
	last       Result
}

// NewOrchestrator resets bank and takes ownership of it.
func NewOrchestrator(bank *tracking.Bank) *Orchestrator {
	bank.Reset()
	o := &Orchestrator{bank: bank}
	o.last = o.resultLocked(tracking.Report{}, 0)
	return o
}

// Bank returns the owned bank for read-only use (metrics, snapshots).
func (o *Orchestrator) Bank() *tracking.Bank {
	return o.bank
}

// Tick runs predict then correct and emits the active tracks. It never
// fails: oversize candidate lists are truncated and bad slots are skipped.
func (o *Orchestrator) Tick(in TickInput) Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tickLocked(in)
}

// tickAt runs the tick only if no reset happened since generation was read.
// A stale tick is discarded and the current (reset) state is returned.
func (o *Orchestrator) tickAt(generation uint64, in TickInput) Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	if generation != o.generation {
		diagf("discarding tick from generation %d (now %d)", generation, o.generation)
		r := o.last
		r.Discarded = true
		return r
	}
	return o.tickLocked(in)
}

func (o *Orchestrator) tickLocked(in TickInput) Result {
	truncated := 0
	cams := make([][]sensor.Candidate, NumCameras)
	for i, c := range in.Camera {
		var dropped int
		cams[i], dropped = sensor.Truncate(c)
		truncated += dropped
	}

	rep := o.bank.Tick(tracking.Input{
		Lidar:  in.Lidar,
		Camera: cams,
		Radar:  in.Radar,
		IMU:    in.IMU,
	})
	o.seq++
	o.valid = true
	o.last = o.resultLocked(rep, truncated)

	tracef("tick %d: count=%d corrections=%d", o.seq, o.last.Count, rep.Corrections)
	return o.last
}

func (o *Orchestrator) resultLocked(rep tracking.Report, truncated int) Result {
	snap := o.bank.Snapshot()
	objects := make([]FusedObject, len(snap))
	for i, t := range snap {
		objects[i] = objectFromTrack(t)
	}
	return Result{
		Seq:             o.seq,
		Generation:      o.generation,
		Objects:         objects,
		Count:           len(objects),
		Valid:           o.valid,
		Report:          rep,
		CameraTruncated: truncated,
	}
}

// Reset clears every track and the validity flag and invalidates any tick in
// flight. It returns the post-reset result.
func (o *Orchestrator) Reset() Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.bank.Reset()
	o.valid = false
	o.generation++
	o.last = o.resultLocked(tracking.Report{}, 0)
	opsf("fusion reset (generation %d)", o.generation)
	return o.last
}

// Generation returns the reset generation.
func (o *Orchestrator) Generation() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.generation
}

// Valid reports whether a tick has completed since the last reset.
func (o *Orchestrator) Valid() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.valid
}

// Last returns the most recent result.
func (o *Orchestrator) Last() Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}
