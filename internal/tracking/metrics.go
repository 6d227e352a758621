package tracking

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type counters struct {
	ticks              uint64
	resets             uint64
	activations        uint64
	corrections        uint64
	radarCorrections   uint64
	radarMisses        uint64
	cameraSeeds        uint64
	capacityRejections uint64
	replacements       uint64
	expired            uint64
}

// Metrics is a point-in-time view of the bank's counters and of the
// per-tick mean residuals still in the history window.
type Metrics struct {
	Ticks              uint64 `json:"ticks"`
	Resets             uint64 `json:"resets"`
	ActiveTracks       int    `json:"active_tracks"`
	Activations        uint64 `json:"activations"`
	Corrections        uint64 `json:"corrections"`
	RadarCorrections   uint64 `json:"radar_corrections"`
	RadarMisses        uint64 `json:"radar_misses"`
	CameraSeeds        uint64 `json:"camera_seeds"`
	CapacityRejections uint64 `json:"capacity_rejections"`
	Replacements       uint64 `json:"replacements"`
	Expired            uint64 `json:"expired"`
	Overflows          uint64 `json:"overflows"`

	ResidualSamples int     `json:"residual_samples"`
	ResidualMean    float64 `json:"residual_mean"`
	ResidualStdDev  float64 `json:"residual_stddev"`
	ResidualP95     float64 `json:"residual_p95"`
	ResidualMax     float64 `json:"residual_max"`
}

// Metrics returns the current counters and residual statistics.
func (b *Bank) Metrics() Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.counters
	m := Metrics{
		Ticks:              c.ticks,
		Resets:             c.resets,
		ActiveTracks:       b.active,
		Activations:        c.activations,
		Corrections:        c.corrections,
		RadarCorrections:   c.radarCorrections,
		RadarMisses:        c.radarMisses,
		CameraSeeds:        c.cameraSeeds,
		CapacityRejections: c.capacityRejections,
		Replacements:       c.replacements,
		Expired:            c.expired,
		Overflows:          b.arith.Overflows,
	}

	h := b.history.values()
	m.ResidualSamples = len(h)
	if len(h) == 0 {
		return m
	}
	if len(h) == 1 {
		m.ResidualMean = h[0]
	} else {
		m.ResidualMean, m.ResidualStdDev = stat.MeanStdDev(h, nil)
	}
	sorted := append([]float64(nil), h...)
	sort.Float64s(sorted)
	m.ResidualP95 = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	m.ResidualMax = floats.Max(h)
	return m
}

// ResidualHistory returns the per-tick mean residuals, oldest first. Ticks
// without any position correction are not recorded.
func (b *Bank) ResidualHistory() []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.history.values()
}

// residualRing is a fixed-capacity FIFO of float64 samples.
type residualRing struct {
	buf  []float64
	next int
	full bool
}

func newResidualRing(n int) residualRing {
	if n <= 0 {
		n = 1
	}
	return residualRing{buf: make([]float64, n)}
}

func (r *residualRing) push(v float64) {
	r.buf[r.next] = v
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

func (r *residualRing) values() []float64 {
	if !r.full {
		return append([]float64(nil), r.buf[:r.next]...)
	}
	out := make([]float64, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}
