package tracking

import (
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/sensor.fusion/internal/fixedpoint"
	"github.com/banshee-data/sensor.fusion/internal/sensor"
	"github.com/banshee-data/sensor.fusion/internal/sensor/auxiliary"
)

// MaxTracks is the fixed size of the track table.
const MaxTracks = 16

// LidarSlots is the number of positional LiDAR candidate slots per tick.
const LidarSlots = sensor.MaxCandidates

// Track is one row of the track table. State and covariance are fixed-point
// int32; covariance is diagonal only.
type Track struct {
	Index int
	ID    string // assigned on activation, empty while inactive

	X, Y, VX, VY     int32
	CX, CY, CVX, CVY int32

	Active    bool
	Source    sensor.Modality // modality that activated the track
	Hits      uint64          // position corrections since activation
	IdleTicks int             // consecutive ticks without a position correction
}

// Input is everything the bank consumes in one tick.
type Input struct {
	Lidar  [LidarSlots]sensor.Candidate
	Camera [][]sensor.Candidate
	Radar  auxiliary.RadarSample
	IMU    auxiliary.IMUSample
}

// Report summarises one tick.
type Report struct {
	Activated      int
	Corrections    int
	RadarCorrected bool
	Seeded         int
	Rejected       int
	Replaced       int
	Expired        int
	MeanResidual   float64 // mean post-correction distance to the measurement
}

// Bank owns the track table. All methods are safe for concurrent use, but
// ticks are expected to come from a single driver.
type Bank struct {
	mu    sync.Mutex
	cfg   Config
	arith fixedpoint.Arith

	tracks    [MaxTracks]Track
	active    int
	corrected [MaxTracks]bool

	residualSum   float64
	residualCount int

	counters counters
	history  residualRing
}

// NewBank returns a bank in the reset state.
func NewBank(cfg Config) *Bank {
	if cfg.CovarianceFloor < 0 {
		cfg.CovarianceFloor = 0
	}
	if cfg.MaxCovariance <= 0 {
		cfg.MaxCovariance = math.MaxInt32
	}
	b := &Bank{cfg: cfg, arith: fixedpoint.Arith{Policy: cfg.Overflow}}
	b.history = newResidualRing(cfg.ResidualHistory)
	b.resetLocked()
	b.counters.resets = 0
	return b
}

// Config returns the bank's configuration.
func (b *Bank) Config() Config {
	return b.cfg
}

// Reset returns every track to the zero state with the initial covariance
// and clears active_count.
func (b *Bank) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetLocked()
}

func (b *Bank) resetLocked() {
	for i := range b.tracks {
		b.tracks[i] = b.initialTrack(i)
	}
	b.active = 0
	b.corrected = [MaxTracks]bool{}
	b.residualSum, b.residualCount = 0, 0
	b.counters.resets++
}

func (b *Bank) initialTrack(i int) Track {
	return Track{
		Index: i,
		CX:    b.cfg.InitialPositionVariance,
		CY:    b.cfg.InitialPositionVariance,
		CVX:   b.cfg.InitialVelocityVariance,
		CVY:   b.cfg.InitialVelocityVariance,
	}
}

// ActiveCount returns active_count.
func (b *Bank) ActiveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// Snapshot copies the active tracks in index order.
func (b *Bank) Snapshot() []Track {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Track, b.active)
	copy(out, b.tracks[:b.active])
	return out
}

// Tracks copies the whole table, inactive rows included.
func (b *Bank) Tracks() [MaxTracks]Track {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tracks
}

// Tick runs one full update: predict, LiDAR correction, radar velocity
// correction, camera seeding, then idle accounting and expiry.
func (b *Bank) Tick(in Input) Report {
	b.mu.Lock()
	defer b.mu.Unlock()

	var rep Report
	b.predictLocked(in.IMU)
	b.correctLocked(&in.Lidar, &rep)
	rep.RadarCorrected = b.correctRadarLocked(in.Radar)
	b.seedLocked(in.Camera, &rep)
	b.endTickLocked(&rep)

	tracef("tick %d: active=%d corrections=%d seeded=%d rejected=%d expired=%d",
		b.counters.ticks, b.active, rep.Corrections, rep.Seeded, rep.Rejected, rep.Expired)
	return rep
}

// Predict advances every active track one unit time step and inflates its
// positional covariance by Q plus the IMU noise bias.
func (b *Bank) Predict(imu auxiliary.IMUSample) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.predictLocked(imu)
}

func (b *Bank) predictLocked(imu auxiliary.IMUSample) {
	q := b.arith.Add(b.cfg.ProcessNoise, imu.NoiseBias(b.cfg.IMUNoiseShift))
	for i := 0; i < b.active; i++ {
		t := &b.tracks[i]
		t.X = b.arith.Add(t.X, t.VX)
		t.Y = b.arith.Add(t.Y, t.VY)
		t.CX = b.clampCov(b.arith.Add(t.CX, q))
		t.CY = b.clampCov(b.arith.Add(t.CY, q))
	}
}

// Correct applies the tick's LiDAR slots. A zero slot is skipped.
func (b *Bank) Correct(lidar [LidarSlots]sensor.Candidate) Report {
	b.mu.Lock()
	defer b.mu.Unlock()
	var rep Report
	b.correctLocked(&lidar, &rep)
	rep.MeanResidual = b.tickResidual()
	b.residualSum, b.residualCount = 0, 0
	b.corrected = [MaxTracks]bool{}
	return rep
}

func (b *Bank) correctLocked(lidar *[LidarSlots]sensor.Candidate, rep *Report) {
	if b.cfg.Association == Nearest {
		b.correctNearest(lidar, rep)
		return
	}

	// A non-empty slot beyond active_count activates every track up to it.
	highest := -1
	for i := range lidar {
		if !lidar[i].IsSentinel() {
			highest = i
		}
	}
	for b.active <= highest {
		b.activate(b.active, sensor.ModalityLidar)
		rep.Activated++
	}

	n := min(b.active, LidarSlots)
	for i := 0; i < n; i++ {
		c := lidar[i]
		if c.IsSentinel() {
			continue
		}
		b.correctTrack(i, c.X, c.Y, rep)
	}
}

// activate brings the row at idx into use with the reset state.
func (b *Bank) activate(idx int, src sensor.Modality) {
	t := b.initialTrack(idx)
	t.Active = true
	t.ID = uuid.NewString()
	t.Source = src
	b.tracks[idx] = t
	if idx >= b.active {
		b.active = idx + 1
	}
	b.counters.activations++
	diagf("activated track %d (%s) id=%s", idx, src, t.ID)
}

func (b *Bank) correctTrack(i int, mx, my int32, rep *Report) {
	t := &b.tracks[i]

	gx := b.arith.Gain(t.CX, b.cfg.MeasurementNoise)
	t.X = b.arith.Add(t.X, b.arith.Step(gx, b.arith.Sub(mx, t.X)))
	t.CX = b.clampCov(b.arith.Sub(t.CX, b.arith.MulShift(gx, t.CX)))

	gy := b.arith.Gain(t.CY, b.cfg.MeasurementNoise)
	t.Y = b.arith.Add(t.Y, b.arith.Step(gy, b.arith.Sub(my, t.Y)))
	t.CY = b.clampCov(b.arith.Sub(t.CY, b.arith.MulShift(gy, t.CY)))

	t.Hits++
	t.IdleTicks = 0
	b.corrected[i] = true
	b.counters.corrections++
	rep.Corrections++

	b.residualSum += math.Hypot(float64(mx)-float64(t.X), float64(my)-float64(t.Y))
	b.residualCount++
}

// CorrectRadar applies a radar reading to the active track nearest the
// radar target, if one lies inside the radar gate. The radial velocity is
// resolved into (vx, vy) along the radar angle.
func (b *Bank) CorrectRadar(r auxiliary.RadarSample) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.correctRadarLocked(r)
}

func (b *Bank) correctRadarLocked(r auxiliary.RadarSample) bool {
	if !r.Valid || b.active == 0 {
		return false
	}
	tx, ty := r.Target()
	idx := b.nearest(tx, ty, b.cfg.RadarGate, nil)
	if idx < 0 {
		b.counters.radarMisses++
		return false
	}
	vx, vy := r.VelocityComponents()
	t := &b.tracks[idx]

	gx := b.arith.Gain(t.CVX, b.cfg.VelocityMeasurementNoise)
	t.VX = b.arith.Add(t.VX, b.arith.Step(gx, b.arith.Sub(vx, t.VX)))
	t.CVX = b.clampCov(b.arith.Sub(t.CVX, b.arith.MulShift(gx, t.CVX)))

	gy := b.arith.Gain(t.CVY, b.cfg.VelocityMeasurementNoise)
	t.VY = b.arith.Add(t.VY, b.arith.Step(gy, b.arith.Sub(vy, t.VY)))
	t.CVY = b.clampCov(b.arith.Sub(t.CVY, b.arith.MulShift(gy, t.CVY)))

	b.counters.radarCorrections++
	return true
}

func (b *Bank) seedLocked(channels [][]sensor.Candidate, rep *Report) {
	if !b.cfg.CameraSeeding {
		return
	}
	for _, ch := range channels {
		for _, c := range ch {
			if c.IsSentinel() {
				continue
			}
			if b.nearest(c.X, c.Y, b.cfg.CameraSeedGate, nil) >= 0 {
				continue
			}
			if b.spawn(c.X, c.Y, sensor.ModalityCamera, rep) >= 0 {
				rep.Seeded++
				b.counters.cameraSeeds++
			}
		}
	}
}

// spawn starts a track at (x, y), applying the capacity policy when the
// table is full. Rows already observed this tick are never replaced. It
// returns the row used, or -1 when the request was rejected.
func (b *Bank) spawn(x, y int32, src sensor.Modality, rep *Report) int {
	idx := b.active
	if idx >= MaxTracks {
		if b.cfg.Capacity == ReplaceWeakest {
			idx = b.weakest(&b.corrected)
		} else {
			idx = -1
		}
		if idx < 0 {
			b.counters.capacityRejections++
			rep.Rejected++
			diagf("track table full, rejecting %s candidate at (%d, %d)", src, x, y)
			return -1
		}
		b.counters.replacements++
		rep.Replaced++
		diagf("track table full, replacing weakest track %d with %s candidate at (%d, %d)", idx, src, x, y)
	} else {
		rep.Activated++
	}

	b.activate(idx, src)
	t := &b.tracks[idx]
	t.X, t.Y = x, y
	t.Hits = 1
	b.corrected[idx] = true
	return idx
}

// weakest returns the active row with the largest cx+cy, lowest index on
// ties, skipping excluded rows.
func (b *Bank) weakest(exclude *[MaxTracks]bool) int {
	best, bestCov := -1, int64(-1)
	for i := 0; i < b.active; i++ {
		if exclude != nil && exclude[i] {
			continue
		}
		cov := int64(b.tracks[i].CX) + int64(b.tracks[i].CY)
		if cov > bestCov {
			best, bestCov = i, cov
		}
	}
	return best
}

// nearest returns the active row closest to (x, y) in Chebyshev distance
// within gate, lowest index on ties, or -1.
func (b *Bank) nearest(x, y, gate int32, exclude *[MaxTracks]bool) int {
	best, bestDist := -1, int64(gate)+1
	for i := 0; i < b.active; i++ {
		if exclude != nil && exclude[i] {
			continue
		}
		d := chebyshev(b.tracks[i].X, b.tracks[i].Y, x, y)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func chebyshev(ax, ay, bx, by int32) int64 {
	dx := int64(ax) - int64(bx)
	if dx < 0 {
		dx = -dx
	}
	dy := int64(ay) - int64(by)
	if dy < 0 {
		dy = -dy
	}
	return max(dx, dy)
}

func (b *Bank) clampCov(v int32) int32 {
	return fixedpoint.Clamp(v, b.cfg.CovarianceFloor, b.cfg.MaxCovariance)
}

func (b *Bank) tickResidual() float64 {
	if b.residualCount == 0 {
		return 0
	}
	return b.residualSum / float64(b.residualCount)
}

func (b *Bank) endTickLocked(rep *Report) {
	for i := 0; i < b.active; i++ {
		if !b.corrected[i] {
			b.tracks[i].IdleTicks++
		}
	}
	b.corrected = [MaxTracks]bool{}

	if b.cfg.MaxIdleTicks > 0 {
		rep.Expired = b.expire()
	}

	rep.MeanResidual = b.tickResidual()
	if b.residualCount > 0 {
		b.history.push(rep.MeanResidual)
	}
	b.residualSum, b.residualCount = 0, 0
	b.counters.ticks++
}

// expire retires tracks idle for MaxIdleTicks and compacts the survivors
// downward, keeping their relative order.
func (b *Bank) expire() int {
	w := 0
	for r := 0; r < b.active; r++ {
		t := b.tracks[r]
		if t.IdleTicks >= b.cfg.MaxIdleTicks {
			diagf("retiring track %d id=%s after %d idle ticks", r, t.ID, t.IdleTicks)
			continue
		}
		t.Index = w
		b.tracks[w] = t
		w++
	}
	expired := b.active - w
	for i := w; i < b.active; i++ {
		b.tracks[i] = b.initialTrack(i)
	}
	b.active = w
	b.counters.expired += uint64(expired)
	return expired
}
