package auxiliary

import (
	"sync"
	"time"
)

// Snapshot is the pair of readings sampled for one tick.
type Snapshot struct {
	Radar   RadarSample
	IMU     IMUSample
	RadarAt time.Time
	IMUAt   time.Time
}

// Latch holds the most recent radar and IMU readings until replaced. Writers
// run on ingest goroutines; the tick reads with Snapshot.
type Latch struct {
	mu   sync.Mutex
	snap Snapshot

	radarUpdates uint64
	imuUpdates   uint64
}

// UpdateRadar replaces the held radar reading.
func (l *Latch) UpdateRadar(s RadarSample, at time.Time) {
	l.mu.Lock()
	l.snap.Radar = s
	l.snap.RadarAt = at
	l.radarUpdates++
	l.mu.Unlock()
}

// UpdateIMU replaces the held IMU reading.
func (l *Latch) UpdateIMU(s IMUSample, at time.Time) {
	l.mu.Lock()
	l.snap.IMU = s
	l.snap.IMUAt = at
	l.imuUpdates++
	l.mu.Unlock()
}

// Snapshot returns the held readings. Readings are not consumed; the same
// values are returned until replaced.
func (l *Latch) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snap
}

// Updates returns how many radar and IMU readings have been latched.
func (l *Latch) Updates() (radar, imu uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.radarUpdates, l.imuUpdates
}

// Clear drops both readings, leaving them invalid.
func (l *Latch) Clear() {
	l.mu.Lock()
	l.snap = Snapshot{}
	l.mu.Unlock()
}
