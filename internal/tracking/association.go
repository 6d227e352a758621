package tracking

import "github.com/banshee-data/sensor.fusion/internal/sensor"

// correctNearest pairs candidates with tracks greedily in slot order: each
// candidate takes the closest unclaimed active track inside the association
// gate. A candidate with no track in reach starts a new track at its own
// position, subject to the capacity policy.
func (b *Bank) correctNearest(lidar *[LidarSlots]sensor.Candidate, rep *Report) {
	var claimed [MaxTracks]bool
	for _, c := range lidar {
		if c.IsSentinel() {
			continue
		}
		if idx := b.nearest(c.X, c.Y, b.cfg.AssociationGate, &claimed); idx >= 0 {
			claimed[idx] = true
			b.correctTrack(idx, c.X, c.Y, rep)
			continue
		}
		if idx := b.spawn(c.X, c.Y, sensor.ModalityLidar, rep); idx >= 0 {
			claimed[idx] = true
		}
	}
}
