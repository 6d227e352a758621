// Package tracking maintains a fixed bank of up to 16 tracks, each a
// fixed-point constant-velocity estimate of one object's position.
//
// Every tick runs in a fixed order: predict, LiDAR correction, radar velocity
// correction, optional camera seeding, then idle accounting. Tracks are always
// visited in ascending index order so results are reproducible.
//
// Association between LiDAR slots and tracks is positional by default: track
// i is corrected by slot i of the same tick, with no re-identification across
// ticks. Nearest-neighbour association is available as an opt-in
// enhancement.
package tracking
