// Package fusion drives the fixed-rate tick: camera and LiDAR producers run in
// parallel, join at a barrier, and their candidates feed one predict/correct
// step of the track bank. Each tick emits the fused object list.
//
// Orchestrator is the synchronous core. Pipeline adds the parallel producers
// and reset cancellation on top of it, and Runner paces Pipeline steps from a
// clock, pulling Batches from a Source and pushing Results to Sinks.
package fusion
