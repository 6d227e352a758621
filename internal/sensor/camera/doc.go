// Package camera implements the per-channel camera pipeline: a FrameBuffer
// that accumulates a streamed pixel feed into a 1024x1024 grayscale frame,
// and an EdgeDetector that turns a completed frame into at most
// sensor.MaxCandidates coarse candidates.
//
// Each Channel owns its buffer for the life of the process. Nothing here is
// shared between channels, so four channels may run in parallel without
// locking.
package camera
