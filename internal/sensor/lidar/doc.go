// Package lidar turns the streamed LiDAR feed into per-tick candidates.
//
// Each Sample carries a distance and two binary angles (65536 units per
// turn). The Clusterer projects samples to Cartesian positions, groups them
// into distance/angle buckets and emits one centroid per bucket into a fixed
// array of sensor.MaxCandidates slots. An unused slot holds the zero
// Candidate, which the tracker treats as "no candidate".
package lidar
