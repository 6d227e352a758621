// Package sensor holds the per-tick detection types shared by every
// modality: the Candidate record and its class and source labels.
//
// Modality packages (camera, lidar, aux) depend on sensor; sensor depends on
// nothing in this module.
package sensor
