// Package frame owns the grayscale frame model shared by every stage of the
// extraction pipeline.
//
// Responsibilities: float64 grayscale frames, frame sequences, conversion
// from decoded images and whole-frame geometric fixes (180° rotation).
// Key types: Gray, Sequence.
//
// Dependency rule: frame depends only on the standard library image packages.
// Higher layers (lbp, volume, lbptop) consume frames but never mutate them
// after decoding.
package frame
