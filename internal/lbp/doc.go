// Package lbp implements the Local Binary Pattern operator used on each of
// the three orthogonal planes of an LBP-TOP descriptor.
//
// An Operator is configured once (neighbour count, radius pair, circular
// sampling, label variant and extended comparison mode) and then applied to
// any Plane: a single frame (XY) or a time-major slice of a volume (XT, YT).
// Pixels closer to the plane border than the sampling radius are skipped.
//
// Histogram lengths depend only on the label variant: 256 bins for regular
// codes, 10 for rotation-invariant uniform (riu2) and 59 for uniform codes.
package lbp
