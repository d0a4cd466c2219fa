// Package lbptop owns the sliding-window LBP-TOP computation.
//
// For every frame far enough from both ends of a video, the Extractor carves
// a local spatio-temporal volume around it for each configured temporal
// radius, normalizes the frames it needs and builds one histogram per
// orthogonal plane:
//
//	XY  the target frame itself (spatial texture)
//	XT  every image row swept across time
//	YT  every image column swept across time
//
// XT and YT histograms of different radii are concatenated column-wise. Rows
// for frames without a full window stay NaN so every matrix has exactly one
// row per video frame.
package lbptop
