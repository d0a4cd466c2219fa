// Package volume owns the spatio-temporal volume (time × height × width)
// built from consecutive normalized face frames, and its three orthogonal
// plane families.
//
// XY planes are the frames themselves. XT planes fix one image row and sweep
// it across time (T×W); YT planes fix one column (T×H). The XT/YT planes are
// zero-copy views over the frames.
package volume
