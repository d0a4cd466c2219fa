// Package video owns decoding of input videos into grayscale frame sequences.
//
// Directories are read as image sequences, .y4m files with the built-in
// YUV4MPEG2 reader (luma plane only), and any other container through OpenCV
// when the binary is built with -tags withcv.
package video
