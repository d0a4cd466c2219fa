// Package featstore owns persistence of extracted feature matrices.
//
// DirSink writes one gonum binary matrix file per video and plane. Store keeps
// matrices together with run provenance and per-video failures in SQLite.
// Both implement Sink; MultiSink fans out to several.
package featstore
