// Package report owns diagnostic summaries and charts of feature matrices.
package report
