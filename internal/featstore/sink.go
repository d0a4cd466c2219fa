package featstore

import (
	"context"
	"errors"

	"gonum.org/v1/gonum/mat"
)

// Sink accepts the named feature matrices of a video.
type Sink interface {
	Save(ctx context.Context, videoID, name string, m *mat.Dense) error
}

// MultiSink saves to every sink and joins their errors.
type MultiSink []Sink

// Save implements Sink.
func (ms MultiSink) Save(ctx context.Context, videoID, name string, m *mat.Dense) error {
	var errs []error
	for _, s := range ms {
		if err := s.Save(ctx, videoID, name, m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
