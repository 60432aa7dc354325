package testutil

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/roach88/absql/internal/ir"
)

// SliceStream is an in-memory row stream over a fixed slice.
//
// It implements engine.RowStream. Next honors ctx cancellation and can be
// told to fail after a number of rows with FailAfter.
type SliceStream struct {
	rows   []ir.Object
	pos    int
	failAt int // -1: never
	err    error
	closed atomic.Bool
}

// NewSliceStream returns a stream over rows.
func NewSliceStream(rows ...ir.Object) *SliceStream {
	return &SliceStream{rows: rows, failAt: -1}
}

// FailAfter makes Next return err once n rows have been read.
func (s *SliceStream) FailAfter(n int, err error) *SliceStream {
	s.failAt, s.err = n, err
	return s
}

// Next returns the next row, or io.EOF after the last one.
func (s *SliceStream) Next(ctx context.Context) (ir.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.failAt >= 0 && s.pos >= s.failAt {
		return nil, s.err
	}
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

// Close marks the stream closed.
func (s *SliceStream) Close() error {
	s.closed.Store(true)
	return nil
}

// Closed reports whether Close has been called.
func (s *SliceStream) Closed() bool {
	return s.closed.Load()
}

// BlockingStream never yields a row; Next blocks until ctx is cancelled.
// It stands in for a slow driver in cancellation tests.
type BlockingStream struct {
	closed atomic.Bool
}

// Next blocks until ctx is done and returns ctx.Err().
func (s *BlockingStream) Next(ctx context.Context) (ir.Object, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// Close marks the stream closed.
func (s *BlockingStream) Close() error {
	s.closed.Store(true)
	return nil
}

// Closed reports whether Close has been called.
func (s *BlockingStream) Closed() bool {
	return s.closed.Load()
}
