package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/absql/internal/compiler"
	"github.com/roach88/absql/internal/ir"
	"github.com/roach88/absql/internal/sqlast"
)

// Stream is the merged output of one root row stream.
//
// Stream implements RowStream, so merged streams can be drained with
// Collect or handed to anything that consumes rows.
//
// Thread-safety: Next must not be called concurrently. Close may be
// called from any goroutine and cancels in-flight work.
type Stream struct {
	m      *Merger
	ctx    context.Context
	cancel context.CancelFunc
	root   RowStream
	res    *sqlast.Result
	runID  string
	logger *slog.Logger
	quota  *subQueryQuota

	rows int   // root rows emitted
	err  error // terminal state, returned by every later Next

	// parallel mode
	started bool
	pending *slotQueue
	done    chan struct{} // closed when the producer has exited

	mu        sync.Mutex // held by Next; Close takes it before closing root
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// RunID returns the ID that tags this stream's log lines.
func (s *Stream) RunID() string {
	return s.runID
}

// Next returns the next merged object, or io.EOF after the last one.
//
// Once Next returns an error, every later call returns the same error.
// After Close, Next returns ErrStreamClosed.
func (s *Stream) Next(ctx context.Context) (ir.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return nil, ErrStreamClosed
	}
	if s.err != nil {
		return nil, s.err
	}

	ctx, stop := s.bind(ctx)
	defer stop()

	var (
		obj ir.Object
		err error
	)
	if s.m.concurrency > 1 {
		obj, err = s.nextParallel(ctx)
	} else {
		obj, err = s.nextSequential(ctx)
	}

	if err != nil {
		s.fail(err)
		return nil, s.err
	}
	s.rows++
	return obj, nil
}

// Close cancels in-flight work, waits for it to stop, and closes the
// root stream.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.cancel()

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.done != nil {
			<-s.done
		}
		s.closeErr = s.root.Close()
	})
	return s.closeErr
}

// bind returns a context cancelled when either the caller's ctx or the
// stream's own context is. The caller's deadline carries over.
func (s *Stream) bind(ctx context.Context) (context.Context, func()) {
	bound, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return bound, func() {
		stop()
		cancel()
	}
}

// fail records the terminal error and stops any read-ahead.
func (s *Stream) fail(err error) {
	s.err = err
	s.cancel()

	switch {
	case errors.Is(err, io.EOF):
		s.logger.Info("merge stream finished", "rows", s.rows, "sub_queries", s.quota.Used())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.logger.Debug("merge stream cancelled", "rows", s.rows, "error", err)
	default:
		s.logger.Error("merge stream failed", "rows", s.rows, "error", err)
	}
}

func (s *Stream) nextSequential(ctx context.Context) (ir.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := s.rows
	row, err := s.root.Next(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, s.streamError(ctx, n, "", err)
	}
	return s.mergeRow(ctx, n, row, s.res.AliasMapping, s.res.SubQueries, "")
}

func (s *Stream) nextParallel(ctx context.Context) (ir.Object, error) {
	if !s.started {
		s.started = true
		s.pending = newSlotQueue(s.m.concurrency)
		s.done = make(chan struct{})
		go s.produce()
	}

	sl, ok, err := s.pending.Pop(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := s.ctx.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}

	select {
	case <-sl.done:
		return sl.obj, sl.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// produce reads root rows and starts one merge per row, at most
// concurrency at a time. It is the only reader of the root stream while
// running; Close waits for it to exit before closing the root.
func (s *Stream) produce() {
	var g errgroup.Group
	g.SetLimit(s.m.concurrency)

	defer close(s.done)
	defer s.pending.Close()
	defer func() { _ = g.Wait() }()

	for n := 0; ; n++ {
		row, err := s.root.Next(s.ctx)
		if errors.Is(err, io.EOF) {
			return
		}

		sl := newSlot(n)
		if err != nil {
			sl.resolve(nil, s.streamError(s.ctx, n, "", err))
			s.pending.Push(s.ctx, sl)
			return
		}
		if !s.pending.Push(s.ctx, sl) {
			return
		}

		g.Go(func() error {
			obj, err := s.mergeRow(s.ctx, n, row, s.res.AliasMapping, s.res.SubQueries, "")
			sl.resolve(obj, err)
			// Errors travel through the slot so they surface in root order.
			return nil
		})
	}
}

// mergeRow builds the output object for one row of a statement whose
// sub-query templates are subs. row is the index of the root row that
// this work belongs to.
func (s *Stream) mergeRow(ctx context.Context, row int, flat ir.Object, mapping sqlast.AliasMapping, subs []sqlast.SubQuery, prefix string) (ir.Object, error) {
	out := make(ir.Object, len(mapping))

	for _, entry := range mapping {
		path := joinAlias(prefix, entry.Key())

		switch e := entry.(type) {
		case sqlast.RootAlias:
			name := s.m.columnName(e.ColumnIndex)
			v, ok := flat[name]
			if !ok {
				return nil, s.mergeError(ErrCodeInvalidMapping, row, path, fmt.Errorf("column %q missing from row", name))
			}
			out[e.Alias] = v

		case sqlast.NestedAlias:
			child, err := s.mergeRow(ctx, row, flat, e.Children, subs, path)
			if err != nil {
				return nil, err
			}
			out[e.Alias] = child

		case sqlast.SubAlias:
			if e.Index < 0 || e.Index >= len(subs) {
				return nil, s.mergeError(ErrCodeInvalidMapping, row, path, errors.New("sub-query index out of range"))
			}
			arr, err := s.fetch(ctx, row, flat, subs[e.Index], path)
			if err != nil {
				return nil, err
			}
			out[e.Alias] = arr

		default:
			return nil, s.mergeError(ErrCodeInvalidMapping, row, path, fmt.Errorf("unknown alias entry %T", entry))
		}
	}

	return out, nil
}

// fetch materializes sq for the parent row, executes it, and merges every
// row it returns, in order.
func (s *Stream) fetch(ctx context.Context, row int, parent ir.Object, sq sqlast.SubQuery, path string) (ir.Array, error) {
	sub, err := compiler.Materialize(sq, parent, s.m.columnName)
	if err != nil {
		return nil, s.mergeError(ErrCodeMaterializeFailed, row, path, err)
	}
	if !s.quota.Check() {
		return nil, s.mergeError(ErrCodeQuotaExceeded, row, path,
			fmt.Errorf("more than %d sub-query executions", s.quota.max))
	}

	s.logger.Debug("executing sub-query",
		"row", row,
		"alias", path,
		"collection", sub.Root.Clauses.From.Table,
		"parameters", len(sub.Root.Parameters))

	rows, err := s.m.exec.Execute(ctx, sub)
	if err != nil {
		return nil, s.mergeError(ErrCodeExecutionFailed, row, path, err)
	}
	defer rows.Close()

	arr := ir.Array{}
	for {
		flat, err := rows.Next(ctx)
		if errors.Is(err, io.EOF) {
			return arr, nil
		}
		if err != nil {
			return nil, s.streamError(ctx, row, path, err)
		}
		obj, err := s.mergeRow(ctx, row, flat, sub.AliasMapping, sub.SubQueries, path)
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

func (s *Stream) mergeError(code MergeErrorCode, row int, alias string, err error) *MergeError {
	return &MergeError{Code: code, Row: row, Alias: alias, RunID: s.runID, Err: err}
}

// streamError wraps a read failure, passing cancellation through as-is
// so callers can match it with errors.Is.
func (s *Stream) streamError(ctx context.Context, row int, alias string, err error) error {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return err
	}
	return s.mergeError(ErrCodeStreamFailed, row, alias, err)
}
