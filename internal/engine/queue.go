package engine

import (
	"context"

	"github.com/roach88/absql/internal/ir"
)

// slot holds the eventual result of merging one root row in parallel
// mode. done is closed once obj or err is set.
type slot struct {
	row  int
	obj  ir.Object
	err  error
	done chan struct{}
}

func newSlot(row int) *slot {
	return &slot{row: row, done: make(chan struct{})}
}

func (s *slot) resolve(obj ir.Object, err error) {
	s.obj, s.err = obj, err
	close(s.done)
}

// slotQueue is a bounded FIFO of pending slots.
//
// The producer pushes slots in root order and the consumer pops them in
// the same order, so output order never depends on which merge finishes
// first. The capacity bounds how many root rows are read ahead of the
// consumer.
type slotQueue struct {
	slots chan *slot
}

func newSlotQueue(capacity int) *slotQueue {
	return &slotQueue{slots: make(chan *slot, capacity)}
}

// Push appends s, blocking while the queue is full.
// Returns false if ctx is cancelled first.
func (q *slotQueue) Push(ctx context.Context, s *slot) bool {
	select {
	case q.slots <- s:
		return true
	case <-ctx.Done():
		return false
	}
}

// Pop removes the front slot, blocking until one is available.
// Returns (nil, false, nil) once the queue is closed and drained.
func (q *slotQueue) Pop(ctx context.Context) (*slot, bool, error) {
	select {
	case s, ok := <-q.slots:
		return s, ok, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Close signals that no more slots will be pushed. Only the producer
// calls it.
func (q *slotQueue) Close() {
	close(q.slots)
}
