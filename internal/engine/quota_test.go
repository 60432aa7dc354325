package engine

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/absql/internal/ir"
	"github.com/roach88/absql/internal/sqlast"
)

// eofStream is an empty root stream that records Close.
type eofStream struct{ closed bool }

func (s *eofStream) Next(context.Context) (ir.Object, error) { return nil, io.EOF }
func (s *eofStream) Close() error                            { s.closed = true; return nil }

func TestSubQueryQuota_WithinLimit(t *testing.T) {
	q := newSubQueryQuota(3)

	for i := 0; i < 3; i++ {
		assert.True(t, q.Check(), "execution %d should be allowed", i+1)
	}
	assert.False(t, q.Check())
	assert.Equal(t, 4, q.Used())
}

func TestSubQueryQuota_Unlimited(t *testing.T) {
	q := newSubQueryQuota(0)
	for i := 0; i < 1000; i++ {
		require.True(t, q.Check())
	}
}

func TestSubQueryQuota_Concurrent(t *testing.T) {
	q := newSubQueryQuota(50)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if q.Check() {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, allowed)
	assert.Equal(t, 100, q.Used())
}

func TestSlotQueue_FIFO(t *testing.T) {
	ctx := context.Background()
	q := newSlotQueue(3)

	for i := 0; i < 3; i++ {
		require.True(t, q.Push(ctx, newSlot(i)))
	}
	q.Close()

	for i := 0; i < 3; i++ {
		s, ok, err := q.Pop(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, i, s.row)
	}
	_, ok, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "closed and drained")
}

func TestSlotQueue_PushBlocksWhenFull(t *testing.T) {
	q := newSlotQueue(1)
	require.True(t, q.Push(context.Background(), newSlot(0)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, q.Push(ctx, newSlot(1)))

	_, _, err := newSlotQueue(1).Pop(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckMapping(t *testing.T) {
	tests := []struct {
		name    string
		mapping sqlast.AliasMapping
		subs    int
		alias   string
	}{
		{"valid", sqlast.AliasMapping{
			sqlast.RootAlias{Alias: "id"},
			sqlast.NestedAlias{Alias: "customer", Children: sqlast.AliasMapping{sqlast.SubAlias{Alias: "addresses", Index: 0}}},
		}, 1, ""},
		{"index out of range", sqlast.AliasMapping{sqlast.SubAlias{Alias: "items", Index: 1}}, 1, "items"},
		{"nested index out of range", sqlast.AliasMapping{
			sqlast.NestedAlias{Alias: "customer", Children: sqlast.AliasMapping{sqlast.SubAlias{Alias: "addresses", Index: 0}}},
		}, 0, "customer.addresses"},
		{"nil entry", sqlast.AliasMapping{nil}, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkMapping(tt.mapping, tt.subs, "")
			if tt.name == "valid" {
				assert.NoError(t, err)
				return
			}
			var me *MergeError
			require.ErrorAs(t, err, &me)
			assert.Equal(t, ErrCodeInvalidMapping, me.Code)
			assert.Equal(t, tt.alias, me.Alias)
			assert.Equal(t, -1, me.Row)
		})
	}
}

func TestMerge_InvalidMappingClosesRoot(t *testing.T) {
	root := &eofStream{}
	m := New(nil, func(int) string { return "" })

	_, err := m.Merge(context.Background(), root, &sqlast.Result{
		AliasMapping: sqlast.AliasMapping{sqlast.SubAlias{Alias: "items", Index: 0}},
	})
	require.Error(t, err)
	assert.True(t, root.closed)
}

func TestMerger_RunIDs(t *testing.T) {
	m := New(nil, func(int) string { return "" }, WithRunIDGenerator(NewFixedGenerator("run-1", "run-2")))

	s1, err := m.Merge(context.Background(), &eofStream{}, &sqlast.Result{})
	require.NoError(t, err)
	s2, err := m.Merge(context.Background(), &eofStream{}, &sqlast.Result{})
	require.NoError(t, err)

	assert.Equal(t, "run-1", s1.RunID())
	assert.Equal(t, "run-2", s2.RunID())
}

func TestWithConcurrency_ClampsToOne(t *testing.T) {
	assert.Equal(t, 1, New(nil, nil, WithConcurrency(0)).concurrency)
	assert.Equal(t, 1, New(nil, nil, WithConcurrency(-4)).concurrency)
	assert.Equal(t, 8, New(nil, nil, WithConcurrency(8)).concurrency)
}

func TestMergeError_Format(t *testing.T) {
	cause := errors.New("connection reset")

	err := &MergeError{Code: ErrCodeExecutionFailed, Row: 3, Alias: "lineItems", Err: cause}
	assert.Equal(t, "EXECUTION_FAILED: row 3, alias lineItems: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsExecutionError(err))
	assert.False(t, IsQuotaError(err))

	root := &MergeError{Code: ErrCodeStreamFailed, Row: -1, Err: cause}
	assert.Equal(t, "STREAM_FAILED: root query: connection reset", root.Error())
	assert.True(t, IsExecutionError(root))

	assert.False(t, IsExecutionError(&MergeError{Code: ErrCodeInvalidMapping}))
	assert.False(t, IsExecutionError(cause))
}
