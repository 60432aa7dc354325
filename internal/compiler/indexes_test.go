package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexAllocator_StartsAtZero(t *testing.T) {
	idx := NewIndexAllocator()

	assert.Equal(t, 0, idx.NextTable())
	assert.Equal(t, 0, idx.NextColumn())
	assert.Equal(t, 0, idx.NextParameter())
}

func TestIndexAllocator_CountersAreIndependent(t *testing.T) {
	idx := NewIndexAllocator()

	for i := 0; i < 3; i++ {
		idx.NextTable()
	}
	idx.NextColumn()

	assert.Equal(t, 0, idx.NextParameter())
	assert.Equal(t, 1, idx.NextColumn())
	assert.Equal(t, 3, idx.NextTable())

	tables, columns, params := idx.Allocated()
	assert.Equal(t, 4, tables)
	assert.Equal(t, 2, columns)
	assert.Equal(t, 1, params)
}

func TestIndexAllocator_Monotonic(t *testing.T) {
	idx := NewIndexAllocator()
	seen := make(map[int]bool)

	prev := -1
	for i := 0; i < 100; i++ {
		n := idx.NextParameter()
		assert.Greater(t, n, prev)
		assert.False(t, seen[n], "index %d returned twice", n)
		seen[n] = true
		prev = n
	}
}

func TestIndexAllocator_FreshAllocatorsDoNotShareState(t *testing.T) {
	a := NewIndexAllocator()
	a.NextTable()
	a.NextTable()

	b := NewIndexAllocator()
	assert.Equal(t, 0, b.NextTable())
	assert.Equal(t, 2, a.NextTable())
}
