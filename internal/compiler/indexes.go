package compiler

// IndexAllocator hands out table, column, and parameter indexes for one
// compile pass.
//
// Each counter starts at 0 and is monotonic: a value is never returned
// twice by the same counter within one allocator. One allocator is shared
// by pointer through every recursive call of a pass so sibling sub-trees
// never collide. A nested-many sub-query is an independent statement and
// always gets its own allocator.
//
// Thread-safety: not safe for concurrent use. Compilation is
// single-threaded.
type IndexAllocator struct {
	table     counter
	column    counter
	parameter counter
}

type counter struct {
	next int
}

func (c *counter) take() int {
	n := c.next
	c.next++
	return n
}

// NewIndexAllocator creates an allocator with every counter at 0.
func NewIndexAllocator() *IndexAllocator {
	return &IndexAllocator{}
}

// NextTable returns the next table index.
func (a *IndexAllocator) NextTable() int { return a.table.take() }

// NextColumn returns the next column index.
func (a *IndexAllocator) NextColumn() int { return a.column.take() }

// NextParameter returns the next parameter index.
func (a *IndexAllocator) NextParameter() int { return a.parameter.take() }

// Allocated returns how many indexes each counter has handed out.
func (a *IndexAllocator) Allocated() (tables, columns, parameters int) {
	return a.table.next, a.column.next, a.parameter.next
}
