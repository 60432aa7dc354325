package engine

import "sync/atomic"

// subQueryQuota counts sub-query executions for one stream and enforces
// an optional maximum.
//
// A to-many field costs one execution per parent row, and nested to-many
// fields multiply. The quota turns an unexpectedly large fan-out into an
// error instead of an unbounded number of round trips.
//
// Thread-safety: safe for concurrent use; parallel mode resolves several
// root rows at once against the same quota.
type subQueryQuota struct {
	max  int64 // 0 means unlimited
	used atomic.Int64
}

func newSubQueryQuota(max int) *subQueryQuota {
	return &subQueryQuota{max: int64(max)}
}

// Check records one execution and reports whether it is within the limit.
func (q *subQueryQuota) Check() bool {
	n := q.used.Add(1)
	return q.max <= 0 || n <= q.max
}

// Used returns the number of executions recorded so far.
func (q *subQueryQuota) Used() int {
	return int(q.used.Load())
}
