package sync

import "sync/atomic"

// Clock is the process-wide global version clock: a monotonically
// non-decreasing counter read on transaction begin and fetch-incremented
// once per committing read-write transaction. The zero value starts at 0.
type Clock uint64

// Load returns the current clock value with acquire semantics.
func (c *Clock) Load() uint64 {
	return atomic.LoadUint64((*uint64)(c))
}

// FetchAddOne atomically increments the clock and returns the new value.
// Called once per committing read-write transaction to mint its wv.
func (c *Clock) FetchAddOne() uint64 {
	return atomic.AddUint64((*uint64)(c), 1)
}
