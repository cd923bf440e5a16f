// Package stm implements a TL2-style software transactional memory
// engine: multiple goroutines run groups of shared-memory reads and
// writes as if each group occurred atomically and in isolation, with the
// engine deciding at commit time whether a transaction's view of memory
// was consistent and either publishing its writes or discarding them.
//
// A Region owns the shared address space. Transactions are begun against
// a Region, read and write through opaque Address values, and end by
// either committing every buffered write at a new global version or
// aborting with no visible effect.
package stm
