package stm

import "sync/atomic"

// segment is a variable-length, word-addressed array of shared memory.
// The first segment (slot 0) is created by Region creation and lives for
// the region's lifetime; later segments are created by Region.Alloc and
// destroyed by finalizeFree after the freeing transaction commits.
type segment struct {
	words     []*word
	deleted   atomic.Bool // first markForDeletion call wins
	sizeBytes uint64
}

func newSegment(sizeBytes, align uint64) *segment {
	count := sizeBytes / align
	words := make([]*word, count)
	for i := range words {
		words[i] = newWord(align)
	}
	return &segment{words: words, sizeBytes: sizeBytes}
}

// markForDeletion atomically sets the deletion flag, returning true only
// to the first caller, so exactly one transaction is charged with
// eventually finalizing the free.
func (s *segment) markForDeletion() bool {
	return s.deleted.CompareAndSwap(false, true)
}

// clearDeletionMark undoes markForDeletion; used when the transaction
// that marked a segment for deletion aborts.
func (s *segment) clearDeletionMark() {
	s.deleted.Store(false)
}

