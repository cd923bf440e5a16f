package stm

import (
	"time"

	"go.uber.org/zap"
)

// Begin allocates transaction state, snapshots the global clock into rv,
// and returns an opaque handle.
func (r *Region) Begin(readOnly bool) (*Tx, error) {
	rv := r.clock.Load()
	st := newTxState(readOnly, rv)
	r.registerActive(st)
	r.logger.Debug("transaction begin", zap.Bool("read_only", readOnly), zap.Uint64("rv", rv))
	return &Tx{state: st}, nil
}

// End commits or aborts tx, consuming it either way. It returns true iff
// the transaction committed.
func (r *Region) End(tx *Tx) bool {
	st := tx.state
	if st.ended {
		panic(ErrTxConsumed)
	}

	if st.isReadOnly {
		st.ended = true
		r.unregisterActive(st)
		r.metrics.observeEnd(true)
		return true
	}

	committed := r.commit(st)
	st.ended = true
	r.unregisterActive(st)
	r.metrics.observeEnd(committed)
	return committed
}

// commit runs the two-phase TL2 commit protocol for a read-write
// transaction: lock the write set, mint a new commit version, validate
// the read set against it, then publish. It never partially applies:
// every write-set entry is published at wv, or none is.
func (r *Region) commit(st *txState) bool {
	start := time.Now()

	// Step 1: lock write set, fixed (insertion) order, no retry on failure.
	// A word committed since this transaction's rv fails to lock.
	locked, ok := r.lockWriteSet(st)
	if !ok {
		r.unlockAll(locked)
		r.abortCleanup(st)
		return false
	}

	// Step 2: sample the clock.
	st.wv = r.clock.FetchAddOne()

	// Step 3: validate the read set, skipping entirely when no other
	// commit could have interleaved since begin -- rv+1 == wv means this
	// is the very next commit after the one this transaction began
	// against, so nothing it read could have changed underneath it.
	if st.rv+1 != st.wv {
		if !r.validateReadSet(st, locked) {
			r.unlockAll(locked)
			r.abortCleanup(st)
			return false
		}
	}

	// Step 4: publish and queue this transaction's frees for reclamation.
	// A freed segment's slot is only handed back to allocate once no
	// transaction with rv < wv is still active to observe it, so this
	// defers rather than finalizes immediately.
	r.publish(st, locked)
	for _, addr := range st.freeSet {
		r.deferFree(addr, st.wv)
	}

	r.metrics.observeCommitDuration(time.Since(start).Seconds())
	r.logger.Debug("transaction committed", zap.Uint64("rv", st.rv), zap.Uint64("wv", st.wv), zap.Int("writes", st.writeSetSize()))
	return true
}

// lockWriteSet iterates the write set in its stable insertion order,
// try-acquiring each target word against st.rv, so a word that is locked
// or carries a version newer than rv (another transaction committed it
// after this one began) fails the lock phase. On the first failure it stops without
// attempting the rest -- the caller is responsible for releasing what
// lockWriteSet itself acquired, via the returned slice.
func (r *Region) lockWriteSet(st *txState) ([]*word, bool) {
	addrs := st.writeSetAddresses()
	locked := make([]*word, 0, len(addrs))
	for _, addr := range addrs {
		w, err := r.resolve(addr)
		if err != nil {
			return locked, false
		}
		if err := w.lock.TryAcquire(st.rv); err != nil {
			return locked, false
		}
		locked = append(locked, w)
	}
	return locked, true
}

func (r *Region) unlockAll(locked []*word) {
	for _, w := range locked {
		_ = w.lock.Unlock()
	}
}

// validateReadSet re-checks every address read during the transaction.
// A lock held by this transaction's own write set is treated as passing,
// since it is this commit's own in-flight update, not a conflicting one.
func (r *Region) validateReadSet(st *txState, ownLocks []*word) bool {
	owned := make(map[*word]struct{}, len(ownLocks))
	for _, w := range ownLocks {
		owned[w] = struct{}{}
	}

	for _, addr := range st.readSet {
		w, err := r.resolve(addr)
		if err != nil {
			return false
		}
		snap := w.lock.Sample()
		if _, isOwn := owned[w]; isOwn {
			continue
		}
		if snap.Locked || snap.Version > st.rv {
			return false
		}
	}
	return true
}

// publish copies every write-set entry's private value into its word's
// payload and publishes the new version via UnlockAt, atomically.
func (r *Region) publish(st *txState, locked []*word) {
	addrs := st.writeSetAddresses()
	for i, addr := range addrs {
		value, _ := st.pendingWrite(addr)
		w := locked[i]
		copy(w.payload, value)
		_ = w.lock.UnlockAt(st.wv)
	}
}

// abortCleanup frees a read-write transaction's private buffers (left to
// the garbage collector once unreferenced), drops the read set, and
// clears any deletion marks this transaction set, so a later transaction
// may free the same segment.
func (r *Region) abortCleanup(st *txState) {
	for _, addr := range st.freeSet {
		r.clearDeletionMark(addr)
	}
	st.readSet = nil
	st.writeSet.Clear()
	r.logger.Debug("transaction aborted", zap.Uint64("rv", st.rv))
}

// abort performs the failure path shared by Read, Write and Free (and
// Atomic, when fn abandons a still-live transaction):
// it consumes tx immediately, surfacing the failure to the caller on the
// spot rather than waiting for an explicit End.
func (r *Region) abort(tx *Tx) bool {
	st := tx.state
	if st.ended {
		return false
	}
	if !st.isReadOnly {
		r.abortCleanup(st)
	}
	st.ended = true
	r.unregisterActive(st)
	r.metrics.observeEnd(false)
	return false
}
